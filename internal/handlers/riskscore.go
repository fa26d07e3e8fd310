package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/services"
	"github.com/caresignal/caresignal-backend/internal/types"
)

type RiskScoreHandler struct {
	log     *logger.Logger
	riskSvc services.RiskService
}

func NewRiskScoreHandler(log *logger.Logger, riskSvc services.RiskService) *RiskScoreHandler {
	return &RiskScoreHandler{
		log:     log.With("handler", "RiskScoreHandler"),
		riskSvc: riskSvc,
	}
}

// GET /api/risk-scores?tenant_id=...&category=...&limit=...
func (h *RiskScoreHandler) ListCurrent(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_tenant_id", err)
		return
	}
	category := types.RiskCategory(strings.ToUpper(strings.TrimSpace(c.Query("category"))))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	scores, err := h.riskSvc.ListCurrent(c.Request.Context(), tenantID, category, limit)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"risk_scores": scores})
}
