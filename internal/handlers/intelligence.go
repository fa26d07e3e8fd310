package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/services"
)

type IntelligenceHandler struct {
	log      *logger.Logger
	intelSvc services.IntelligenceService
}

func NewIntelligenceHandler(log *logger.Logger, intelSvc services.IntelligenceService) *IntelligenceHandler {
	return &IntelligenceHandler{
		log:      log.With("handler", "IntelligenceHandler"),
		intelSvc: intelSvc,
	}
}

type runPassRequest struct {
	TenantID uuid.UUID `json:"tenant_id"`
}

// POST /api/intelligence/run
func (h *IntelligenceHandler) RunPass(c *gin.Context) {
	var req runPassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if req.TenantID == uuid.Nil {
		RespondError(c, http.StatusBadRequest, "missing_tenant_id", nil)
		return
	}
	pass, err := h.intelSvc.RunPass(c.Request.Context(), req.TenantID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"pass": pass})
}

// GET /api/intelligence/passes?tenant_id=...&limit=...
func (h *IntelligenceHandler) ListPasses(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_tenant_id", err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	passes, err := h.intelSvc.RecentPasses(c.Request.Context(), tenantID, limit)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"passes": passes})
}
