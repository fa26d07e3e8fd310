package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/services"
)

type BaselineHandler struct {
	log         *logger.Logger
	baselineSvc services.BaselineService
	tenantCfg   services.TenantConfigService
}

func NewBaselineHandler(log *logger.Logger, baselineSvc services.BaselineService, tenantCfg services.TenantConfigService) *BaselineHandler {
	return &BaselineHandler{
		log:         log.With("handler", "BaselineHandler"),
		baselineSvc: baselineSvc,
		tenantCfg:   tenantCfg,
	}
}

// GET /api/baselines?tenant_id=...&subject_id=...&metric=...
func (h *BaselineHandler) GetCurrent(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_tenant_id", err)
		return
	}
	subjectID, err := uuid.Parse(c.Query("subject_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_subject_id", err)
		return
	}
	metric := strings.TrimSpace(c.Query("metric"))
	if metric == "" {
		RespondError(c, http.StatusBadRequest, "invalid_metric", nil)
		return
	}

	cfg, err := h.tenantCfg.Resolve(c.Request.Context(), tenantID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	baseline, err := h.baselineSvc.Current(c.Request.Context(), tenantID, subjectID, metric, cfg)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"baseline": baseline})
}
