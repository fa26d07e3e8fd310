package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/services"
)

type TenantHandler struct {
	log       *logger.Logger
	tenantCfg services.TenantConfigService
}

func NewTenantHandler(log *logger.Logger, tenantCfg services.TenantConfigService) *TenantHandler {
	return &TenantHandler{
		log:       log.With("handler", "TenantHandler"),
		tenantCfg: tenantCfg,
	}
}

// GET /api/tenants/:id/config
func (h *TenantHandler) GetConfig(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_tenant_id", err)
		return
	}
	cfg, err := h.tenantCfg.Resolve(c.Request.Context(), tenantID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"config": cfg})
}

// PUT /api/tenants/:id/config
func (h *TenantHandler) SetConfig(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_tenant_id", err)
		return
	}
	var overrides json.RawMessage
	if err := c.ShouldBindJSON(&overrides); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	merged, err := h.tenantCfg.SetOverrides(c.Request.Context(), tenantID, overrides)
	if err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "invalid_overrides", err)
		return
	}
	RespondOK(c, gin.H{"config": merged})
}
