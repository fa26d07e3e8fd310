package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/services"
	"github.com/caresignal/caresignal-backend/internal/types"
)

type EscalationHandler struct {
	log    *logger.Logger
	escSvc services.EscalationService
}

func NewEscalationHandler(log *logger.Logger, escSvc services.EscalationService) *EscalationHandler {
	return &EscalationHandler{
		log:    log.With("handler", "EscalationHandler"),
		escSvc: escSvc,
	}
}

type escalationActionRequest struct {
	UserID          uuid.UUID `json:"user_id"`
	ExpectedVersion int       `json:"expected_version"`
}

type escalationView struct {
	*types.Escalation
	Breached bool `json:"breached"`
}

func viewEscalation(esc *types.Escalation) escalationView {
	return escalationView{Escalation: esc, Breached: esc.Breached(time.Now().UTC())}
}

// GET /api/escalations?tenant_id=...&limit=...
func (h *EscalationHandler) ListOpen(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_tenant_id", err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	rows, err := h.escSvc.ListOpen(c.Request.Context(), tenantID, limit)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	views := make([]escalationView, 0, len(rows))
	for i := range rows {
		views = append(views, viewEscalation(&rows[i]))
	}
	RespondOK(c, gin.H{"escalations": views})
}

// POST /api/escalations/:id/acknowledge
func (h *EscalationHandler) Acknowledge(c *gin.Context) {
	h.applyTransition(c, h.escSvc.Acknowledge)
}

// POST /api/escalations/:id/start
func (h *EscalationHandler) Start(c *gin.Context) {
	h.applyTransition(c, h.escSvc.Start)
}

// POST /api/escalations/:id/resolve
func (h *EscalationHandler) Resolve(c *gin.Context) {
	h.applyTransition(c, h.escSvc.Resolve)
}

func (h *EscalationHandler) applyTransition(c *gin.Context, fn func(ctx context.Context, escalationID, userID uuid.UUID, expectedVersion int) (*types.Escalation, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_escalation_id", err)
		return
	}
	var req escalationActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if req.UserID == uuid.Nil {
		RespondError(c, http.StatusBadRequest, "missing_user_id", nil)
		return
	}
	esc, err := fn(c.Request.Context(), id, req.UserID, req.ExpectedVersion)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"escalation": viewEscalation(esc)})
}

// POST /api/escalations/:id/assign
func (h *EscalationHandler) Assign(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_escalation_id", err)
		return
	}
	var req escalationActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if req.UserID == uuid.Nil {
		RespondError(c, http.StatusBadRequest, "missing_user_id", nil)
		return
	}
	esc, err := h.escSvc.Assign(c.Request.Context(), id, req.UserID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"escalation": viewEscalation(esc)})
}
