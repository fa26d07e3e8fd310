package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/caresignal/caresignal-backend/internal/apierr"
	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/services"
	"github.com/caresignal/caresignal-backend/internal/types"
)

type IssueHandler struct {
	log         *logger.Logger
	prioritizer services.PrioritizerService
	narrator    services.NarratorService
}

func NewIssueHandler(log *logger.Logger, prioritizer services.PrioritizerService, narrator services.NarratorService) *IssueHandler {
	return &IssueHandler{
		log:         log.With("handler", "IssueHandler"),
		prioritizer: prioritizer,
		narrator:    narrator,
	}
}

// GET /api/issues?tenant_id=...&status=NEW,ACKNOWLEDGED&limit=...
func (h *IssueHandler) List(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Query("tenant_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_tenant_id", err)
		return
	}
	statuses, err := parseIssueStatuses(c.Query("status"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_status", err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	issues, err := h.prioritizer.ListIssues(c.Request.Context(), tenantID, statuses, limit)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"issues": issues})
}

// GET /api/issues/:id
func (h *IssueHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_issue_id", err)
		return
	}
	issue, err := h.prioritizer.GetIssue(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if issue == nil {
		RespondDomainError(c, apierr.ErrNotFound)
		return
	}
	RespondOK(c, gin.H{"issue": issue})
}

// GET /api/issues/:id/explanation
func (h *IssueHandler) GetExplanation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_issue_id", err)
		return
	}
	explanation, err := h.narrator.GetExplanation(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"explanation": explanation})
}

func parseIssueStatuses(raw string) ([]types.IssueStatus, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	statuses := make([]types.IssueStatus, 0, len(parts))
	for _, part := range parts {
		s := types.IssueStatus(strings.ToUpper(strings.TrimSpace(part)))
		switch s {
		case types.IssueNew, types.IssueAcknowledged, types.IssueInProgress, types.IssueResolved, types.IssueDismissed:
			statuses = append(statuses, s)
		default:
			return nil, apierr.New(http.StatusBadRequest, "invalid_status", nil)
		}
	}
	return statuses, nil
}
