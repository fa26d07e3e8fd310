package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caresignal/caresignal-backend/internal/logger"
	"github.com/caresignal/caresignal-backend/internal/services"
)

type ObservationHandler struct {
	log        *logger.Logger
	aggregator services.AggregatorService
}

func NewObservationHandler(log *logger.Logger, aggregator services.AggregatorService) *ObservationHandler {
	return &ObservationHandler{
		log:        log.With("handler", "ObservationHandler"),
		aggregator: aggregator,
	}
}

// POST /api/observations
func (h *ObservationHandler) Submit(c *gin.Context) {
	var input services.SubmitObservationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	obs, err := h.aggregator.SubmitObservation(c.Request.Context(), input)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"observation": obs})
}
