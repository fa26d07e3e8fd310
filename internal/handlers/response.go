package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caresignal/caresignal-backend/internal/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondDomainError maps a service error through the sentinel table, so
// handlers stay out of the status-code business.
func RespondDomainError(c *gin.Context, err error) {
	ae := apierr.FromError(err)
	RespondError(c, ae.Status, ae.Code, err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
