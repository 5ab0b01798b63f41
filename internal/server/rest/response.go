package rest

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/gin-gonic/gin"
)

const (
	statusSuccess = "success"
	statusFailed  = "failed"
	statusError   = "error"
)

// envelope wraps every JSON body except the refresh response.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respond(c *gin.Context, code int, message string, data any) {
	c.JSON(code, envelope{Status: statusSuccess, Message: message, Data: data})
}

// fail writes a non-success envelope. 5xx codes are reported as "error",
// everything else as "failed".
func fail(c *gin.Context, code int, message string) {
	status := statusFailed
	if code >= http.StatusInternalServerError {
		status = statusError
	}
	c.AbortWithStatusJSON(code, envelope{Status: status, Message: message})
}

// writeError maps a service error onto a status code. Messages of
// unrecognised errors never reach the client.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrValidation):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, common.ErrMissingToken):
		fail(c, http.StatusUnauthorized, "missing token")
	case errors.Is(err, common.ErrTokenExpired):
		fail(c, http.StatusUnauthorized, "token expired")
	case errors.Is(err, common.ErrInvalidToken):
		fail(c, http.StatusForbidden, "invalid token")
	case errors.Is(err, common.ErrForbidden):
		fail(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, common.ErrorNotFound):
		fail(c, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrDuplicateEmail):
		fail(c, http.StatusConflict, "email already registered")
	case errors.Is(err, common.ErrTooManyRequests):
		fail(c, http.StatusTooManyRequests, "too many requests")
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, "internal server error")
	}
}
