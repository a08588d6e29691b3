package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agenthands/leadblitz/internal/core"
	"github.com/agenthands/leadblitz/internal/core/auth"
	"github.com/agenthands/leadblitz/internal/core/credits"
	"github.com/agenthands/leadblitz/internal/core/csvimport"
	"github.com/agenthands/leadblitz/internal/core/places"
)

var kindStatus = map[core.Kind]int{
	core.KindInvalid:         http.StatusBadRequest,
	core.KindNotFound:        http.StatusNotFound,
	core.KindForbidden:       http.StatusForbidden,
	core.KindPaymentRequired: http.StatusPaymentRequired,
	core.KindTimeout:         http.StatusGatewayTimeout,
	core.KindUnavailable:     http.StatusServiceUnavailable,
}

func detail(c *gin.Context, status int, msg interface{}) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

// writeError maps err onto a status and a {"detail": ...} body. Errors
// without a user-facing message are logged and reported generically.
func (s *Server) writeError(c *gin.Context, err error) {
	if e, ok := core.AsError(err); ok {
		status, known := kindStatus[e.Kind]
		if !known {
			status = http.StatusInternalServerError
		}
		detail(c, status, e.Message)
		return
	}
	if e, ok := places.AsError(err); ok {
		detail(c, e.HTTPStatus(), e.Message)
		return
	}
	var ce *csvimport.Error
	if errors.As(err, &ce) {
		detail(c, http.StatusBadRequest, ce)
		return
	}
	var ie *credits.InsufficientError
	if errors.As(err, &ie) {
		detail(c, http.StatusPaymentRequired, err.Error())
		return
	}
	switch {
	case errors.Is(err, auth.ErrEmailTaken), errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidResetToken):
		detail(c, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidSession):
		detail(c, http.StatusUnauthorized, err.Error())
		return
	case errors.Is(err, context.DeadlineExceeded):
		detail(c, http.StatusGatewayTimeout, "Request timed out")
		return
	}
	s.Logger.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	detail(c, http.StatusInternalServerError, "Internal server error")
}

func badRequest(c *gin.Context, msg string) {
	detail(c, http.StatusBadRequest, msg)
}
