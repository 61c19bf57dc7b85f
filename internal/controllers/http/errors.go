package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
)

var statusByKind = map[domain.ErrorKind]int{
	domain.KindInvalidCoupon:     http.StatusBadRequest,
	domain.KindInvalidInput:      http.StatusBadRequest,
	domain.KindSignatureMismatch: http.StatusBadRequest,
	domain.KindAmountMismatch:    http.StatusBadRequest,
	domain.KindInsufficientStock: http.StatusConflict,
	domain.KindInvalidTransition: http.StatusConflict,
	domain.KindOrderNotPending:   http.StatusConflict,
	domain.KindConflict:          http.StatusConflict,
	domain.KindOrderNotFound:     http.StatusNotFound,
	domain.KindNotFound:          http.StatusNotFound,
	domain.KindUnauthorized:      http.StatusUnauthorized,
	domain.KindForbidden:         http.StatusForbidden,
}

// writeError reports business errors by kind and hides everything else.
func writeError(c *gin.Context, err error) {
	var derr *domain.Error
	if errors.As(err, &derr) {
		status, ok := statusByKind[derr.Kind]
		if !ok {
			status = http.StatusBadRequest
		}
		c.AbortWithStatusJSON(status, ErrorResponse{Error: string(derr.Kind), Message: derr.Message})
		return
	}

	log.Error().Err(err).Str("method", c.Request.Method).Str("path", c.FullPath()).Msg("request failed")
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal", Message: "internal error"})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: string(domain.KindInvalidInput), Message: err.Error()})
}
