package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"callpay-platform/internal/apperr"
	"callpay-platform/pkg/logger"
)

// statusFor maps stable domain error codes to HTTP statuses. The mapping is
// part of the API contract; clients branch on the code field, not the text.
func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeInvalidAmount, apperr.CodeSameParty:
		return http.StatusUnprocessableEntity
	case apperr.CodeInsufficientBalance:
		return http.StatusPaymentRequired
	case apperr.CodeInvalidTransition, apperr.CodeAlreadyCompleted, apperr.CodeDuplicateReference:
		return http.StatusConflict
	case apperr.CodeTooManyCalls:
		return http.StatusTooManyRequests
	case apperr.CodeForbidden:
		return http.StatusForbidden
	case apperr.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes a typed domain failure as JSON, or a generic 500 for
// infrastructure errors. Internal error text never reaches clients.
func respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		c.AbortWithStatusJSON(statusFor(appErr.Code), gin.H{
			"code":  appErr.Code,
			"error": appErr.Message,
		})
		return
	}
	logger.From(c.Request.Context()).Error("request failed", "error", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"code":  "INTERNAL",
		"error": "internal error",
	})
}
