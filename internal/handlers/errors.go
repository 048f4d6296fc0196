package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"sms-ingress-server/internal/services"
	"sms-ingress-server/pkg/logger"
	"sms-ingress-server/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgValidationFailed = "Validation failed"
	msgInvalidOTP       = "Invalid OTP"
	msgInternal         = "Internal server error"
	msgTryAgain         = "Failed to process message, try again later"
)

func respondViolations(c *gin.Context, violations []utils.Violation) {
	c.JSON(http.StatusBadRequest, utils.Fail(msgValidationFailed, utils.CodeValidation, violations...))
}

// respondError maps a service error onto the API error envelope.
// Internal details are logged, never returned.
func (h *MessagingHandler) respondError(c *gin.Context, err error) {
	var tooMany *services.TooManySegmentsError

	switch {
	case errors.As(err, &tooMany):
		c.JSON(http.StatusBadRequest, utils.Fail(tooMany.Error(), utils.CodeMessageTooLong,
			utils.Violation{Field: "text", Message: tooMany.Error()}))
	case errors.Is(err, services.ErrEncodingMismatch):
		c.JSON(http.StatusBadRequest, utils.Fail(msgValidationFailed, utils.CodeEncodingMismatch,
			utils.Violation{Field: "smsEncoding", Message: services.ErrEncodingMismatch.Error()}))
	case errors.Is(err, services.ErrEmptyMessage), errors.Is(err, services.ErrUnknownEncoding):
		respondViolations(c, []utils.Violation{{Field: "text", Message: err.Error()}})
	case errors.Is(err, services.ErrInvalidOTPOptions):
		respondViolations(c, []utils.Violation{{Field: "length", Message: err.Error()}})
	case errors.Is(err, services.ErrAlreadyActive):
		c.JSON(http.StatusBadRequest, utils.Fail(services.ErrAlreadyActive.Error(), utils.CodeOTPAlreadyActive))
	case errors.Is(err, services.ErrInvalidOTP):
		c.JSON(http.StatusBadRequest, utils.Fail(msgInvalidOTP, utils.CodeInvalidOTP))
	case errors.Is(err, services.ErrQueueTimeout), errors.Is(err, services.ErrBrokerFailure):
		logger.Ctx(c.Request.Context()).Warn("Queue unavailable", zap.Error(err))
		c.Header("Retry-After", strconv.Itoa(h.retryAfterSeconds()))
		c.JSON(http.StatusServiceUnavailable, utils.Fail(msgTryAgain, utils.CodeQueueFailed))
	default:
		logger.Ctx(c.Request.Context()).Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, utils.Fail(msgInternal, utils.CodeInternal))
	}
}

func (h *MessagingHandler) retryAfterSeconds() int {
	return max(1, int(math.Ceil(h.retryAfter.Seconds())))
}
