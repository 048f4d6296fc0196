package handlers

import (
	"net/http"
	"time"

	"sms-ingress-server/internal/config"
	"sms-ingress-server/internal/models"
	"sms-ingress-server/pkg/logger"
	"sms-ingress-server/pkg/middleware"
	"sms-ingress-server/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MessagingHandler handles the A2P and OTP endpoints
type MessagingHandler struct {
	service        MessagingServiceInterface
	expireMinDelay time.Duration
	retryAfter     time.Duration
	now            func() time.Time
}

// NewMessagingHandler creates a new messaging handler
func NewMessagingHandler(service MessagingServiceInterface, cfg *config.Config) *MessagingHandler {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &MessagingHandler{
		service:        service,
		expireMinDelay: cfg.SMS.ExpireMinDelay,
		retryAfter:     cfg.Queue.AddTimeout,
		now:            time.Now,
	}
}

// smscConfig returns the routing config set by the auth middleware.
// A missing config means the route was mounted without authentication.
func (h *MessagingHandler) smscConfig(c *gin.Context) (models.SmscConfig, bool) {
	smsc, ok := middleware.SmscConfigFrom(c)
	if !ok {
		logger.Ctx(c.Request.Context()).Error("Missing client configuration on authenticated route")
		c.JSON(http.StatusUnauthorized, utils.Fail("Unauthorized", utils.CodeUnauthenticated))
	}
	return smsc, ok
}

// SendA2P validates an application-to-person message and queues it
func (h *MessagingHandler) SendA2P(c *gin.Context) {
	smsc, ok := h.smscConfig(c)
	if !ok {
		return
	}

	var req models.A2PRequest
	if violations := bindJSON(c, &req); violations != nil {
		logger.Ctx(c.Request.Context()).Debug("Invalid A2P request", zap.Any("violations", violations))
		respondViolations(c, violations)
		return
	}
	if violations := checkExpireAt(req.Callbacks, h.expireMinDelay, h.now()); violations != nil {
		respondViolations(c, violations)
		return
	}
	req.To = normalizePhone(req.To)

	resp, err := h.service.SendA2P(c.Request.Context(), smsc, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.OK("message queued successfully", resp))
}
