package handlers

import (
	"net/http"

	"sms-ingress-server/internal/models"
	"sms-ingress-server/pkg/utils"

	"github.com/gin-gonic/gin"
)

// SendOTP issues a verification code and queues the SMS carrying it
func (h *MessagingHandler) SendOTP(c *gin.Context) {
	smsc, ok := h.smscConfig(c)
	if !ok {
		return
	}

	var req models.SendOTPRequest
	if violations := bindJSON(c, &req); violations != nil {
		respondViolations(c, violations)
		return
	}
	if violations := checkExpireAt(req.Callbacks, h.expireMinDelay, h.now()); violations != nil {
		respondViolations(c, violations)
		return
	}
	req.To = normalizePhone(req.To)

	resp, err := h.service.SendOTP(c.Request.Context(), smsc, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.OK("OTP message queued successfully", resp))
}

// VerifyOTP consumes the active code for the recipient
func (h *MessagingHandler) VerifyOTP(c *gin.Context) {
	smsc, ok := h.smscConfig(c)
	if !ok {
		return
	}

	var req models.VerifyOTPRequest
	if violations := bindJSON(c, &req); violations != nil {
		respondViolations(c, violations)
		return
	}
	req.To = normalizePhone(req.To)

	if err := h.service.VerifyOTP(c.Request.Context(), smsc, &req); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.OK("OTP is valid", nil))
}
