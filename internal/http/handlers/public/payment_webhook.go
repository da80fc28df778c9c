package public

import (
	"errors"
	"io"
	"net/http"

	"github.com/webmart-next/internal/http/handlers/shared"
	"github.com/webmart-next/internal/payment/gateway"
	"github.com/webmart-next/internal/service"

	"github.com/gin-gonic/gin"
)

// PaymentWebhook 支付网关回调。
// 用原始请求体校验 HMAC 签名，签名不符直接拒绝。
// 网关按 HTTP 状态码判断投递结果，此端点不走统一响应封装。
func (h *Handler) PaymentWebhook(c *gin.Context) {
	log := shared.RequestLog(c)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Warnw("payment_webhook_body_read_failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "bad request"})
		return
	}
	log.Infow("payment_webhook_received",
		"client_ip", c.ClientIP(),
		"body_size", len(body),
	)

	headers := make(map[string]string)
	for key, values := range c.Request.Header {
		if len(values) == 0 {
			continue
		}
		headers[key] = values[0]
	}

	outcome, err := h.PaymentService.HandleWebhook(c.Request.Context(), headers, body)
	if err != nil {
		log.Warnw("payment_webhook_handle_failed", "error", err)
		switch {
		case errors.Is(err, gateway.ErrSignatureInvalid), errors.Is(err, gateway.ErrConfigInvalid):
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "signature verification failed"})
		case errors.Is(err, gateway.ErrPayloadInvalid), errors.Is(err, gateway.ErrReferenceInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid webhook payload"})
		case errors.Is(err, service.ErrPaymentAmountMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "payment amount mismatch"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "webhook processing failed"})
		}
		return
	}

	log.Infow("payment_webhook_processed",
		"event_type", outcome.EventType,
		"handled", outcome.Handled,
		"duplicate", outcome.Duplicate,
		"order_id", outcome.OrderID,
	)
	resp := gin.H{"success": true, "message": "ok"}
	if outcome.OrderID != 0 {
		resp["order_id"] = outcome.OrderID
	}
	c.JSON(http.StatusOK, resp)
}
