package public

import (
	"strings"

	"github.com/webmart-next/internal/http/handlers/shared"
	"github.com/webmart-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// CreatePaymentRequest 创建支付请求
type CreatePaymentRequest struct {
	OrderID uint `json:"order_id" binding:"required"`
}

// CreatePayment 为待支付订单创建支付记录
func (h *Handler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid payment input", err)
		return
	}
	payment, err := h.PaymentService.CreatePayment(req.OrderID)
	if err != nil {
		respondWithMappedError(c, err, paymentErrorRules, response.CodeInternal, "payment creation failed")
		return
	}
	response.Success(c, payment)
}

// VerifyPayment 客户端回跳后主动核验支付结果
func (h *Handler) VerifyPayment(c *gin.Context) {
	reference := strings.TrimSpace(c.Param("reference"))
	order, err := h.PaymentService.VerifyPayment(c.Request.Context(), reference)
	if err != nil {
		respondWithMappedError(c, err, paymentErrorRules, response.CodeInternal, "payment verify failed")
		return
	}
	response.Success(c, gin.H{
		"order_id": order.ID,
		"order_no": order.OrderNo,
		"status":   order.Status,
		"paid_at":  order.PaidAt,
	})
}
