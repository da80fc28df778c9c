package public

import (
	"strconv"
	"strings"

	"github.com/webmart-next/internal/http/handlers/shared"
	"github.com/webmart-next/internal/http/response"
	"github.com/webmart-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateOrderItemRequest 下单商品项
type CreateOrderItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity"`
}

// CreateOrderRequest 下单请求
type CreateOrderRequest struct {
	CustomerEmail string                   `json:"customer_email" binding:"required"`
	CustomerName  string                   `json:"customer_name"`
	Currency      string                   `json:"currency"`
	ReferralCode  string                   `json:"referral_code"`
	Items         []CreateOrderItemRequest `json:"items" binding:"required"`
}

// CreateOrder 创建订单
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid order input", err)
		return
	}

	items := make([]service.OrderCreateItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.OrderCreateItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	order, err := h.OrderService.CreateOrder(service.OrderCreateInput{
		OrderNo:       buildOrderNo(),
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		Currency:      req.Currency,
		ReferralCode:  req.ReferralCode,
		ClientIP:      c.ClientIP(),
		Items:         items,
	})
	if err != nil {
		respondWithMappedError(c, err, orderErrorRules, response.CodeInternal, "order creation failed")
		return
	}
	response.Success(c, order)
}

// GetOrder 查询订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.GetOrder(orderID)
	if err != nil {
		respondWithMappedError(c, err, orderErrorRules, response.CodeInternal, "order fetch failed")
		return
	}
	response.Success(c, order)
}

// buildOrderNo 生成订单编号
func buildOrderNo() string {
	return "WM-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		shared.RespondError(c, response.CodeBadRequest, "invalid id", err)
		return 0, false
	}
	return uint(id), true
}
