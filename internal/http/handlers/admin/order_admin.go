package admin

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/webmart-next/internal/http/handlers/shared"
	"github.com/webmart-next/internal/http/response"
	"github.com/webmart-next/internal/queue"
	"github.com/webmart-next/internal/repository"
	"github.com/webmart-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminListOrders 管理端订单列表
func (h *Handler) AdminListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = shared.NormalizePagination(page, pageSize)

	filter := repository.OrderListFilter{
		Page:          page,
		PageSize:      pageSize,
		Status:        strings.TrimSpace(c.Query("status")),
		OrderNo:       strings.TrimSpace(c.Query("order_no")),
		CustomerEmail: strings.TrimSpace(c.Query("customer_email")),
	}
	if raw := strings.TrimSpace(c.Query("affiliate_id")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.AffiliateID = uint(parsed)
		}
	}

	orders, total, err := h.OrderService.ListOrders(filter)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "order list failed", err)
		return
	}
	response.SuccessWithPage(c, orders, buildPagination(page, pageSize, total))
}

// AdminMarkOrderPaidRequest 手工确认支付请求
type AdminMarkOrderPaidRequest struct {
	PaidAt *time.Time `json:"paid_at"`
}

// AdminMarkOrderPaid 手工将订单标记为已支付
func (h *Handler) AdminMarkOrderPaid(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req AdminMarkOrderPaidRequest
	_ = c.ShouldBindJSON(&req)

	paidAt := time.Time{}
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}
	order, err := h.OrderService.MarkOrderPaid(orderID, paidAt)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			shared.RespondError(c, response.CodeNotFound, "order not found", nil)
		case errors.Is(err, service.ErrOrderNotPending):
			shared.RespondError(c, response.CodeBadRequest, "order is not pending", nil)
		default:
			shared.RespondError(c, response.CodeInternal, "order update failed", err)
		}
		return
	}

	adminID, _ := shared.GetContextAdminID(c)
	shared.RequestLog(c).Infow("admin_order_mark_paid", "order_id", order.ID, "admin_id", adminID)

	// 手工确认同样触发结算，队列停用时同步执行
	if h.QueueClient.Enabled() {
		if err := h.QueueClient.EnqueueOrderSettle(queue.OrderSettlePayload{OrderID: order.ID}); err != nil {
			shared.RequestLog(c).Warnw("admin_order_settle_enqueue_failed", "order_id", order.ID, "error", err)
		}
	} else if h.SettlementService != nil {
		if _, err := h.SettlementService.ProcessOrderCommission(order.ID); err != nil {
			shared.RequestLog(c).Warnw("admin_order_settle_inline_failed", "order_id", order.ID, "error", err)
		}
	}
	response.Success(c, order)
}

// AdminCancelOrderRequest 取消订单请求
type AdminCancelOrderRequest struct {
	Reason string `json:"reason"`
}

// AdminCancelOrder 管理端取消订单，已支付订单整体冲回
func (h *Handler) AdminCancelOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	adminID, ok := shared.GetContextAdminID(c)
	if !ok || adminID == 0 {
		shared.RespondError(c, response.CodeUnauthorized, "unauthorized", nil)
		return
	}
	var req AdminCancelOrderRequest
	_ = c.ShouldBindJSON(&req)

	order, err := h.OrderService.CancelOrder(orderID, req.Reason, adminID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			shared.RespondError(c, response.CodeNotFound, "order not found", nil)
		case errors.Is(err, service.ErrOrderNotCancellable):
			shared.RespondError(c, response.CodeBadRequest, "order cannot be cancelled", nil)
		case errors.Is(err, service.ErrAdminRequired):
			shared.RespondError(c, response.CodeForbidden, "admin required", nil)
		default:
			shared.RespondError(c, response.CodeInternal, "order cancel failed", err)
		}
		return
	}
	response.Success(c, order)
}

// AdminSettleOrder 手动触发订单结算（同步执行）
func (h *Handler) AdminSettleOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.SettlementService.ProcessOrderCommission(orderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			shared.RespondError(c, response.CodeNotFound, "order not found", nil)
		case errors.Is(err, service.ErrOrderNotPaid):
			shared.RespondError(c, response.CodeBadRequest, "order is not paid", nil)
		default:
			shared.RespondError(c, response.CodeInternal, "settlement failed", err)
		}
		return
	}
	response.Success(c, result)
}

// AdminListSales 管理端销售记录列表
func (h *Handler) AdminListSales(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = shared.NormalizePagination(page, pageSize)

	filter := repository.SaleListFilter{Page: page, PageSize: pageSize}
	if raw := strings.TrimSpace(c.Query("affiliate_id")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.AffiliateID = uint(parsed)
		}
	}

	sales, total, err := h.SaleRepo.List(filter)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "sale list failed", err)
		return
	}
	response.SuccessWithPage(c, sales, buildPagination(page, pageSize, total))
}

func buildPagination(page, pageSize int, total int64) response.Pagination {
	return response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
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
