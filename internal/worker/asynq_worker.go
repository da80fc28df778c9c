package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/webmart-next/internal/constants"
	"github.com/webmart-next/internal/logger"
	"github.com/webmart-next/internal/provider"
	"github.com/webmart-next/internal/queue"
	"github.com/webmart-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(constants.TaskOrderSettle, c.handleOrderSettle)
	mux.HandleFunc(constants.TaskCommissionEmail, c.handleCommissionEmail)
	mux.HandleFunc(constants.TaskOrderRejectionEmail, c.handleOrderRejectionEmail)
	mux.HandleFunc(constants.TaskPaymentConfirmEmail, c.handlePaymentConfirmEmail)
	mux.HandleFunc(constants.TaskCommissionLogCleanup, c.handleCommissionLogCleanup)
}

func (c *Consumer) handleOrderSettle(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_settle_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderSettlePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_settle_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_settle_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.SettlementService == nil {
		logger.Warnw("worker_order_settle_skip_service_nil", "order_id", payload.OrderID)
		return nil
	}
	result, err := c.SettlementService.ProcessOrderCommission(payload.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			logger.Debugw("worker_order_settle_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		case errors.Is(err, service.ErrOrderNotPaid):
			// 订单被取消或回滚，任务丢弃
			logger.Debugw("worker_order_settle_skip_not_paid", "order_id", payload.OrderID)
			return nil
		default:
			logger.Warnw("worker_order_settle_failed", "order_id", payload.OrderID, "error", err)
			return err
		}
	}
	if result.Duplicate {
		logger.Debugw("worker_order_settle_duplicate", "order_id", payload.OrderID)
	}
	return nil
}

func (c *Consumer) handleCommissionEmail(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_commission_email_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CommissionEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_commission_email_unmarshal_failed", "error", err)
		return err
	}
	if payload.AffiliateID == 0 || c.EmailService == nil {
		return nil
	}
	affiliate, err := c.AffiliateRepo.GetByID(payload.AffiliateID)
	if err != nil {
		logger.Warnw("worker_commission_email_fetch_affiliate_failed", "affiliate_id", payload.AffiliateID, "error", err)
		return err
	}
	if affiliate == nil || strings.TrimSpace(affiliate.Email) == "" {
		logger.Debugw("worker_commission_email_skip_empty_receiver", "affiliate_id", payload.AffiliateID)
		return nil
	}
	order, err := c.OrderRepo.GetByID(payload.OrderID)
	if err != nil {
		logger.Warnw("worker_commission_email_fetch_order_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	orderNo := ""
	if order != nil {
		orderNo = order.OrderNo
	}
	sale, err := c.SaleRepo.GetByPendingOrderID(payload.OrderID)
	if err != nil {
		logger.Warnw("worker_commission_email_fetch_sale_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	if sale == nil {
		// 结算已被冲销，不再发信
		logger.Debugw("worker_commission_email_skip_sale_gone", "order_id", payload.OrderID)
		return nil
	}
	items, err := c.OrderRepo.ListItemsByOrder(payload.OrderID)
	if err != nil {
		logger.Warnw("worker_commission_email_fetch_items_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	titles := make([]string, 0, len(items))
	for _, item := range items {
		titles = append(titles, item.ProductTitle)
	}
	if err := c.EmailService.SendCommissionEarnedEmail(affiliate.Name, affiliate.Email, orderNo, sale.CommissionAmount, sale.Currency, titles); err != nil {
		return c.normalizeEmailError("worker_commission_email_send_failed", payload.OrderID, err)
	}
	return nil
}

func (c *Consumer) handleOrderRejectionEmail(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.OrderRejectionEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_rejection_email_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 || c.EmailService == nil {
		return nil
	}
	order, err := c.OrderRepo.GetByID(payload.OrderID)
	if err != nil {
		logger.Warnw("worker_order_rejection_email_fetch_order_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	if order == nil || strings.TrimSpace(order.CustomerEmail) == "" {
		logger.Debugw("worker_order_rejection_email_skip_empty_receiver", "order_id", payload.OrderID)
		return nil
	}
	if err := c.EmailService.SendOrderRejectionEmail(order.CustomerEmail, order.OrderNo, payload.Reason); err != nil {
		return c.normalizeEmailError("worker_order_rejection_email_send_failed", order.ID, err)
	}
	return nil
}

func (c *Consumer) handlePaymentConfirmEmail(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.PaymentConfirmEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_payment_confirm_email_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 || c.EmailService == nil {
		return nil
	}
	order, err := c.OrderRepo.GetByID(payload.OrderID)
	if err != nil {
		logger.Warnw("worker_payment_confirm_email_fetch_order_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	if order == nil || strings.TrimSpace(order.CustomerEmail) == "" {
		logger.Debugw("worker_payment_confirm_email_skip_empty_receiver", "order_id", payload.OrderID)
		return nil
	}
	if err := c.EmailService.SendPaymentConfirmationEmail(order.CustomerEmail, order.OrderNo, order.TotalAmount, order.Currency); err != nil {
		return c.normalizeEmailError("worker_payment_confirm_email_send_failed", order.ID, err)
	}
	return nil
}

func (c *Consumer) handleCommissionLogCleanup(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.CommissionLogCleanupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_log_cleanup_unmarshal_failed", "error", err)
		return err
	}
	if c.MaintenanceService == nil {
		return nil
	}
	if _, err := c.MaintenanceService.CleanupCommissionLogs(ctx, payload.RetentionDays); err != nil {
		logger.Warnw("worker_log_cleanup_failed", "error", err)
		return err
	}
	return nil
}

// normalizeEmailError 邮件服务未启用或收件地址非法时丢弃任务，其余错误交给队列重试
func (c *Consumer) normalizeEmailError(event string, orderID uint, err error) error {
	switch {
	case errors.Is(err, service.ErrEmailServiceDisabled),
		errors.Is(err, service.ErrEmailServiceNotConfigured),
		errors.Is(err, service.ErrInvalidEmail):
		logger.Debugw(event+"_skipped", "order_id", orderID, "reason", err)
		return nil
	default:
		logger.Warnw(event, "order_id", orderID, "error", err)
		return err
	}
}
