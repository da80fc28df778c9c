package service

import (
	"context"
	"strings"
	"time"

	"github.com/webmart-next/internal/cache"
	"github.com/webmart-next/internal/config"
	"github.com/webmart-next/internal/constants"
	"github.com/webmart-next/internal/logger"
	"github.com/webmart-next/internal/metrics"
	"github.com/webmart-next/internal/models"
	"github.com/webmart-next/internal/payment/gateway"
	"github.com/webmart-next/internal/queue"
	"github.com/webmart-next/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const webhookEventTTL = 72 * time.Hour

// PaymentService 支付业务服务。
// Webhook 与主动核验两条路径汇聚到同一确认逻辑。
type PaymentService struct {
	paymentRepo       repository.PaymentRepository
	orderRepo         repository.OrderRepository
	orderService      *OrderService
	settlementService *SettlementService
	queueClient       *queue.Client
	cfg               *config.PaymentConfig
}

// NewPaymentService 创建支付服务
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	orderRepo repository.OrderRepository,
	orderService *OrderService,
	settlementService *SettlementService,
	queueClient *queue.Client,
	cfg *config.PaymentConfig,
) *PaymentService {
	return &PaymentService{
		paymentRepo:       paymentRepo,
		orderRepo:         orderRepo,
		orderService:      orderService,
		settlementService: settlementService,
		queueClient:       queueClient,
		cfg:               cfg,
	}
}

func (s *PaymentService) gatewayConfig() *gateway.Config {
	if s.cfg == nil {
		return &gateway.Config{}
	}
	return &gateway.Config{
		SecretKey:     s.cfg.SecretKey,
		WebhookSecret: s.cfg.WebhookSecret,
		APIBaseURL:    s.cfg.APIBaseURL,
	}
}

// CreatePayment 为待支付订单创建支付记录并生成参考号。
func (s *PaymentService) CreatePayment(orderID uint) (*models.Payment, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusPending {
		return nil, ErrOrderNotPending
	}

	now := time.Now().UTC()
	payment := &models.Payment{
		OrderID:   order.ID,
		Reference: gateway.BuildReference(order.ID, now),
		Gateway:   s.gatewayName(),
		Method:    constants.PaymentMethodAutomatic,
		Amount:    order.TotalAmount,
		Currency:  order.Currency,
		Status:    constants.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.paymentRepo.Create(payment); err != nil {
		return nil, err
	}
	logger.Infow("payment_created", "order_id", order.ID, "reference", payment.Reference)
	return payment, nil
}

// WebhookOutcome Webhook 处理结果
type WebhookOutcome struct {
	Handled   bool   `json:"handled"`
	Duplicate bool   `json:"duplicate"`
	EventType string `json:"event_type"`
	OrderID   uint   `json:"order_id,omitempty"`
}

// HandleWebhook 处理网关回调。
// 签名校验失败直接拒绝；非 charge.success 事件确认但不处理；
// 成功事件按参考号确认支付并推进订单，结算任务入队。
func (s *PaymentService) HandleWebhook(ctx context.Context, headers map[string]string, body []byte) (*WebhookOutcome, error) {
	event, err := gateway.VerifyAndParseWebhook(s.gatewayConfig(), headers, body)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("rejected").Inc()
		return nil, err
	}

	if event.EventType != gateway.EventChargeSuccess {
		metrics.WebhookEvents.WithLabelValues("ignored").Inc()
		logger.Infow("payment_webhook_ignored", "event_type", event.EventType)
		return &WebhookOutcome{EventType: event.EventType}, nil
	}

	// Redis 回放挡板，宕机时由库内状态机兜底
	if event.EventID != "" {
		first, err := cache.MarkWebhookEventOnce(ctx, event.EventID, webhookEventTTL)
		if err != nil {
			logger.Warnw("webhook_replay_guard_failed", "event_id", event.EventID, "error", err)
		} else if !first {
			metrics.WebhookEvents.WithLabelValues("duplicate").Inc()
			return &WebhookOutcome{EventType: event.EventType, Duplicate: true}, nil
		}
	}

	// 解析不出订单号的成功事件确认但不处理，网关重试也无法自愈
	orderID, err := gateway.ParseReference(event.Reference)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unmatched").Inc()
		logger.Warnw("payment_webhook_reference_unmatched", "reference", event.Reference)
		return &WebhookOutcome{EventType: event.EventType}, nil
	}

	order, alreadyPaid, err := s.confirmOrderPayment(orderID, event.Reference, event.EventID, event.Amount, event.PaidAt)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("failed").Inc()
		return nil, err
	}
	if alreadyPaid {
		metrics.WebhookEvents.WithLabelValues("duplicate").Inc()
		return &WebhookOutcome{Handled: true, Duplicate: true, EventType: event.EventType, OrderID: order.ID}, nil
	}
	metrics.WebhookEvents.WithLabelValues("processed").Inc()
	return &WebhookOutcome{Handled: true, EventType: event.EventType, OrderID: order.ID}, nil
}

// VerifyPayment 客户端回跳后主动向网关核验，成功则与 Webhook 收敛到同一确认路径。
func (s *PaymentService) VerifyPayment(ctx context.Context, reference string) (*models.Order, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, ErrInvalidInput
	}

	result, err := gateway.QueryCharge(ctx, s.gatewayConfig(), reference)
	if err != nil {
		return nil, err
	}
	if result.Status != gateway.ChargeStatusSuccess {
		logger.Infow("payment_verify_not_successful", "reference", reference, "status", result.Status)
		return nil, ErrOrderNotPaid
	}
	orderID, err := gateway.ParseReference(reference)
	if err != nil {
		return nil, err
	}
	order, _, err := s.confirmOrderPayment(orderID, reference, "", result.Amount, result.PaidAt)
	return order, err
}

// confirmOrderPayment 确认支付：支付记录置成功、订单 pending → paid，同一事务提交。
// 金额与订单不符直接拒绝；已支付订单按成功的纯无操作处理，不改支付记录不发通知。
func (s *PaymentService) confirmOrderPayment(orderID uint, reference, eventID, rawAmount string, paidAt *time.Time) (*models.Order, bool, error) {
	now := time.Now().UTC()
	paid := now
	if paidAt != nil && !paidAt.IsZero() {
		paid = paidAt.UTC()
	}

	var order *models.Order
	var alreadyPaid bool
	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.WithTx(tx)

		payment, err := paymentRepo.GetByReference(reference)
		if err != nil {
			return err
		}

		if rawAmount != "" {
			// 网关金额为最小货币单位（分），换算成主单位后比对
			minor, err := decimal.NewFromString(strings.TrimSpace(rawAmount))
			if err != nil {
				return ErrPaymentAmountMismatch
			}
			amount := minor.Shift(-2)
			expected := decimal.Zero
			if payment != nil {
				expected = payment.Amount.Decimal
			} else if existing, err := s.orderRepo.WithTx(tx).GetByID(orderID); err != nil {
				return err
			} else if existing != nil {
				expected = existing.TotalAmount.Decimal
			}
			if !amount.Round(2).Equal(expected.Round(2)) {
				logger.Warnw("payment_amount_mismatch",
					"reference", reference,
					"expected", expected.StringFixed(2),
					"got", amount.StringFixed(2),
				)
				return ErrPaymentAmountMismatch
			}
		}

		var transitioned bool
		order, transitioned, err = s.orderService.markOrderPaidTx(tx, orderID, paid)
		if err != nil {
			return err
		}
		if !transitioned {
			alreadyPaid = true
			return nil
		}

		if payment == nil {
			payment = &models.Payment{
				OrderID:   order.ID,
				Reference: reference,
				Gateway:   s.gatewayName(),
				Method:    constants.PaymentMethodAutomatic,
				Amount:    order.TotalAmount,
				Currency:  order.Currency,
				CreatedAt: now,
			}
		}
		payment.Status = constants.OrderStatusPaid
		payment.EventID = strings.TrimSpace(eventID)
		payment.PaidAt = &paid
		payment.UpdatedAt = now
		if payment.ID == 0 {
			return paymentRepo.Create(payment)
		}
		return paymentRepo.Update(payment)
	})
	if err != nil {
		return nil, false, err
	}
	if alreadyPaid {
		logger.Infow("payment_confirm_duplicate", "order_id", order.ID, "reference", reference)
		return order, true, nil
	}

	logger.Infow("payment_confirmed", "order_id", order.ID, "reference", reference)
	if s.queueClient.Enabled() {
		if err := s.queueClient.EnqueueOrderSettle(queue.OrderSettlePayload{OrderID: order.ID}); err != nil {
			logger.Errorw("order_settle_enqueue_failed", "order_id", order.ID, "error", err)
		}
		if err := s.queueClient.EnqueuePaymentConfirmEmail(queue.PaymentConfirmEmailPayload{OrderID: order.ID}); err != nil {
			logger.Warnw("payment_confirm_email_enqueue_failed", "order_id", order.ID, "error", err)
		}
	} else if s.settlementService != nil {
		// 队列停用时同步结算，确认的支付不能漏进账
		if _, err := s.settlementService.ProcessOrderCommission(order.ID); err != nil {
			logger.Errorw("payment_inline_settlement_failed", "order_id", order.ID, "error", err)
		}
	}
	return order, false, nil
}

func (s *PaymentService) gatewayName() string {
	if s.cfg != nil && strings.TrimSpace(s.cfg.Gateway) != "" {
		return strings.TrimSpace(s.cfg.Gateway)
	}
	return "provider"
}
