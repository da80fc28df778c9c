package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/webmart-next/internal/config"
	"github.com/webmart-next/internal/constants"
	"github.com/webmart-next/internal/models"
	"github.com/webmart-next/internal/payment/gateway"
	"github.com/webmart-next/internal/queue"
	"github.com/webmart-next/internal/repository"
	"github.com/shopspring/decimal"
)

const testWebhookSecret = "whsec_test"

func setupPaymentServiceTest(t *testing.T) (*serviceTestEnv, *PaymentService) {
	t.Helper()
	env := setupServiceTest(t)
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("create queue client failed: %v", err)
	}
	paymentCfg := &config.PaymentConfig{
		Gateway:       "provider",
		WebhookSecret: testWebhookSecret,
	}
	payments := NewPaymentService(
		repository.NewPaymentRepository(env.db),
		env.orderRepo,
		env.orders,
		env.settlement,
		queueClient,
		paymentCfg,
	)
	return env, payments
}

func signedWebhook(t *testing.T, eventType, eventID, reference, amount string) (map[string]string, []byte) {
	t.Helper()
	body := []byte(fmt.Sprintf(
		`{"event":%q,"data":{"id":%q,"reference":%q,"amount":%s,"currency":"USD","paid_at":"2026-08-01T10:00:00Z"}}`,
		eventType, eventID, reference, amount,
	))
	headers := map[string]string{
		gateway.SignatureHeader: gateway.ComputeSignature(testWebhookSecret, body),
	}
	return headers, body
}

func TestHandleWebhookConfirmsOrder(t *testing.T) {
	env, payments := setupPaymentServiceTest(t)
	order := env.createOrder(t, "WM-2001", constants.OrderStatusPending, "150.00", nil)
	reference := gateway.BuildReference(order.ID, time.Now())

	// 网关金额为最小货币单位（分）
	headers, body := signedWebhook(t, gateway.EventChargeSuccess, "evt_1", reference, "15000")
	outcome, err := payments.HandleWebhook(context.Background(), headers, body)
	if err != nil {
		t.Fatalf("handle webhook failed: %v", err)
	}
	if !outcome.Handled || outcome.OrderID != order.ID {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	var reloaded models.Order
	if err := env.db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusPaid || reloaded.PaidAt == nil {
		t.Fatalf("expected paid order, got %+v", reloaded)
	}

	var payment models.Payment
	if err := env.db.Where("reference = ?", reference).First(&payment).Error; err != nil {
		t.Fatalf("load payment failed: %v", err)
	}
	if payment.Status != constants.OrderStatusPaid || payment.EventID != "evt_1" {
		t.Fatalf("unexpected payment: %+v", payment)
	}

	// 同一订单重复回调按成功的无操作收敛，不得改写原支付记录
	headers, body = signedWebhook(t, gateway.EventChargeSuccess, "evt_2", reference, "15000")
	again, err := payments.HandleWebhook(context.Background(), headers, body)
	if err != nil {
		t.Fatalf("repeated webhook failed: %v", err)
	}
	if !again.Handled || !again.Duplicate {
		t.Fatalf("expected repeated webhook to converge, got %+v", again)
	}
	if err := env.db.Where("reference = ?", reference).First(&payment).Error; err != nil {
		t.Fatalf("reload payment failed: %v", err)
	}
	if payment.EventID != "evt_1" {
		t.Fatalf("duplicate webhook must not rewrite payment, got event %s", payment.EventID)
	}
	var paymentCount int64
	if err := env.db.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&paymentCount).Error; err != nil {
		t.Fatalf("count payments failed: %v", err)
	}
	if paymentCount != 1 {
		t.Fatalf("expected single payment row, got %d", paymentCount)
	}
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	env, payments := setupPaymentServiceTest(t)
	order := env.createOrder(t, "WM-2002", constants.OrderStatusPending, "80.00", nil)
	reference := gateway.BuildReference(order.ID, time.Now())

	_, body := signedWebhook(t, gateway.EventChargeSuccess, "evt_3", reference, "8000")
	headers := map[string]string{gateway.SignatureHeader: "deadbeef"}

	if _, err := payments.HandleWebhook(context.Background(), headers, body); !errors.Is(err, gateway.ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
	var reloaded models.Order
	if err := env.db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusPending {
		t.Fatalf("rejected webhook must not touch order, got %s", reloaded.Status)
	}
}

func TestHandleWebhookIgnoresOtherEvents(t *testing.T) {
	env, payments := setupPaymentServiceTest(t)
	order := env.createOrder(t, "WM-2003", constants.OrderStatusPending, "80.00", nil)
	reference := gateway.BuildReference(order.ID, time.Now())

	headers, body := signedWebhook(t, "charge.failed", "evt_4", reference, "8000")
	outcome, err := payments.HandleWebhook(context.Background(), headers, body)
	if err != nil {
		t.Fatalf("handle webhook failed: %v", err)
	}
	if outcome.Handled {
		t.Fatalf("non-success event must not be handled, got %+v", outcome)
	}

	var reloaded models.Order
	if err := env.db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusPending {
		t.Fatalf("ignored event must not touch order, got %s", reloaded.Status)
	}
}

func TestHandleWebhookRejectsAmountMismatch(t *testing.T) {
	env, payments := setupPaymentServiceTest(t)
	order := env.createOrder(t, "WM-2004", constants.OrderStatusPending, "100.00", nil)

	payment, err := payments.CreatePayment(order.ID)
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	headers, body := signedWebhook(t, gateway.EventChargeSuccess, "evt_5", payment.Reference, "9900")
	if _, err := payments.HandleWebhook(context.Background(), headers, body); !errors.Is(err, ErrPaymentAmountMismatch) {
		t.Fatalf("expected ErrPaymentAmountMismatch, got %v", err)
	}

	var reloaded models.Order
	if err := env.db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusPending {
		t.Fatalf("mismatched amount must not confirm order, got %s", reloaded.Status)
	}
}

func TestHandleWebhookAcknowledgesUnmatchedReference(t *testing.T) {
	env, payments := setupPaymentServiceTest(t)
	order := env.createOrder(t, "WM-2007", constants.OrderStatusPending, "60.00", nil)

	// 签名合法但引用号不是本系统生成的，确认收到即可
	headers, body := signedWebhook(t, gateway.EventChargeSuccess, "evt_6", "TXN-NOT-AN-ORDER", "6000")
	outcome, err := payments.HandleWebhook(context.Background(), headers, body)
	if err != nil {
		t.Fatalf("unmatched reference must be acknowledged, got %v", err)
	}
	if outcome.Handled {
		t.Fatalf("unmatched reference must be a no-op, got %+v", outcome)
	}

	var reloaded models.Order
	if err := env.db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusPending {
		t.Fatalf("unmatched reference must not touch orders, got %s", reloaded.Status)
	}
}

func TestHandleWebhookSettlesInlineWithoutQueue(t *testing.T) {
	env, payments := setupPaymentServiceTest(t)
	affiliate := env.createAffiliate(t, "AFFHOOK", "0.20", "0.00", nil)
	order := env.createOrder(t, "WM-2008", constants.OrderStatusPending, "200.00", &affiliate.ID)
	reference := gateway.BuildReference(order.ID, time.Now())

	headers, body := signedWebhook(t, gateway.EventChargeSuccess, "evt_7", reference, "20000")
	outcome, err := payments.HandleWebhook(context.Background(), headers, body)
	if err != nil {
		t.Fatalf("handle webhook failed: %v", err)
	}
	if !outcome.Handled || outcome.OrderID != order.ID {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	// 队列停用时结算同步完成，不得留下未结算的已付订单
	sale, err := env.saleRepo.GetByPendingOrderID(order.ID)
	if err != nil {
		t.Fatalf("load sale failed: %v", err)
	}
	if sale == nil {
		t.Fatal("expected inline settlement to record a sale")
	}
	if !sale.CommissionAmount.Decimal.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("expected commission 40.00, got %s", sale.CommissionAmount.String())
	}
	reloaded := env.loadAffiliate(t, affiliate.ID)
	if !reloaded.CommissionPending.Decimal.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("expected pending 40.00, got %s", reloaded.CommissionPending.String())
	}
}

func TestCreatePaymentOnlyForPendingOrders(t *testing.T) {
	env, payments := setupPaymentServiceTest(t)
	paid := env.createOrder(t, "WM-2005", constants.OrderStatusPaid, "50.00", nil)

	if _, err := payments.CreatePayment(paid.ID); !errors.Is(err, ErrOrderNotPending) {
		t.Fatalf("expected ErrOrderNotPending, got %v", err)
	}

	pending := env.createOrder(t, "WM-2006", constants.OrderStatusPending, "50.00", nil)
	payment, err := payments.CreatePayment(pending.ID)
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	orderID, err := gateway.ParseReference(payment.Reference)
	if err != nil {
		t.Fatalf("parse reference failed: %v", err)
	}
	if orderID != pending.ID {
		t.Fatalf("reference must embed order id %d, got %d", pending.ID, orderID)
	}
}
