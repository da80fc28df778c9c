package public

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/webmart-next/internal/config"
	"github.com/webmart-next/internal/constants"
	"github.com/webmart-next/internal/models"
	"github.com/webmart-next/internal/payment/gateway"
	"github.com/webmart-next/internal/provider"
	"github.com/webmart-next/internal/queue"
	"github.com/webmart-next/internal/repository"
	"github.com/webmart-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const webhookTestSecret = "whsec_handler_test"

type webhookTestEnv struct {
	db     *gorm.DB
	engine *gin.Engine
}

func setupWebhookTest(t *testing.T) *webhookTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:webhook_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.Affiliate{},
		&models.Sale{},
		&models.CommissionLog{},
		&models.WithdrawalRequest{},
		&models.Domain{},
		&models.Product{},
		&models.Payment{},
		&models.AffiliateAlert{},
		&models.AdminActivityLog{},
		&models.ReferralReward{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	orderRepo := repository.NewOrderRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	affiliateRepo := repository.NewAffiliateRepository(db)
	productRepo := repository.NewProductRepository(db)
	domainRepo := repository.NewDomainRepository(db)
	activityRepo := repository.NewAdminActivityRepository(db)

	affiliateCfg := &config.AffiliateConfig{DefaultCommissionRate: 0.10}
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("create queue client failed: %v", err)
	}

	referrals := service.NewReferralService(affiliateRepo, saleRepo, affiliateCfg)
	reconcile := service.NewReconcileService(affiliateRepo, saleRepo)
	settlement := service.NewSettlementService(orderRepo, saleRepo, affiliateRepo, referrals, reconcile, queueClient, affiliateCfg)
	orders := service.NewOrderService(orderRepo, saleRepo, affiliateRepo, productRepo, domainRepo, activityRepo, queueClient)
	payments := service.NewPaymentService(
		repository.NewPaymentRepository(db),
		orderRepo,
		orders,
		settlement,
		queueClient,
		&config.PaymentConfig{Gateway: "provider", WebhookSecret: webhookTestSecret},
	)

	handler := New(&provider.Container{PaymentService: payments})

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.POST("/api/v1/payments/webhook", handler.PaymentWebhook)

	return &webhookTestEnv{db: db, engine: engine}
}

func (env *webhookTestEnv) createPendingOrder(t *testing.T, orderNo, total string) *models.Order {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	order := models.Order{
		OrderNo:       orderNo,
		CustomerEmail: "buyer@example.com",
		Status:        constants.OrderStatusPending,
		Currency:      "USD",
		TotalAmount:   models.NewMoneyFromDecimal(decimal.RequireFromString(total)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := env.db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return &order
}

func (env *webhookTestEnv) postWebhook(t *testing.T, signature string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(gateway.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	env.engine.ServeHTTP(rec, req)
	return rec
}

func webhookBody(eventType, eventID, reference, amount string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":%q,"data":{"id":%q,"reference":%q,"amount":%s,"currency":"USD","paid_at":"2026-08-01T10:00:00Z"}}`,
		eventType, eventID, reference, amount,
	))
}

func TestPaymentWebhookConfirmsOrder(t *testing.T) {
	env := setupWebhookTest(t)
	order := env.createPendingOrder(t, "WM-3001", "150.00")
	reference := gateway.BuildReference(order.ID, time.Now())

	body := webhookBody(gateway.EventChargeSuccess, "evt_h1", reference, "15000")
	rec := env.postWebhook(t, gateway.ComputeSignature(webhookTestSecret, body), body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body %s", rec.Code, rec.Body.String())
	}

	var reloaded models.Order
	if err := env.db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusPaid {
		t.Fatalf("expected paid order, got %s", reloaded.Status)
	}
}

func TestPaymentWebhookBadSignatureReturns401(t *testing.T) {
	env := setupWebhookTest(t)
	order := env.createPendingOrder(t, "WM-3002", "80.00")
	reference := gateway.BuildReference(order.ID, time.Now())

	body := webhookBody(gateway.EventChargeSuccess, "evt_h2", reference, "8000")
	rec := env.postWebhook(t, "deadbeef", body)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body %s", rec.Code, rec.Body.String())
	}

	var reloaded models.Order
	if err := env.db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusPending {
		t.Fatalf("rejected webhook must not touch order, got %s", reloaded.Status)
	}
}

func TestPaymentWebhookWrongMethodReturns405(t *testing.T) {
	env := setupWebhookTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/webhook", nil)
	rec := httptest.NewRecorder()
	env.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestPaymentWebhookUnmatchedReferenceAcknowledged(t *testing.T) {
	env := setupWebhookTest(t)
	order := env.createPendingOrder(t, "WM-3003", "60.00")

	// 签名合法但引用号无法对应任何订单，确认收到即可
	body := webhookBody(gateway.EventChargeSuccess, "evt_h3", "TXN-NOT-AN-ORDER", "6000")
	rec := env.postWebhook(t, gateway.ComputeSignature(webhookTestSecret, body), body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body %s", rec.Code, rec.Body.String())
	}

	var reloaded models.Order
	if err := env.db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusPending {
		t.Fatalf("unmatched reference must not touch orders, got %s", reloaded.Status)
	}
}
