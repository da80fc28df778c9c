package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/webmart-next/internal/constants"
	"github.com/webmart-next/internal/models"
	"github.com/webmart-next/internal/queue"
	"github.com/webmart-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/webmart-next/internal/config"
)

type serviceTestEnv struct {
	db            *gorm.DB
	orderRepo     *repository.GormOrderRepository
	saleRepo      *repository.GormSaleRepository
	affiliateRepo *repository.GormAffiliateRepository
	productRepo   *repository.GormProductRepository
	domainRepo    *repository.GormDomainRepository
	activityRepo  *repository.GormAdminActivityRepository

	settlement  *SettlementService
	orders      *OrderService
	reconcile   *ReconcileService
	withdrawals *WithdrawalService
	referrals   *ReferralService
	domains     *DomainService
}

func setupServiceTest(t *testing.T) *serviceTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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

	env := &serviceTestEnv{
		db:            db,
		orderRepo:     repository.NewOrderRepository(db),
		saleRepo:      repository.NewSaleRepository(db),
		affiliateRepo: repository.NewAffiliateRepository(db),
		productRepo:   repository.NewProductRepository(db),
		domainRepo:    repository.NewDomainRepository(db),
		activityRepo:  repository.NewAdminActivityRepository(db),
	}

	affiliateCfg := &config.AffiliateConfig{
		DefaultCommissionRate: 0.10,
		ReferralRewardRate:    0.05,
		MinWithdrawAmount:     10,
	}
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("create queue client failed: %v", err)
	}

	env.referrals = NewReferralService(env.affiliateRepo, env.saleRepo, affiliateCfg)
	env.reconcile = NewReconcileService(env.affiliateRepo, env.saleRepo)
	env.settlement = NewSettlementService(env.orderRepo, env.saleRepo, env.affiliateRepo, env.referrals, env.reconcile, queueClient, affiliateCfg)
	env.orders = NewOrderService(env.orderRepo, env.saleRepo, env.affiliateRepo, env.productRepo, env.domainRepo, env.activityRepo, queueClient)
	env.withdrawals = NewWithdrawalService(env.affiliateRepo, env.activityRepo, affiliateCfg)
	env.domains = NewDomainService(env.orderRepo, env.domainRepo, env.activityRepo)
	return env
}

// createAffiliate 创建启用中的推广用户。
// rate 为空串时不设专属比例（走全局默认），pending 同时写入 earned 与 pending。
func (env *serviceTestEnv) createAffiliate(t *testing.T, code, rate, pending string, referredBy *uint) *models.Affiliate {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	affiliate := models.Affiliate{
		Code:              code,
		Email:             code + "@example.com",
		Status:            constants.AffiliateStatusActive,
		CommissionEarned:  models.NewMoneyFromDecimal(decimal.RequireFromString(pending)),
		CommissionPending: models.NewMoneyFromDecimal(decimal.RequireFromString(pending)),
		ReferredByID:      referredBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if rate != "" {
		custom := models.NewMoneyFromDecimal(decimal.RequireFromString(rate))
		affiliate.CustomCommissionRate = &custom
	}
	if err := env.db.Create(&affiliate).Error; err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}
	return &affiliate
}

func (env *serviceTestEnv) createOrder(t *testing.T, orderNo, status, total string, affiliateID *uint) *models.Order {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	order := models.Order{
		OrderNo:       orderNo,
		CustomerEmail: "buyer@example.com",
		Status:        status,
		Currency:      "USD",
		TotalAmount:   models.NewMoneyFromDecimal(decimal.RequireFromString(total)),
		AffiliateID:   affiliateID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if status == constants.OrderStatusPaid {
		order.PaidAt = &now
	}
	if err := env.db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return &order
}

func (env *serviceTestEnv) loadAffiliate(t *testing.T, id uint) *models.Affiliate {
	t.Helper()
	var affiliate models.Affiliate
	if err := env.db.First(&affiliate, id).Error; err != nil {
		t.Fatalf("load affiliate failed: %v", err)
	}
	return &affiliate
}

func (env *serviceTestEnv) affiliateBalance(t *testing.T, id uint) decimal.Decimal {
	t.Helper()
	return env.loadAffiliate(t, id).CommissionPending.Decimal
}

func (env *serviceTestEnv) commissionLogCount(t *testing.T, orderID uint) int64 {
	t.Helper()
	var count int64
	if err := env.db.Model(&models.CommissionLog{}).Where("order_id = ?", orderID).Count(&count).Error; err != nil {
		t.Fatalf("count logs failed: %v", err)
	}
	return count
}

func TestSettlementProcessOrderCommission(t *testing.T) {
	env := setupServiceTest(t)
	affiliate := env.createAffiliate(t, "AFF10", "0.20", "0.00", nil)
	order := env.createOrder(t, "WM-501", constants.OrderStatusPaid, "10000.00", &affiliate.ID)

	result, err := env.settlement.ProcessOrderCommission(order.ID)
	if err != nil {
		t.Fatalf("settlement failed: %v", err)
	}
	if result.Duplicate {
		t.Fatal("first settlement must not be a duplicate")
	}
	if result.Sale == nil || result.Sale.PendingOrderID != order.ID {
		t.Fatalf("unexpected sale: %+v", result.Sale)
	}
	if !result.Sale.CommissionAmount.Decimal.Equal(decimal.RequireFromString("2000.00")) {
		t.Fatalf("expected commission 2000.00, got %s", result.Sale.CommissionAmount.String())
	}
	if result.Message != "processed" {
		t.Fatalf("expected message processed, got %q", result.Message)
	}

	reloaded := env.loadAffiliate(t, affiliate.ID)
	if !reloaded.CommissionEarned.Decimal.Equal(decimal.RequireFromString("2000.00")) {
		t.Fatalf("expected earned 2000.00, got %s", reloaded.CommissionEarned.String())
	}
	if !reloaded.CommissionPending.Decimal.Equal(decimal.RequireFromString("2000.00")) {
		t.Fatalf("expected pending 2000.00, got %s", reloaded.CommissionPending.String())
	}
	if reloaded.TotalSales != 1 {
		t.Fatalf("expected total_sales 1, got %d", reloaded.TotalSales)
	}
	if count := env.commissionLogCount(t, order.ID); count != 2 {
		t.Fatalf("expected 2 commission logs, got %d", count)
	}
}

func TestSettlementDuplicateIsNoOp(t *testing.T) {
	env := setupServiceTest(t)
	affiliate := env.createAffiliate(t, "AFFDUP", "0.20", "0.00", nil)
	order := env.createOrder(t, "WM-502", constants.OrderStatusPaid, "100.00", &affiliate.ID)

	first, err := env.settlement.ProcessOrderCommission(order.ID)
	if err != nil {
		t.Fatalf("first settlement failed: %v", err)
	}
	second, err := env.settlement.ProcessOrderCommission(order.ID)
	if err != nil {
		t.Fatalf("repeated settlement failed: %v", err)
	}
	if !second.Duplicate {
		t.Fatal("repeated settlement must be reported as duplicate")
	}
	if second.Message != "already processed" {
		t.Fatalf("expected message already processed, got %q", second.Message)
	}
	if second.Sale.ID != first.Sale.ID {
		t.Fatalf("expected same sale %d, got %d", first.Sale.ID, second.Sale.ID)
	}

	if balance := env.affiliateBalance(t, affiliate.ID); !balance.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("expected balance 20.00 after duplicate, got %s", balance.String())
	}
	if count := env.commissionLogCount(t, order.ID); count != 2 {
		t.Fatalf("expected 2 commission logs after duplicate, got %d", count)
	}
}

func TestSettlementUsesDefaultRateWithoutCustomRate(t *testing.T) {
	env := setupServiceTest(t)
	affiliate := env.createAffiliate(t, "AFFDEF", "", "0.00", nil)
	order := env.createOrder(t, "WM-510", constants.OrderStatusPaid, "500.00", &affiliate.ID)

	result, err := env.settlement.ProcessOrderCommission(order.ID)
	if err != nil {
		t.Fatalf("settlement failed: %v", err)
	}
	// 无专属比例时按全局默认 10% 计佣
	if !result.Sale.CommissionAmount.Decimal.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("expected commission 50.00, got %s", result.Sale.CommissionAmount.String())
	}
}

func TestSettlementWithoutAffiliate(t *testing.T) {
	env := setupServiceTest(t)
	order := env.createOrder(t, "WM-503", constants.OrderStatusPaid, "300.00", nil)

	result, err := env.settlement.ProcessOrderCommission(order.ID)
	if err != nil {
		t.Fatalf("settlement failed: %v", err)
	}
	if result.Sale.AffiliateID != nil {
		t.Fatalf("expected unattributed sale, got affiliate %v", *result.Sale.AffiliateID)
	}
	if !result.Sale.CommissionAmount.Decimal.IsZero() {
		t.Fatalf("expected zero commission, got %s", result.Sale.CommissionAmount.String())
	}
	// 仅记一条销售流水，无佣金入账流水
	if count := env.commissionLogCount(t, order.ID); count != 1 {
		t.Fatalf("expected 1 commission log, got %d", count)
	}
}

func TestSettlementRejectsUnpaidOrder(t *testing.T) {
	env := setupServiceTest(t)
	affiliate := env.createAffiliate(t, "AFFPEND", "0.20", "0.00", nil)
	order := env.createOrder(t, "WM-504", constants.OrderStatusPending, "100.00", &affiliate.ID)

	if _, err := env.settlement.ProcessOrderCommission(order.ID); !errors.Is(err, ErrOrderNotPaid) {
		t.Fatalf("expected ErrOrderNotPaid, got %v", err)
	}
	var saleCount int64
	if err := env.db.Model(&models.Sale{}).Count(&saleCount).Error; err != nil {
		t.Fatalf("count sales failed: %v", err)
	}
	if saleCount != 0 {
		t.Fatalf("expected no sales for unpaid order, got %d", saleCount)
	}
}

func TestSettlementCreditsReferralReward(t *testing.T) {
	env := setupServiceTest(t)
	referrer := env.createAffiliate(t, "AFFUP", "0.20", "0.00", nil)
	child := env.createAffiliate(t, "AFFDOWN", "0.20", "0.00", &referrer.ID)
	order := env.createOrder(t, "WM-505", constants.OrderStatusPaid, "10000.00", &child.ID)

	result, err := env.settlement.ProcessOrderCommission(order.ID)
	if err != nil {
		t.Fatalf("settlement failed: %v", err)
	}
	if !result.ReferralAmount.Decimal.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("expected referral amount 100.00 in result, got %s", result.ReferralAmount.String())
	}

	// 推荐人按 5% 抽成：2000 * 0.05 = 100，落独立台账
	var reward models.ReferralReward
	if err := env.db.Where("sale_id = ?", result.Sale.ID).First(&reward).Error; err != nil {
		t.Fatalf("load referral reward failed: %v", err)
	}
	if !reward.Amount.Decimal.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("expected reward 100.00, got %s", reward.Amount.String())
	}
	if reward.ReferrerID != referrer.ID {
		t.Fatalf("expected referrer %d, got %d", referrer.ID, reward.ReferrerID)
	}

	// 返利不进推荐人的佣金缓存
	if balance := env.affiliateBalance(t, referrer.ID); !balance.IsZero() {
		t.Fatalf("referral reward must not touch commission cache, pending %s", balance.String())
	}

	// 返利按销售记录去重，重复入账金额为零
	repeated, err := env.referrals.CreditReferralReward(result.Sale.ID)
	if err != nil {
		t.Fatalf("repeated referral credit failed: %v", err)
	}
	if !repeated.IsZero() {
		t.Fatalf("expected zero on repeated credit, got %s", repeated.String())
	}
	var rewardCount int64
	if err := env.db.Model(&models.ReferralReward{}).Where("sale_id = ?", result.Sale.ID).Count(&rewardCount).Error; err != nil {
		t.Fatalf("count rewards failed: %v", err)
	}
	if rewardCount != 1 {
		t.Fatalf("expected 1 referral reward, got %d", rewardCount)
	}
}
