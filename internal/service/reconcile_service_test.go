package service

import (
	"testing"
	"time"

	"github.com/webmart-next/internal/constants"
	"github.com/webmart-next/internal/models"

	"github.com/shopspring/decimal"
)

// createSettledSale 直接落一条销售记录与对应的 commission_earned 流水
func (env *serviceTestEnv) createSettledSale(t *testing.T, affiliateID, orderID uint, commission string, withLog bool) *models.Sale {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	sale := models.Sale{
		PendingOrderID:   orderID,
		AffiliateID:      &affiliateID,
		SaleAmount:       models.NewMoneyFromDecimal(decimal.RequireFromString(commission).Mul(decimal.NewFromInt(5))),
		CommissionAmount: models.NewMoneyFromDecimal(decimal.RequireFromString(commission)),
		Currency:         "USD",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := env.db.Create(&sale).Error; err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	if withLog {
		log := models.CommissionLog{
			OrderID:     &orderID,
			Action:      constants.CommissionActionEarned,
			AffiliateID: &affiliateID,
			Amount:      models.NewMoneyFromDecimal(decimal.RequireFromString(commission)),
			CreatedAt:   now,
		}
		if err := env.db.Create(&log).Error; err != nil {
			t.Fatalf("create log failed: %v", err)
		}
	}
	return &sale
}

func (env *serviceTestEnv) createProcessedWithdrawal(t *testing.T, affiliateID uint, amount string) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	row := models.WithdrawalRequest{
		AffiliateID: affiliateID,
		Amount:      models.NewMoneyFromDecimal(decimal.RequireFromString(amount)),
		Status:      constants.WithdrawalStatusProcessed,
		ProcessedAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := env.db.Create(&row).Error; err != nil {
		t.Fatalf("create withdrawal failed: %v", err)
	}
}

func TestReconcileDetectsDrift(t *testing.T) {
	env := setupServiceTest(t)
	// 账面 earned/pending 50，真实销售佣金合计只有 40
	affiliate := env.createAffiliate(t, "AFFDRIFT", "0.20", "50.00", nil)
	env.createSettledSale(t, affiliate.ID, 900, "40.00", true)

	report, err := env.reconcile.Reconcile(affiliate.ID)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if report.Balanced {
		t.Fatal("expected drift to be detected")
	}
	if !report.Expected.Earned.Decimal.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("expected earned 40.00, got %s", report.Expected.Earned.String())
	}
	if !report.Discrepancies.Pending.Decimal.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("expected pending discrepancy 10.00, got %s", report.Discrepancies.Pending.String())
	}
	// 只告警不改账
	if balance := env.affiliateBalance(t, affiliate.ID); !balance.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("reconcile must not mutate balances, got %s", balance.String())
	}
	var alertCount int64
	if err := env.db.Model(&models.AffiliateAlert{}).
		Where("affiliate_id = ? AND type = ?", affiliate.ID, constants.AlertTypeBalanceDrift).
		Count(&alertCount).Error; err != nil {
		t.Fatalf("count alerts failed: %v", err)
	}
	if alertCount != 1 {
		t.Fatalf("expected 1 alert, got %d", alertCount)
	}
}

func TestReconcileBalanced(t *testing.T) {
	env := setupServiceTest(t)
	affiliate := env.createAffiliate(t, "AFFOK", "0.20", "40.00", nil)
	env.createSettledSale(t, affiliate.ID, 901, "40.00", true)

	report, err := env.reconcile.Reconcile(affiliate.ID)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if !report.Balanced {
		t.Fatalf("expected balanced report, got %+v", report)
	}
	var alertCount int64
	if err := env.db.Model(&models.AffiliateAlert{}).Where("affiliate_id = ?", affiliate.ID).Count(&alertCount).Error; err != nil {
		t.Fatalf("count alerts failed: %v", err)
	}
	if alertCount != 0 {
		t.Fatalf("balanced reconcile must not alert, got %d", alertCount)
	}
}

func TestReconcileFlagsSalesVsLogMismatch(t *testing.T) {
	env := setupServiceTest(t)
	// 账面与销售一致，但缺失 commission_earned 流水
	affiliate := env.createAffiliate(t, "AFFNOLOG", "0.20", "40.00", nil)
	env.createSettledSale(t, affiliate.ID, 902, "40.00", false)

	report, err := env.reconcile.Reconcile(affiliate.ID)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if report.Balanced {
		t.Fatal("missing earn log must flag the report")
	}
	if !report.Discrepancies.SalesVsLog.Decimal.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("expected sales_vs_log 40.00, got %s", report.Discrepancies.SalesVsLog.String())
	}
}

func TestReconcileBalancedAfterCancellationReversal(t *testing.T) {
	env := setupServiceTest(t)
	affiliate := env.createAffiliate(t, "AFFCXL", "0.20", "0.00", nil)
	order := env.createOrder(t, "WM-601", constants.OrderStatusPaid, "100.00", &affiliate.ID)

	if _, err := env.settlement.ProcessOrderCommission(order.ID); err != nil {
		t.Fatalf("settlement failed: %v", err)
	}
	if _, err := env.orders.CancelOrder(order.ID, "chargeback", 7); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	// 冲销后入账与冲销流水相抵，对账不得再报漂移
	report, err := env.reconcile.Reconcile(affiliate.ID)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if !report.Balanced {
		t.Fatalf("expected balanced report after reversal, got %+v", report)
	}
	if !report.Discrepancies.SalesVsLog.Decimal.IsZero() {
		t.Fatalf("expected zero sales_vs_log, got %s", report.Discrepancies.SalesVsLog.String())
	}

	again, err := env.reconcile.Reconcile(affiliate.ID)
	if err != nil {
		t.Fatalf("second reconcile failed: %v", err)
	}
	if !again.Balanced {
		t.Fatalf("expected repeated reconcile to stay balanced, got %+v", again)
	}
	var alertCount int64
	if err := env.db.Model(&models.AffiliateAlert{}).
		Where("affiliate_id = ? AND type = ?", affiliate.ID, constants.AlertTypeBalanceDrift).
		Count(&alertCount).Error; err != nil {
		t.Fatalf("count alerts failed: %v", err)
	}
	if alertCount != 0 {
		t.Fatalf("reversal must not leave drift alerts, got %d", alertCount)
	}
}

func TestSyncRewritesBalancesFromSources(t *testing.T) {
	env := setupServiceTest(t)
	// 账面 earned/pending 75，真实来源：销售佣金 60，已打款 20
	affiliate := env.createAffiliate(t, "AFFSYNC", "0.20", "75.00", nil)
	env.createSettledSale(t, affiliate.ID, 903, "60.00", true)
	env.createProcessedWithdrawal(t, affiliate.ID, "20.00")

	report, err := env.reconcile.Sync(affiliate.ID)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if !report.Synced {
		t.Fatal("expected balances to be synced")
	}

	reloaded := env.loadAffiliate(t, affiliate.ID)
	if !reloaded.CommissionEarned.Decimal.Equal(decimal.RequireFromString("60.00")) {
		t.Fatalf("expected earned 60.00, got %s", reloaded.CommissionEarned.String())
	}
	if !reloaded.CommissionPending.Decimal.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("expected pending 40.00, got %s", reloaded.CommissionPending.String())
	}
	if !reloaded.CommissionPaid.Decimal.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("expected paid 20.00, got %s", reloaded.CommissionPaid.String())
	}
	if reloaded.TotalSales != 1 {
		t.Fatalf("expected total_sales 1, got %d", reloaded.TotalSales)
	}

	// 再次同步应为一致，无操作
	again, err := env.reconcile.Sync(affiliate.ID)
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if again.Synced || !again.Balanced {
		t.Fatalf("expected consistent balances, got %+v", again)
	}
}
