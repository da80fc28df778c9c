package service

import (
	"errors"
	"testing"

	"github.com/webmart-next/internal/constants"
	"github.com/webmart-next/internal/models"

	"github.com/shopspring/decimal"
)

func TestCreateWithdrawalValidations(t *testing.T) {
	env := setupServiceTest(t)
	affiliate := env.createAffiliate(t, "AFFWD1", "0.20", "100.00", nil)

	if _, err := env.withdrawals.CreateWithdrawal(WithdrawalCreateInput{
		AffiliateID: affiliate.ID,
		Amount:      decimal.RequireFromString("5.00"),
	}); !errors.Is(err, ErrBelowMinWithdraw) {
		t.Fatalf("expected ErrBelowMinWithdraw, got %v", err)
	}

	if _, err := env.withdrawals.CreateWithdrawal(WithdrawalCreateInput{
		AffiliateID: affiliate.ID,
		Amount:      decimal.RequireFromString("150.00"),
	}); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	request, err := env.withdrawals.CreateWithdrawal(WithdrawalCreateInput{
		AffiliateID: affiliate.ID,
		Amount:      decimal.RequireFromString("50.00"),
		Channel:     "bank",
		Account:     "ACC-001",
	})
	if err != nil {
		t.Fatalf("create withdrawal failed: %v", err)
	}
	if request.Status != constants.WithdrawalStatusPending {
		t.Fatalf("expected pending request, got %s", request.Status)
	}
	// 申请阶段不动余额
	if balance := env.affiliateBalance(t, affiliate.ID); !balance.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("request must not deduct balance, got %s", balance.String())
	}
}

func TestProcessPayoutDeductsAndLogs(t *testing.T) {
	env := setupServiceTest(t)
	affiliate := env.createAffiliate(t, "AFFWD2", "0.20", "100.00", nil)

	request, err := env.withdrawals.CreateWithdrawal(WithdrawalCreateInput{
		AffiliateID: affiliate.ID,
		Amount:      decimal.RequireFromString("60.00"),
		Channel:     "paypal",
		Account:     "payee@example.com",
	})
	if err != nil {
		t.Fatalf("create withdrawal failed: %v", err)
	}

	processed, err := env.withdrawals.ProcessPayout(request.ID, 9)
	if err != nil {
		t.Fatalf("process payout failed: %v", err)
	}
	if processed.Status != constants.WithdrawalStatusProcessed {
		t.Fatalf("expected processed status, got %s", processed.Status)
	}
	if processed.ProcessedBy == nil || *processed.ProcessedBy != 9 {
		t.Fatalf("expected processed_by 9, got %+v", processed.ProcessedBy)
	}

	reloaded := env.loadAffiliate(t, affiliate.ID)
	if !reloaded.CommissionPending.Decimal.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("expected pending 40.00 after payout, got %s", reloaded.CommissionPending.String())
	}
	if !reloaded.CommissionPaid.Decimal.Equal(decimal.RequireFromString("60.00")) {
		t.Fatalf("expected paid 60.00 after payout, got %s", reloaded.CommissionPaid.String())
	}
	if !reloaded.CommissionEarned.Decimal.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("payout must not touch earned, got %s", reloaded.CommissionEarned.String())
	}

	var alertCount int64
	if err := env.db.Model(&models.AffiliateAlert{}).
		Where("affiliate_id = ? AND type = ?", affiliate.ID, constants.AlertTypePayoutProcessed).
		Count(&alertCount).Error; err != nil {
		t.Fatalf("count alerts failed: %v", err)
	}
	if alertCount != 1 {
		t.Fatalf("expected 1 payout alert, got %d", alertCount)
	}

	var payoutLog models.CommissionLog
	if err := env.db.Where("action = ? AND affiliate_id = ?", constants.CommissionActionPayout, affiliate.ID).
		First(&payoutLog).Error; err != nil {
		t.Fatalf("load payout log failed: %v", err)
	}
	if payoutLog.OrderID != nil {
		t.Fatalf("payout log must not reference an order, got %v", *payoutLog.OrderID)
	}
	if !payoutLog.Amount.Decimal.Equal(decimal.RequireFromString("-60.00")) {
		t.Fatalf("expected payout amount -60.00, got %s", payoutLog.Amount.String())
	}

	if _, err := env.withdrawals.ProcessPayout(request.ID, 9); !errors.Is(err, ErrWithdrawalProcessed) {
		t.Fatalf("expected ErrWithdrawalProcessed on repeat, got %v", err)
	}
}

func TestProcessPayoutInsufficientBalance(t *testing.T) {
	env := setupServiceTest(t)
	affiliate := env.createAffiliate(t, "AFFWD3", "0.20", "100.00", nil)

	request, err := env.withdrawals.CreateWithdrawal(WithdrawalCreateInput{
		AffiliateID: affiliate.ID,
		Amount:      decimal.RequireFromString("80.00"),
	})
	if err != nil {
		t.Fatalf("create withdrawal failed: %v", err)
	}

	// 申请后待提现余额被其它动作扣减，打款时锁内复核失败
	if err := env.db.Model(&models.Affiliate{}).Where("id = ?", affiliate.ID).
		Update("commission_pending", "30.00").Error; err != nil {
		t.Fatalf("update pending failed: %v", err)
	}

	if _, err := env.withdrawals.ProcessPayout(request.ID, 9); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	var reloaded models.WithdrawalRequest
	if err := env.db.First(&reloaded, request.ID).Error; err != nil {
		t.Fatalf("load request failed: %v", err)
	}
	if reloaded.Status != constants.WithdrawalStatusPending {
		t.Fatalf("failed payout must keep request pending, got %s", reloaded.Status)
	}
}
