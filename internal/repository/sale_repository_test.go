package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/webmart-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupSaleRepositoryTest(t *testing.T) (*GormSaleRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:sale_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Sale{}, &models.Affiliate{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewSaleRepository(db), db
}

func TestSaleRepositoryPendingOrderIDUnique(t *testing.T) {
	repo, _ := setupSaleRepositoryTest(t)

	first := models.Sale{
		PendingOrderID: 501,
		SaleAmount:     models.NewMoneyFromDecimal(decimal.RequireFromString("10000.00")),
		Currency:       "USD",
	}
	if err := repo.Create(&first); err != nil {
		t.Fatalf("create first sale failed: %v", err)
	}

	duplicate := models.Sale{
		PendingOrderID: 501,
		SaleAmount:     models.NewMoneyFromDecimal(decimal.RequireFromString("10000.00")),
		Currency:       "USD",
	}
	if err := repo.Create(&duplicate); err == nil {
		t.Fatal("expected unique violation for duplicate pending_order_id")
	}

	got, err := repo.GetByPendingOrderID(501)
	if err != nil {
		t.Fatalf("get by pending order failed: %v", err)
	}
	if got == nil || got.ID != first.ID {
		t.Fatalf("expected sale %d, got %+v", first.ID, got)
	}
}

func TestSaleRepositorySumCommissionByAffiliate(t *testing.T) {
	repo, db := setupSaleRepositoryTest(t)

	affiliateID := uint(3)
	sales := []models.Sale{
		{
			PendingOrderID:   601,
			AffiliateID:      &affiliateID,
			SaleAmount:       models.NewMoneyFromDecimal(decimal.RequireFromString("100.00")),
			CommissionAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("20.00")),
			Currency:         "USD",
		},
		{
			PendingOrderID:   602,
			AffiliateID:      &affiliateID,
			SaleAmount:       models.NewMoneyFromDecimal(decimal.RequireFromString("50.00")),
			CommissionAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("10.00")),
			Currency:         "USD",
		},
	}
	for i := range sales {
		if err := db.Create(&sales[i]).Error; err != nil {
			t.Fatalf("create sale %d failed: %v", i, err)
		}
	}

	total, err := repo.SumCommissionByAffiliate(affiliateID)
	if err != nil {
		t.Fatalf("sum failed: %v", err)
	}
	if !total.Equal(decimal.RequireFromString("30.00")) {
		t.Fatalf("expected 30.00, got %s", total.String())
	}
}
