package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/webmart-next/internal/constants"
	"github.com/webmart-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupOrderRepositoryTest(t *testing.T) (*GormOrderRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:order_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.Sale{},
		&models.Domain{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewOrderRepository(db), db
}

func createTestOrder(t *testing.T, db *gorm.DB, orderNo, status string, amount string) *models.Order {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	order := models.Order{
		OrderNo:       orderNo,
		CustomerEmail: "buyer@example.com",
		Status:        status,
		Currency:      "USD",
		TotalAmount:   models.NewMoneyFromDecimal(decimal.RequireFromString(amount)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return &order
}

func TestOrderRepositoryGetByOrderNo(t *testing.T) {
	repo, db := setupOrderRepositoryTest(t)
	created := createTestOrder(t, db, "WM-1001", constants.OrderStatusPending, "99.00")

	got, err := repo.GetByOrderNo(" WM-1001 ")
	if err != nil {
		t.Fatalf("get by order no failed: %v", err)
	}
	if got == nil || got.ID != created.ID {
		t.Fatalf("expected order %d, got %+v", created.ID, got)
	}
}

func TestOrderRepositoryListUnsettledPaidOrderIDs(t *testing.T) {
	repo, db := setupOrderRepositoryTest(t)

	paidSettled := createTestOrder(t, db, "WM-2001", constants.OrderStatusPaid, "100.00")
	paidUnsettled := createTestOrder(t, db, "WM-2002", constants.OrderStatusPaid, "200.00")
	createTestOrder(t, db, "WM-2003", constants.OrderStatusPending, "300.00")

	sale := models.Sale{
		PendingOrderID: paidSettled.ID,
		SaleAmount:     paidSettled.TotalAmount,
		Currency:       "USD",
	}
	if err := db.Create(&sale).Error; err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	ids, err := repo.ListUnsettledPaidOrderIDs(10)
	if err != nil {
		t.Fatalf("list unsettled failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != paidUnsettled.ID {
		t.Fatalf("expected [%d], got %v", paidUnsettled.ID, ids)
	}
}

func TestOrderRepositoryUpdateItemDomain(t *testing.T) {
	repo, db := setupOrderRepositoryTest(t)
	order := createTestOrder(t, db, "WM-3001", constants.OrderStatusPaid, "49.00")

	item := models.OrderItem{
		OrderID:      order.ID,
		ProductID:    7,
		ProductType:  constants.ProductTypeTemplate,
		ProductTitle: "Portfolio Template",
		UnitPrice:    models.NewMoneyFromDecimal(decimal.RequireFromString("49.00")),
		Quantity:     1,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("create item failed: %v", err)
	}

	domainID := uint(12)
	if err := repo.UpdateItemDomain(item.ID, &domainID, time.Now().UTC()); err != nil {
		t.Fatalf("update item domain failed: %v", err)
	}

	got, err := repo.GetItemByID(item.ID)
	if err != nil {
		t.Fatalf("get item failed: %v", err)
	}
	if got == nil || got.DomainID == nil || *got.DomainID != domainID {
		t.Fatalf("expected domain %d bound, got %+v", domainID, got)
	}
}
