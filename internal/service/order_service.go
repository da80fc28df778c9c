package service

import (
	"strings"
	"time"

	"github.com/webmart-next/internal/constants"
	"github.com/webmart-next/internal/logger"
	"github.com/webmart-next/internal/models"
	"github.com/webmart-next/internal/queue"
	"github.com/webmart-next/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderService 订单业务服务
type OrderService struct {
	orderRepo     repository.OrderRepository
	saleRepo      repository.SaleRepository
	affiliateRepo repository.AffiliateRepository
	productRepo   repository.ProductRepository
	domainRepo    repository.DomainRepository
	activityRepo  repository.AdminActivityRepository
	queueClient   *queue.Client
}

// NewOrderService 创建订单服务
func NewOrderService(
	orderRepo repository.OrderRepository,
	saleRepo repository.SaleRepository,
	affiliateRepo repository.AffiliateRepository,
	productRepo repository.ProductRepository,
	domainRepo repository.DomainRepository,
	activityRepo repository.AdminActivityRepository,
	queueClient *queue.Client,
) *OrderService {
	return &OrderService{
		orderRepo:     orderRepo,
		saleRepo:      saleRepo,
		affiliateRepo: affiliateRepo,
		productRepo:   productRepo,
		domainRepo:    domainRepo,
		activityRepo:  activityRepo,
		queueClient:   queueClient,
	}
}

// OrderCreateItemInput 下单商品项输入
type OrderCreateItemInput struct {
	ProductID uint
	Quantity  int
}

// OrderCreateInput 下单输入
type OrderCreateInput struct {
	OrderNo       string
	CustomerEmail string
	CustomerName  string
	Currency      string
	ReferralCode  string
	ClientIP      string
	Items         []OrderCreateItemInput
}

// CreateOrder 创建待支付订单，按推广码归因推广用户。
func (o *OrderService) CreateOrder(input OrderCreateInput) (*models.Order, error) {
	email := strings.TrimSpace(input.CustomerEmail)
	if email == "" || len(input.Items) == 0 {
		return nil, ErrInvalidInput
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "USD"
	}

	var affiliateID *uint
	referralCode := strings.ToUpper(strings.TrimSpace(input.ReferralCode))
	if referralCode != "" {
		affiliate, err := o.affiliateRepo.GetByCode(referralCode)
		if err != nil {
			return nil, err
		}
		// 无效或停用的推广码静默忽略，不阻断下单
		if affiliate != nil && affiliate.Status == constants.AffiliateStatusActive {
			affiliateID = &affiliate.ID
		}
	}

	now := time.Now().UTC()
	order := &models.Order{
		OrderNo:       strings.TrimSpace(input.OrderNo),
		CustomerEmail: email,
		CustomerName:  strings.TrimSpace(input.CustomerName),
		Status:        constants.OrderStatusPending,
		Currency:      currency,
		AffiliateID:   affiliateID,
		ReferralCode:  referralCode,
		ClientIP:      strings.TrimSpace(input.ClientIP),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(input.Items))
	for _, itemInput := range input.Items {
		if itemInput.ProductID == 0 {
			return nil, ErrInvalidInput
		}
		quantity := itemInput.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		product, err := o.productRepo.GetByID(itemInput.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil || !product.Active {
			return nil, ErrNotFound
		}
		if product.Type == constants.ProductTypeTool && product.Stock < quantity {
			return nil, ErrProductOutOfStock
		}
		lineTotal := product.Price.Decimal.Mul(decimal.NewFromInt(int64(quantity)))
		total = total.Add(lineTotal)
		items = append(items, models.OrderItem{
			ProductID:    product.ID,
			ProductType:  product.Type,
			ProductTitle: product.Title,
			UnitPrice:    product.Price,
			Quantity:     quantity,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	order.TotalAmount = models.NewMoneyFromDecimal(total)

	err := o.orderRepo.Transaction(func(tx *gorm.DB) error {
		orderRepo := o.orderRepo.WithTx(tx)
		productRepo := o.productRepo.WithTx(tx)
		if err := orderRepo.Create(order); err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		for _, item := range items {
			if item.ProductType == constants.ProductTypeTool {
				if err := productRepo.AdjustStock(item.ProductID, -item.Quantity); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	order.Items = items
	logger.Infow("order_created", "order_id", order.ID, "order_no", order.OrderNo, "total", order.TotalAmount.String())
	return order, nil
}

// GetOrder 查询订单
func (o *OrderService) GetOrder(orderID uint) (*models.Order, error) {
	order, err := o.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrders 查询订单列表
func (o *OrderService) ListOrders(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return o.orderRepo.List(filter)
}

// MarkOrderPaid 将订单从待支付推进到已支付。
// 只允许 pending → paid；重复标记视为成功的无操作。
func (o *OrderService) MarkOrderPaid(orderID uint, paidAt time.Time) (*models.Order, error) {
	var order *models.Order
	err := o.orderRepo.Transaction(func(tx *gorm.DB) error {
		var err error
		order, _, err = o.markOrderPaidTx(tx, orderID, paidAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// markOrderPaidTx 事务内执行 pending → paid 状态流转。
// 返回值标记本次是否真正发生了流转，已支付订单按成功的无操作处理。
func (o *OrderService) markOrderPaidTx(tx *gorm.DB, orderID uint, paidAt time.Time) (*models.Order, bool, error) {
	orderRepo := o.orderRepo.WithTx(tx)
	order, err := orderRepo.GetByIDForUpdate(orderID)
	if err != nil {
		return nil, false, err
	}
	if order == nil {
		return nil, false, ErrOrderNotFound
	}
	switch order.Status {
	case constants.OrderStatusPaid:
		// 重复确认按成功处理
		return order, false, nil
	case constants.OrderStatusPending:
	default:
		return nil, false, ErrOrderNotPending
	}

	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}
	order.Status = constants.OrderStatusPaid
	order.PaidAt = &paidAt
	order.UpdatedAt = time.Now().UTC()
	if err := orderRepo.Update(order); err != nil {
		return nil, false, err
	}
	return order, true, nil
}

// CancelOrder 取消订单。
// 待支付订单任何人可取消；已支付订单仅限管理员，并整体冲回：
// 回补工具库存、释放域名、冲销佣金并删除销售记录。
func (o *OrderService) CancelOrder(orderID uint, reason string, adminID uint) (*models.Order, error) {
	if orderID == 0 {
		return nil, ErrOrderNotFound
	}
	reason = strings.TrimSpace(reason)
	now := time.Now().UTC()

	var order *models.Order
	err := o.orderRepo.Transaction(func(tx *gorm.DB) error {
		orderRepo := o.orderRepo.WithTx(tx)
		var err error
		order, err = orderRepo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}

		switch order.Status {
		case constants.OrderStatusCancelled:
			// 重复取消按成功处理
			return nil
		case constants.OrderStatusPending:
		case constants.OrderStatusPaid:
			if adminID == 0 {
				return ErrAdminRequired
			}
			if err := o.reverseSettlementTx(tx, order, now); err != nil {
				return err
			}
		default:
			return ErrOrderNotCancellable
		}

		if err := o.releaseFulfillmentTx(tx, order.ID, now); err != nil {
			return err
		}

		order.Status = constants.OrderStatusCancelled
		order.CancelReason = reason
		order.CanceledAt = &now
		order.UpdatedAt = now
		if err := orderRepo.Update(order); err != nil {
			return err
		}

		if adminID != 0 {
			activityRepo := o.activityRepo.WithTx(tx)
			return activityRepo.Create(&models.AdminActivityLog{
				AdminID:   adminID,
				Action:    constants.AdminActionOrderCancel,
				TargetID:  order.ID,
				Detail:    reason,
				CreatedAt: now,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("order_cancelled", "order_id", order.ID, "reason", reason, "admin_id", adminID)
	if o.queueClient != nil {
		payload := queue.OrderRejectionEmailPayload{OrderID: order.ID, Reason: reason}
		if err := o.queueClient.EnqueueOrderRejectionEmail(payload); err != nil {
			logger.Warnw("order_rejection_email_enqueue_failed", "order_id", order.ID, "error", err)
		}
	}
	return order, nil
}

// reverseSettlementTx 冲销已结算订单：扣回佣金、写冲销流水、删除销售记录
func (o *OrderService) reverseSettlementTx(tx *gorm.DB, order *models.Order, now time.Time) error {
	saleRepo := o.saleRepo.WithTx(tx)
	affiliateRepo := o.affiliateRepo.WithTx(tx)

	sale, err := saleRepo.GetByPendingOrderID(order.ID)
	if err != nil {
		return err
	}
	if sale == nil {
		return nil
	}

	if sale.AffiliateID != nil {
		affiliate, err := affiliateRepo.GetByIDForUpdate(*sale.AffiliateID)
		if err != nil {
			return err
		}
		if affiliate != nil {
			earned := affiliate.CommissionEarned.Decimal.Sub(sale.CommissionAmount.Decimal).Round(2)
			pending := affiliate.CommissionPending.Decimal.Sub(sale.CommissionAmount.Decimal).Round(2)
			totalSales := affiliate.TotalSales - 1
			if totalSales < 0 {
				totalSales = 0
			}
			if err := affiliateRepo.UpdateCommissionCache(affiliate.ID,
				models.NewMoneyFromDecimal(earned),
				models.NewMoneyFromDecimal(pending),
				affiliate.CommissionPaid,
				totalSales,
				now,
			); err != nil {
				return err
			}
			if sale.CommissionAmount.Decimal.GreaterThan(decimal.Zero) {
				reverseLog := &models.CommissionLog{
					OrderID:     &order.ID,
					Action:      constants.CommissionActionReversed,
					AffiliateID: sale.AffiliateID,
					Amount:      models.NewMoneyFromDecimal(sale.CommissionAmount.Decimal.Neg()),
					Detail:      "order " + order.OrderNo + " cancelled",
					CreatedAt:   now,
				}
				if err := affiliateRepo.CreateCommissionLog(reverseLog); err != nil {
					return err
				}
			}
		}
	}
	return saleRepo.Delete(sale.ID)
}

// releaseFulfillmentTx 释放订单占用的交付资源：域名回到可用、工具回补库存
func (o *OrderService) releaseFulfillmentTx(tx *gorm.DB, orderID uint, now time.Time) error {
	orderRepo := o.orderRepo.WithTx(tx)
	domainRepo := o.domainRepo.WithTx(tx)
	productRepo := o.productRepo.WithTx(tx)

	items, err := orderRepo.ListItemsByOrder(orderID)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.DomainID != nil && *item.DomainID != 0 {
			if err := domainRepo.UpdateAssignment(*item.DomainID, constants.DomainStatusAvailable, nil, now); err != nil {
				return err
			}
			if err := orderRepo.UpdateItemDomain(item.ID, nil, now); err != nil {
				return err
			}
		}
		if item.ProductType == constants.ProductTypeTool {
			if err := productRepo.AdjustStock(item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
	}
	return nil
}
