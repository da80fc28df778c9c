package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/webmart-next/internal/constants"
	"github.com/webmart-next/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) OrderRepository

	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByIDForUpdate(id uint) (*models.Order, error)
	GetByOrderNo(orderNo string) (*models.Order, error)
	Update(order *models.Order) error
	List(filter OrderListFilter) ([]models.Order, int64, error)
	ListUnsettledPaidOrderIDs(limit int) ([]uint, error)

	GetItemByID(id uint) (*models.OrderItem, error)
	ListItemsByOrder(orderID uint) ([]models.OrderItem, error)
	UpdateItemDomain(itemID uint, domainID *uint, updatedAt time.Time) error
}

// GormOrderRepository GORM 订单仓储
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) OrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Transaction 执行事务
func (r *GormOrderRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建订单
func (r *GormOrderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

// GetByID 按ID查询订单
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Preload("Items").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDForUpdate 按ID锁定查询订单
func (r *GormOrderRepository) GetByIDForUpdate(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByOrderNo 按订单编号查询订单
func (r *GormOrderRepository) GetByOrderNo(orderNo string) (*models.Order, error) {
	normalized := strings.TrimSpace(orderNo)
	if normalized == "" {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Preload("Items").Where("order_no = ?", normalized).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// Update 更新订单
func (r *GormOrderRepository) Update(order *models.Order) error {
	return r.db.Save(order).Error
}

// List 查询订单列表
func (r *GormOrderRepository) List(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{}).Preload("Items")
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("orders.status = ?", status)
	}
	if orderNo := strings.TrimSpace(filter.OrderNo); orderNo != "" {
		query = query.Where("orders.order_no LIKE ?", "%"+orderNo+"%")
	}
	if email := strings.TrimSpace(filter.CustomerEmail); email != "" {
		query = query.Where("orders.customer_email = ?", email)
	}
	if filter.AffiliateID != 0 {
		query = query.Where("orders.affiliate_id = ?", filter.AffiliateID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("orders.created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("orders.created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Order
	if err := query.Order("orders.id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListUnsettledPaidOrderIDs 查询已支付但尚无销售记录的订单ID（补偿结算用）
func (r *GormOrderRepository) ListUnsettledPaidOrderIDs(limit int) ([]uint, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []uint
	err := r.db.Model(&models.Order{}).
		Joins("LEFT JOIN sales ON sales.pending_order_id = orders.id AND sales.deleted_at IS NULL").
		Where("orders.status = ? AND sales.id IS NULL", constants.OrderStatusPaid).
		Order("orders.id asc").
		Limit(limit).
		Pluck("orders.id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// GetItemByID 按ID查询订单项
func (r *GormOrderRepository) GetItemByID(id uint) (*models.OrderItem, error) {
	if id == 0 {
		return nil, nil
	}
	var item models.OrderItem
	if err := r.db.Preload("Domain").First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// ListItemsByOrder 按订单查询订单项
func (r *GormOrderRepository) ListItemsByOrder(orderID uint) ([]models.OrderItem, error) {
	if orderID == 0 {
		return []models.OrderItem{}, nil
	}
	var rows []models.OrderItem
	if err := r.db.Where("order_id = ?", orderID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateItemDomain 更新订单项的域名绑定
func (r *GormOrderRepository) UpdateItemDomain(itemID uint, domainID *uint, updatedAt time.Time) error {
	if itemID == 0 {
		return nil
	}
	return r.db.Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		Updates(map[string]interface{}{
			"domain_id":  domainID,
			"updated_at": updatedAt,
		}).Error
}
