package repository

import (
	"errors"

	"github.com/webmart-next/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleRepository 销售记账数据访问接口
type SaleRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) SaleRepository

	Create(sale *models.Sale) error
	GetByID(id uint) (*models.Sale, error)
	GetByPendingOrderID(orderID uint) (*models.Sale, error)
	Delete(id uint) error
	List(filter SaleListFilter) ([]models.Sale, int64, error)
	SumCommissionByAffiliate(affiliateID uint) (decimal.Decimal, error)
	CountByAffiliate(affiliateID uint) (int64, error)
}

// GormSaleRepository GORM 销售记账仓储
type GormSaleRepository struct {
	db *gorm.DB
}

// NewSaleRepository 创建销售记账仓储
func NewSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSaleRepository) WithTx(tx *gorm.DB) SaleRepository {
	if tx == nil {
		return r
	}
	return &GormSaleRepository{db: tx}
}

// Transaction 执行事务
func (r *GormSaleRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建销售记录（pending_order_id 唯一约束保证同单至多一条）
func (r *GormSaleRepository) Create(sale *models.Sale) error {
	return r.db.Create(sale).Error
}

// GetByID 按ID查询销售记录
func (r *GormSaleRepository) GetByID(id uint) (*models.Sale, error) {
	if id == 0 {
		return nil, nil
	}
	var sale models.Sale
	if err := r.db.First(&sale, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sale, nil
}

// GetByPendingOrderID 按来源订单查询销售记录
func (r *GormSaleRepository) GetByPendingOrderID(orderID uint) (*models.Sale, error) {
	if orderID == 0 {
		return nil, nil
	}
	var sale models.Sale
	if err := r.db.Where("pending_order_id = ?", orderID).First(&sale).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sale, nil
}

// Delete 删除销售记录（订单撤销时冲回）
func (r *GormSaleRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Delete(&models.Sale{}, id).Error
}

// List 查询销售记录列表
func (r *GormSaleRepository) List(filter SaleListFilter) ([]models.Sale, int64, error) {
	query := r.db.Model(&models.Sale{}).Preload("Affiliate")
	if filter.AffiliateID != 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Sale
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// SumCommissionByAffiliate 汇总推广用户累计佣金
func (r *GormSaleRepository) SumCommissionByAffiliate(affiliateID uint) (decimal.Decimal, error) {
	if affiliateID == 0 {
		return decimal.Zero, nil
	}
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.Sale{}).
		Where("affiliate_id = ?", affiliateID).
		Select("COALESCE(SUM(commission_amount), 0) AS total").
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}

// CountByAffiliate 统计推广用户的成交单数
func (r *GormSaleRepository) CountByAffiliate(affiliateID uint) (int64, error) {
	if affiliateID == 0 {
		return 0, nil
	}
	var total int64
	if err := r.db.Model(&models.Sale{}).
		Where("affiliate_id = ?", affiliateID).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
