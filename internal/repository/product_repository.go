package repository

import (
	"errors"

	"github.com/webmart-next/internal/models"
	"gorm.io/gorm"
)

// ProductRepository 商品数据访问接口
type ProductRepository interface {
	WithTx(tx *gorm.DB) ProductRepository

	Create(product *models.Product) error
	GetByID(id uint) (*models.Product, error)
	AdjustStock(id uint, delta int) error
}

// GormProductRepository GORM 商品仓储
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductRepository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{db: tx}
}

// Create 创建商品
func (r *GormProductRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}

// GetByID 按ID查询商品
func (r *GormProductRepository) GetByID(id uint) (*models.Product, error) {
	if id == 0 {
		return nil, nil
	}
	var product models.Product
	if err := r.db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// AdjustStock 增减库存（取消已付订单时回补工具类库存）
func (r *GormProductRepository) AdjustStock(id uint, delta int) error {
	if id == 0 || delta == 0 {
		return nil
	}
	return r.db.Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", delta)).Error
}
