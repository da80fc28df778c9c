package repository

import (
	"errors"
	"strings"

	"github.com/webmart-next/internal/models"
	"gorm.io/gorm"
)

// PaymentRepository 支付记录数据访问接口
type PaymentRepository interface {
	WithTx(tx *gorm.DB) PaymentRepository

	Create(payment *models.Payment) error
	Update(payment *models.Payment) error
	GetByID(id uint) (*models.Payment, error)
	GetByReference(reference string) (*models.Payment, error)
	GetByEventID(eventID string) (*models.Payment, error)
	ListByOrder(orderID uint) ([]models.Payment, error)
}

// GormPaymentRepository GORM 支付记录仓储
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付记录仓储
func NewPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPaymentRepository) WithTx(tx *gorm.DB) PaymentRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentRepository{db: tx}
}

// Create 创建支付记录
func (r *GormPaymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// Update 更新支付记录
func (r *GormPaymentRepository) Update(payment *models.Payment) error {
	return r.db.Save(payment).Error
}

// GetByID 按ID查询支付记录
func (r *GormPaymentRepository) GetByID(id uint) (*models.Payment, error) {
	if id == 0 {
		return nil, nil
	}
	var payment models.Payment
	if err := r.db.First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// GetByReference 按支付参考号查询支付记录
func (r *GormPaymentRepository) GetByReference(reference string) (*models.Payment, error) {
	normalized := strings.TrimSpace(reference)
	if normalized == "" {
		return nil, nil
	}
	var payment models.Payment
	if err := r.db.Where("reference = ?", normalized).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// GetByEventID 按网关事件ID查询支付记录（Webhook 去重）
func (r *GormPaymentRepository) GetByEventID(eventID string) (*models.Payment, error) {
	normalized := strings.TrimSpace(eventID)
	if normalized == "" {
		return nil, nil
	}
	var payment models.Payment
	if err := r.db.Where("event_id = ?", normalized).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// ListByOrder 按订单查询支付记录
func (r *GormPaymentRepository) ListByOrder(orderID uint) ([]models.Payment, error) {
	if orderID == 0 {
		return []models.Payment{}, nil
	}
	var rows []models.Payment
	if err := r.db.Where("order_id = ?", orderID).Order("id desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
