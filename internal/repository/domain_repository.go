package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/webmart-next/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DomainRepository 域名库存数据访问接口
type DomainRepository interface {
	WithTx(tx *gorm.DB) DomainRepository

	Create(domain *models.Domain) error
	GetByID(id uint) (*models.Domain, error)
	GetByIDForUpdate(id uint) (*models.Domain, error)
	GetByName(name string) (*models.Domain, error)
	UpdateAssignment(id uint, status string, assignedOrderID *uint, updatedAt time.Time) error
	ListByStatus(status string) ([]models.Domain, error)
}

// GormDomainRepository GORM 域名库存仓储
type GormDomainRepository struct {
	db *gorm.DB
}

// NewDomainRepository 创建域名库存仓储
func NewDomainRepository(db *gorm.DB) *GormDomainRepository {
	return &GormDomainRepository{db: db}
}

// WithTx 绑定事务
func (r *GormDomainRepository) WithTx(tx *gorm.DB) DomainRepository {
	if tx == nil {
		return r
	}
	return &GormDomainRepository{db: tx}
}

// Create 创建域名
func (r *GormDomainRepository) Create(domain *models.Domain) error {
	return r.db.Create(domain).Error
}

// GetByID 按ID查询域名
func (r *GormDomainRepository) GetByID(id uint) (*models.Domain, error) {
	if id == 0 {
		return nil, nil
	}
	var domain models.Domain
	if err := r.db.First(&domain, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &domain, nil
}

// GetByIDForUpdate 按ID锁定查询域名（状态流转前加锁）
func (r *GormDomainRepository) GetByIDForUpdate(id uint) (*models.Domain, error) {
	if id == 0 {
		return nil, nil
	}
	var domain models.Domain
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&domain, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &domain, nil
}

// GetByName 按域名查询
func (r *GormDomainRepository) GetByName(name string) (*models.Domain, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return nil, nil
	}
	var domain models.Domain
	if err := r.db.Where("name = ?", normalized).First(&domain).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &domain, nil
}

// UpdateAssignment 更新域名库存状态与占用订单。
// 状态与占用订单必须一起落库，保证 reserved/in_use 恒有占用订单。
func (r *GormDomainRepository) UpdateAssignment(id uint, status string, assignedOrderID *uint, updatedAt time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Domain{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            strings.TrimSpace(status),
			"assigned_order_id": assignedOrderID,
			"updated_at":        updatedAt,
		}).Error
}

// ListByStatus 按状态查询域名列表
func (r *GormDomainRepository) ListByStatus(status string) ([]models.Domain, error) {
	query := r.db.Model(&models.Domain{})
	if s := strings.TrimSpace(status); s != "" {
		query = query.Where("status = ?", s)
	}
	var rows []models.Domain
	if err := query.Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
