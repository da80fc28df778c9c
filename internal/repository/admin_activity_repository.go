package repository

import (
	"strings"

	"github.com/webmart-next/internal/models"
	"gorm.io/gorm"
)

// AdminActivityRepository 管理端操作日志数据访问接口
type AdminActivityRepository interface {
	WithTx(tx *gorm.DB) AdminActivityRepository

	Create(log *models.AdminActivityLog) error
	ListByAdmin(adminID uint, page, pageSize int) ([]models.AdminActivityLog, int64, error)
	ListByAction(action string, page, pageSize int) ([]models.AdminActivityLog, int64, error)
}

// GormAdminActivityRepository GORM 管理端操作日志仓储
type GormAdminActivityRepository struct {
	db *gorm.DB
}

// NewAdminActivityRepository 创建管理端操作日志仓储
func NewAdminActivityRepository(db *gorm.DB) *GormAdminActivityRepository {
	return &GormAdminActivityRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAdminActivityRepository) WithTx(tx *gorm.DB) AdminActivityRepository {
	if tx == nil {
		return r
	}
	return &GormAdminActivityRepository{db: tx}
}

// Create 创建操作日志
func (r *GormAdminActivityRepository) Create(log *models.AdminActivityLog) error {
	return r.db.Create(log).Error
}

// ListByAdmin 按管理员查询操作日志
func (r *GormAdminActivityRepository) ListByAdmin(adminID uint, page, pageSize int) ([]models.AdminActivityLog, int64, error) {
	query := r.db.Model(&models.AdminActivityLog{})
	if adminID != 0 {
		query = query.Where("admin_id = ?", adminID)
	}
	return r.list(query, page, pageSize)
}

// ListByAction 按动作查询操作日志
func (r *GormAdminActivityRepository) ListByAction(action string, page, pageSize int) ([]models.AdminActivityLog, int64, error) {
	query := r.db.Model(&models.AdminActivityLog{})
	if a := strings.TrimSpace(action); a != "" {
		query = query.Where("action = ?", a)
	}
	return r.list(query, page, pageSize)
}

func (r *GormAdminActivityRepository) list(query *gorm.DB, page, pageSize int) ([]models.AdminActivityLog, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, page, pageSize)

	var rows []models.AdminActivityLog
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
