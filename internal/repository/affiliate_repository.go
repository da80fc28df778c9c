package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/webmart-next/internal/constants"
	"github.com/webmart-next/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AffiliateRepository 推广返利数据访问接口
type AffiliateRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) AffiliateRepository

	Create(affiliate *models.Affiliate) error
	GetByID(id uint) (*models.Affiliate, error)
	GetByIDForUpdate(id uint) (*models.Affiliate, error)
	GetByCode(code string) (*models.Affiliate, error)
	UpdateCommissionCache(id uint, earned, pending, paid models.Money, totalSales int64, updatedAt time.Time) error
	ListActiveIDs() ([]uint, error)

	CreateCommissionLog(log *models.CommissionLog) error
	GetCommissionLogByOrderAndAction(orderID uint, action string) (*models.CommissionLog, error)
	ListCommissionLogs(filter CommissionLogListFilter) ([]models.CommissionLog, int64, error)
	SumCommissionLogAmountsByAction(affiliateID uint, action string) (decimal.Decimal, error)
	DeleteCommissionLogsBefore(cutoff time.Time) (int64, error)

	CreateWithdraw(req *models.WithdrawalRequest) error
	UpdateWithdraw(req *models.WithdrawalRequest) error
	GetWithdrawByID(id uint) (*models.WithdrawalRequest, error)
	GetWithdrawByIDForUpdate(id uint) (*models.WithdrawalRequest, error)
	ListWithdraws(filter WithdrawalListFilter) ([]models.WithdrawalRequest, int64, error)
	SumProcessedWithdrawals(affiliateID uint) (decimal.Decimal, error)

	CreateAlert(alert *models.AffiliateAlert) error
	ListUnresolvedAlerts(affiliateID uint) ([]models.AffiliateAlert, error)

	CreateReferralReward(reward *models.ReferralReward) error
	HasReferralRewardBySale(saleID uint) (bool, error)
}

// GormAffiliateRepository GORM 推广返利仓储
type GormAffiliateRepository struct {
	db *gorm.DB
}

// NewAffiliateRepository 创建推广返利仓储
func NewAffiliateRepository(db *gorm.DB) *GormAffiliateRepository {
	return &GormAffiliateRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAffiliateRepository) WithTx(tx *gorm.DB) AffiliateRepository {
	if tx == nil {
		return r
	}
	return &GormAffiliateRepository{db: tx}
}

// Transaction 执行事务
func (r *GormAffiliateRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建推广用户
func (r *GormAffiliateRepository) Create(affiliate *models.Affiliate) error {
	return r.db.Create(affiliate).Error
}

// GetByID 按ID查询推广用户
func (r *GormAffiliateRepository) GetByID(id uint) (*models.Affiliate, error) {
	if id == 0 {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.First(&affiliate, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByIDForUpdate 按ID锁定查询推广用户（余额变更前必须加锁）
func (r *GormAffiliateRepository) GetByIDForUpdate(id uint) (*models.Affiliate, error) {
	if id == 0 {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&affiliate, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByCode 按推广码查询推广用户
func (r *GormAffiliateRepository) GetByCode(code string) (*models.Affiliate, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Where("code = ?", normalized).First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// UpdateCommissionCache 整体覆写推广用户的佣金缓存字段
func (r *GormAffiliateRepository) UpdateCommissionCache(id uint, earned, pending, paid models.Money, totalSales int64, updatedAt time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Affiliate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"commission_earned":  earned,
			"commission_pending": pending,
			"commission_paid":    paid,
			"total_sales":        totalSales,
			"updated_at":         updatedAt,
		}).Error
}

// ListActiveIDs 查询全部启用中的推广用户ID
func (r *GormAffiliateRepository) ListActiveIDs() ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.Affiliate{}).
		Where("status = ?", constants.AffiliateStatusActive).
		Order("id asc").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// CreateCommissionLog 追加佣金流水
func (r *GormAffiliateRepository) CreateCommissionLog(log *models.CommissionLog) error {
	return r.db.Create(log).Error
}

// GetCommissionLogByOrderAndAction 按订单与动作查询佣金流水
func (r *GormAffiliateRepository) GetCommissionLogByOrderAndAction(orderID uint, action string) (*models.CommissionLog, error) {
	if orderID == 0 || strings.TrimSpace(action) == "" {
		return nil, nil
	}
	var log models.CommissionLog
	if err := r.db.Where("order_id = ? AND action = ?", orderID, strings.TrimSpace(action)).
		First(&log).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &log, nil
}

// ListCommissionLogs 查询佣金流水列表
func (r *GormAffiliateRepository) ListCommissionLogs(filter CommissionLogListFilter) ([]models.CommissionLog, int64, error) {
	query := r.db.Model(&models.CommissionLog{})
	if filter.AffiliateID != 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if action := strings.TrimSpace(filter.Action); action != "" {
		query = query.Where("action = ?", action)
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

	var rows []models.CommissionLog
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// SumCommissionLogAmountsByAction 按动作汇总推广用户流水金额（对账交叉校验用）
func (r *GormAffiliateRepository) SumCommissionLogAmountsByAction(affiliateID uint, action string) (decimal.Decimal, error) {
	if affiliateID == 0 {
		return decimal.Zero, nil
	}
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	query := r.db.Model(&models.CommissionLog{}).Where("affiliate_id = ?", affiliateID)
	if a := strings.TrimSpace(action); a != "" {
		query = query.Where("action = ?", a)
	}
	if err := query.Select("COALESCE(SUM(amount), 0) AS total").Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}

// DeleteCommissionLogsBefore 删除早于截止时间的佣金流水。
// commission_earned 与 sales_record_created 是对账依据，永久保留。
func (r *GormAffiliateRepository) DeleteCommissionLogsBefore(cutoff time.Time) (int64, error) {
	result := r.db.Where("created_at < ? AND action NOT IN ?", cutoff, []string{
		constants.CommissionActionEarned,
		constants.CommissionActionSaleRecorded,
	}).Delete(&models.CommissionLog{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// CreateWithdraw 创建提现申请
func (r *GormAffiliateRepository) CreateWithdraw(req *models.WithdrawalRequest) error {
	return r.db.Create(req).Error
}

// UpdateWithdraw 更新提现申请
func (r *GormAffiliateRepository) UpdateWithdraw(req *models.WithdrawalRequest) error {
	return r.db.Save(req).Error
}

// GetWithdrawByID 按ID查询提现申请
func (r *GormAffiliateRepository) GetWithdrawByID(id uint) (*models.WithdrawalRequest, error) {
	if id == 0 {
		return nil, nil
	}
	var row models.WithdrawalRequest
	if err := r.db.Preload("Affiliate").First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetWithdrawByIDForUpdate 按ID锁定查询提现申请
func (r *GormAffiliateRepository) GetWithdrawByIDForUpdate(id uint) (*models.WithdrawalRequest, error) {
	if id == 0 {
		return nil, nil
	}
	var row models.WithdrawalRequest
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListWithdraws 查询提现申请列表
func (r *GormAffiliateRepository) ListWithdraws(filter WithdrawalListFilter) ([]models.WithdrawalRequest, int64, error) {
	query := r.db.Model(&models.WithdrawalRequest{}).Preload("Affiliate")
	if filter.AffiliateID != 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.WithdrawalRequest
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// SumProcessedWithdrawals 汇总推广用户已打款的提现金额（对账用）
func (r *GormAffiliateRepository) SumProcessedWithdrawals(affiliateID uint) (decimal.Decimal, error) {
	if affiliateID == 0 {
		return decimal.Zero, nil
	}
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.WithdrawalRequest{}).
		Where("affiliate_id = ? AND status = ?", affiliateID, constants.WithdrawalStatusProcessed).
		Select("COALESCE(SUM(amount), 0) AS total").
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}

// CreateAlert 创建账务告警
func (r *GormAffiliateRepository) CreateAlert(alert *models.AffiliateAlert) error {
	return r.db.Create(alert).Error
}

// ListUnresolvedAlerts 查询未处理的账务告警
func (r *GormAffiliateRepository) ListUnresolvedAlerts(affiliateID uint) ([]models.AffiliateAlert, error) {
	query := r.db.Model(&models.AffiliateAlert{}).Where("resolved = ?", false)
	if affiliateID != 0 {
		query = query.Where("affiliate_id = ?", affiliateID)
	}
	var rows []models.AffiliateAlert
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateReferralReward 创建推荐返利记录
func (r *GormAffiliateRepository) CreateReferralReward(reward *models.ReferralReward) error {
	return r.db.Create(reward).Error
}

// HasReferralRewardBySale 查询销售记录是否已产生推荐返利
func (r *GormAffiliateRepository) HasReferralRewardBySale(saleID uint) (bool, error) {
	if saleID == 0 {
		return false, nil
	}
	var total int64
	if err := r.db.Model(&models.ReferralReward{}).Where("sale_id = ?", saleID).Count(&total).Error; err != nil {
		return false, err
	}
	return total > 0, nil
}
