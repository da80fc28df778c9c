package service

import (
	"strings"
	"time"

	"github.com/webmart-next/internal/config"
	"github.com/webmart-next/internal/constants"
	"github.com/webmart-next/internal/logger"
	"github.com/webmart-next/internal/metrics"
	"github.com/webmart-next/internal/models"
	"github.com/webmart-next/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WithdrawalService 提现业务服务。
// 余额在打款处理时扣减，payout 流水不挂订单。
type WithdrawalService struct {
	affiliateRepo repository.AffiliateRepository
	activityRepo  repository.AdminActivityRepository
	cfg           *config.AffiliateConfig
}

// NewWithdrawalService 创建提现服务
func NewWithdrawalService(
	affiliateRepo repository.AffiliateRepository,
	activityRepo repository.AdminActivityRepository,
	cfg *config.AffiliateConfig,
) *WithdrawalService {
	return &WithdrawalService{
		affiliateRepo: affiliateRepo,
		activityRepo:  activityRepo,
		cfg:           cfg,
	}
}

// WithdrawalCreateInput 提现申请输入
type WithdrawalCreateInput struct {
	AffiliateID uint
	Amount      decimal.Decimal
	Channel     string
	Account     string
}

func (w *WithdrawalService) minWithdrawAmount() decimal.Decimal {
	if w.cfg == nil || w.cfg.MinWithdrawAmount <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(w.cfg.MinWithdrawAmount)
}

// CreateWithdrawal 创建提现申请，校验最低金额与当前待提现余额。
// 创建时只做读校验不加锁，打款处理时在锁内复核。
func (w *WithdrawalService) CreateWithdrawal(input WithdrawalCreateInput) (*models.WithdrawalRequest, error) {
	if input.AffiliateID == 0 {
		return nil, ErrAffiliateNotFound
	}
	amount := input.Amount.Round(2)
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidInput
	}
	if amount.LessThan(w.minWithdrawAmount()) {
		return nil, ErrBelowMinWithdraw
	}

	affiliate, err := w.affiliateRepo.GetByID(input.AffiliateID)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrAffiliateNotFound
	}
	if affiliate.Status != constants.AffiliateStatusActive {
		return nil, ErrAffiliateInactive
	}
	if affiliate.CommissionPending.Decimal.LessThan(amount) {
		return nil, ErrInsufficientBalance
	}

	now := time.Now().UTC()
	request := &models.WithdrawalRequest{
		AffiliateID: affiliate.ID,
		Amount:      models.NewMoneyFromDecimal(amount),
		Status:      constants.WithdrawalStatusPending,
		Channel:     strings.TrimSpace(input.Channel),
		Account:     strings.TrimSpace(input.Account),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := w.affiliateRepo.CreateWithdraw(request); err != nil {
		return nil, err
	}

	logger.Infow("withdrawal_requested",
		"withdrawal_id", request.ID,
		"affiliate_id", request.AffiliateID,
		"amount", request.Amount.String(),
	)
	return request, nil
}

// ProcessPayout 管理员处理打款：锁内将金额从待提现转入已打款，
// 追加 payout 流水与打款告警。已处理的申请重复提交直接拒绝。
func (w *WithdrawalService) ProcessPayout(withdrawalID, adminID uint) (*models.WithdrawalRequest, error) {
	if withdrawalID == 0 {
		return nil, ErrWithdrawalNotFound
	}
	if adminID == 0 {
		return nil, ErrAdminRequired
	}

	now := time.Now().UTC()
	var request *models.WithdrawalRequest
	err := w.affiliateRepo.Transaction(func(tx *gorm.DB) error {
		repo := w.affiliateRepo.WithTx(tx)

		var err error
		request, err = repo.GetWithdrawByIDForUpdate(withdrawalID)
		if err != nil {
			return err
		}
		if request == nil {
			return ErrWithdrawalNotFound
		}
		if request.Status != constants.WithdrawalStatusPending {
			return ErrWithdrawalProcessed
		}

		affiliate, err := repo.GetByIDForUpdate(request.AffiliateID)
		if err != nil {
			return err
		}
		if affiliate == nil {
			return ErrAffiliateNotFound
		}
		if affiliate.CommissionPending.Decimal.LessThan(request.Amount.Decimal) {
			return ErrInsufficientBalance
		}

		pending := affiliate.CommissionPending.Decimal.Sub(request.Amount.Decimal).Round(2)
		paid := affiliate.CommissionPaid.Decimal.Add(request.Amount.Decimal).Round(2)
		if err := repo.UpdateCommissionCache(affiliate.ID,
			affiliate.CommissionEarned,
			models.NewMoneyFromDecimal(pending),
			models.NewMoneyFromDecimal(paid),
			affiliate.TotalSales,
			now,
		); err != nil {
			return err
		}
		payoutLog := &models.CommissionLog{
			Action:      constants.CommissionActionPayout,
			AffiliateID: &affiliate.ID,
			Amount:      models.NewMoneyFromDecimal(request.Amount.Decimal.Neg()),
			Detail:      "withdrawal " + request.Channel + " " + request.Account,
			CreatedAt:   now,
		}
		if err := repo.CreateCommissionLog(payoutLog); err != nil {
			return err
		}

		request.Status = constants.WithdrawalStatusProcessed
		request.ProcessedAt = &now
		request.ProcessedBy = &adminID
		request.UpdatedAt = now
		if err := repo.UpdateWithdraw(request); err != nil {
			return err
		}

		alert := &models.AffiliateAlert{
			AffiliateID: affiliate.ID,
			Type:        constants.AlertTypePayoutProcessed,
			Message:     "withdrawal of " + request.Amount.String() + " processed",
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := repo.CreateAlert(alert); err != nil {
			return err
		}

		activityRepo := w.activityRepo.WithTx(tx)
		return activityRepo.Create(&models.AdminActivityLog{
			AdminID:   adminID,
			Action:    constants.AdminActionPayout,
			TargetID:  request.ID,
			Detail:    "amount " + request.Amount.String(),
			CreatedAt: now,
		})
	})
	if err != nil {
		metrics.Payouts.WithLabelValues("failed").Inc()
		return nil, err
	}

	metrics.Payouts.WithLabelValues("processed").Inc()
	logger.Infow("withdrawal_processed",
		"withdrawal_id", request.ID,
		"affiliate_id", request.AffiliateID,
		"amount", request.Amount.String(),
		"admin_id", adminID,
	)
	return request, nil
}

// ListWithdrawals 查询提现申请列表
func (w *WithdrawalService) ListWithdrawals(filter repository.WithdrawalListFilter) ([]models.WithdrawalRequest, int64, error) {
	return w.affiliateRepo.ListWithdraws(filter)
}
