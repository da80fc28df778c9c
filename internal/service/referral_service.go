package service

import (
	"time"

	"github.com/webmart-next/internal/config"
	"github.com/webmart-next/internal/constants"
	"github.com/webmart-next/internal/logger"
	"github.com/webmart-next/internal/models"
	"github.com/webmart-next/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReferralService 推荐返利服务。
// 下级产生佣金时，推荐人按配置比例抽成，按销售记录去重。
// 返利只落独立台账与流水，不进推广用户的佣金缓存字段。
type ReferralService struct {
	affiliateRepo repository.AffiliateRepository
	saleRepo      repository.SaleRepository
	cfg           *config.AffiliateConfig
}

// NewReferralService 创建推荐返利服务
func NewReferralService(
	affiliateRepo repository.AffiliateRepository,
	saleRepo repository.SaleRepository,
	cfg *config.AffiliateConfig,
) *ReferralService {
	return &ReferralService{
		affiliateRepo: affiliateRepo,
		saleRepo:      saleRepo,
		cfg:           cfg,
	}
}

func (r *ReferralService) rewardRate() decimal.Decimal {
	if r.cfg == nil || r.cfg.ReferralRewardRate <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(r.cfg.ReferralRewardRate)
}

// CreditReferralReward 为销售记录的推荐人入账返利，返回本次入账金额。
// 无推荐人、无佣金或已入账时为零金额无操作。
func (r *ReferralService) CreditReferralReward(saleID uint) (decimal.Decimal, error) {
	rate := r.rewardRate()
	if saleID == 0 || rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, nil
	}

	sale, err := r.saleRepo.GetByID(saleID)
	if err != nil {
		return decimal.Zero, err
	}
	if sale == nil || sale.AffiliateID == nil || sale.CommissionAmount.Decimal.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, nil
	}
	affiliate, err := r.affiliateRepo.GetByID(*sale.AffiliateID)
	if err != nil {
		return decimal.Zero, err
	}
	if affiliate == nil || affiliate.ReferredByID == nil || *affiliate.ReferredByID == 0 {
		return decimal.Zero, nil
	}

	reward := sale.CommissionAmount.Decimal.Mul(rate).Round(2)
	if reward.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, nil
	}

	now := time.Now().UTC()
	credited := false
	err = r.affiliateRepo.Transaction(func(tx *gorm.DB) error {
		repo := r.affiliateRepo.WithTx(tx)

		exists, err := repo.HasReferralRewardBySale(sale.ID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		referrer, err := repo.GetByID(*affiliate.ReferredByID)
		if err != nil {
			return err
		}
		if referrer == nil || referrer.Status != constants.AffiliateStatusActive {
			return nil
		}
		credited = true

		referralLog := &models.CommissionLog{
			OrderID:     &sale.PendingOrderID,
			Action:      constants.CommissionActionReferral,
			AffiliateID: &referrer.ID,
			Amount:      models.NewMoneyFromDecimal(reward),
			Detail:      "referral of affiliate " + affiliate.Code,
			CreatedAt:   now,
		}
		if err := repo.CreateCommissionLog(referralLog); err != nil {
			return err
		}
		return repo.CreateReferralReward(&models.ReferralReward{
			ReferrerID:  referrer.ID,
			AffiliateID: affiliate.ID,
			SaleID:      sale.ID,
			Amount:      models.NewMoneyFromDecimal(reward),
			Status:      constants.ReferralRewardStatusCredited,
			CreatedAt:   now,
		})
	})
	if err != nil {
		return decimal.Zero, err
	}
	if !credited {
		return decimal.Zero, nil
	}

	logger.Infow("referral_reward_credited",
		"sale_id", sale.ID,
		"affiliate_id", affiliate.ID,
		"referrer_id", *affiliate.ReferredByID,
		"amount", reward.StringFixed(2),
	)
	return reward, nil
}
