package service

import (
	"strings"
	"time"

	"github.com/webmart-next/internal/config"
	"github.com/webmart-next/internal/constants"
	"github.com/webmart-next/internal/logger"
	"github.com/webmart-next/internal/metrics"
	"github.com/webmart-next/internal/models"
	"github.com/webmart-next/internal/queue"
	"github.com/webmart-next/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SettlementService 订单佣金结算服务
type SettlementService struct {
	orderRepo        repository.OrderRepository
	saleRepo         repository.SaleRepository
	affiliateRepo    repository.AffiliateRepository
	referralService  *ReferralService
	reconcileService *ReconcileService
	queueClient      *queue.Client
	cfg              *config.AffiliateConfig
}

// NewSettlementService 创建结算服务
func NewSettlementService(
	orderRepo repository.OrderRepository,
	saleRepo repository.SaleRepository,
	affiliateRepo repository.AffiliateRepository,
	referralService *ReferralService,
	reconcileService *ReconcileService,
	queueClient *queue.Client,
	cfg *config.AffiliateConfig,
) *SettlementService {
	return &SettlementService{
		orderRepo:        orderRepo,
		saleRepo:         saleRepo,
		affiliateRepo:    affiliateRepo,
		referralService:  referralService,
		reconcileService: reconcileService,
		queueClient:      queueClient,
		cfg:              cfg,
	}
}

// SettlementResult 结算结果
type SettlementResult struct {
	Sale           *models.Sale `json:"sale"`
	Duplicate      bool         `json:"duplicate"` // 已结算过，此次为无操作
	Message        string       `json:"message"`
	ReferralAmount models.Money `json:"referral_amount"`
}

const settlementMsgProcessed = "processed"
const settlementMsgDuplicate = "already processed"

// ProcessOrderCommission 结算订单佣金。
// 销售记录、余额变更、两条流水在同一事务内落库；
// sales.pending_order_id 唯一约束保证同单至多结算一次。
func (s *SettlementService) ProcessOrderCommission(orderID uint) (*SettlementResult, error) {
	if orderID == 0 {
		return nil, ErrOrderNotFound
	}

	// 事务外快速判重，重复结算直接按成功返回
	if existing, err := s.saleRepo.GetByPendingOrderID(orderID); err != nil {
		return nil, err
	} else if existing != nil {
		return &SettlementResult{Sale: existing, Duplicate: true, Message: settlementMsgDuplicate}, nil
	}

	now := time.Now().UTC()
	var sale *models.Sale
	var affiliateID *uint
	var commission decimal.Decimal
	var duplicate bool

	err := s.orderRepo.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		saleRepo := s.saleRepo.WithTx(tx)
		affiliateRepo := s.affiliateRepo.WithTx(tx)

		order, err := orderRepo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.Status != constants.OrderStatusPaid {
			return ErrOrderNotPaid
		}

		// 锁内复查，并发结算时第二个事务在此返回
		if existing, err := saleRepo.GetByPendingOrderID(orderID); err != nil {
			return err
		} else if existing != nil {
			sale = existing
			duplicate = true
			return nil
		}

		rate := decimal.Zero
		commission = decimal.Zero
		var affiliate *models.Affiliate
		if order.AffiliateID != nil && *order.AffiliateID != 0 {
			affiliate, err = affiliateRepo.GetByIDForUpdate(*order.AffiliateID)
			if err != nil {
				return err
			}
		}
		if affiliate != nil && affiliate.Status == constants.AffiliateStatusActive {
			if affiliate.CustomCommissionRate != nil {
				rate = affiliate.CustomCommissionRate.Decimal
			} else if s.cfg != nil {
				rate = decimal.NewFromFloat(s.cfg.DefaultCommissionRate)
			}
			commission = order.TotalAmount.Decimal.Mul(rate).Round(2)
			affiliateID = &affiliate.ID
		}

		sale = &models.Sale{
			PendingOrderID:   order.ID,
			AffiliateID:      affiliateID,
			SaleAmount:       order.TotalAmount,
			CommissionAmount: models.NewMoneyFromDecimal(commission),
			CommissionRate:   models.NewMoneyFromDecimal(rate),
			Currency:         order.Currency,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := saleRepo.Create(sale); err != nil {
			return err
		}

		saleLog := &models.CommissionLog{
			OrderID:     &order.ID,
			Action:      constants.CommissionActionSaleRecorded,
			AffiliateID: affiliateID,
			Amount:      models.NewMoneyFromDecimal(decimal.Zero),
			Detail:      "sale " + order.OrderNo + " amount " + order.TotalAmount.String(),
			CreatedAt:   now,
		}
		if err := affiliateRepo.CreateCommissionLog(saleLog); err != nil {
			return err
		}

		if affiliateID != nil {
			earned := affiliate.CommissionEarned.Decimal.Add(commission).Round(2)
			pending := affiliate.CommissionPending.Decimal.Add(commission).Round(2)
			if err := affiliateRepo.UpdateCommissionCache(affiliate.ID,
				models.NewMoneyFromDecimal(earned),
				models.NewMoneyFromDecimal(pending),
				affiliate.CommissionPaid,
				affiliate.TotalSales+1,
				now,
			); err != nil {
				return err
			}
		}
		if affiliateID != nil && commission.GreaterThan(decimal.Zero) {
			earnLog := &models.CommissionLog{
				OrderID:     &order.ID,
				Action:      constants.CommissionActionEarned,
				AffiliateID: affiliateID,
				Amount:      models.NewMoneyFromDecimal(commission),
				Detail:      "rate " + rate.String() + " on " + order.TotalAmount.String(),
				CreatedAt:   now,
			}
			if err := affiliateRepo.CreateCommissionLog(earnLog); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// 唯一约束竞争：另一事务已结算，按成功处理
		if existing, lookupErr := s.saleRepo.GetByPendingOrderID(orderID); lookupErr == nil && existing != nil {
			metrics.Settlements.WithLabelValues("duplicate").Inc()
			return &SettlementResult{Sale: existing, Duplicate: true, Message: settlementMsgDuplicate}, nil
		}
		metrics.Settlements.WithLabelValues("error").Inc()
		return nil, err
	}

	if duplicate {
		metrics.Settlements.WithLabelValues("duplicate").Inc()
		return &SettlementResult{Sale: sale, Duplicate: true, Message: settlementMsgDuplicate}, nil
	}

	metrics.Settlements.WithLabelValues("settled").Inc()
	if amount, _ := commission.Float64(); amount > 0 {
		metrics.SettlementAmount.Add(amount)
	}
	logger.Infow("order_commission_settled",
		"order_id", orderID,
		"sale_id", sale.ID,
		"commission", commission.StringFixed(2),
	)

	referral := s.afterSettlement(sale, affiliateID)
	return &SettlementResult{
		Sale:           sale,
		Message:        settlementMsgProcessed,
		ReferralAmount: models.NewMoneyFromDecimal(referral),
	}, nil
}

// afterSettlement 结算落库后的尽力而为动作：缓存兜底同步、通知邮件与推荐返利。
// 返回本次推荐返利入账金额。
func (s *SettlementService) afterSettlement(sale *models.Sale, affiliateID *uint) decimal.Decimal {
	referral := decimal.Zero
	if sale == nil {
		return referral
	}
	// 快速增量更新后以真实来源兜底，消除并发竞争引入的缓存漂移
	if affiliateID != nil && s.reconcileService != nil {
		if _, err := s.reconcileService.Sync(*affiliateID); err != nil {
			logger.Warnw("settlement_safeguard_sync_failed", "affiliate_id", *affiliateID, "error", err)
		}
	}
	if affiliateID != nil && sale.CommissionAmount.Decimal.GreaterThan(decimal.Zero) && s.queueClient != nil {
		payload := queue.CommissionEmailPayload{
			AffiliateID: *affiliateID,
			OrderID:     sale.PendingOrderID,
			Amount:      sale.CommissionAmount.String(),
			Currency:    strings.ToUpper(sale.Currency),
		}
		if err := s.queueClient.EnqueueCommissionEmail(payload); err != nil {
			logger.Warnw("commission_email_enqueue_failed", "order_id", sale.PendingOrderID, "error", err)
		}
	}
	if s.referralService != nil {
		amount, err := s.referralService.CreditReferralReward(sale.ID)
		if err != nil {
			logger.Warnw("referral_reward_credit_failed", "sale_id", sale.ID, "error", err)
		} else {
			referral = amount
		}
	}
	return referral
}
