package service

import (
	"time"

	"github.com/webmart-next/internal/constants"
	"github.com/webmart-next/internal/logger"
	"github.com/webmart-next/internal/metrics"
	"github.com/webmart-next/internal/models"
	"github.com/webmart-next/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// reconcileEpsilon 余额比对容差，小于该差额视为一致
var reconcileEpsilon = decimal.RequireFromString("0.01")

// ReconcileService 推广账务对账服务。
// 缓存字段的真实来源是销售记录与提现记录：
// earned = Σ sales.commission_amount，paid = Σ 已打款提现，pending = earned - paid。
// Reconcile 只读比对并告警，Sync 锁内覆写缓存。
type ReconcileService struct {
	affiliateRepo repository.AffiliateRepository
	saleRepo      repository.SaleRepository
}

// NewReconcileService 创建对账服务
func NewReconcileService(affiliateRepo repository.AffiliateRepository, saleRepo repository.SaleRepository) *ReconcileService {
	return &ReconcileService{affiliateRepo: affiliateRepo, saleRepo: saleRepo}
}

// BalanceSnapshot 三项佣金余额快照
type BalanceSnapshot struct {
	Earned  models.Money `json:"earned"`
	Pending models.Money `json:"pending"`
	Paid    models.Money `json:"paid"`
}

// ExpectedBalances 按真实来源推算的余额，
// Logged 为 commission_earned 与 commission_reversed 流水净额（冲销为负数）
type ExpectedBalances struct {
	BalanceSnapshot
	Logged models.Money `json:"logged"`
}

// Discrepancies 账面与推算值的逐项差额
type Discrepancies struct {
	Earned     models.Money `json:"earned"`
	Pending    models.Money `json:"pending"`
	Paid       models.Money `json:"paid"`
	SalesVsLog models.Money `json:"sales_vs_log"`
}

// ReconcileReport 单个推广用户的对账结果
type ReconcileReport struct {
	Success       bool             `json:"success"`
	AffiliateID   uint             `json:"affiliate_id"`
	AffiliateCode string           `json:"affiliate_code"`
	Balanced      bool             `json:"balanced"`
	Expected      ExpectedBalances `json:"expected"`
	Stored        BalanceSnapshot  `json:"stored"`
	Discrepancies Discrepancies    `json:"discrepancies"`
	Synced        bool             `json:"synced,omitempty"`
}

// Reconcile 核对单个推广用户余额，差额超容差时写告警但不改账。
func (s *ReconcileService) Reconcile(affiliateID uint) (*ReconcileReport, error) {
	if affiliateID == 0 {
		return nil, ErrAffiliateNotFound
	}
	affiliate, err := s.affiliateRepo.GetByID(affiliateID)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrAffiliateNotFound
	}

	report, err := s.buildReport(s.affiliateRepo, s.saleRepo, affiliate)
	if err != nil {
		return nil, err
	}
	if report.Balanced {
		return report, nil
	}

	alert := &models.AffiliateAlert{
		AffiliateID:     affiliate.ID,
		Type:            constants.AlertTypeBalanceDrift,
		RecordedBalance: report.Stored.Pending,
		ExpectedBalance: report.Expected.Pending,
		Drift:           report.Discrepancies.Pending,
	}
	if err := s.affiliateRepo.CreateAlert(alert); err != nil {
		return nil, err
	}
	metrics.ReconcileAlerts.Inc()
	logger.Warnw("affiliate_balance_drift",
		"affiliate_id", affiliate.ID,
		"affiliate_code", affiliate.Code,
		"stored_pending", report.Stored.Pending.String(),
		"expected_pending", report.Expected.Pending.String(),
		"drift", report.Discrepancies.Pending.String(),
	)
	return report, nil
}

// Sync 将单个推广用户的佣金缓存覆写为推算值（锁内复核后更新）。
func (s *ReconcileService) Sync(affiliateID uint) (*ReconcileReport, error) {
	if affiliateID == 0 {
		return nil, ErrAffiliateNotFound
	}
	var report *ReconcileReport
	err := s.affiliateRepo.Transaction(func(tx *gorm.DB) error {
		affiliateRepo := s.affiliateRepo.WithTx(tx)
		saleRepo := s.saleRepo.WithTx(tx)

		affiliate, err := affiliateRepo.GetByIDForUpdate(affiliateID)
		if err != nil {
			return err
		}
		if affiliate == nil {
			return ErrAffiliateNotFound
		}
		report, err = s.buildReport(affiliateRepo, saleRepo, affiliate)
		if err != nil {
			return err
		}
		if report.Balanced {
			return nil
		}
		totalSales, err := saleRepo.CountByAffiliate(affiliateID)
		if err != nil {
			return err
		}
		if err := affiliateRepo.UpdateCommissionCache(affiliateID,
			report.Expected.Earned,
			report.Expected.Pending,
			report.Expected.Paid,
			totalSales,
			time.Now().UTC(),
		); err != nil {
			return err
		}
		report.Synced = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	driftAbs, _ := report.Discrepancies.Pending.Decimal.Abs().Float64()
	metrics.ReconcileDrift.Set(driftAbs)
	if report.Synced {
		logger.Infow("affiliate_balance_synced",
			"affiliate_id", affiliateID,
			"earned", report.Expected.Earned.String(),
			"pending", report.Expected.Pending.String(),
			"paid", report.Expected.Paid.String(),
		)
	}
	return report, nil
}

// ReconcileAll 对全部启用中的推广用户执行对账。
func (s *ReconcileService) ReconcileAll() ([]ReconcileReport, error) {
	ids, err := s.affiliateRepo.ListActiveIDs()
	if err != nil {
		return nil, err
	}
	reports := make([]ReconcileReport, 0, len(ids))
	for _, id := range ids {
		report, err := s.Reconcile(id)
		if err != nil {
			logger.Warnw("affiliate_reconcile_failed", "affiliate_id", id, "error", err)
			continue
		}
		reports = append(reports, *report)
	}
	return reports, nil
}

// SyncAll 对全部启用中的推广用户覆写佣金缓存（定时兜底用）。
func (s *ReconcileService) SyncAll() ([]ReconcileReport, error) {
	ids, err := s.affiliateRepo.ListActiveIDs()
	if err != nil {
		return nil, err
	}
	reports := make([]ReconcileReport, 0, len(ids))
	for _, id := range ids {
		report, err := s.Sync(id)
		if err != nil {
			logger.Warnw("affiliate_sync_failed", "affiliate_id", id, "error", err)
			continue
		}
		reports = append(reports, *report)
	}
	return reports, nil
}

// buildReport 推算期望余额并与账面缓存逐项比对
func (s *ReconcileService) buildReport(
	affiliateRepo repository.AffiliateRepository,
	saleRepo repository.SaleRepository,
	affiliate *models.Affiliate,
) (*ReconcileReport, error) {
	expectedEarned, err := saleRepo.SumCommissionByAffiliate(affiliate.ID)
	if err != nil {
		return nil, err
	}
	expectedPaid, err := affiliateRepo.SumProcessedWithdrawals(affiliate.ID)
	if err != nil {
		return nil, err
	}
	earnedLogged, err := affiliateRepo.SumCommissionLogAmountsByAction(affiliate.ID, constants.CommissionActionEarned)
	if err != nil {
		return nil, err
	}
	// 冲销流水为负数，净额对齐销售表（已取消订单的销售记录已删除）
	reversedLogged, err := affiliateRepo.SumCommissionLogAmountsByAction(affiliate.ID, constants.CommissionActionReversed)
	if err != nil {
		return nil, err
	}
	logged := earnedLogged.Add(reversedLogged).Round(2)
	expectedPending := expectedEarned.Sub(expectedPaid).Round(2)

	earnedDiff := affiliate.CommissionEarned.Decimal.Sub(expectedEarned).Round(2)
	pendingDiff := affiliate.CommissionPending.Decimal.Sub(expectedPending).Round(2)
	paidDiff := affiliate.CommissionPaid.Decimal.Sub(expectedPaid).Round(2)
	salesVsLog := expectedEarned.Sub(logged).Round(2)

	balanced := earnedDiff.Abs().LessThanOrEqual(reconcileEpsilon) &&
		pendingDiff.Abs().LessThanOrEqual(reconcileEpsilon) &&
		paidDiff.Abs().LessThanOrEqual(reconcileEpsilon) &&
		salesVsLog.Abs().LessThanOrEqual(reconcileEpsilon)

	return &ReconcileReport{
		Success:       true,
		AffiliateID:   affiliate.ID,
		AffiliateCode: affiliate.Code,
		Balanced:      balanced,
		Expected: ExpectedBalances{
			BalanceSnapshot: BalanceSnapshot{
				Earned:  models.NewMoneyFromDecimal(expectedEarned),
				Pending: models.NewMoneyFromDecimal(expectedPending),
				Paid:    models.NewMoneyFromDecimal(expectedPaid),
			},
			Logged: models.NewMoneyFromDecimal(logged),
		},
		Stored: BalanceSnapshot{
			Earned:  affiliate.CommissionEarned,
			Pending: affiliate.CommissionPending,
			Paid:    affiliate.CommissionPaid,
		},
		Discrepancies: Discrepancies{
			Earned:     models.NewMoneyFromDecimal(earnedDiff),
			Pending:    models.NewMoneyFromDecimal(pendingDiff),
			Paid:       models.NewMoneyFromDecimal(paidDiff),
			SalesVsLog: models.NewMoneyFromDecimal(salesVsLog),
		},
	}, nil
}
