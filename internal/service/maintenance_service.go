package service

import (
	"context"
	"time"

	"github.com/webmart-next/internal/cache"
	"github.com/webmart-next/internal/config"
	"github.com/webmart-next/internal/logger"
	"github.com/webmart-next/internal/queue"
	"github.com/webmart-next/internal/repository"
)

const (
	sweepLockName     = "settle_sweep"
	cleanupLockName   = "log_cleanup"
	reconcileLockName = "reconcile_sweep"
	sweepLockTTL      = 5 * time.Minute
)

// MaintenanceService 账务后台维护：补偿结算扫描、对账巡检与流水清理
type MaintenanceService struct {
	orderRepo         repository.OrderRepository
	affiliateRepo     repository.AffiliateRepository
	reconcileService  *ReconcileService
	settlementService *SettlementService
	queueClient       *queue.Client
	cfg               *config.Config
}

// NewMaintenanceService 创建维护服务
func NewMaintenanceService(
	orderRepo repository.OrderRepository,
	affiliateRepo repository.AffiliateRepository,
	reconcileService *ReconcileService,
	settlementService *SettlementService,
	queueClient *queue.Client,
	cfg *config.Config,
) *MaintenanceService {
	return &MaintenanceService{
		orderRepo:         orderRepo,
		affiliateRepo:     affiliateRepo,
		reconcileService:  reconcileService,
		settlementService: settlementService,
		queueClient:       queueClient,
		cfg:               cfg,
	}
}

// SweepUnsettledOrders 扫描已支付但未结算的订单并补发结算任务。
// 队列停用时直接同步结算。Redis 互斥锁保证多实例只有一个在扫。
func (m *MaintenanceService) SweepUnsettledOrders(ctx context.Context) (int, error) {
	acquired, err := cache.AcquireSweepLock(ctx, sweepLockName, sweepLockTTL)
	if err != nil {
		return 0, err
	}
	if !acquired {
		return 0, nil
	}
	defer func() {
		if err := cache.ReleaseSweepLock(ctx, sweepLockName); err != nil {
			logger.Warnw("sweep_lock_release_failed", "error", err)
		}
	}()

	batch := 100
	if m.cfg != nil && m.cfg.Reconcile.SweepBatchSize > 0 {
		batch = m.cfg.Reconcile.SweepBatchSize
	}
	ids, err := m.orderRepo.ListUnsettledPaidOrderIDs(batch)
	if err != nil {
		return 0, err
	}
	enqueued := 0
	for _, id := range ids {
		if m.queueClient.Enabled() {
			if err := m.queueClient.EnqueueOrderSettle(queue.OrderSettlePayload{OrderID: id}); err != nil {
				logger.Warnw("settle_sweep_enqueue_failed", "order_id", id, "error", err)
				continue
			}
		} else if m.settlementService != nil {
			if _, err := m.settlementService.ProcessOrderCommission(id); err != nil {
				logger.Warnw("settle_sweep_inline_failed", "order_id", id, "error", err)
				continue
			}
		} else {
			continue
		}
		enqueued++
	}
	if enqueued > 0 {
		logger.Infow("settle_sweep_completed", "found", len(ids), "enqueued", enqueued)
	}
	return enqueued, nil
}

// ReconcileSweep 对全部启用中的推广用户巡检一轮对账。
// Redis 互斥锁保证多实例只有一个在巡检，返回发现漂移的用户数。
func (m *MaintenanceService) ReconcileSweep(ctx context.Context) (int, error) {
	if m.reconcileService == nil {
		return 0, nil
	}
	acquired, err := cache.AcquireSweepLock(ctx, reconcileLockName, sweepLockTTL)
	if err != nil {
		return 0, err
	}
	if !acquired {
		return 0, nil
	}
	defer func() {
		if err := cache.ReleaseSweepLock(ctx, reconcileLockName); err != nil {
			logger.Warnw("reconcile_lock_release_failed", "error", err)
		}
	}()

	reports, err := m.reconcileService.ReconcileAll()
	if err != nil {
		return 0, err
	}
	unbalanced := 0
	for _, report := range reports {
		if !report.Balanced {
			unbalanced++
		}
	}
	if unbalanced > 0 {
		logger.Warnw("reconcile_sweep_completed", "checked", len(reports), "unbalanced", unbalanced)
	}
	return unbalanced, nil
}

// CleanupCommissionLogs 删除超出保留期的佣金流水。
func (m *MaintenanceService) CleanupCommissionLogs(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		if m.cfg != nil && m.cfg.Affiliate.LogRetentionDays > 0 {
			retentionDays = m.cfg.Affiliate.LogRetentionDays
		} else {
			return 0, nil
		}
	}

	acquired, err := cache.AcquireSweepLock(ctx, cleanupLockName, sweepLockTTL)
	if err != nil {
		return 0, err
	}
	if !acquired {
		return 0, nil
	}
	defer func() {
		if err := cache.ReleaseSweepLock(ctx, cleanupLockName); err != nil {
			logger.Warnw("cleanup_lock_release_failed", "error", err)
		}
	}()

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	deleted, err := m.affiliateRepo.DeleteCommissionLogsBefore(cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		logger.Infow("commission_log_cleanup_completed", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}
