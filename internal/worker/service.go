package worker

import (
	"context"
	"errors"
	"time"

	"github.com/webmart-next/internal/config"
	"github.com/webmart-next/internal/logger"
	"github.com/webmart-next/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	defaultSweepInterval   = 10 * time.Minute
	defaultCleanupInterval = 24 * time.Hour
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.MaintenanceService != nil {
		go s.runSettleSweepLoop(ctx)
		go s.runReconcileSweepLoop(ctx)
		go s.runLogCleanupLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

func (s *Service) sweepInterval() time.Duration {
	if s.consumer != nil && s.consumer.Config != nil && s.consumer.Config.Reconcile.SweepIntervalMinutes > 0 {
		return time.Duration(s.consumer.Config.Reconcile.SweepIntervalMinutes) * time.Minute
	}
	return defaultSweepInterval
}

func (s *Service) cleanupInterval() time.Duration {
	if s.consumer != nil && s.consumer.Config != nil && s.consumer.Config.Reconcile.CleanupIntervalMinutes > 0 {
		return time.Duration(s.consumer.Config.Reconcile.CleanupIntervalMinutes) * time.Minute
	}
	return defaultCleanupInterval
}

// runSettleSweepLoop 周期性补偿扫描：已支付但漏结算的订单重新入队
func (s *Service) runSettleSweepLoop(ctx context.Context) {
	runOnce := func() {
		if _, err := s.consumer.MaintenanceService.SweepUnsettledOrders(ctx); err != nil {
			logger.Warnw("worker_settle_sweep_failed", "error", err)
		}
	}
	runOnce()

	ticker := time.NewTicker(s.sweepInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// runReconcileSweepLoop 周期性对全部启用中的推广用户巡检对账
func (s *Service) runReconcileSweepLoop(ctx context.Context) {
	runOnce := func() {
		if _, err := s.consumer.MaintenanceService.ReconcileSweep(ctx); err != nil {
			logger.Warnw("worker_reconcile_sweep_failed", "error", err)
		}
	}
	ticker := time.NewTicker(s.sweepInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// runLogCleanupLoop 周期性清理超出保留期的佣金流水
func (s *Service) runLogCleanupLoop(ctx context.Context) {
	runOnce := func() {
		if _, err := s.consumer.MaintenanceService.CleanupCommissionLogs(ctx, 0); err != nil {
			logger.Warnw("worker_log_cleanup_failed", "error", err)
		}
	}
	ticker := time.NewTicker(s.cleanupInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
