package provider

import (
	"github.com/webmart-next/internal/authz"
	"github.com/webmart-next/internal/cache"
	"github.com/webmart-next/internal/config"
	"github.com/webmart-next/internal/logger"
	"github.com/webmart-next/internal/models"
	"github.com/webmart-next/internal/queue"
	"github.com/webmart-next/internal/repository"
	"github.com/webmart-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config       *config.Config
	QueueClient  *queue.Client
	AuthzService *authz.Service

	// Repositories
	OrderRepo     repository.OrderRepository
	SaleRepo      repository.SaleRepository
	AffiliateRepo repository.AffiliateRepository
	ProductRepo   repository.ProductRepository
	DomainRepo    repository.DomainRepository
	PaymentRepo   repository.PaymentRepository
	ActivityRepo  repository.AdminActivityRepository
	AdminRepo     repository.AdminRepository

	// Services
	AuthService        *service.AuthService
	EmailService       *service.EmailService
	OrderService       *service.OrderService
	PaymentService     *service.PaymentService
	SettlementService  *service.SettlementService
	ReferralService    *service.ReferralService
	ReconcileService   *service.ReconcileService
	WithdrawalService  *service.WithdrawalService
	DomainService      *service.DomainService
	MaintenanceService *service.MaintenanceService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 初始化管理端授权
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
	} else {
		if err := authzService.BootstrapBuiltinRoles(); err != nil {
			logger.Errorw("provider_bootstrap_authz_roles_failed", "error", err)
		}
		c.AuthzService = authzService
	}

	c.initRepositories()
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.OrderRepo = repository.NewOrderRepository(db)
	c.SaleRepo = repository.NewSaleRepository(db)
	c.AffiliateRepo = repository.NewAffiliateRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.DomainRepo = repository.NewDomainRepository(db)
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.ActivityRepo = repository.NewAdminActivityRepository(db)
	c.AdminRepo = repository.NewAdminRepository(db)
}

func (c *Container) initServices() {
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.OrderService = service.NewOrderService(
		c.OrderRepo,
		c.SaleRepo,
		c.AffiliateRepo,
		c.ProductRepo,
		c.DomainRepo,
		c.ActivityRepo,
		c.QueueClient,
	)
	c.ReferralService = service.NewReferralService(c.AffiliateRepo, c.SaleRepo, &c.Config.Affiliate)
	c.ReconcileService = service.NewReconcileService(c.AffiliateRepo, c.SaleRepo)
	c.SettlementService = service.NewSettlementService(
		c.OrderRepo,
		c.SaleRepo,
		c.AffiliateRepo,
		c.ReferralService,
		c.ReconcileService,
		c.QueueClient,
		&c.Config.Affiliate,
	)
	// PaymentService 依赖结算服务做队列停用时的同步兜底，须后构建
	c.PaymentService = service.NewPaymentService(
		c.PaymentRepo,
		c.OrderRepo,
		c.OrderService,
		c.SettlementService,
		c.QueueClient,
		&c.Config.Payment,
	)
	c.WithdrawalService = service.NewWithdrawalService(c.AffiliateRepo, c.ActivityRepo, &c.Config.Affiliate)
	c.DomainService = service.NewDomainService(c.OrderRepo, c.DomainRepo, c.ActivityRepo)
	c.MaintenanceService = service.NewMaintenanceService(c.OrderRepo, c.AffiliateRepo, c.ReconcileService, c.SettlementService, c.QueueClient, c.Config)
}
