package main

import (
	"fmt"

	"github.com/webmart-next/internal/authz"
	"github.com/webmart-next/internal/config"
	"github.com/webmart-next/internal/constants"
	"github.com/webmart-next/internal/logger"
	"github.com/webmart-next/internal/models"
	"github.com/webmart-next/internal/repository"
	"github.com/webmart-next/internal/service"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 授权角色
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		stdLog.Fatalf("Failed to init authz: %v", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		stdLog.Fatalf("Failed to bootstrap roles: %v", err)
	}

	// 初始管理员
	adminRepo := repository.NewAdminRepository(models.DB)
	authService := service.NewAuthService(cfg, adminRepo)
	if existing, err := adminRepo.GetByUsername("admin"); err != nil {
		stdLog.Printf("Failed to query admin: %v", err)
	} else if existing == nil {
		hash, err := authService.HashPassword("admin123")
		if err != nil {
			stdLog.Fatalf("Failed to hash admin password: %v", err)
		}
		admin := models.Admin{
			Username:     "admin",
			PasswordHash: hash,
			Status:       "active",
		}
		if err := adminRepo.Create(&admin); err != nil {
			stdLog.Printf("Failed to create admin: %v", err)
		} else if err := authzService.SetAdminRoles(admin.ID, []string{"superadmin"}); err != nil {
			stdLog.Printf("Failed to assign admin role: %v", err)
		} else {
			stdLog.Println("Created admin: admin / admin123 (superadmin)")
		}
	} else {
		stdLog.Println("Admin already exists: admin")
	}

	// 商品：网站模板与工具
	products := []models.Product{
		{
			Title:  "Starter Landing Template",
			Type:   constants.ProductTypeTemplate,
			Price:  models.NewMoneyFromFloat(99.00),
			Active: true,
			Meta: models.JSON(map[string]interface{}{
				"pages":      5,
				"responsive": true,
			}),
		},
		{
			Title:  "E-commerce Storefront Template",
			Type:   constants.ProductTypeTemplate,
			Price:  models.NewMoneyFromFloat(249.00),
			Active: true,
			Meta: models.JSON(map[string]interface{}{
				"pages":      12,
				"responsive": true,
			}),
		},
		{
			Title:  "Portfolio Template",
			Type:   constants.ProductTypeTemplate,
			Price:  models.NewMoneyFromFloat(149.00),
			Active: true,
		},
		{
			Title:  "SEO Audit Tool (License)",
			Type:   constants.ProductTypeTool,
			Price:  models.NewMoneyFromFloat(59.00),
			Stock:  100,
			Active: true,
		},
		{
			Title:  "Bulk Image Optimizer (License)",
			Type:   constants.ProductTypeTool,
			Price:  models.NewMoneyFromFloat(39.00),
			Stock:  50,
			Active: true,
		},
		{
			Title:  "Sitemap Generator (License)",
			Type:   constants.ProductTypeTool,
			Price:  models.NewMoneyFromFloat(19.00),
			Stock:  0,
			Active: true,
		},
	}

	for _, prod := range products {
		var existing models.Product
		if err := models.DB.Where("title = ?", prod.Title).First(&existing).Error; err != nil {
			if err := models.DB.Create(&prod).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", prod.Title, err)
			} else {
				stdLog.Printf("Created product: %s", prod.Title)
			}
		} else {
			existing.Type = prod.Type
			existing.Price = prod.Price
			existing.Stock = prod.Stock
			existing.Active = prod.Active
			existing.Meta = prod.Meta
			if err := models.DB.Save(&existing).Error; err != nil {
				stdLog.Printf("Failed to update product %s: %v", prod.Title, err)
			} else {
				stdLog.Printf("Updated product: %s", prod.Title)
			}
		}
	}

	// 域名库存：模板商品交付用
	domains := []models.Domain{
		{Name: "demo-site-01.webmart.example", Status: constants.DomainStatusAvailable},
		{Name: "demo-site-02.webmart.example", Status: constants.DomainStatusAvailable},
		{Name: "demo-site-03.webmart.example", Status: constants.DomainStatusAvailable},
		{Name: "demo-site-04.webmart.example", Status: constants.DomainStatusAvailable},
		{Name: "legacy-site.webmart.example", Status: constants.DomainStatusInUse},
	}

	for _, domain := range domains {
		var existing models.Domain
		if err := models.DB.Where("name = ?", domain.Name).First(&existing).Error; err != nil {
			if err := models.DB.Create(&domain).Error; err != nil {
				stdLog.Printf("Failed to create domain %s: %v", domain.Name, err)
			} else {
				stdLog.Printf("Created domain: %s", domain.Name)
			}
		} else {
			stdLog.Printf("Domain already exists: %s", domain.Name)
		}
	}

	// 推广用户：带一条推荐链（mentor -> partner），partner 用全局默认佣金比例
	seedAffiliate := func(code, email, name, status string, customRate *float64, referredByID *uint) *models.Affiliate {
		var existing models.Affiliate
		if err := models.DB.Where("code = ?", code).First(&existing).Error; err == nil {
			stdLog.Printf("Affiliate already exists: %s", code)
			return &existing
		}
		affiliate := models.Affiliate{
			Code:         code,
			Email:        email,
			Name:         name,
			Status:       status,
			ReferredByID: referredByID,
		}
		if customRate != nil {
			rate := models.NewMoneyFromFloat(*customRate)
			affiliate.CustomCommissionRate = &rate
		}
		if err := models.DB.Create(&affiliate).Error; err != nil {
			stdLog.Printf("Failed to create affiliate %s: %v", code, err)
			return nil
		}
		stdLog.Printf("Created affiliate: %s", code)
		return &affiliate
	}

	mentorRate := 0.15
	mentor := seedAffiliate("MENTOR01", "mentor@webmart.example", "Mentor Partner", constants.AffiliateStatusActive, &mentorRate, nil)
	var mentorID *uint
	if mentor != nil {
		mentorID = &mentor.ID
	}
	seedAffiliate("PARTNER1", "partner1@webmart.example", "Referred Partner", constants.AffiliateStatusActive, nil, mentorID)
	seedAffiliate("RETIRED1", "retired@webmart.example", "Retired Partner", constants.AffiliateStatusInactive, nil, nil)

	fmt.Println("\nSeed data ready:")
	fmt.Println("- 1 Admin (admin / admin123)")
	fmt.Println("- 6 Products (3 templates + 3 tools)")
	fmt.Println("- 5 Domains")
	fmt.Println("- 3 Affiliates (with one referral chain)")
}
