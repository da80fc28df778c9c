package service

import (
	"time"

	"github.com/webmart-next/internal/constants"
	"github.com/webmart-next/internal/logger"
	"github.com/webmart-next/internal/models"
	"github.com/webmart-next/internal/repository"
	"gorm.io/gorm"
)

// DomainService 域名分配业务服务
type DomainService struct {
	orderRepo    repository.OrderRepository
	domainRepo   repository.DomainRepository
	activityRepo repository.AdminActivityRepository
}

// NewDomainService 创建域名分配服务
func NewDomainService(
	orderRepo repository.OrderRepository,
	domainRepo repository.DomainRepository,
	activityRepo repository.AdminActivityRepository,
) *DomainService {
	return &DomainService{
		orderRepo:    orderRepo,
		domainRepo:   domainRepo,
		activityRepo: activityRepo,
	}
}

// SetOrderItemDomain 为指定订单的模板类订单项分配域名。
// 订单项必须属于该订单；新域名锁内占用，旧域名同事务释放，
// 重复分配同一域名为无操作。
func (d *DomainService) SetOrderItemDomain(itemID, domainID, orderID, adminID uint) (*models.OrderItem, error) {
	if itemID == 0 || domainID == 0 || orderID == 0 {
		return nil, ErrInvalidInput
	}
	now := time.Now().UTC()
	var item *models.OrderItem

	err := d.orderRepo.Transaction(func(tx *gorm.DB) error {
		orderRepo := d.orderRepo.WithTx(tx)
		domainRepo := d.domainRepo.WithTx(tx)

		var err error
		item, err = orderRepo.GetItemByID(itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return ErrOrderItemNotFound
		}
		if item.OrderID != orderID {
			return ErrOrderItemNotInOrder
		}
		if item.ProductType != constants.ProductTypeTemplate {
			return ErrItemNotTemplate
		}
		if item.DomainID != nil && *item.DomainID == domainID {
			return nil
		}

		domain, err := domainRepo.GetByIDForUpdate(domainID)
		if err != nil {
			return err
		}
		if domain == nil {
			return ErrDomainNotFound
		}
		// 可分配：空闲，或已被同一订单占用（换绑到另一订单项）
		if domain.Status != constants.DomainStatusAvailable &&
			(domain.AssignedOrderID == nil || *domain.AssignedOrderID != item.OrderID) {
			return ErrDomainUnavailable
		}

		if item.DomainID != nil && *item.DomainID != 0 {
			if err := domainRepo.UpdateAssignment(*item.DomainID, constants.DomainStatusAvailable, nil, now); err != nil {
				return err
			}
		}
		if err := domainRepo.UpdateAssignment(domain.ID, constants.DomainStatusInUse, &item.OrderID, now); err != nil {
			return err
		}
		if err := orderRepo.UpdateItemDomain(item.ID, &domain.ID, now); err != nil {
			return err
		}
		item.DomainID = &domain.ID
		item.Domain = domain

		if adminID != 0 {
			activityRepo := d.activityRepo.WithTx(tx)
			return activityRepo.Create(&models.AdminActivityLog{
				AdminID:   adminID,
				Action:    constants.AdminActionDomainAssign,
				TargetID:  item.ID,
				Detail:    domain.Name,
				CreatedAt: now,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("order_item_domain_assigned",
		"item_id", itemID,
		"domain_id", domainID,
		"order_id", orderID,
		"admin_id", adminID,
	)
	return item, nil
}

// ListDomains 按状态查询域名库存
func (d *DomainService) ListDomains(status string) ([]models.Domain, error) {
	return d.domainRepo.ListByStatus(status)
}
