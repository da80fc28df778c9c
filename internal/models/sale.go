package models

import (
	"time"

	"gorm.io/gorm"
)

// Sale 销售记账表（每笔已结算订单一条）
type Sale struct {
	ID               uint           `gorm:"primarykey" json:"id"`                                          // 主键
	PendingOrderID   uint           `gorm:"not null;uniqueIndex" json:"pending_order_id"`                  // 结算来源订单ID（唯一，保证至多结算一次）
	AffiliateID      *uint          `gorm:"index" json:"affiliate_id,omitempty"`                           // 推广用户ID（无归因订单为空）
	SaleAmount       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"sale_amount"`      // 销售金额
	CommissionAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"commission_amount"` // 本单佣金
	CommissionRate   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"commission_rate"`  // 结算时佣金比例快照
	Currency         string         `gorm:"not null" json:"currency"`                                      // 币种
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt        time.Time      `gorm:"index" json:"updated_at"`                                       // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                                                // 软删除时间

	Affiliate *Affiliate `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"` // 推广用户
}

// TableName 指定表名
func (Sale) TableName() string {
	return "sales"
}
