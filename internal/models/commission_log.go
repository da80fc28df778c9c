package models

import (
	"time"
)

// CommissionLog 佣金流水表（追加式审计账本）
// OrderID 允许为空：payout_processed 流水不挂订单，NULL 不参与唯一约束
type CommissionLog struct {
	ID          uint      `gorm:"primarykey" json:"id"`                                     // 主键
	OrderID     *uint     `gorm:"uniqueIndex:uk_commission_order_action" json:"order_id"`   // 订单ID
	Action      string    `gorm:"type:varchar(40);not null;uniqueIndex:uk_commission_order_action;index" json:"action"` // 流水动作
	AffiliateID *uint     `gorm:"index" json:"affiliate_id,omitempty"`                      // 推广用户ID
	Amount      Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`      // 金额（正为入账，负为出账）
	Detail      string    `gorm:"type:varchar(500)" json:"detail,omitempty"`                // 说明
	CreatedAt   time.Time `gorm:"index" json:"created_at"`                                  // 创建时间
}

// TableName 指定表名
func (CommissionLog) TableName() string {
	return "commission_logs"
}
