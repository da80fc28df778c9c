package models

import (
	"time"

	"gorm.io/gorm"
)

// Domain 域名库存表（模板商品交付用）。
// 不变量：assigned_order_id 非空 当且仅当 状态为 reserved/in_use。
type Domain struct {
	ID              uint           `gorm:"primarykey" json:"id"`                               // 主键
	Name            string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"` // 域名
	Status          string         `gorm:"type:varchar(20);not null;index" json:"status"`      // 库存状态
	AssignedOrderID *uint          `gorm:"index" json:"assigned_order_id,omitempty"`           // 占用订单ID
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                            // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间
}

// TableName 指定表名
func (Domain) TableName() string {
	return "domains"
}
