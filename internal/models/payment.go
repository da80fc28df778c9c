package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment 支付记录表
type Payment struct {
	ID        uint           `gorm:"primarykey" json:"id"`                                // 主键
	OrderID   uint           `gorm:"index;not null" json:"order_id"`                      // 订单ID
	Reference string         `gorm:"type:varchar(120);not null;uniqueIndex" json:"reference"` // 支付参考号
	Gateway   string         `gorm:"type:varchar(40);index" json:"gateway,omitempty"`     // 网关标识
	Method    string         `gorm:"type:varchar(20);not null" json:"method"`             // 支付方式
	Amount    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount"` // 支付金额
	Currency  string         `gorm:"not null" json:"currency"`                            // 币种
	Status    string         `gorm:"type:varchar(20);not null;index" json:"status"`       // 状态
	EventID   string         `gorm:"type:varchar(120);index" json:"event_id,omitempty"`   // 网关事件ID
	PaidAt    *time.Time     `gorm:"index" json:"paid_at"`                                // 支付完成时间
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                             // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                             // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                      // 软删除时间
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}
