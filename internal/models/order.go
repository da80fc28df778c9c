package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                        // 主键
	OrderNo       string         `gorm:"uniqueIndex;not null" json:"order_no"`                        // 订单编号
	CustomerEmail string         `gorm:"index;not null" json:"customer_email"`                        // 买家邮箱
	CustomerName  string         `gorm:"type:varchar(120)" json:"customer_name,omitempty"`            // 买家名称
	Status        string         `gorm:"index;not null" json:"status"`                                // 订单状态
	Currency      string         `gorm:"not null" json:"currency"`                                    // 币种
	TotalAmount   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`   // 实付金额
	AffiliateID   *uint          `gorm:"index" json:"affiliate_id,omitempty"`                         // 归因的推广用户ID
	ReferralCode  string         `gorm:"type:varchar(32);index" json:"referral_code,omitempty"`       // 下单时携带的推广码
	CancelReason  string         `gorm:"type:varchar(255)" json:"cancel_reason,omitempty"`            // 取消原因
	ClientIP      string         `gorm:"type:varchar(64)" json:"client_ip,omitempty"`                 // 下单客户端IP
	PaidAt        *time.Time     `gorm:"index" json:"paid_at"`                                        // 支付时间
	CanceledAt    *time.Time     `gorm:"index" json:"canceled_at"`                                    // 取消时间
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                                     // 创建时间
	UpdatedAt     time.Time      `gorm:"index" json:"updated_at"`                                     // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                              // 软删除时间

	Items     []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`         // 订单项
	Affiliate *Affiliate  `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"` // 推广用户
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
