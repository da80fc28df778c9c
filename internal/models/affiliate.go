package models

import (
	"time"

	"gorm.io/gorm"
)

// Affiliate 推广返利用户表。
// commission_earned / commission_pending / commission_paid 为缓存余额，
// 真实来源是 sales 与 withdrawal_requests，可由对账服务重建。
// 不变量：commission_pending = commission_earned - commission_paid。
type Affiliate struct {
	ID                   uint           `gorm:"primarykey" json:"id"`                                              // 主键
	Code                 string         `gorm:"type:varchar(32);not null;uniqueIndex" json:"code"`                 // 推广码
	Email                string         `gorm:"index;not null" json:"email"`                                       // 联系邮箱
	Name                 string         `gorm:"type:varchar(120)" json:"name,omitempty"`                           // 名称
	Status               string         `gorm:"type:varchar(20);not null;index" json:"status"`                     // 状态
	CustomCommissionRate *Money         `gorm:"type:decimal(20,2)" json:"custom_commission_rate,omitempty"`        // 专属佣金比例（0-1），空则用全局默认
	CommissionEarned     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"commission_earned"`    // 累计佣金
	CommissionPending    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"commission_pending"`   // 待提现佣金
	CommissionPaid       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"commission_paid"`      // 已打款佣金
	TotalSales           int64          `gorm:"not null;default:0" json:"total_sales"`                             // 累计成交单数
	ReferredByID         *uint          `gorm:"index" json:"referred_by_id,omitempty"`                             // 推荐人ID
	CreatedAt            time.Time      `gorm:"index" json:"created_at"`                                           // 创建时间
	UpdatedAt            time.Time      `gorm:"index" json:"updated_at"`                                           // 更新时间
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`                                                    // 软删除时间

	ReferredBy *Affiliate `gorm:"foreignKey:ReferredByID" json:"referred_by,omitempty"` // 推荐人
}

// TableName 指定表名
func (Affiliate) TableName() string {
	return "affiliates"
}
