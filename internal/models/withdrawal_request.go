package models

import (
	"time"

	"gorm.io/gorm"
)

// WithdrawalRequest 提现申请表
type WithdrawalRequest struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                 // 主键
	AffiliateID uint           `gorm:"index;not null" json:"affiliate_id"`                   // 推广用户ID
	Amount      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`  // 提现金额
	Status      string         `gorm:"type:varchar(20);not null;index" json:"status"`        // 状态
	Channel     string         `gorm:"type:varchar(40)" json:"channel,omitempty"`            // 收款渠道
	Account     string         `gorm:"type:varchar(200)" json:"account,omitempty"`           // 收款账号
	Remark      string         `gorm:"type:varchar(255)" json:"remark,omitempty"`            // 备注
	ProcessedAt *time.Time     `gorm:"index" json:"processed_at"`                            // 打款时间
	ProcessedBy *uint          `json:"processed_by,omitempty"`                               // 处理的管理员ID
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                              // 创建时间
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`                              // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                       // 软删除时间

	Affiliate *Affiliate `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"` // 推广用户
}

// TableName 指定表名
func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}
