package models

import (
	"time"
)

// ReferralReward 推荐返利记录表（推荐人按下级佣金比例抽成）
type ReferralReward struct {
	ID          uint      `gorm:"primarykey" json:"id"`                                // 主键
	ReferrerID  uint      `gorm:"index;not null" json:"referrer_id"`                   // 推荐人ID
	AffiliateID uint      `gorm:"index;not null" json:"affiliate_id"`                  // 产生佣金的下级ID
	SaleID      uint      `gorm:"index;not null;uniqueIndex" json:"sale_id"`           // 来源销售记录ID（唯一，防重复返利）
	Amount      Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"` // 返利金额
	Status      string    `gorm:"type:varchar(20);not null;index" json:"status"`       // 状态
	CreatedAt   time.Time `gorm:"index" json:"created_at"`                             // 创建时间
}

// TableName 指定表名
func (ReferralReward) TableName() string {
	return "referral_rewards"
}
