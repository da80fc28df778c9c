package models

import (
	"time"
)

// AffiliateAlert 推广用户告警表。
// 对账漂移告警带余额快照，打款完成告警只带消息。
type AffiliateAlert struct {
	ID              uint      `gorm:"primarykey" json:"id"`                                          // 主键
	AffiliateID     uint      `gorm:"index;not null" json:"affiliate_id"`                            // 推广用户ID
	Type            string    `gorm:"type:varchar(32);not null;index" json:"type"`                   // 告警类型
	Message         string    `gorm:"type:varchar(255)" json:"message,omitempty"`                    // 告警消息
	RecordedBalance Money     `gorm:"type:decimal(20,2);not null;default:0" json:"recorded_balance"` // 账面余额
	ExpectedBalance Money     `gorm:"type:decimal(20,2);not null;default:0" json:"expected_balance"` // 流水推算余额
	Drift           Money     `gorm:"type:decimal(20,2);not null;default:0" json:"drift"`            // 差额
	Resolved        bool      `gorm:"not null;default:false;index" json:"resolved"`                  // 是否已处理
	CreatedAt       time.Time `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt       time.Time `gorm:"index" json:"updated_at"`                                       // 更新时间
}

// TableName 指定表名
func (AffiliateAlert) TableName() string {
	return "affiliate_alerts"
}
