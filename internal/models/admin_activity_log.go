package models

import (
	"time"
)

// AdminActivityLog 管理端操作日志表
type AdminActivityLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`                         // 主键
	AdminID   uint      `gorm:"index;not null" json:"admin_id"`               // 管理员ID
	Action    string    `gorm:"type:varchar(40);index;not null" json:"action"` // 动作
	TargetID  uint      `gorm:"index" json:"target_id,omitempty"`             // 目标对象ID
	Detail    string    `gorm:"type:varchar(500)" json:"detail,omitempty"`    // 说明
	ClientIP  string    `gorm:"type:varchar(64)" json:"client_ip,omitempty"`  // 客户端IP
	CreatedAt time.Time `gorm:"index" json:"created_at"`                      // 创建时间
}

// TableName 指定表名
func (AdminActivityLog) TableName() string {
	return "admin_activity_logs"
}
