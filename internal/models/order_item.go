package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderItem 订单项表
type OrderItem struct {
	ID           uint           `gorm:"primarykey" json:"id"`                                     // 主键
	OrderID      uint           `gorm:"index;not null" json:"order_id"`                           // 订单ID
	ProductID    uint           `gorm:"index;not null" json:"product_id"`                         // 商品ID
	ProductType  string         `gorm:"type:varchar(20);index;not null" json:"product_type"`      // 商品类型快照
	ProductTitle string         `gorm:"type:varchar(200);not null" json:"product_title"`          // 商品标题快照
	UnitPrice    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`  // 单价快照
	Quantity     int            `gorm:"not null;default:1" json:"quantity"`                       // 数量
	DomainID     *uint          `gorm:"index" json:"domain_id,omitempty"`                         // 已分配的域名ID（模板商品）
	Meta         JSON           `gorm:"type:json" json:"meta,omitempty"`                          // 商品属性快照
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`                                  // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                           // 软删除时间

	Domain *Domain `gorm:"foreignKey:DomainID" json:"domain,omitempty"` // 分配的域名
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}
