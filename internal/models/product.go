package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表（网站模板与工具）
type Product struct {
	ID        uint           `gorm:"primarykey" json:"id"`                                 // 主键
	Title     string         `gorm:"type:varchar(200);not null" json:"title"`              // 标题
	Type      string         `gorm:"type:varchar(20);index;not null" json:"type"`          // 商品类型
	Price     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"`   // 售价
	Stock     int            `gorm:"not null;default:0" json:"stock"`                      // 库存（工具类有效）
	Active    bool           `gorm:"not null;default:true;index" json:"active"`            // 是否上架
	Meta      JSON           `gorm:"type:json" json:"meta,omitempty"`                      // 扩展属性
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                              // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                              // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                       // 软删除时间
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}
