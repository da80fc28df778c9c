package repository

import "time"

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page          int
	PageSize      int
	Status        string
	OrderNo       string
	CustomerEmail string
	AffiliateID   uint
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// CommissionLogListFilter 查询佣金流水的过滤条件
type CommissionLogListFilter struct {
	Page        int
	PageSize    int
	AffiliateID uint
	OrderID     uint
	Action      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// WithdrawalListFilter 查询提现申请的过滤条件
type WithdrawalListFilter struct {
	Page        int
	PageSize    int
	AffiliateID uint
	Status      string
}

// SaleListFilter 查询销售记录的过滤条件
type SaleListFilter struct {
	Page        int
	PageSize    int
	AffiliateID uint
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
