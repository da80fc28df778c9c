package constants

// 订单状态
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusCancelled = "cancelled"
	OrderStatusFailed    = "failed"
	OrderStatusExpired   = "expired"
)

// 支付方式
const (
	PaymentMethodManual    = "manual"
	PaymentMethodAutomatic = "automatic"
)

// 商品类型
const (
	ProductTypeTemplate = "template"
	ProductTypeTool     = "tool"
)

// 推广用户状态
const (
	AffiliateStatusActive   = "active"
	AffiliateStatusInactive = "inactive"
)

// 推广用户告警类型
const (
	AlertTypeBalanceDrift    = "balance_drift"
	AlertTypePayoutProcessed = "payout_processed"
)

// 佣金流水动作
const (
	CommissionActionEarned       = "commission_earned"
	CommissionActionSaleRecorded = "sales_record_created"
	CommissionActionReversed     = "commission_reversed"
	CommissionActionPayout       = "payout_processed"
	CommissionActionReferral     = "referral_reward_credited"
)

// 提现申请状态
const (
	WithdrawalStatusPending   = "pending"
	WithdrawalStatusProcessed = "processed"
)

// 域名库存状态
const (
	DomainStatusAvailable = "available"
	DomainStatusReserved  = "reserved"
	DomainStatusInUse     = "in_use"
)

// 推荐返利记录状态
const (
	ReferralRewardStatusCredited = "credited"
)

// 支付网关事件
const (
	GatewayEventChargeSuccess = "charge.success"
)

// 队列与任务
const (
	QueueDefault             = "default"
	QueueCritical            = "critical"
	TaskOrderSettle          = "order:settle"
	TaskCommissionEmail      = "email:commission_earned"
	TaskOrderRejectionEmail  = "email:order_rejection"
	TaskPaymentConfirmEmail  = "email:payment_confirmation"
	TaskCommissionLogCleanup = "ledger:log_cleanup"
)

// 管理端操作日志动作
const (
	AdminActionOrderCancel   = "order_cancel"
	AdminActionOrderMarkPaid = "order_mark_paid"
	AdminActionDomainAssign  = "domain_assign"
	AdminActionPayout        = "payout_processed"
	AdminActionBalanceSync   = "balance_sync"
)
