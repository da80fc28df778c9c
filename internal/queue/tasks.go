package queue

import (
	"encoding/json"

	"github.com/webmart-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderSettle 订单佣金结算任务
	TaskOrderSettle = constants.TaskOrderSettle
	// TaskCommissionEmail 佣金入账邮件任务
	TaskCommissionEmail = constants.TaskCommissionEmail
	// TaskOrderRejectionEmail 订单取消邮件任务
	TaskOrderRejectionEmail = constants.TaskOrderRejectionEmail
	// TaskPaymentConfirmEmail 支付确认邮件任务
	TaskPaymentConfirmEmail = constants.TaskPaymentConfirmEmail
	// TaskCommissionLogCleanup 佣金流水清理任务
	TaskCommissionLogCleanup = constants.TaskCommissionLogCleanup
)

// OrderSettlePayload 订单结算任务载荷
type OrderSettlePayload struct {
	OrderID uint `json:"order_id"`
}

// CommissionEmailPayload 佣金入账邮件任务载荷
type CommissionEmailPayload struct {
	AffiliateID uint   `json:"affiliate_id"`
	OrderID     uint   `json:"order_id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}

// OrderRejectionEmailPayload 订单取消邮件任务载荷
type OrderRejectionEmailPayload struct {
	OrderID uint   `json:"order_id"`
	Reason  string `json:"reason"`
}

// PaymentConfirmEmailPayload 支付确认邮件任务载荷
type PaymentConfirmEmailPayload struct {
	OrderID uint `json:"order_id"`
}

// CommissionLogCleanupPayload 流水清理任务载荷
type CommissionLogCleanupPayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewOrderSettleTask 创建订单结算任务
func NewOrderSettleTask(payload OrderSettlePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderSettle, body), nil
}

// NewCommissionEmailTask 创建佣金入账邮件任务
func NewCommissionEmailTask(payload CommissionEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCommissionEmail, body), nil
}

// NewOrderRejectionEmailTask 创建订单取消邮件任务
func NewOrderRejectionEmailTask(payload OrderRejectionEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderRejectionEmail, body), nil
}

// NewPaymentConfirmEmailTask 创建支付确认邮件任务
func NewPaymentConfirmEmailTask(payload PaymentConfirmEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentConfirmEmail, body), nil
}

// NewCommissionLogCleanupTask 创建流水清理任务
func NewCommissionLogCleanupTask(payload CommissionLogCleanupPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCommissionLogCleanup, body), nil
}
