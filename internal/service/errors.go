package service

import "errors"

// 服务层哨兵错误，handler 据此映射响应码
var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")

	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderNotPaid        = errors.New("order not paid")
	ErrOrderNotPending     = errors.New("order not pending")
	ErrOrderNotCancellable = errors.New("order not cancellable")
	ErrAdminRequired       = errors.New("admin permission required")

	ErrAffiliateNotFound = errors.New("affiliate not found")
	ErrAffiliateInactive = errors.New("affiliate inactive")

	ErrPaymentNotFound       = errors.New("payment not found")
	ErrPaymentAmountMismatch = errors.New("payment amount mismatch")

	ErrWithdrawalNotFound  = errors.New("withdrawal request not found")
	ErrWithdrawalProcessed = errors.New("withdrawal request already processed")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBelowMinWithdraw    = errors.New("amount below minimum withdrawal")

	ErrOrderItemNotFound   = errors.New("order item not found")
	ErrOrderItemNotInOrder = errors.New("order item does not belong to order")
	ErrDomainNotFound      = errors.New("domain not found")
	ErrDomainUnavailable   = errors.New("domain unavailable")
	ErrItemNotTemplate     = errors.New("order item is not a template product")
	ErrProductOutOfStock   = errors.New("product out of stock")
)
