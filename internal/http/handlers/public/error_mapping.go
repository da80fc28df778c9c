package public

import (
	"errors"

	"github.com/webmart-next/internal/http/handlers/shared"
	"github.com/webmart-next/internal/http/response"
	"github.com/webmart-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			shared.RespondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	shared.RespondError(c, fallbackCode, fallbackMsg, err)
}

var orderErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidInput, code: response.CodeBadRequest, msg: "invalid order input"},
	{target: service.ErrNotFound, code: response.CodeBadRequest, msg: "product not available"},
	{target: service.ErrProductOutOfStock, code: response.CodeBadRequest, msg: "product out of stock"},
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, msg: "order not found"},
}

var withdrawalErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidInput, code: response.CodeBadRequest, msg: "invalid withdrawal input"},
	{target: service.ErrAffiliateNotFound, code: response.CodeNotFound, msg: "affiliate not found"},
	{target: service.ErrAffiliateInactive, code: response.CodeBadRequest, msg: "affiliate inactive"},
	{target: service.ErrBelowMinWithdraw, code: response.CodeBadRequest, msg: "amount below minimum withdrawal"},
	{target: service.ErrInsufficientBalance, code: response.CodeBadRequest, msg: "insufficient balance"},
}

var paymentErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidInput, code: response.CodeBadRequest, msg: "invalid payment input"},
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, msg: "order not found"},
	{target: service.ErrOrderNotPending, code: response.CodeBadRequest, msg: "order is not payable"},
	{target: service.ErrOrderNotPaid, code: response.CodeBadRequest, msg: "payment not successful"},
	{target: service.ErrPaymentAmountMismatch, code: response.CodeBadRequest, msg: "payment amount mismatch"},
}
