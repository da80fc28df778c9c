package public

import (
	"strings"

	"github.com/webmart-next/internal/http/handlers/shared"
	"github.com/webmart-next/internal/http/response"
	"github.com/webmart-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateWithdrawalRequest 提现申请请求
type CreateWithdrawalRequest struct {
	AffiliateCode string `json:"affiliate_code" binding:"required"`
	Amount        string `json:"amount" binding:"required"`
	Channel       string `json:"channel"`
	Account       string `json:"account"`
}

// CreateWithdrawal 提交提现申请
func (h *Handler) CreateWithdrawal(c *gin.Context) {
	var req CreateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid withdrawal input", err)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid withdrawal amount", err)
		return
	}
	affiliate, err := h.AffiliateRepo.GetByCode(req.AffiliateCode)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "withdrawal request failed", err)
		return
	}
	if affiliate == nil {
		shared.RespondError(c, response.CodeNotFound, "affiliate not found", nil)
		return
	}

	request, err := h.WithdrawalService.CreateWithdrawal(service.WithdrawalCreateInput{
		AffiliateID: affiliate.ID,
		Amount:      amount,
		Channel:     req.Channel,
		Account:     req.Account,
	})
	if err != nil {
		respondWithMappedError(c, err, withdrawalErrorRules, response.CodeInternal, "withdrawal request failed")
		return
	}
	response.Success(c, request)
}

// GetAffiliateSummary 推广用户概要：状态、专属佣金比例与三项佣金余额
func (h *Handler) GetAffiliateSummary(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	affiliate, err := h.AffiliateRepo.GetByCode(code)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "affiliate fetch failed", err)
		return
	}
	if affiliate == nil {
		shared.RespondError(c, response.CodeNotFound, "affiliate not found", nil)
		return
	}
	response.Success(c, gin.H{
		"code":                   affiliate.Code,
		"status":                 affiliate.Status,
		"custom_commission_rate": affiliate.CustomCommissionRate,
		"commission_earned":      affiliate.CommissionEarned,
		"commission_pending":     affiliate.CommissionPending,
		"commission_paid":        affiliate.CommissionPaid,
		"total_sales":            affiliate.TotalSales,
	})
}
