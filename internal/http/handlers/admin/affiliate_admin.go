package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/webmart-next/internal/http/handlers/shared"
	"github.com/webmart-next/internal/http/response"
	"github.com/webmart-next/internal/repository"
	"github.com/webmart-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminReconcileAffiliate 核对单个推广用户余额（只告警不改账）
func (h *Handler) AdminReconcileAffiliate(c *gin.Context) {
	affiliateID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	report, err := h.ReconcileService.Reconcile(affiliateID)
	if err != nil {
		if errors.Is(err, service.ErrAffiliateNotFound) {
			shared.RespondError(c, response.CodeNotFound, "affiliate not found", nil)
			return
		}
		shared.RespondError(c, response.CodeInternal, "reconcile failed", err)
		return
	}
	response.Success(c, report)
}

// AdminSyncAffiliateBalance 将佣金缓存覆写为销售与提现推算值
func (h *Handler) AdminSyncAffiliateBalance(c *gin.Context) {
	affiliateID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	report, err := h.ReconcileService.Sync(affiliateID)
	if err != nil {
		if errors.Is(err, service.ErrAffiliateNotFound) {
			shared.RespondError(c, response.CodeNotFound, "affiliate not found", nil)
			return
		}
		shared.RespondError(c, response.CodeInternal, "balance sync failed", err)
		return
	}
	adminID, _ := shared.GetContextAdminID(c)
	shared.RequestLog(c).Infow("admin_balance_sync",
		"affiliate_id", affiliateID,
		"admin_id", adminID,
		"synced", report.Synced,
	)
	response.Success(c, report)
}

// AdminReconcileAll 对全部启用中的推广用户执行对账，返回汇总与明细
func (h *Handler) AdminReconcileAll(c *gin.Context) {
	reports, err := h.ReconcileService.ReconcileAll()
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "reconcile failed", err)
		return
	}
	unbalanced := 0
	for _, report := range reports {
		if !report.Balanced {
			unbalanced++
		}
	}
	response.Success(c, gin.H{
		"total":      len(reports),
		"unbalanced": unbalanced,
		"reports":    reports,
	})
}

// AdminListCommissionLogs 管理端佣金流水列表
func (h *Handler) AdminListCommissionLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = shared.NormalizePagination(page, pageSize)

	filter := repository.CommissionLogListFilter{
		Page:     page,
		PageSize: pageSize,
		Action:   strings.TrimSpace(c.Query("action")),
	}
	if raw := strings.TrimSpace(c.Query("affiliate_id")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.AffiliateID = uint(parsed)
		}
	}
	if raw := strings.TrimSpace(c.Query("order_id")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.OrderID = uint(parsed)
		}
	}

	logs, total, err := h.AffiliateRepo.ListCommissionLogs(filter)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "commission log list failed", err)
		return
	}
	response.SuccessWithPage(c, logs, buildPagination(page, pageSize, total))
}

// AdminListAlerts 查询未处理的余额漂移告警
func (h *Handler) AdminListAlerts(c *gin.Context) {
	var affiliateID uint
	if raw := strings.TrimSpace(c.Query("affiliate_id")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			affiliateID = uint(parsed)
		}
	}
	alerts, err := h.AffiliateRepo.ListUnresolvedAlerts(affiliateID)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "alert list failed", err)
		return
	}
	response.Success(c, alerts)
}

// AdminListWithdrawals 管理端提现申请列表
func (h *Handler) AdminListWithdrawals(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = shared.NormalizePagination(page, pageSize)

	filter := repository.WithdrawalListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
	}
	if raw := strings.TrimSpace(c.Query("affiliate_id")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.AffiliateID = uint(parsed)
		}
	}

	withdrawals, total, err := h.WithdrawalService.ListWithdrawals(filter)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "withdrawal list failed", err)
		return
	}
	response.SuccessWithPage(c, withdrawals, buildPagination(page, pageSize, total))
}

// AdminProcessPayout 处理提现打款：扣减余额并记 payout 流水
func (h *Handler) AdminProcessPayout(c *gin.Context) {
	withdrawalID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	adminID, ok := shared.GetContextAdminID(c)
	if !ok || adminID == 0 {
		shared.RespondError(c, response.CodeUnauthorized, "unauthorized", nil)
		return
	}

	request, err := h.WithdrawalService.ProcessPayout(withdrawalID, adminID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWithdrawalNotFound):
			shared.RespondError(c, response.CodeNotFound, "withdrawal not found", nil)
		case errors.Is(err, service.ErrWithdrawalProcessed):
			shared.RespondError(c, response.CodeBadRequest, "withdrawal already processed", nil)
		case errors.Is(err, service.ErrInsufficientBalance):
			shared.RespondError(c, response.CodeBadRequest, "insufficient balance", nil)
		default:
			shared.RespondError(c, response.CodeInternal, "payout failed", err)
		}
		return
	}
	response.Success(c, request)
}
