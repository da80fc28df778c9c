package admin

import (
	"errors"
	"strings"

	"github.com/webmart-next/internal/http/handlers/shared"
	"github.com/webmart-next/internal/http/response"
	"github.com/webmart-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminListDomains 域名库存列表
func (h *Handler) AdminListDomains(c *gin.Context) {
	status := strings.TrimSpace(c.Query("status"))
	domains, err := h.DomainService.ListDomains(status)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "domain list failed", err)
		return
	}
	response.Success(c, domains)
}

// AdminAssignDomainRequest 域名分配请求
type AdminAssignDomainRequest struct {
	DomainID uint `json:"domain_id" binding:"required"`
	OrderID  uint `json:"order_id" binding:"required"`
}

// AdminAssignDomain 为模板类订单项分配域名
func (h *Handler) AdminAssignDomain(c *gin.Context) {
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	adminID, _ := shared.GetContextAdminID(c)

	var req AdminAssignDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid domain input", err)
		return
	}

	item, err := h.DomainService.SetOrderItemDomain(itemID, req.DomainID, req.OrderID, adminID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderItemNotFound):
			shared.RespondError(c, response.CodeNotFound, "order item not found", nil)
		case errors.Is(err, service.ErrOrderItemNotInOrder):
			shared.RespondError(c, response.CodeBadRequest, "order item does not belong to order", nil)
		case errors.Is(err, service.ErrItemNotTemplate):
			shared.RespondError(c, response.CodeBadRequest, "item is not a template product", nil)
		case errors.Is(err, service.ErrDomainNotFound):
			shared.RespondError(c, response.CodeNotFound, "domain not found", nil)
		case errors.Is(err, service.ErrDomainUnavailable):
			shared.RespondError(c, response.CodeBadRequest, "domain unavailable", nil)
		default:
			shared.RespondError(c, response.CodeInternal, "domain assignment failed", err)
		}
		return
	}
	response.Success(c, item)
}
