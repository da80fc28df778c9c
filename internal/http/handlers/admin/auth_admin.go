package admin

import (
	"errors"

	"github.com/webmart-next/internal/http/handlers/shared"
	"github.com/webmart-next/internal/http/response"
	"github.com/webmart-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminLoginRequest 管理员登录请求
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminLogin 管理员登录
func (h *Handler) AdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid login input", err)
		return
	}

	admin, token, expiresAt, err := h.AuthService.Login(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAdminCredentialsInvalid):
			shared.RespondError(c, response.CodeUnauthorized, "invalid username or password", nil)
		case errors.Is(err, service.ErrAdminDisabled):
			shared.RespondError(c, response.CodeForbidden, "account disabled", nil)
		default:
			shared.RespondError(c, response.CodeInternal, "login failed", err)
		}
		return
	}

	shared.RequestLog(c).Infow("admin_login", "admin_id", admin.ID, "username", admin.Username)
	response.Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"admin": gin.H{
			"id":       admin.ID,
			"username": admin.Username,
		},
	})
}
