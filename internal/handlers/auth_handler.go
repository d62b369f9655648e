package handlers

import (
	"errors"
	"net/http"
	"time"

	"bhms/internal/access"
	"bhms/internal/middleware"
	"bhms/internal/services"
	"bhms/pkg/config"
	"bhms/pkg/jwt"
	"bhms/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *services.AuthService
	jwtManager  *jwt.JWTManager
	session     config.SessionConfig
}

func NewAuthHandler(authService *services.AuthService, jwtManager *jwt.JWTManager, session config.SessionConfig) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		jwtManager:  jwtManager,
		session:     session,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string            `json:"token"`
	ExpiresAt int64             `json:"expires_at"`
	Principal *access.Principal `json:"principal"`
}

// Login 登录，管理员用用户名，租客用邮箱
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	principal, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			response.Unauthorized(c, err.Error())
			return
		}
		response.FromError(c, err, "登录失败")
		return
	}

	token, expiresAt, err := h.jwtManager.GenerateToken(principal.AccountID, principal.Username, string(principal.Role), principal.TenantID)
	if err != nil {
		response.FromError(c, err, "生成Token失败")
		return
	}

	h.setSessionCookie(c, token, int(time.Until(expiresAt).Seconds()))
	response.Success(c, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
		Principal: principal,
	})
}

// Logout 清除会话Cookie，令牌本身在过期后失效
func (h *AuthHandler) Logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	response.SuccessWithMessage(c, "登出成功", nil)
}

// Me 当前登录主体
func (h *AuthHandler) Me(c *gin.Context) {
	response.Success(c, middleware.GetPrincipal(c))
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.session.CookieName, value, maxAge, "/", h.session.Domain, h.session.Secure, true)
}
