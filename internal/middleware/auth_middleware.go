package middleware

import (
	"errors"
	"strings"

	"bhms/internal/access"
	"bhms/internal/services"
	"bhms/pkg/jwt"
	"bhms/pkg/response"

	"github.com/gin-gonic/gin"
)

// principalKey 上下文中保存当前主体的键
const principalKey = "principal"

// AuthMiddleware 认证中间件
type AuthMiddleware struct {
	authService *services.AuthService
	jwtManager  *jwt.JWTManager
	cookieName  string
}

func NewAuthMiddleware(authService *services.AuthService, jwtManager *jwt.JWTManager, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		jwtManager:  jwtManager,
		cookieName:  cookieName,
	}
}

// RequireLogin 校验会话Cookie或Bearer令牌，并把主体写入上下文
func (m *AuthMiddleware) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := TokenFromRequest(c, m.cookieName)
		if tokenString == "" {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		claims, err := m.jwtManager.VerifyToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "Token无效或已过期")
			c.Abort()
			return
		}

		principal, err := m.authService.Resolve(c.Request.Context(), claims)
		if err != nil {
			if errors.Is(err, services.ErrSessionRevoked) {
				response.Unauthorized(c, err.Error())
			} else {
				response.FromError(c, err, "校验登录状态失败")
			}
			c.Abort()
			return
		}

		c.Set(principalKey, principal)
		c.Set("username", principal.Username)
		c.Next()
	}
}

// RequireCapability 要求当前角色具备指定能力，记录归属由服务层判断
func RequireCapability(capability access.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := access.Authorize(GetPrincipal(c), capability); err != nil {
			response.FromError(c, err, "权限检查失败")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetPrincipal 获取当前登录主体，未登录时返回 nil
func GetPrincipal(c *gin.Context) *access.Principal {
	value, exists := c.Get(principalKey)
	if !exists {
		return nil
	}
	principal, _ := value.(*access.Principal)
	return principal
}

// SetPrincipal 写入当前主体
func SetPrincipal(c *gin.Context, p *access.Principal) {
	c.Set(principalKey, p)
}

// TokenFromRequest 优先读取 Authorization 头，其次读取会话Cookie
func TokenFromRequest(c *gin.Context, cookieName string) string {
	if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	if cookieName == "" {
		return ""
	}
	token, err := c.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return token
}
