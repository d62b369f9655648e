package jwt

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "BHMS"

// SessionClaims 会话声明
type SessionClaims struct {
	AccountID uint   `json:"account_id"` // 管理员ID或租客ID
	Username  string `json:"username"`
	Role      string `json:"role"`                // Admin 或 Tenant
	TenantID  uint   `json:"tenant_id,omitempty"` // 仅租客登录时有值
	jwt.RegisteredClaims
}

// JWTManager JWT管理器
type JWTManager struct {
	secretKey     string
	tokenDuration time.Duration
}

// NewJWTManager 创建JWT管理器
func NewJWTManager(secretKey string, tokenDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:     secretKey,
		tokenDuration: tokenDuration,
	}
}

// ParseDuration 解析令牌有效期，格式错误时使用24小时
func ParseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// GenerateToken 生成会话令牌
func (manager *JWTManager) GenerateToken(accountID uint, username, role string, tenantID uint) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(manager.tokenDuration)

	claims := SessionClaims{
		AccountID: accountID,
		Username:  username,
		Role:      role,
		TenantID:  tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   role + ":" + strconv.FormatUint(uint64(accountID), 10),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(manager.secretKey))
	return signed, expiresAt, err
}

// VerifyToken 验证令牌
func (manager *JWTManager) VerifyToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&SessionClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("意外的签名方法")
			}
			return []byte(manager.secretKey), nil
		},
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, errors.New("无法解析token声明")
	}

	return claims, nil
}

// GetTokenDuration 获取令牌有效期
func (manager *JWTManager) GetTokenDuration() time.Duration {
	return manager.tokenDuration
}
