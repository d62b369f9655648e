package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bhms/internal/access"
	"bhms/internal/models"
	"bhms/pkg/jwt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrInvalidCredentials 用户名或密码错误，不区分账号是否存在
var ErrInvalidCredentials = errors.New("用户名或密码错误")

// ErrSessionRevoked 令牌有效但账号已删除
var ErrSessionRevoked = errors.New("账号已失效，请重新登录")

type AuthService struct {
	db  *gorm.DB
	log *logrus.Logger
}

func NewAuthService(db *gorm.DB, log *logrus.Logger) *AuthService {
	return &AuthService{
		db:  db,
		log: log,
	}
}

// Login 先按用户名查管理员，再按邮箱查未删除的租客
func (s *AuthService) Login(ctx context.Context, username, password string) (*access.Principal, error) {
	username = strings.TrimSpace(username)
	db := s.db.WithContext(ctx)

	var admin models.Admin
	err := db.Where("username = ?", username).First(&admin).Error
	switch {
	case err == nil:
		if !admin.CheckPassword(password) {
			return nil, ErrInvalidCredentials
		}
		now := time.Now()
		if err := db.Model(&admin).Update("last_login_at", now).Error; err != nil {
			s.log.WithError(err).WithField("admin_id", admin.ID).Warn("更新最后登录时间失败")
		}
		return &access.Principal{
			AccountID: admin.ID,
			Username:  admin.Username,
			Role:      access.RoleAdmin,
		}, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	var tenant models.Tenant
	err = db.Scopes(models.Live("")).Where("email = ?", normalizeEmail(username)).First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !tenant.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return &access.Principal{
		AccountID: tenant.ID,
		Username:  tenant.Email,
		Role:      access.RoleTenant,
		TenantID:  tenant.ID,
	}, nil
}

// Resolve 把令牌声明还原为主体，并确认账号仍然存在
func (s *AuthService) Resolve(ctx context.Context, claims *jwt.SessionClaims) (*access.Principal, error) {
	principal := &access.Principal{
		AccountID: claims.AccountID,
		Username:  claims.Username,
		Role:      access.Role(claims.Role),
		TenantID:  claims.TenantID,
	}

	var count int64
	db := s.db.WithContext(ctx)
	switch principal.Role {
	case access.RoleAdmin:
		if err := db.Model(&models.Admin{}).Where("id = ?", claims.AccountID).Count(&count).Error; err != nil {
			return nil, err
		}
	case access.RoleTenant:
		if err := db.Model(&models.Tenant{}).Scopes(models.Live("")).Where("id = ?", claims.TenantID).Count(&count).Error; err != nil {
			return nil, err
		}
	}
	if count == 0 {
		return nil, ErrSessionRevoked
	}
	return principal, nil
}

// EnsureAdmin 管理员不存在时创建，已存在则不修改密码
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) (*models.Admin, bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, false, fmt.Errorf("管理员用户名不能为空")
	}

	var admin models.Admin
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&admin).Error
	if err == nil {
		return &admin, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	if err := validatePassword(password); err != nil {
		return nil, false, err
	}
	admin = models.Admin{Username: username}
	if err := admin.SetPassword(password); err != nil {
		return nil, false, fmt.Errorf("加密密码失败: %w", err)
	}
	if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
		return nil, false, fmt.Errorf("创建管理员失败: %w", err)
	}
	return &admin, true, nil
}

// ResetAdminPassword 重置管理员密码，供命令行工具使用
func (s *AuthService) ResetAdminPassword(ctx context.Context, username, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	var admin models.Admin
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("管理员不存在: %s", username)
		}
		return err
	}
	if err := admin.SetPassword(password); err != nil {
		return fmt.Errorf("加密密码失败: %w", err)
	}
	return s.db.WithContext(ctx).Model(&admin).Update("password_hash", admin.PasswordHash).Error
}
