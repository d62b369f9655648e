package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bhms/internal/access"
	"bhms/internal/models"
	apperrors "bhms/pkg/errors"
	"bhms/pkg/pagination"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateTenantInput 创建租客参数
type CreateTenantInput struct {
	FullName string `json:"full_name" binding:"required,max=100"`
	Phone    string `json:"phone" binding:"required,max=10"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// UpdateTenantInput 更新租客参数，Password 为空时不修改
type UpdateTenantInput struct {
	FullName string `json:"full_name" binding:"required,max=100"`
	Phone    string `json:"phone" binding:"required,max=10"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"omitempty,min=6"`
	Version  uint   `json:"version" binding:"required"`
}

type TenantService struct {
	db       *gorm.DB
	notifier Notifier
	log      *logrus.Logger
}

func NewTenantService(db *gorm.DB, notifier Notifier, log *logrus.Logger) *TenantService {
	return &TenantService{
		db:       db,
		notifier: notifier,
		log:      log,
	}
}

// Create 创建租客。事务提交后发送欢迎邮件，发送失败不回滚
func (s *TenantService) Create(ctx context.Context, p *access.Principal, in CreateTenantInput) (*models.Tenant, error) {
	if err := access.Authorize(p, access.CapTenantWrite); err != nil {
		return nil, err
	}

	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = normalizeEmail(in.Email)
	if err := validateTenantFields(in.FullName, in.Phone, in.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	tenant := &models.Tenant{
		Lifecycle: models.Lifecycle{State: models.RecordActive},
		FullName:  in.FullName,
		Phone:     in.Phone,
		Email:     in.Email,
		Version:   1,
	}
	if err := tenant.SetPassword(in.Password); err != nil {
		return nil, fmt.Errorf("加密密码失败: %w", err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureTenantContactFree(tx, in.Email, in.Phone, 0); err != nil {
			return err
		}
		return tx.Create(tenant).Error
	})
	if err != nil {
		return nil, err
	}

	msg, err := WelcomeNotification(tenant)
	if err != nil {
		s.log.WithError(err).Warn("生成欢迎邮件失败")
		return tenant, nil
	}
	notifyBestEffort(ctx, s.notifier, s.log, msg)

	return tenant, nil
}

// GetByID 获取租客，租客只能查看自己
func (s *TenantService) GetByID(ctx context.Context, p *access.Principal, id uint) (*models.Tenant, error) {
	if err := access.AuthorizeOwner(p, access.CapTenantRead, id); err != nil {
		return nil, err
	}

	var tenant models.Tenant
	if err := s.db.WithContext(ctx).Scopes(models.Live("")).First(&tenant, id).Error; err != nil {
		return nil, notFound(err, "租客", id)
	}
	return &tenant, nil
}

// List 分页查询租客，租客角色只会看到自己
func (s *TenantService) List(ctx context.Context, p *access.Principal, keyword string, page *pagination.PageParams) ([]*models.Tenant, int64, error) {
	if err := access.Authorize(p, access.CapTenantRead); err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Model(&models.Tenant{}).Scopes(models.Live(""))
	if tenantID, restricted := p.Restricted(); restricted {
		query = query.Where("id = ?", tenantID)
	}
	if keyword != "" {
		searchPattern := fmt.Sprintf("%%%s%%", keyword)
		query = query.Where("full_name LIKE ? OR email LIKE ? OR phone LIKE ?", searchPattern, searchPattern, searchPattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tenants []*models.Tenant
	if err := query.Order("full_name ASC").Scopes(page.Scope).Find(&tenants).Error; err != nil {
		return nil, 0, err
	}
	return tenants, total, nil
}

// Update 更新租客资料，管理员可改任何人，租客只能改自己
func (s *TenantService) Update(ctx context.Context, p *access.Principal, id uint, in UpdateTenantInput) (*models.Tenant, error) {
	if err := access.AuthorizeOwner(p, access.CapTenantSelf, id); err != nil {
		return nil, err
	}

	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = normalizeEmail(in.Email)
	if err := validateTenantFields(in.FullName, in.Phone, in.Email); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"full_name": in.FullName,
		"phone":     in.Phone,
		"email":     in.Email,
	}
	if in.Password != "" {
		if err := validatePassword(in.Password); err != nil {
			return nil, err
		}
		var hashed models.Tenant
		if err := hashed.SetPassword(in.Password); err != nil {
			return nil, fmt.Errorf("加密密码失败: %w", err)
		}
		updates["password_hash"] = hashed.PasswordHash
	}

	var tenant models.Tenant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(models.Live("")).First(&tenant, id).Error; err != nil {
			return notFound(err, "租客", id)
		}
		if err := checkVersion("租客", tenant.Version, in.Version); err != nil {
			return err
		}
		if err := ensureTenantContactFree(tx, in.Email, in.Phone, id); err != nil {
			return err
		}
		if err := updateVersioned(tx, &models.Tenant{}, "租客", id, in.Version, updates); err != nil {
			return err
		}
		return tx.First(&tenant, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// Delete 软删除租客，存在有效合同时拒绝
func (s *TenantService) Delete(ctx context.Context, p *access.Principal, id uint) error {
	if err := access.Authorize(p, access.CapTenantWrite); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tenant models.Tenant
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Scopes(models.Live("")).First(&tenant, id).Error; err != nil {
			return notFound(err, "租客", id)
		}

		active, err := hasActiveContract(tx, "tenant_id", id)
		if err != nil {
			return err
		}
		if active {
			return apperrors.NewConflict("租客 %s 仍有有效合同，不能删除", tenant.FullName)
		}

		now := time.Now()
		return tx.Model(&models.Tenant{}).Where("id = ?", id).Updates(map[string]interface{}{
			"state":      models.RecordDeleted,
			"deleted_at": now,
			"updated_at": now,
			"version":    gorm.Expr("version + ?", 1),
		}).Error
	})
}

// ensureTenantContactFree 邮箱和电话在未删除租客中唯一
func ensureTenantContactFree(tx *gorm.DB, email, phone string, excludeID uint) error {
	check := func(column, value, label string) error {
		var count int64
		q := tx.Model(&models.Tenant{}).Scopes(models.Live("")).Where(column+" = ?", value)
		if excludeID != 0 {
			q = q.Where("id <> ?", excludeID)
		}
		if err := q.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperrors.NewConflict("%s %s 已被使用", label, value)
		}
		return nil
	}

	if err := check("email", email, "邮箱"); err != nil {
		return err
	}
	return check("phone", phone, "电话")
}
