package services

import (
	"context"
	"strings"

	"bhms/internal/access"
	"bhms/internal/metrics"
	"bhms/internal/models"
	apperrors "bhms/pkg/errors"
	"bhms/pkg/pagination"

	"gorm.io/gorm"
)

// CreatePaymentInput 新增付款参数，Status 缺省时按付款日期推断
type CreatePaymentInput struct {
	ContractID    uint                  `json:"contract_id" binding:"required"`
	Amount        float64               `json:"amount" binding:"required,gt=0"`
	Description   string                `json:"description" binding:"required,max=255"`
	PaymentMethod string                `json:"payment_method" binding:"max=50"`
	Status        *models.PaymentStatus `json:"status" binding:"omitempty,min=0,max=2"`
	PaymentDate   string                `json:"payment_date"`
}

// UpdatePaymentInput 修改付款参数
type UpdatePaymentInput struct {
	Amount        float64               `json:"amount" binding:"required,gt=0"`
	Description   string                `json:"description" binding:"required,max=255"`
	PaymentMethod string                `json:"payment_method" binding:"max=50"`
	Status        *models.PaymentStatus `json:"status" binding:"required,min=0,max=2"`
	PaymentDate   string                `json:"payment_date"`
	Version       uint                  `json:"version" binding:"required"`
}

// PayInput 登记实际付款
type PayInput struct {
	PaymentDate   string `json:"payment_date" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required,max=50"`
	Version       uint   `json:"version" binding:"required"`
}

// PaymentFilter 付款查询条件
type PaymentFilter struct {
	ContractID uint
	Status     *models.PaymentStatus
}

type PaymentService struct {
	db *gorm.DB
}

func NewPaymentService(db *gorm.DB) *PaymentService {
	return &PaymentService{db: db}
}

// Create 为未删除的合同新增付款记录
func (s *PaymentService) Create(ctx context.Context, p *access.Principal, in CreatePaymentInput) (*models.Payment, error) {
	if err := access.Authorize(p, access.CapPaymentWrite); err != nil {
		return nil, err
	}

	payment, err := buildPayment(in.Amount, in.Description, in.PaymentMethod, in.Status, in.PaymentDate)
	if err != nil {
		return nil, err
	}
	payment.ContractID = in.ContractID

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Contract{}).Scopes(models.Live("")).Where("id = ?", in.ContractID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperrors.NewValidation("contract_id", "合同不存在或已删除: %d", in.ContractID)
		}
		return tx.Create(payment).Error
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// GetByID 获取付款记录，租客只能查看自己合同下的付款
func (s *PaymentService) GetByID(ctx context.Context, p *access.Principal, id uint) (*models.Payment, error) {
	if err := access.Authorize(p, access.CapPaymentRead); err != nil {
		return nil, err
	}

	payment, tenantID, err := s.loadWithOwner(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if err := access.AuthorizeOwner(p, access.CapPaymentRead, tenantID); err != nil {
		return nil, err
	}
	return payment, nil
}

// List 分页查询付款记录，只包含未删除合同下的付款
func (s *PaymentService) List(ctx context.Context, p *access.Principal, f PaymentFilter, page *pagination.PageParams) ([]*models.Payment, int64, error) {
	if err := access.Authorize(p, access.CapPaymentRead); err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Model(&models.Payment{}).
		Joins("JOIN contracts ON contracts.id = payments.contract_id").
		Scopes(models.Live("contracts"))
	if tenantID, restricted := p.Restricted(); restricted {
		query = query.Where("contracts.tenant_id = ?", tenantID)
	}
	if f.ContractID != 0 {
		query = query.Where("payments.contract_id = ?", f.ContractID)
	}
	if f.Status != nil {
		query = query.Where("payments.status = ?", *f.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []*models.Payment
	err := query.Select("payments.*").
		Order("payments.created_at DESC, payments.id DESC").
		Scopes(page.Scope).
		Find(&payments).Error
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// Update 修改付款记录，写入前规范化状态和日期
func (s *PaymentService) Update(ctx context.Context, p *access.Principal, id uint, in UpdatePaymentInput) (*models.Payment, error) {
	if err := access.Authorize(p, access.CapPaymentWrite); err != nil {
		return nil, err
	}

	next, err := buildPayment(in.Amount, in.Description, in.PaymentMethod, in.Status, in.PaymentDate)
	if err != nil {
		return nil, err
	}

	return s.updateVersioned(ctx, id, in.Version, func(*models.Payment) *models.Payment {
		return next
	})
}

// Pay 登记实际付款：状态改为已付款并写入日期和付款方式
func (s *PaymentService) Pay(ctx context.Context, p *access.Principal, id uint, in PayInput) (*models.Payment, error) {
	if err := access.Authorize(p, access.CapPaymentWrite); err != nil {
		return nil, err
	}

	date, err := ParseDate("payment_date", in.PaymentDate)
	if err != nil {
		return nil, err
	}
	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		return nil, apperrors.NewValidation("payment_method", "付款方式不能为空")
	}

	return s.updateVersioned(ctx, id, in.Version, func(current *models.Payment) *models.Payment {
		next := &models.Payment{
			Amount:        current.Amount,
			Description:   current.Description,
			Status:        models.PaymentPaid,
			PaymentMethod: method,
			PaymentDate:   &date,
		}
		normalizeForWrite(next)
		return next
	})
}

// Delete 物理删除单条付款记录
func (s *PaymentService) Delete(ctx context.Context, p *access.Principal, id uint) error {
	if err := access.Authorize(p, access.CapPaymentWrite); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, _, err := s.loadWithOwner(tx, id); err != nil {
			return err
		}
		return tx.Delete(&models.Payment{}, id).Error
	})
}

// updateVersioned build 根据当前记录生成要写入的字段
func (s *PaymentService) updateVersioned(ctx context.Context, id, version uint, build func(current *models.Payment) *models.Payment) (*models.Payment, error) {
	var payment *models.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, _, err := s.loadWithOwner(tx, id)
		if err != nil {
			return err
		}
		if err := checkVersion("付款记录", current.Version, version); err != nil {
			return err
		}

		next := build(current)
		err = updateVersioned(tx, &models.Payment{}, "付款记录", id, version, map[string]interface{}{
			"amount":         next.Amount,
			"description":    next.Description,
			"status":         next.Status,
			"payment_method": next.PaymentMethod,
			"payment_date":   next.PaymentDate,
		})
		if err != nil {
			return err
		}

		payment, _, err = s.loadWithOwner(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// loadWithOwner 读取付款记录及其合同所属租客，合同已删除时视为不存在
func (s *PaymentService) loadWithOwner(db *gorm.DB, id uint) (*models.Payment, uint, error) {
	var payment models.Payment
	if err := db.First(&payment, id).Error; err != nil {
		return nil, 0, notFound(err, "付款记录", id)
	}

	var contract models.Contract
	if err := db.Scopes(models.Live("")).Select("id", "tenant_id").First(&contract, payment.ContractID).Error; err != nil {
		return nil, 0, notFound(err, "付款记录", id)
	}
	return &payment, contract.TenantID, nil
}

// buildPayment 校验付款字段并生成规范化后的记录
func buildPayment(amount float64, description, method string, status *models.PaymentStatus, paymentDate string) (*models.Payment, error) {
	description = strings.TrimSpace(description)
	method = strings.TrimSpace(method)

	date, err := parseOptionalDate("payment_date", paymentDate)
	if err != nil {
		return nil, err
	}

	st := models.PaymentUnpaid
	if status != nil {
		st = *status
	} else if date != nil {
		st = models.PaymentPaid
	}

	if err := validatePaymentFields(amount, description, method, st); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		Amount:        amount,
		Description:   description,
		Status:        st,
		PaymentMethod: method,
		PaymentDate:   date,
		Version:       1,
	}
	normalizeForWrite(payment)

	// 规范化之后仍为已付款的记录必须有付款方式
	if payment.Status == models.PaymentPaid && payment.PaymentMethod == "" {
		return nil, apperrors.NewValidation("payment_method", "已付款记录必须填写付款方式")
	}
	return payment, nil
}

// normalizeForWrite 每次写付款记录前调用
func normalizeForWrite(p *models.Payment) {
	if NormalizePayment(p) {
		metrics.PaymentsNormalized.Inc()
	}
	if p.Status != models.PaymentPaid && p.PaymentMethod == "" {
		p.PaymentMethod = models.PaymentMethodInvoice
	}
}
