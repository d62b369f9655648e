package services

import (
	"context"
	"errors"
	"time"

	"bhms/internal/access"
	"bhms/internal/metrics"
	"bhms/internal/models"
	apperrors "bhms/pkg/errors"
	"bhms/pkg/pagination"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InitialPaymentInput 签约时的首笔付款
type InitialPaymentInput struct {
	Amount        float64               `json:"amount" binding:"required,gt=0"`
	Description   string                `json:"description" binding:"required,max=255"`
	PaymentMethod string                `json:"payment_method" binding:"max=50"`
	Status        *models.PaymentStatus `json:"status" binding:"omitempty,min=0,max=2"`
	PaymentDate   string                `json:"payment_date"`
}

// CreateContractInput 创建合同参数，IsActive 缺省为 true
type CreateContractInput struct {
	TenantID       uint                `json:"tenant_id" binding:"required"`
	RoomID         uint                `json:"room_id" binding:"required"`
	StartDate      string              `json:"start_date" binding:"required"`
	EndDate        string              `json:"end_date" binding:"required"`
	IsActive       *bool               `json:"is_active"`
	InitialPayment InitialPaymentInput `json:"initial_payment"`
}

// UpdateContractInput 更新合同参数，IsActive 缺省时保持原值
type UpdateContractInput struct {
	TenantID  uint   `json:"tenant_id" binding:"required"`
	RoomID    uint   `json:"room_id" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	IsActive  *bool  `json:"is_active"`
	Version   uint   `json:"version" binding:"required"`
}

// ContractFilter 合同查询条件
type ContractFilter struct {
	RoomID   uint
	TenantID uint
	IsActive *bool
}

type ContractService struct {
	db *gorm.DB
}

func NewContractService(db *gorm.DB) *ContractService {
	return &ContractService{db: db}
}

// Create 创建合同和首笔付款，两者在同一事务中写入
func (s *ContractService) Create(ctx context.Context, p *access.Principal, in CreateContractInput) (*models.Contract, error) {
	if err := access.Authorize(p, access.CapContractWrite); err != nil {
		return nil, err
	}

	start, end, err := parseContractDates(in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}

	ip := in.InitialPayment
	payment, err := buildPayment(ip.Amount, ip.Description, ip.PaymentMethod, ip.Status, ip.PaymentDate)
	if err != nil {
		return nil, err
	}

	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}

	contract := &models.Contract{
		Lifecycle: models.Lifecycle{State: models.RecordActive},
		TenantID:  in.TenantID,
		RoomID:    in.RoomID,
		StartDate: datatypes.Date(start),
		EndDate:   datatypes.Date(end),
		IsActive:  isActive,
		Version:   1,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := lockRoom(tx, in.RoomID)
		if err != nil {
			return err
		}
		if err := ensureTenantLive(tx, in.TenantID); err != nil {
			return err
		}
		// 无论新合同是否生效，都不能与该房间已有的有效合同重叠
		if err := checkRoomAvailability(tx, room, start, end, 0, isActive); err != nil {
			return err
		}

		if err := tx.Create(contract).Error; err != nil {
			return err
		}
		payment.ContractID = contract.ID
		if err := tx.Create(payment).Error; err != nil {
			return err
		}
		return syncRoomOccupancy(tx, room.ID)
	})
	if err != nil {
		return nil, err
	}

	metrics.ContractsCreated.Inc()
	contract.Payments = []models.Payment{*payment}
	return contract, nil
}

// GetByID 获取合同详情，付款记录按时间倒序
func (s *ContractService) GetByID(ctx context.Context, p *access.Principal, id uint) (*models.Contract, error) {
	if err := access.Authorize(p, access.CapContractRead); err != nil {
		return nil, err
	}

	var contract models.Contract
	err := s.db.WithContext(ctx).
		Scopes(models.Live("")).
		Preload("Room").
		Preload("Tenant").
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC, id DESC")
		}).
		First(&contract, id).Error
	if err != nil {
		return nil, notFound(err, "合同", id)
	}

	if err := access.AuthorizeOwner(p, access.CapContractRead, contract.TenantID); err != nil {
		return nil, err
	}
	return &contract, nil
}

// List 分页查询合同，租客只能看到自己的合同
func (s *ContractService) List(ctx context.Context, p *access.Principal, f ContractFilter, page *pagination.PageParams) ([]*models.Contract, int64, error) {
	if err := access.Authorize(p, access.CapContractRead); err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Model(&models.Contract{}).Scopes(models.Live(""))
	if tenantID, restricted := p.Restricted(); restricted {
		query = query.Where("tenant_id = ?", tenantID)
	}
	if f.RoomID != 0 {
		query = query.Where("room_id = ?", f.RoomID)
	}
	if f.TenantID != 0 {
		query = query.Where("tenant_id = ?", f.TenantID)
	}
	if f.IsActive != nil {
		query = query.Where("is_active = ?", *f.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var contracts []*models.Contract
	err := query.Preload("Room").Preload("Tenant").
		Order("created_at DESC, id DESC").
		Scopes(page.Scope).
		Find(&contracts).Error
	if err != nil {
		return nil, 0, err
	}
	return contracts, total, nil
}

// Update 修改合同，重新校验日期、引用和房间占用
func (s *ContractService) Update(ctx context.Context, p *access.Principal, id uint, in UpdateContractInput) (*models.Contract, error) {
	if err := access.Authorize(p, access.CapContractWrite); err != nil {
		return nil, err
	}

	start, end, err := parseContractDates(in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}
	var contract models.Contract
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(models.Live("")).First(&contract, id).Error; err != nil {
			return notFound(err, "合同", id)
		}
		if err := checkVersion("合同", contract.Version, in.Version); err != nil {
			metrics.ContractConflicts.WithLabelValues("version").Inc()
			return err
		}

		isActive := contract.IsActive
		if in.IsActive != nil {
			isActive = *in.IsActive
		}

		room, err := lockRoom(tx, in.RoomID)
		if err != nil {
			return err
		}
		if err := ensureTenantLive(tx, in.TenantID); err != nil {
			return err
		}
		if isActive {
			// 已在该房间生效的合同不受房间后续进入维修状态的影响
			newlyOccupies := !contract.IsActive || contract.RoomID != room.ID
			if err := checkRoomAvailability(tx, room, start, end, id, newlyOccupies); err != nil {
				return err
			}
		}

		oldRoomID := contract.RoomID
		err = updateVersioned(tx, &models.Contract{}, "合同", id, in.Version, map[string]interface{}{
			"tenant_id":  in.TenantID,
			"room_id":    in.RoomID,
			"start_date": datatypes.Date(start),
			"end_date":   datatypes.Date(end),
			"is_active":  isActive,
		})
		if err != nil {
			return err
		}

		if err := syncRoomOccupancy(tx, oldRoomID); err != nil {
			return err
		}
		if oldRoomID != in.RoomID {
			if err := syncRoomOccupancy(tx, in.RoomID); err != nil {
				return err
			}
		}
		return tx.First(&contract, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

// Delete 软删除合同，付款记录保持不变
func (s *ContractService) Delete(ctx context.Context, p *access.Principal, id uint) error {
	if err := access.Authorize(p, access.CapContractWrite); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var contract models.Contract
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Scopes(models.Live("")).First(&contract, id).Error; err != nil {
			return notFound(err, "合同", id)
		}

		now := time.Now()
		err := tx.Model(&models.Contract{}).Where("id = ?", id).Updates(map[string]interface{}{
			"state":      models.RecordDeleted,
			"deleted_at": now,
			"updated_at": now,
			"version":    gorm.Expr("version + ?", 1),
		}).Error
		if err != nil {
			return err
		}
		return syncRoomOccupancy(tx, contract.RoomID)
	})
}

func parseContractDates(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := ParseDate("start_date", startDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := ParseDate("end_date", endDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if err := ValidateDateRange(start, end); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// lockRoom 事务内锁定房间行，同一房间的并发签约在此串行
func lockRoom(tx *gorm.DB, roomID uint) (*models.Room, error) {
	var room models.Room
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Scopes(models.Live("")).First(&room, roomID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewValidation("room_id", "房间不存在或已删除: %d", roomID)
		}
		return nil, err
	}
	return &room, nil
}

func ensureTenantLive(tx *gorm.DB, tenantID uint) error {
	var count int64
	if err := tx.Model(&models.Tenant{}).Scopes(models.Live("")).Where("id = ?", tenantID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperrors.NewValidation("tenant_id", "租客不存在或已删除: %d", tenantID)
	}
	return nil
}

// checkRoomAvailability 有效合同不能与同房间其他有效合同的日期区间重叠
func checkRoomAvailability(tx *gorm.DB, room *models.Room, start, end time.Time, excludeID uint, checkMaintenance bool) error {
	if checkMaintenance && room.Status == models.RoomStatusMaintenance {
		metrics.ContractConflicts.WithLabelValues("maintenance").Inc()
		return apperrors.NewConflict("房间 %s 正在维修，不能签订有效合同", room.RoomNumber)
	}

	clash, err := findOverlap(tx, room.ID, start, end, excludeID)
	if err != nil {
		return err
	}
	if clash != nil {
		metrics.ContractConflicts.WithLabelValues("overlap").Inc()
		return apperrors.NewConflict("房间 %s 在 %s 至 %s 已有有效合同 #%d",
			room.RoomNumber,
			clash.Start().Format(DateLayout),
			clash.End().Format(DateLayout),
			clash.ID)
	}
	return nil
}

// findOverlap 返回与 [start, end] 重叠的第一份有效合同
func findOverlap(tx *gorm.DB, roomID uint, start, end time.Time, excludeID uint) (*models.Contract, error) {
	query := tx.Scopes(models.Live("")).Where("room_id = ? AND is_active = ?", roomID, true)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var contracts []models.Contract
	if err := query.Order("start_date ASC").Find(&contracts).Error; err != nil {
		return nil, err
	}
	for i := range contracts {
		if Overlaps(start, end, contracts[i].Start(), contracts[i].End()) {
			return &contracts[i], nil
		}
	}
	return nil, nil
}
