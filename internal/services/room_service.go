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

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateRoomInput 创建房间参数
type CreateRoomInput struct {
	RoomNumber string            `json:"room_number" binding:"required,max=20"`
	Price      float64           `json:"price" binding:"min=0"`
	Status     models.RoomStatus `json:"status" binding:"omitempty,oneof=empty occupied maintenance"`
}

// UpdateRoomInput 更新房间参数
type UpdateRoomInput struct {
	RoomNumber string            `json:"room_number" binding:"required,max=20"`
	Price      float64           `json:"price" binding:"min=0"`
	Status     models.RoomStatus `json:"status" binding:"required,oneof=empty occupied maintenance"`
	Version    uint              `json:"version" binding:"required"`
}

// RoomFilter 房间查询条件
type RoomFilter struct {
	Status  string
	Keyword string
}

type RoomService struct {
	db *gorm.DB
}

func NewRoomService(db *gorm.DB) *RoomService {
	return &RoomService{db: db}
}

// Create 创建房间，房间号在未删除的房间中唯一
func (s *RoomService) Create(ctx context.Context, p *access.Principal, in CreateRoomInput) (*models.Room, error) {
	if err := access.Authorize(p, access.CapRoomWrite); err != nil {
		return nil, err
	}

	in.RoomNumber = strings.TrimSpace(in.RoomNumber)
	status := in.Status
	if status == "" || status == models.RoomStatusOccupied {
		// 新房间没有合同，不可能是已入住
		status = models.RoomStatusEmpty
	}
	if err := validateRoomFields(in.RoomNumber, in.Price, status); err != nil {
		return nil, err
	}

	room := &models.Room{
		Lifecycle:  models.Lifecycle{State: models.RecordActive},
		RoomNumber: in.RoomNumber,
		Price:      in.Price,
		Status:     status,
		Version:    1,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureRoomNumberFree(tx, in.RoomNumber, 0); err != nil {
			return err
		}
		return tx.Create(room).Error
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// GetByID 根据ID获取房间
func (s *RoomService) GetByID(ctx context.Context, p *access.Principal, id uint) (*models.Room, error) {
	if err := access.Authorize(p, access.CapRoomRead); err != nil {
		return nil, err
	}

	var room models.Room
	if err := s.db.WithContext(ctx).Scopes(models.Live("")).First(&room, id).Error; err != nil {
		return nil, notFound(err, "房间", id)
	}
	return &room, nil
}

// List 组合查询（分页版本）
func (s *RoomService) List(ctx context.Context, p *access.Principal, f RoomFilter, page *pagination.PageParams) ([]*models.Room, int64, error) {
	if err := access.Authorize(p, access.CapRoomRead); err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Model(&models.Room{}).Scopes(models.Live(""))
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Keyword != "" {
		query = query.Where("room_number LIKE ?", fmt.Sprintf("%%%s%%", f.Keyword))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rooms []*models.Room
	err := query.Order("room_number ASC").Scopes(page.Scope).Find(&rooms).Error
	if err != nil {
		return nil, 0, err
	}
	return rooms, total, nil
}

// Update 更新房间。只有 maintenance 可以手动设置，empty/occupied 由合同决定
func (s *RoomService) Update(ctx context.Context, p *access.Principal, id uint, in UpdateRoomInput) (*models.Room, error) {
	if err := access.Authorize(p, access.CapRoomWrite); err != nil {
		return nil, err
	}

	in.RoomNumber = strings.TrimSpace(in.RoomNumber)
	if err := validateRoomFields(in.RoomNumber, in.Price, in.Status); err != nil {
		return nil, err
	}

	var room models.Room
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Scopes(models.Live("")).First(&room, id).Error; err != nil {
			return notFound(err, "房间", id)
		}
		if err := checkVersion("房间", room.Version, in.Version); err != nil {
			return err
		}
		if err := ensureRoomNumberFree(tx, in.RoomNumber, id); err != nil {
			return err
		}

		status := in.Status
		if status != models.RoomStatusMaintenance {
			occupied, err := hasActiveContract(tx, "room_id", id)
			if err != nil {
				return err
			}
			status = occupancyStatus(occupied)
		}

		if err := updateVersioned(tx, &models.Room{}, "房间", id, in.Version, map[string]interface{}{
			"room_number": in.RoomNumber,
			"price":       in.Price,
			"status":      status,
		}); err != nil {
			return err
		}
		return tx.First(&room, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// Delete 软删除房间，存在有效合同时拒绝
func (s *RoomService) Delete(ctx context.Context, p *access.Principal, id uint) error {
	if err := access.Authorize(p, access.CapRoomWrite); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Scopes(models.Live("")).First(&room, id).Error; err != nil {
			return notFound(err, "房间", id)
		}

		occupied, err := hasActiveContract(tx, "room_id", id)
		if err != nil {
			return err
		}
		if occupied {
			return apperrors.NewConflict("房间 %s 仍有有效合同，不能删除", room.RoomNumber)
		}

		now := time.Now()
		return tx.Model(&models.Room{}).Where("id = ?", id).Updates(map[string]interface{}{
			"state":      models.RecordDeleted,
			"deleted_at": now,
			"updated_at": now,
			"version":    gorm.Expr("version + ?", 1),
		}).Error
	})
}

// ensureRoomNumberFree 房间号唯一性检查，excludeID 为正在修改的房间
func ensureRoomNumberFree(tx *gorm.DB, roomNumber string, excludeID uint) error {
	var count int64
	q := tx.Model(&models.Room{}).Scopes(models.Live("")).Where("room_number = ?", roomNumber)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperrors.NewConflict("房间号 %s 已存在", roomNumber)
	}
	return nil
}

// hasActiveContract 是否存在引用该房间或租客的有效合同
func hasActiveContract(tx *gorm.DB, column string, id uint) (bool, error) {
	var count int64
	err := tx.Model(&models.Contract{}).
		Scopes(models.Live("")).
		Where(column+" = ? AND is_active = ?", id, true).
		Count(&count).Error
	return count > 0, err
}

func occupancyStatus(occupied bool) models.RoomStatus {
	if occupied {
		return models.RoomStatusOccupied
	}
	return models.RoomStatusEmpty
}

// syncRoomOccupancy 根据有效合同重算房间状态，维修中的房间保持不变
func syncRoomOccupancy(tx *gorm.DB, roomID uint) error {
	var room models.Room
	if err := tx.First(&room, roomID).Error; err != nil {
		return err
	}
	if room.Status == models.RoomStatusMaintenance {
		return nil
	}

	occupied, err := hasActiveContract(tx, "room_id", roomID)
	if err != nil {
		return err
	}
	status := occupancyStatus(occupied)
	if status == room.Status {
		return nil
	}
	return tx.Model(&models.Room{}).Where("id = ?", roomID).Updates(map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
		"version":    gorm.Expr("version + ?", 1),
	}).Error
}
