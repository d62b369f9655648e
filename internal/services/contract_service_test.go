package services

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"bhms/internal/models"
	apperrors "bhms/pkg/errors"
	"bhms/pkg/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreateContractWritesContractAndInitialPayment(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	rooms := seedRooms(t, db, 5)
	tenant := seedTenant(t, db, "张三", "zhang@example.com", "0901000001")
	require.Equal(t, uint(1), tenant.ID)
	require.Equal(t, uint(5), rooms[4].ID)

	svc := NewContractService(db)
	contract, err := svc.Create(ctx, testAdmin, contractInput(1, 5, "2024-01-01", "2024-12-31"))
	require.NoError(t, err)
	assert.True(t, contract.IsActive)
	assert.Equal(t, uint(1), contract.Version)

	var contracts, payments int64
	db.Model(&models.Contract{}).Count(&contracts)
	db.Model(&models.Payment{}).Where("contract_id = ?", contract.ID).Count(&payments)
	assert.Equal(t, int64(1), contracts)
	assert.Equal(t, int64(1), payments)

	var payment models.Payment
	require.NoError(t, db.Where("contract_id = ?", contract.ID).First(&payment).Error)
	assert.Equal(t, 500.0, payment.Amount)
	assert.Equal(t, models.PaymentUnpaid, payment.Status)
	assert.Nil(t, payment.PaymentDate)
	assert.Equal(t, models.PaymentMethodInvoice, payment.PaymentMethod)

	var room models.Room
	require.NoError(t, db.First(&room, 5).Error)
	assert.Equal(t, models.RoomStatusOccupied, room.Status)

	got, err := svc.GetByID(ctx, testAdmin, contract.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", got.Start().Format(DateLayout))
	assert.Equal(t, "2024-12-31", got.End().Format(DateLayout))
	require.NotNil(t, got.Room)
	require.NotNil(t, got.Tenant)
	assert.Len(t, got.Payments, 1)
}

func TestCreateContractRejectsOverlap(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedRooms(t, db, 1)
	seedTenant(t, db, "张三", "zhang@example.com", "0901000001")
	seedTenant(t, db, "李四", "li@example.com", "0901000002")
	svc := NewContractService(db)

	_, err := svc.Create(ctx, testAdmin, contractInput(1, 1, "2024-01-01", "2024-12-31"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, testAdmin, contractInput(2, 1, "2024-06-01", "2025-06-01"))
	assert.True(t, apperrors.IsConflict(err), "got %v", err)

	// 区间两端都包含在内
	_, err = svc.Create(ctx, testAdmin, contractInput(2, 1, "2024-12-31", "2025-06-01"))
	assert.True(t, apperrors.IsConflict(err), "got %v", err)

	var contracts, payments int64
	db.Model(&models.Contract{}).Count(&contracts)
	db.Model(&models.Payment{}).Count(&payments)
	assert.Equal(t, int64(1), contracts)
	assert.Equal(t, int64(1), payments)

	_, err = svc.Create(ctx, testAdmin, contractInput(2, 1, "2025-01-01", "2025-06-01"))
	assert.NoError(t, err)
}

func TestInactiveContractStillChecksOverlap(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedRooms(t, db, 1)
	seedTenant(t, db, "张三", "zhang@example.com", "0901000001")
	svc := NewContractService(db)

	_, err := svc.Create(ctx, testAdmin, contractInput(1, 1, "2024-01-01", "2024-06-30"))
	require.NoError(t, err)

	in := contractInput(1, 1, "2024-03-01", "2024-04-01")
	in.IsActive = boolPtr(false)
	_, err = svc.Create(ctx, testAdmin, in)
	assert.True(t, apperrors.IsConflict(err), "got %v", err)

	var contracts, payments int64
	db.Model(&models.Contract{}).Count(&contracts)
	db.Model(&models.Payment{}).Count(&payments)
	assert.Equal(t, int64(1), contracts)
	assert.Equal(t, int64(1), payments)

	in = contractInput(1, 1, "2024-07-01", "2024-12-31")
	in.IsActive = boolPtr(false)
	draft, err := svc.Create(ctx, testAdmin, in)
	require.NoError(t, err)
	assert.False(t, draft.IsActive)

	// 激活重叠的草稿合同同样会冲突
	_, err = svc.Update(ctx, testAdmin, draft.ID, UpdateContractInput{
		TenantID:  1,
		RoomID:    1,
		StartDate: "2024-06-01",
		EndDate:   "2024-12-31",
		IsActive:  boolPtr(true),
		Version:   draft.Version,
	})
	assert.True(t, apperrors.IsConflict(err), "got %v", err)
}

func TestUpdateContractKeepsActiveFlagWhenOmitted(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedRooms(t, db, 1)
	seedTenant(t, db, "张三", "zhang@example.com", "0901000001")
	svc := NewContractService(db)

	contract, err := svc.Create(ctx, testAdmin, contractInput(1, 1, "2024-01-01", "2024-12-31"))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, testAdmin, contract.ID, UpdateContractInput{
		TenantID:  1,
		RoomID:    1,
		StartDate: "2024-01-01",
		EndDate:   "2025-06-30",
		Version:   contract.Version,
	})
	require.NoError(t, err)
	assert.True(t, updated.IsActive)
	assert.Equal(t, "2025-06-30", updated.End().Format(DateLayout))

	var room models.Room
	require.NoError(t, db.First(&room, 1).Error)
	assert.Equal(t, models.RoomStatusOccupied, room.Status)
}

func TestCreateContractValidation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedRooms(t, db, 1)
	seedTenant(t, db, "张三", "zhang@example.com", "0901000001")
	svc := NewContractService(db)

	tests := []struct {
		name  string
		input CreateContractInput
		field string
	}{
		{"end equals start", contractInput(1, 1, "2024-01-01", "2024-01-01"), "end_date"},
		{"end before start", contractInput(1, 1, "2024-05-01", "2024-01-01"), "end_date"},
		{"bad date", contractInput(1, 1, "2024/01/01", "2024-12-31"), "start_date"},
		{"missing room", contractInput(1, 99, "2024-01-01", "2024-12-31"), "room_id"},
		{"missing tenant", contractInput(99, 1, "2024-01-01", "2024-12-31"), "tenant_id"},
		{"date without method", func() CreateContractInput {
			in := contractInput(1, 1, "2024-01-01", "2024-12-31")
			in.InitialPayment.Status = nil
			in.InitialPayment.PaymentDate = "2024-01-01"
			return in
		}(), "payment_method"},
		{"zero amount", func() CreateContractInput {
			in := contractInput(1, 1, "2024-01-01", "2024-12-31")
			in.InitialPayment.Amount = 0
			return in
		}(), "amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, testAdmin, tt.input)
			var ve *apperrors.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	var contracts int64
	db.Model(&models.Contract{}).Count(&contracts)
	assert.Zero(t, contracts)
}

func TestInitialPaymentStatusDerivedFromDate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedRooms(t, db, 1)
	seedTenant(t, db, "张三", "zhang@example.com", "0901000001")

	in := contractInput(1, 1, "2024-01-01", "2024-12-31")
	in.InitialPayment.Status = nil
	in.InitialPayment.PaymentDate = "2024-01-02"
	in.InitialPayment.PaymentMethod = "cash"
	contract, err := NewContractService(db).Create(ctx, testAdmin, in)
	require.NoError(t, err)

	require.Len(t, contract.Payments, 1)
	p := contract.Payments[0]
	assert.Equal(t, models.PaymentPaid, p.Status)
	require.NotNil(t, p.PaymentDate)
	assert.Equal(t, "2024-01-02", p.PaymentDate.Format(DateLayout))
}

func TestCreateContractRollsBackWhenPaymentInsertFails(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedRooms(t, db, 1)
	seedTenant(t, db, "张三", "zhang@example.com", "0901000001")

	err := db.Callback().Create().Before("gorm:create").Register("test:fail_payments", func(tx *gorm.DB) {
		if tx.Statement.Table == "payments" {
			tx.AddError(errors.New("payments insert failed"))
		}
	})
	require.NoError(t, err)

	_, err = NewContractService(db).Create(ctx, testAdmin, contractInput(1, 1, "2024-01-01", "2024-12-31"))
	require.Error(t, err)

	var contracts, payments int64
	db.Model(&models.Contract{}).Count(&contracts)
	db.Model(&models.Payment{}).Count(&payments)
	assert.Zero(t, contracts)
	assert.Zero(t, payments)

	var room models.Room
	require.NoError(t, db.First(&room, 1).Error)
	assert.Equal(t, models.RoomStatusEmpty, room.Status)
}

func TestUpdateContractStaleVersion(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedRooms(t, db, 2)
	seedTenant(t, db, "张三", "zhang@example.com", "0901000001")
	svc := NewContractService(db)

	contract, err := svc.Create(ctx, testAdmin, contractInput(1, 1, "2024-01-01", "2024-12-31"))
	require.NoError(t, err)

	edit := UpdateContractInput{
		TenantID:  1,
		RoomID:    2,
		StartDate: "2024-02-01",
		EndDate:   "2024-12-31",
		IsActive:  boolPtr(true),
		Version:   contract.Version,
	}
	updated, err := svc.Update(ctx, testAdmin, contract.ID, edit)
	require.NoError(t, err)
	assert.Equal(t, uint(2), updated.Version)
	assert.Equal(t, uint(2), updated.RoomID)
	assert.True(t, updated.UpdatedAt.After(contract.UpdatedAt) || updated.UpdatedAt.Equal(contract.UpdatedAt))

	// 房间占用随合同迁移
	var r1, r2 models.Room
	db.First(&r1, 1)
	db.First(&r2, 2)
	assert.Equal(t, models.RoomStatusEmpty, r1.Status)
	assert.Equal(t, models.RoomStatusOccupied, r2.Status)

	_, err = svc.Update(ctx, testAdmin, contract.ID, edit)
	assert.True(t, apperrors.IsConflict(err), "got %v", err)

	_, err = svc.Update(ctx, testAdmin, 404, edit)
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)
}

func TestSoftDeleteContractKeepsPayments(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedRooms(t, db, 1)
	seedTenant(t, db, "张三", "zhang@example.com", "0901000001")
	svc := NewContractService(db)

	contract, err := svc.Create(ctx, testAdmin, contractInput(1, 1, "2024-01-01", "2024-12-31"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, testAdmin, contract.ID))

	_, err = svc.GetByID(ctx, testAdmin, contract.ID)
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)

	list, total, err := svc.List(ctx, testAdmin, ContractFilter{}, pagination.Default())
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)

	var row models.Contract
	require.NoError(t, db.First(&row, contract.ID).Error)
	assert.Equal(t, models.RecordDeleted, row.State)
	assert.NotNil(t, row.DeletedAt)

	var payments int64
	db.Model(&models.Payment{}).Where("contract_id = ?", contract.ID).Count(&payments)
	assert.Equal(t, int64(1), payments)

	var room models.Room
	db.First(&room, 1)
	assert.Equal(t, models.RoomStatusEmpty, room.Status)

	// 删除后的合同不再占用房间
	_, err = svc.Create(ctx, testAdmin, contractInput(1, 1, "2024-03-01", "2024-09-01"))
	assert.NoError(t, err)

	assert.True(t, apperrors.IsNotFound(svc.Delete(ctx, testAdmin, contract.ID)))
}

func TestTenantSeesOnlyOwnContracts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedRooms(t, db, 2)
	seedTenant(t, db, "张三", "zhang@example.com", "0901000001")
	seedTenant(t, db, "李四", "li@example.com", "0901000002")
	svc := NewContractService(db)

	own, err := svc.Create(ctx, testAdmin, contractInput(1, 1, "2024-01-01", "2024-12-31"))
	require.NoError(t, err)
	other, err := svc.Create(ctx, testAdmin, contractInput(2, 2, "2024-01-01", "2024-12-31"))
	require.NoError(t, err)

	_, err = svc.GetByID(ctx, tenantPrincipal(1), own.ID)
	assert.NoError(t, err)

	_, err = svc.GetByID(ctx, tenantPrincipal(1), other.ID)
	assert.True(t, apperrors.IsForbidden(err), "got %v", err)

	list, total, err := svc.List(ctx, tenantPrincipal(1), ContractFilter{}, pagination.Default())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, own.ID, list[0].ID)

	// 过滤条件不能越过租客范围
	_, total, err = svc.List(ctx, tenantPrincipal(1), ContractFilter{TenantID: 2}, pagination.Default())
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = svc.Create(ctx, tenantPrincipal(1), contractInput(1, 2, "2025-01-01", "2025-12-31"))
	assert.True(t, apperrors.IsForbidden(err), "got %v", err)
	assert.True(t, apperrors.IsForbidden(svc.Delete(ctx, tenantPrincipal(1), own.ID)))
}

func TestMaintenanceRoomRejectsActiveContract(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedTenant(t, db, "张三", "zhang@example.com", "0901000001")
	_, err := NewRoomService(db).Create(ctx, testAdmin, CreateRoomInput{
		RoomNumber: "B01",
		Price:      1200,
		Status:     models.RoomStatusMaintenance,
	})
	require.NoError(t, err)

	svc := NewContractService(db)
	_, err = svc.Create(ctx, testAdmin, contractInput(1, 1, "2024-01-01", "2024-12-31"))
	assert.True(t, apperrors.IsConflict(err), "got %v", err)

	in := contractInput(1, 1, "2024-01-01", "2024-12-31")
	in.IsActive = boolPtr(false)
	_, err = svc.Create(ctx, testAdmin, in)
	assert.NoError(t, err)
}

func TestActiveContractsNeverOverlap(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedRooms(t, db, 3)
	seedTenant(t, db, "张三", "zhang@example.com", "0901000001")
	svc := NewContractService(db)

	rng := rand.New(rand.NewSource(42))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 120; i++ {
		start := base.AddDate(0, 0, rng.Intn(365))
		end := start.AddDate(0, 0, 1+rng.Intn(90))
		in := contractInput(1, uint(1+rng.Intn(3)), start.Format(DateLayout), end.Format(DateLayout))
		in.IsActive = boolPtr(rng.Intn(4) != 0)
		if _, err := svc.Create(ctx, testAdmin, in); err != nil {
			require.True(t, apperrors.IsConflict(err), "unexpected error: %v", err)
		}
	}

	var live []models.Contract
	require.NoError(t, db.Scopes(models.Live("")).Where("is_active = ?", true).Find(&live).Error)
	require.NotEmpty(t, live)
	for i := range live {
		for j := i + 1; j < len(live); j++ {
			a, b := live[i], live[j]
			if a.RoomID != b.RoomID {
				continue
			}
			assert.False(t, Overlaps(a.Start(), a.End(), b.Start(), b.End()),
				"contracts %d and %d overlap", a.ID, b.ID)
		}
	}
}
