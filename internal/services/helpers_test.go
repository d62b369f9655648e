package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"bhms/internal/access"
	"bhms/internal/database"
	"bhms/internal/models"
	"bhms/pkg/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testAdmin = &access.Principal{AccountID: 1, Username: "admin", Role: access.RoleAdmin}

func tenantPrincipal(id uint) *access.Principal {
	return &access.Principal{AccountID: id, Username: fmt.Sprintf("t%d@example.com", id), Role: access.RoleTenant, TenantID: id}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.MigrateDB(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// recordingNotifier 记录发送内容，fail 不为空时返回错误
type recordingNotifier struct {
	sent []Notification
	fail error
}

func (n *recordingNotifier) Send(_ context.Context, msg Notification) error {
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, msg)
	return nil
}

var errMailDown = errors.New("mail server unavailable")

func seedRooms(t *testing.T, db *gorm.DB, n int) []*models.Room {
	t.Helper()
	svc := NewRoomService(db)
	rooms := make([]*models.Room, 0, n)
	for i := 1; i <= n; i++ {
		room, err := svc.Create(context.Background(), testAdmin, CreateRoomInput{
			RoomNumber: fmt.Sprintf("A%02d", i),
			Price:      1500,
		})
		require.NoError(t, err)
		rooms = append(rooms, room)
	}
	return rooms
}

func seedTenant(t *testing.T, db *gorm.DB, name, email, phone string) *models.Tenant {
	t.Helper()
	svc := NewTenantService(db, &recordingNotifier{}, quietLogger())
	tenant, err := svc.Create(context.Background(), testAdmin, CreateTenantInput{
		FullName: name,
		Phone:    phone,
		Email:    email,
		Password: "secret123",
	})
	require.NoError(t, err)
	return tenant
}

func unpaid() *models.PaymentStatus {
	s := models.PaymentUnpaid
	return &s
}

func statusPtr(s models.PaymentStatus) *models.PaymentStatus {
	return &s
}

func boolPtr(b bool) *bool {
	return &b
}

func contractInput(tenantID, roomID uint, start, end string) CreateContractInput {
	return CreateContractInput{
		TenantID:  tenantID,
		RoomID:    roomID,
		StartDate: start,
		EndDate:   end,
		InitialPayment: InitialPaymentInput{
			Amount:      500,
			Description: "押金",
			Status:      unpaid(),
		},
	}
}
