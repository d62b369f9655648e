package services

import (
	"context"
	"testing"

	"bhms/internal/models"
	apperrors "bhms/pkg/errors"
	"bhms/pkg/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newPaymentFixture 两个租客各一份合同，各带一笔未付款
func newPaymentFixture(t *testing.T) (*gorm.DB, *PaymentService, *models.Contract, *models.Contract) {
	t.Helper()
	db := newTestDB(t)
	seedRooms(t, db, 2)
	seedTenant(t, db, "张三", "zhang@example.com", "0901000001")
	seedTenant(t, db, "李四", "li@example.com", "0901000002")

	contracts := NewContractService(db)
	c1, err := contracts.Create(context.Background(), testAdmin, contractInput(1, 1, "2024-01-01", "2024-12-31"))
	require.NoError(t, err)
	c2, err := contracts.Create(context.Background(), testAdmin, contractInput(2, 2, "2024-01-01", "2024-12-31"))
	require.NoError(t, err)
	return db, NewPaymentService(db), c1, c2
}

func TestEditPaymentToPaidWithoutDateIsNormalized(t *testing.T) {
	_, svc, c1, _ := newPaymentFixture(t)
	ctx := context.Background()
	p := c1.Payments[0]

	updated, err := svc.Update(ctx, testAdmin, p.ID, UpdatePaymentInput{
		Amount:      500,
		Description: "押金",
		Status:      statusPtr(models.PaymentPaid),
		Version:     p.Version,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentUnpaid, updated.Status)
	assert.Nil(t, updated.PaymentDate)
	assert.Equal(t, p.Version+1, updated.Version)
}

func TestOverduePaymentDropsDate(t *testing.T) {
	_, svc, c1, _ := newPaymentFixture(t)

	created, err := svc.Create(context.Background(), testAdmin, CreatePaymentInput{
		ContractID:    c1.ID,
		Amount:        1500,
		Description:   "二月房租",
		PaymentMethod: "transfer",
		Status:        statusPtr(models.PaymentOverdue),
		PaymentDate:   "2024-02-05",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentOverdue, created.Status)
	assert.Nil(t, created.PaymentDate)
}

func TestNonPaidPaymentWithDateAndNoMethodIsNormalized(t *testing.T) {
	_, svc, c1, _ := newPaymentFixture(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, testAdmin, CreatePaymentInput{
		ContractID:  c1.ID,
		Amount:      1500,
		Description: "三月房租",
		Status:      statusPtr(models.PaymentOverdue),
		PaymentDate: "2024-02-01",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentOverdue, created.Status)
	assert.Nil(t, created.PaymentDate)
	assert.Equal(t, models.PaymentMethodInvoice, created.PaymentMethod)

	updated, err := svc.Update(ctx, testAdmin, created.ID, UpdatePaymentInput{
		Amount:      1500,
		Description: "三月房租",
		Status:      statusPtr(models.PaymentUnpaid),
		PaymentDate: "2024-02-01",
		Version:     created.Version,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentUnpaid, updated.Status)
	assert.Nil(t, updated.PaymentDate)

	// 已付款仍然要求付款方式
	_, err = svc.Update(ctx, testAdmin, created.ID, UpdatePaymentInput{
		Amount:      1500,
		Description: "三月房租",
		Status:      statusPtr(models.PaymentPaid),
		PaymentDate: "2024-02-01",
		Version:     updated.Version,
	})
	assert.True(t, apperrors.IsValidation(err), "got %v", err)
}

func TestPayRecordsPayment(t *testing.T) {
	_, svc, c1, _ := newPaymentFixture(t)
	ctx := context.Background()
	p := c1.Payments[0]

	paid, err := svc.Pay(ctx, testAdmin, p.ID, PayInput{
		PaymentDate:   "2024-01-03",
		PaymentMethod: "cash",
		Version:       p.Version,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, paid.Status)
	require.NotNil(t, paid.PaymentDate)
	assert.Equal(t, "2024-01-03", paid.PaymentDate.Format(DateLayout))
	assert.Equal(t, "cash", paid.PaymentMethod)
	assert.Equal(t, 500.0, paid.Amount)

	// 版本号已变化
	_, err = svc.Pay(ctx, testAdmin, p.ID, PayInput{PaymentDate: "2024-01-04", PaymentMethod: "cash", Version: p.Version})
	assert.True(t, apperrors.IsConflict(err), "got %v", err)
}

func TestPaymentValidation(t *testing.T) {
	_, svc, c1, _ := newPaymentFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, testAdmin, CreatePaymentInput{ContractID: c1.ID, Amount: 100, Description: "水电", PaymentDate: "2024-03-01"})
	assert.True(t, apperrors.IsValidation(err), "got %v", err)

	_, err = svc.Create(ctx, testAdmin, CreatePaymentInput{ContractID: c1.ID, Amount: -1, Description: "水电"})
	assert.True(t, apperrors.IsValidation(err), "got %v", err)

	_, err = svc.Create(ctx, testAdmin, CreatePaymentInput{ContractID: c1.ID, Amount: 100, Description: "  "})
	assert.True(t, apperrors.IsValidation(err), "got %v", err)

	_, err = svc.Create(ctx, testAdmin, CreatePaymentInput{ContractID: c1.ID, Amount: 100, Description: "水电", Status: statusPtr(7)})
	assert.True(t, apperrors.IsValidation(err), "got %v", err)

	_, err = svc.Create(ctx, testAdmin, CreatePaymentInput{ContractID: 999, Amount: 100, Description: "水电"})
	assert.True(t, apperrors.IsValidation(err), "got %v", err)
}

func TestPaymentOnDeletedContract(t *testing.T) {
	db, svc, c1, _ := newPaymentFixture(t)
	ctx := context.Background()
	require.NoError(t, NewContractService(db).Delete(ctx, testAdmin, c1.ID))

	_, err := svc.Create(ctx, testAdmin, CreatePaymentInput{ContractID: c1.ID, Amount: 100, Description: "水电"})
	assert.True(t, apperrors.IsValidation(err), "got %v", err)

	_, err = svc.GetByID(ctx, testAdmin, c1.Payments[0].ID)
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)

	_, total, err := svc.List(ctx, testAdmin, PaymentFilter{}, pagination.Default())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestTenantSeesOnlyOwnPayments(t *testing.T) {
	_, svc, c1, c2 := newPaymentFixture(t)
	ctx := context.Background()

	list, total, err := svc.List(ctx, tenantPrincipal(2), PaymentFilter{}, pagination.Default())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, c2.ID, list[0].ContractID)

	_, err = svc.GetByID(ctx, tenantPrincipal(2), c1.Payments[0].ID)
	assert.True(t, apperrors.IsForbidden(err), "got %v", err)

	_, err = svc.GetByID(ctx, tenantPrincipal(2), c2.Payments[0].ID)
	assert.NoError(t, err)

	_, err = svc.Pay(ctx, tenantPrincipal(2), c2.Payments[0].ID, PayInput{PaymentDate: "2024-01-03", PaymentMethod: "cash", Version: 1})
	assert.True(t, apperrors.IsForbidden(err), "got %v", err)

	_, total, err = svc.List(ctx, testAdmin, PaymentFilter{Status: statusPtr(models.PaymentUnpaid)}, pagination.Default())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestDeletePaymentIsPermanent(t *testing.T) {
	db, svc, c1, _ := newPaymentFixture(t)
	ctx := context.Background()
	id := c1.Payments[0].ID

	require.NoError(t, svc.Delete(ctx, testAdmin, id))

	var count int64
	db.Model(&models.Payment{}).Where("id = ?", id).Count(&count)
	assert.Zero(t, count)

	assert.True(t, apperrors.IsNotFound(svc.Delete(ctx, testAdmin, id)))
}

func TestPersistedPaymentsKeepPaidDateInvariant(t *testing.T) {
	db, svc, c1, c2 := newPaymentFixture(t)
	ctx := context.Background()

	inputs := []CreatePaymentInput{
		{ContractID: c1.ID, Amount: 1500, Description: "一月", Status: statusPtr(models.PaymentPaid)},
		{ContractID: c1.ID, Amount: 1500, Description: "二月", Status: statusPtr(models.PaymentPaid), PaymentDate: "2024-02-01", PaymentMethod: "cash"},
		{ContractID: c2.ID, Amount: 1500, Description: "一月", Status: statusPtr(models.PaymentOverdue)},
		{ContractID: c2.ID, Amount: 1500, Description: "二月", PaymentDate: "2024-02-03", PaymentMethod: "transfer"},
	}
	for _, in := range inputs {
		_, err := svc.Create(ctx, testAdmin, in)
		require.NoError(t, err)
	}

	var payments []models.Payment
	require.NoError(t, db.Find(&payments).Error)
	require.Len(t, payments, 6)
	for _, p := range payments {
		assert.Equal(t, p.Status == models.PaymentPaid, p.PaymentDate != nil, "payment %d", p.ID)
	}
}
