package db

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return gdb, mock
}

func trialRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "ip", "last_ip", "user_metadata", "free_used", "paid_credits", "created_at", "last_seen",
	})
}

func TestRegisterTrialCreates(t *testing.T) {
	gdb, mock := newMockDB(t)

	mock.ExpectExec("INSERT INTO `trial_records`").
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := RegisterTrial(context.Background(), gdb, &TrialRecord{ID: "id-1", IP: "1.2.3.4"})
	require.NoError(t, err)
	assert.True(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterTrialAlreadyExists(t *testing.T) {
	gdb, mock := newMockDB(t)

	// insert-if-absent hits the conflict, then only the origin fields refresh
	mock.ExpectExec("INSERT INTO `trial_records`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE `trial_records` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := RegisterTrial(context.Background(), gdb, &TrialRecord{ID: "id-1", IP: "1.2.3.4"})
	require.NoError(t, err)
	assert.False(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTrial(t *testing.T) {
	gdb, mock := newMockDB(t)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM `trial_records`").
		WillReturnRows(trialRows().AddRow("id-1", "1.2.3.4", "1.2.3.4", "ua", true, 2, now, now))

	rec, err := GetTrial(context.Background(), gdb, "id-1")
	require.NoError(t, err)
	assert.True(t, rec.FreeUsed)
	assert.Equal(t, 2, rec.PaidCredits)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTrialNotFound(t *testing.T) {
	gdb, mock := newMockDB(t)

	mock.ExpectQuery("SELECT (.+) FROM `trial_records`").
		WillReturnRows(trialRows())

	_, err := GetTrial(context.Background(), gdb, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTrial(t *testing.T) {
	gdb, mock := newMockDB(t)

	mock.ExpectExec("DELETE FROM `trial_records`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, DeleteTrial(context.Background(), gdb, "id-1"))

	mock.ExpectExec("DELETE FROM `trial_records`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, DeleteTrial(context.Background(), gdb, "id-1"), ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeCreditFreeFirst(t *testing.T) {
	gdb, mock := newMockDB(t)

	// the free_used compare-and-set matches
	mock.ExpectExec("UPDATE `trial_records` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	kind, err := ConsumeCredit(context.Background(), gdb, "id-1")
	require.NoError(t, err)
	assert.Equal(t, CreditFree, kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeCreditPaidAfterFree(t *testing.T) {
	gdb, mock := newMockDB(t)

	// free flag already set, paid decrement matches instead
	mock.ExpectExec("UPDATE `trial_records` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE `trial_records` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	kind, err := ConsumeCredit(context.Background(), gdb, "id-1")
	require.NoError(t, err)
	assert.Equal(t, CreditPaid, kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeCreditExhausted(t *testing.T) {
	gdb, mock := newMockDB(t)

	mock.ExpectExec("UPDATE `trial_records` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE `trial_records` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := ConsumeCredit(context.Background(), gdb, "id-1")
	assert.ErrorIs(t, err, ErrNoEntitlement)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefundCredit(t *testing.T) {
	gdb, mock := newMockDB(t)

	mock.ExpectExec("UPDATE `trial_records` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, RefundCredit(context.Background(), gdb, "id-1", CreditFree))

	mock.ExpectExec("UPDATE `trial_records` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, RefundCredit(context.Background(), gdb, "id-1", CreditPaid))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddPaidCredits(t *testing.T) {
	gdb, mock := newMockDB(t)

	mock.ExpectExec("UPDATE `trial_records` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, AddPaidCredits(context.Background(), gdb, "id-1", 1))

	// identity vanished after payment: must surface, never swallow
	mock.ExpectExec("UPDATE `trial_records` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, AddPaidCredits(context.Background(), gdb, "gone", 1), ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkOrderPaid(t *testing.T) {
	gdb, mock := newMockDB(t)

	mock.ExpectExec("UPDATE `payment_orders` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, MarkOrderPaid(context.Background(), gdb, "order_1", "pay_1"))

	mock.ExpectExec("UPDATE `payment_orders` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, MarkOrderPaid(context.Background(), gdb, "order_2", "pay_2"), ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
