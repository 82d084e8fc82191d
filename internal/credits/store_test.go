package credits

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/01moynul/ai-humanizer/internal/models"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewMySQLStore(db)
	s.now = func() time.Time { return fixed }
	return s, mock
}

func TestMySQLStore_Balance(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT words_remaining FROM user_credits WHERE user_id = ?")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"words_remaining"}).AddRow(150))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT words_remaining FROM user_credits WHERE user_id = ?")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"words_remaining"}))

	bal, err := s.Balance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(150), bal)

	bal, err = s.Balance(context.Background(), 2)
	require.NoError(t, err)
	assert.Zero(t, bal)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_Debit(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT words_remaining FROM user_credits WHERE user_id = ? FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"words_remaining"}).AddRow(500))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_credits SET words_remaining = words_remaining - ?")).
		WithArgs(int64(200), sqlmock.AnyArg(), int64(1), int64(200)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO credit_transactions")).
		WithArgs(int64(1), models.CreditTxConsume, int64(-200), int64(300), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(10, 1))
	mock.ExpectCommit()

	bal, ok, err := s.Debit(context.Background(), 1, 200, "humanize submission")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(300), bal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_DebitInsufficient(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"words_remaining"}).AddRow(150))
	mock.ExpectRollback()

	bal, ok, err := s.Debit(context.Background(), 1, 200, "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(150), bal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_DebitLostConditionalUpdate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"words_remaining"}).AddRow(300))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_credits")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, ok, err := s.Debit(context.Background(), 1, 200, "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_DebitCommitFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"words_remaining"}).AddRow(300))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_credits")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO credit_transactions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(assert.AnError)

	_, ok, err := s.Debit(context.Background(), 1, 200, "")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestMySQLStore_Credit(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_credits")).
		WithArgs(int64(5), int64(15000), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"words_remaining"}).AddRow(15500))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO credit_transactions")).
		WithArgs(int64(5), models.CreditTxPurchase, int64(15000), int64(15500), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	bal, err := s.Credit(context.Background(), 5, 15000, models.CreditTxPurchase, "monthly plan")
	require.NoError(t, err)
	assert.Equal(t, int64(15500), bal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_History(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM credit_transactions")).
		WithArgs(int64(1), 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "type", "amount", "balance_after", "notes", "created_at"}).
			AddRow(2, 1, "consume", -200, 300, "humanize submission", created).
			AddRow(1, 1, "purchase", 500, 500, nil, created))

	history, err := s.History(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(-200), history[0].Amount)
	assert.Equal(t, "humanize submission", history[0].Notes.String)
	assert.False(t, history[1].Notes.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}
