package credits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/01moynul/ai-humanizer/internal/database"
	"github.com/01moynul/ai-humanizer/internal/models"
)

// Store persists word balances and their transaction history.
type Store interface {
	Balance(ctx context.Context, userID int64) (int64, error)
	// Debit removes amount words when the balance covers it. ok is false and
	// the balance untouched when it does not.
	Debit(ctx context.Context, userID, amount int64, note string) (balance int64, ok bool, err error)
	Credit(ctx context.Context, userID, amount int64, txType, note string) (int64, error)
	History(ctx context.Context, userID int64, limit int) ([]models.CreditTransaction, error)
}

// MySQLStore implements Store on the user_credits and credit_transactions tables.
type MySQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db, now: time.Now}
}

func (s *MySQLStore) Balance(ctx context.Context, userID int64) (int64, error) {
	return s.balance(ctx, s.db, userID, false)
}

func (s *MySQLStore) balance(ctx context.Context, q database.Querier, userID int64, forUpdate bool) (int64, error) {
	query := "SELECT words_remaining FROM user_credits WHERE user_id = ?"
	if forUpdate {
		query += " FOR UPDATE"
	}

	var words int64
	err := q.QueryRowContext(ctx, query, userID).Scan(&words)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return words, nil
}

func (s *MySQLStore) Debit(ctx context.Context, userID, amount int64, note string) (int64, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. Lock the row and read the current balance
	current, err := s.balance(ctx, tx, userID, true)
	if err != nil {
		return 0, false, err
	}
	if current < amount {
		return current, false, nil
	}

	// 2. Conditional decrement
	res, err := tx.ExecContext(ctx,
		"UPDATE user_credits SET words_remaining = words_remaining - ?, updated_at = ? WHERE user_id = ? AND words_remaining >= ?",
		amount, s.now(), userID, amount)
	if err != nil {
		return 0, false, fmt.Errorf("failed to debit balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("failed to debit balance: %w", err)
	}
	if affected == 0 {
		return current, false, nil
	}

	// 3. Ledger row
	newBalance := current - amount
	if err := s.addTransaction(ctx, tx, userID, models.CreditTxConsume, -amount, newBalance, note); err != nil {
		return 0, false, err
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("failed to commit debit: %w", err)
	}
	return newBalance, true, nil
}

func (s *MySQLStore) Credit(ctx context.Context, userID, amount int64, txType, note string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_credits (user_id, words_remaining, updated_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE
			words_remaining = words_remaining + VALUES(words_remaining),
			updated_at = VALUES(updated_at)`,
		userID, amount, now)
	if err != nil {
		return 0, fmt.Errorf("failed to credit balance: %w", err)
	}

	newBalance, err := s.balance(ctx, tx, userID, true)
	if err != nil {
		return 0, err
	}

	if err := s.addTransaction(ctx, tx, userID, txType, amount, newBalance, note); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit credit: %w", err)
	}
	return newBalance, nil
}

// addTransaction must be called from within a transaction.
func (s *MySQLStore) addTransaction(ctx context.Context, tx *sql.Tx, userID int64, txType string, amount, balanceAfter int64, note string) error {
	notes := sql.NullString{String: note, Valid: note != ""}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO credit_transactions
		(user_id, type, amount, balance_after, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		userID, txType, amount, balanceAfter, notes, s.now())
	if err != nil {
		return fmt.Errorf("failed to add credit transaction: %w", err)
	}
	return nil
}

func (s *MySQLStore) History(ctx context.Context, userID int64, limit int) ([]models.CreditTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, amount, balance_after, notes, created_at
		FROM credit_transactions
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query credit history: %w", err)
	}
	defer rows.Close()

	history := []models.CreditTransaction{}
	for rows.Next() {
		var t models.CreditTransaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.BalanceAfter, &t.Notes, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan credit transaction: %w", err)
		}
		history = append(history, t)
	}
	return history, rows.Err()
}
