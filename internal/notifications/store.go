// Package notifications stores short messages shown to a user.
package notifications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/01moynul/ai-humanizer/internal/database"
	"github.com/01moynul/ai-humanizer/internal/models"
)

// ErrNotFound means the notification does not exist or belongs to another user.
var ErrNotFound = errors.New("notification not found")

const listLimit = 50

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Notify records a notification outside any transaction.
func (s *Store) Notify(ctx context.Context, userID int64, message, link string) error {
	return s.Add(ctx, s.db, userID, message, link)
}

// Add records a notification through q, which may be a transaction.
func (s *Store) Add(ctx context.Context, q database.Querier, userID int64, message, link string) error {
	nullLink := sql.NullString{String: link, Valid: link != ""}

	_, err := q.ExecContext(ctx, `
		INSERT INTO notifications
		(user_id, message, link, is_read, created_at)
		VALUES (?, ?, ?, 0, ?)`,
		userID, message, nullLink, s.now())
	if err != nil {
		return fmt.Errorf("failed to add notification: %w", err)
	}
	return nil
}

// List returns up to 50 notifications, unread first then newest first.
func (s *Store) List(ctx context.Context, userID int64) ([]models.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, message, link, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY is_read ASC, created_at DESC
		LIMIT ?`, userID, listLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Link, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkRead marks one notification as read if userID owns it.
func (s *Store) MarkRead(ctx context.Context, id, userID int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
