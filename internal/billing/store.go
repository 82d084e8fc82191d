package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/01moynul/ai-humanizer/internal/models"
)

// ErrNoSubscription is returned when a user or Stripe id has no subscription row.
var ErrNoSubscription = errors.New("subscription not found")

// SubscriptionStore persists one subscription per user.
type SubscriptionStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSubscriptionStore(db *sql.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db, now: time.Now}
}

// Upsert creates or replaces the user's subscription.
func (s *SubscriptionStore) Upsert(ctx context.Context, sub models.Subscription) error {
	now := s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions
		(user_id, stripe_customer_id, stripe_subscription_id, plan_type, words, status, current_period_end, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			stripe_customer_id = VALUES(stripe_customer_id),
			stripe_subscription_id = VALUES(stripe_subscription_id),
			plan_type = VALUES(plan_type),
			words = VALUES(words),
			status = VALUES(status),
			current_period_end = VALUES(current_period_end),
			updated_at = VALUES(updated_at)`,
		sub.UserID, sub.StripeCustomerID, sub.StripeSubscriptionID, sub.PlanType, sub.Words,
		sub.Status, sub.CurrentPeriodEnd, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

// UpdateStatus applies a lifecycle change reported by Stripe.
func (s *SubscriptionStore) UpdateStatus(ctx context.Context, stripeSubscriptionID, status string, periodEnd sql.NullTime) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = ?, current_period_end = COALESCE(?, current_period_end), updated_at = ?
		WHERE stripe_subscription_id = ?`,
		status, periodEnd, s.now(), stripeSubscriptionID)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNoSubscription
	}
	return nil
}

// ForUser returns the user's subscription.
func (s *SubscriptionStore) ForUser(ctx context.Context, userID int64) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, stripe_customer_id, stripe_subscription_id, plan_type, words, status,
			current_period_end, created_at, updated_at
		FROM subscriptions WHERE user_id = ?`, userID).Scan(
		&sub.ID, &sub.UserID, &sub.StripeCustomerID, &sub.StripeSubscriptionID, &sub.PlanType,
		&sub.Words, &sub.Status, &sub.CurrentPeriodEnd, &sub.CreatedAt, &sub.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSubscription
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return &sub, nil
}
