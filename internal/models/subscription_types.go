package models

import (
	"database/sql"
	"time"
)

// Subscription defines the model for the 'subscriptions' table
type Subscription struct {
	ID                   int64          `json:"id" db:"id"`
	UserID               int64          `json:"userId" db:"user_id"`
	StripeCustomerID     sql.NullString `json:"-" db:"stripe_customer_id"`
	StripeSubscriptionID sql.NullString `json:"-" db:"stripe_subscription_id"`
	PlanType             string         `json:"planType" db:"plan_type"`
	Words                int64          `json:"words" db:"words"`
	Status               string         `json:"status" db:"status"`
	CurrentPeriodEnd     sql.NullTime   `json:"-" db:"current_period_end"`
	CreatedAt            time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time      `json:"updatedAt" db:"updated_at"`
}
