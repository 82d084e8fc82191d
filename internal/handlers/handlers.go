// Package handlers implements the HTTP endpoints on top of the domain services.
package handlers

import (
	"context"

	"github.com/01moynul/ai-humanizer/internal/auth"
	"github.com/01moynul/ai-humanizer/internal/billing"
	"github.com/01moynul/ai-humanizer/internal/detect"
	"github.com/01moynul/ai-humanizer/internal/humanize"
	"github.com/01moynul/ai-humanizer/internal/logger"
	"github.com/01moynul/ai-humanizer/internal/models"
)

// CreditLedger is the part of credits.Ledger the handlers use.
type CreditLedger interface {
	Balance(ctx context.Context, userID int64) (int64, error)
	History(ctx context.Context, userID int64, limit int) ([]models.CreditTransaction, error)
	Grant(ctx context.Context, userID, amount int64, txType, note string) (int64, error)
}

// JobTracker runs humanize jobs in the background.
type JobTracker interface {
	Start(ctx context.Context, userID int64, req humanize.Request) (humanize.Job, error)
	Get(jobID string, userID int64) (humanize.Job, error)
	Active(userID int64) (humanize.Job, bool)
	Cancel(ctx context.Context, jobID string, userID int64) (humanize.Job, error)
}

// Detector scores text for AI authorship.
type Detector interface {
	Detect(ctx context.Context, text string) (*detect.Result, error)
}

// WebhookHandler applies signed payment events.
type WebhookHandler interface {
	Handle(ctx context.Context, payload []byte, signature string) (string, error)
}

// NotificationStore lists and acknowledges user notifications.
type NotificationStore interface {
	List(ctx context.Context, userID int64) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID int64) error
}

// SubscriptionReader loads the caller's plan.
type SubscriptionReader interface {
	ForUser(ctx context.Context, userID int64) (*models.Subscription, error)
}

// UserLookup finds accounts by id.
type UserLookup interface {
	UserByID(ctx context.Context, id int64) (*models.User, error)
}

// Handlers holds all dependencies for our handlers.
type Handlers struct {
	Auth          auth.Provider
	Users         UserLookup
	Credits       CreditLedger
	Jobs          JobTracker
	Detector      Detector
	Checkout      billing.CheckoutProvider
	Webhook       WebhookHandler
	Notifications NotificationStore
	Subscriptions SubscriptionReader
	Log           logger.Logger

	// ContactEmail is shown on the custom plan card.
	ContactEmail string
}

func (h *Handlers) log() logger.Logger {
	if h.Log == nil {
		return logger.NewNoOpLogger()
	}
	return h.Log
}
