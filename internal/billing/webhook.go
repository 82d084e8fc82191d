package billing

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/01moynul/ai-humanizer/internal/logger"
	"github.com/01moynul/ai-humanizer/internal/metrics"
	"github.com/01moynul/ai-humanizer/internal/models"
	"github.com/01moynul/ai-humanizer/internal/pricing"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

const processedEventTTL = 72 * time.Hour

// SubscriptionRepository is implemented by SubscriptionStore.
type SubscriptionRepository interface {
	Upsert(ctx context.Context, sub models.Subscription) error
	UpdateStatus(ctx context.Context, stripeSubscriptionID, status string, periodEnd sql.NullTime) error
}

// Granter adds purchased words to a balance.
type Granter interface {
	Grant(ctx context.Context, userID, amount int64, txType, note string) (int64, error)
}

// Notifier records a message for the user.
type Notifier interface {
	Notify(ctx context.Context, userID int64, message, link string) error
}

// EventDeduper remembers processed event ids so Stripe retries apply once.
type EventDeduper interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// WebhookProcessor verifies and applies Stripe events.
type WebhookProcessor struct {
	secret   string
	subs     SubscriptionRepository
	credits  Granter
	notifier Notifier
	dedupe   EventDeduper
	log      logger.Logger
	now      func() time.Time
}

// NewWebhookProcessor creates a processor. notifier and dedupe may be nil.
func NewWebhookProcessor(secret string, subs SubscriptionRepository, credits Granter, notifier Notifier, dedupe EventDeduper, log logger.Logger) *WebhookProcessor {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &WebhookProcessor{
		secret:   secret,
		subs:     subs,
		credits:  credits,
		notifier: notifier,
		dedupe:   dedupe,
		log:      log,
		now:      time.Now,
	}
}

// Handle verifies the signature and applies the event. It returns the event type.
// Unhandled event types are acknowledged without effect.
func (p *WebhookProcessor) Handle(ctx context.Context, payload []byte, signature string) (string, error) {
	// 1. Verify
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		metrics.BillingEvents.WithLabelValues("unknown", "invalid_signature").Inc()
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	eventType := string(event.Type)

	// 2. Apply each event once
	if p.dedupe != nil && event.ID != "" {
		first, err := p.dedupe.SetNX(ctx, processedKey(event.ID), 1, processedEventTTL)
		if err != nil {
			p.log.Warn("Event dedupe unavailable", map[string]interface{}{"error": err.Error()})
		} else if !first {
			metrics.BillingEvents.WithLabelValues(eventType, "duplicate").Inc()
			return eventType, nil
		}
	}

	// 3. Dispatch
	switch eventType {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		err = p.checkoutCompleted(ctx, event)
	case "customer.subscription.updated", "customer.subscription.deleted":
		err = p.subscriptionChanged(ctx, event)
	default:
		metrics.BillingEvents.WithLabelValues(eventType, "ignored").Inc()
		return eventType, nil
	}

	if err != nil {
		metrics.BillingEvents.WithLabelValues(eventType, "error").Inc()
		p.log.Error("Failed to apply billing event", map[string]interface{}{
			"event_id":   event.ID,
			"event_type": eventType,
			"error":      err.Error(),
		})
		// let Stripe's retry apply it
		if p.dedupe != nil && event.ID != "" {
			_ = p.dedupe.Del(ctx, processedKey(event.ID))
		}
		return eventType, err
	}

	metrics.BillingEvents.WithLabelValues(eventType, "ok").Inc()
	return eventType, nil
}

func (p *WebhookProcessor) checkoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	ref := sess.Metadata["userId"]
	if ref == "" {
		ref = sess.ClientReferenceID
	}
	userID, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || userID <= 0 {
		return fmt.Errorf("%w: missing user reference", ErrMalformedEvent)
	}
	words, err := strconv.ParseInt(sess.Metadata["words"], 10, 64)
	if err != nil || words <= 0 {
		return fmt.Errorf("%w: missing word allowance", ErrMalformedEvent)
	}
	planID := sess.Metadata["planType"]
	plan, ok := pricing.FindPlan(planID, "")
	if !ok {
		return fmt.Errorf("%w: unknown plan %q", ErrMalformedEvent, planID)
	}

	// Delayed payment methods complete the session before money settles;
	// those are applied by the later async_payment_succeeded event.
	switch sess.PaymentStatus {
	case stripe.CheckoutSessionPaymentStatusPaid, stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
	default:
		metrics.BillingEvents.WithLabelValues(string(event.Type), "payment_pending").Inc()
		p.log.Info("Checkout completed without settled payment", map[string]interface{}{
			"session_id":     sess.ID,
			"user_id":        userID,
			"payment_status": string(sess.PaymentStatus),
		})
		return nil
	}

	periodEnd := p.now().AddDate(0, 1, 0)
	if plan.Cycle == pricing.Yearly {
		periodEnd = p.now().AddDate(1, 0, 0)
	}

	sub := models.Subscription{
		UserID:           userID,
		PlanType:         plan.ID,
		Words:            words,
		Status:           string(stripe.SubscriptionStatusActive),
		CurrentPeriodEnd: sql.NullTime{Time: periodEnd, Valid: true},
	}
	if sess.Customer != nil && sess.Customer.ID != "" {
		sub.StripeCustomerID = sql.NullString{String: sess.Customer.ID, Valid: true}
	}
	if sess.Subscription != nil && sess.Subscription.ID != "" {
		sub.StripeSubscriptionID = sql.NullString{String: sess.Subscription.ID, Valid: true}
	}

	if err := p.subs.Upsert(ctx, sub); err != nil {
		return err
	}

	note := fmt.Sprintf("%s plan purchase (%s)", plan.Title, sess.ID)
	if _, err := p.credits.Grant(ctx, userID, words, models.CreditTxPurchase, note); err != nil {
		return err
	}

	if p.notifier != nil {
		msg := fmt.Sprintf("Your %s plan is active. %d words have been added to your balance.", plan.Title, words)
		if err := p.notifier.Notify(ctx, userID, msg, "/v1/credits"); err != nil {
			p.log.Warn("Failed to record purchase notification", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}

	p.log.Info("Subscription activated", map[string]interface{}{
		"user_id": userID,
		"plan":    plan.ID,
		"words":   words,
	})
	return nil
}

func (p *WebhookProcessor) subscriptionChanged(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if sub.ID == "" {
		return fmt.Errorf("%w: missing subscription id", ErrMalformedEvent)
	}

	status := string(sub.Status)
	if string(event.Type) == "customer.subscription.deleted" {
		status = string(stripe.SubscriptionStatusCanceled)
	}
	var periodEnd sql.NullTime
	if sub.CurrentPeriodEnd > 0 {
		periodEnd = sql.NullTime{Time: time.Unix(sub.CurrentPeriodEnd, 0).UTC(), Valid: true}
	}

	err := p.subs.UpdateStatus(ctx, sub.ID, status, periodEnd)
	if errors.Is(err, ErrNoSubscription) {
		p.log.Warn("Subscription event for unknown subscription", map[string]interface{}{
			"subscription_id": sub.ID,
			"status":          status,
		})
		return nil
	}
	return err
}

func processedKey(eventID string) string {
	return "billing:event:" + eventID
}
