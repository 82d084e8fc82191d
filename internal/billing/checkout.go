// Package billing starts Stripe checkouts and applies their webhook events.
package billing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/01moynul/ai-humanizer/internal/pricing"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

var (
	ErrUnknownPlan      = errors.New("unknown plan")
	ErrCustomPlan       = errors.New("custom plans are arranged by contacting sales")
	ErrNotConfigured    = errors.New("billing is not configured")
	ErrCheckoutFailed   = errors.New("failed to start checkout")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedEvent   = errors.New("malformed webhook event")
)

// CheckoutRequest is what the user picked on the pricing page.
type CheckoutRequest struct {
	PlanID string
	UserID int64
	Email  string
	Words  int
}

// Checkout is a started checkout session.
type Checkout struct {
	SessionID string  `json:"sessionId"`
	URL       string  `json:"url"`
	PlanID    string  `json:"planId"`
	Words     int     `json:"words"`
	Price     float64 `json:"price"`
}

// CheckoutProvider is the payment collaborator.
type CheckoutProvider interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
}

// sessionCreator is the part of the Stripe SDK used to open sessions.
type sessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeCheckout creates subscription checkouts on Stripe.
type StripeCheckout struct {
	sessions     sessionCreator
	priceIDs     map[string]string
	successURL   string
	cancelURL    string
	contactEmail string
}

// StripeOptions configures StripeCheckout.
type StripeOptions struct {
	SecretKey    string
	PriceIDs     map[string]string
	SuccessURL   string
	CancelURL    string
	ContactEmail string
}

func NewStripeCheckout(opts StripeOptions) *StripeCheckout {
	var sessions sessionCreator
	if opts.SecretKey != "" {
		sessions = &session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: opts.SecretKey}
	}
	return &StripeCheckout{
		sessions:     sessions,
		priceIDs:     opts.PriceIDs,
		successURL:   opts.SuccessURL,
		cancelURL:    opts.CancelURL,
		contactEmail: opts.ContactEmail,
	}
}

func (s *StripeCheckout) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	// 1. Resolve the plan
	plan, ok := pricing.FindPlan(req.PlanID, s.contactEmail)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlan, req.PlanID)
	}
	if plan.Custom {
		return nil, ErrCustomPlan
	}
	if s.sessions == nil {
		return nil, ErrNotConfigured
	}

	words := plan.DefaultWords
	if req.Words > 0 {
		words = pricing.ClampWords(req.Words)
	}
	price := pricing.Price(words, plan.Cycle)

	meta := map[string]string{
		"userId":   strconv.FormatInt(req.UserID, 10),
		"planType": plan.ID,
		"words":    strconv.Itoa(words),
	}

	// 2. Build the line item: a configured Stripe price or an inline one
	item := &stripe.CheckoutSessionLineItemParams{Quantity: stripe.Int64(1)}
	if priceID := s.priceIDs[plan.ID]; priceID != "" {
		item.Price = stripe.String(priceID)
	} else {
		interval := stripe.PriceRecurringIntervalMonth
		if plan.Cycle == pricing.Yearly {
			interval = stripe.PriceRecurringIntervalYear
		}
		item.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(string(stripe.CurrencyUSD)),
			UnitAmount: stripe.Int64(int64(math.Round(price * 100))),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(fmt.Sprintf("%s plan, %d words", plan.Title, words)),
			},
			Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
				Interval: stripe.String(string(interval)),
			},
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems:         []*stripe.CheckoutSessionLineItemParams{item},
		SuccessURL:        stripe.String(s.successURL),
		CancelURL:         stripe.String(s.cancelURL),
		ClientReferenceID: stripe.String(strconv.FormatInt(req.UserID, 10)),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: meta,
		},
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.Context = ctx
	for k, v := range meta {
		params.AddMetadata(k, v)
	}

	// 3. Create
	sess, err := s.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckoutFailed, err)
	}

	return &Checkout{
		SessionID: sess.ID,
		URL:       sess.URL,
		PlanID:    plan.ID,
		Words:     words,
		Price:     price,
	}, nil
}
