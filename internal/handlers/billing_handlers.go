package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/01moynul/ai-humanizer/internal/billing"
	"github.com/01moynul/ai-humanizer/internal/middleware"
	"github.com/gin-gonic/gin"
)

// maxWebhookBody is the largest event payload accepted from Stripe.
const maxWebhookBody = 64 << 10

// CheckoutInput is the body of POST /v1/billing/checkout.
type CheckoutInput struct {
	PlanID string `json:"planId" binding:"required"`
	Words  int    `json:"words"`
}

// CreateCheckout is the handler for POST /v1/billing/checkout
// It returns the URL of a hosted checkout page.
func (h *Handlers) CreateCheckout(c *gin.Context) {
	// 1. --- Bind JSON ---
	var input CheckoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "planId is required")
		return
	}
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not signed in", "code": "UNAUTHENTICATED"})
		return
	}

	// 2. --- Start the checkout ---
	checkout, err := h.Checkout.CreateCheckout(c.Request.Context(), billing.CheckoutRequest{
		PlanID: input.PlanID,
		UserID: user.ID,
		Email:  user.Email,
		Words:  input.Words,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"checkout": checkout})
}

// StripeWebhook is the handler for POST /v1/billing/webhook
// Signature failures answer 400 so Stripe stops retrying; store failures answer 500 so it retries.
func (h *Handlers) StripeWebhook(c *gin.Context) {
	// 1. --- Read the raw body (the signature covers the exact bytes) ---
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Payload too large", "code": "VALIDATION"})
		return
	}

	// 2. --- Verify and apply ---
	eventType, err := h.Webhook.Handle(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) || errors.Is(err, billing.ErrMalformedEvent) {
			h.respondError(c, err)
			return
		}
		h.log().Error("Webhook processing failed", map[string]interface{}{
			"event_type": eventType,
			"error":      err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event", "code": "INTERNAL"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "type": eventType})
}
