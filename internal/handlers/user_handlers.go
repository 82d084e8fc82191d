package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/01moynul/ai-humanizer/internal/billing"
	"github.com/01moynul/ai-humanizer/internal/middleware"
	"github.com/gin-gonic/gin"
)

// --- Account & Session ---

// CredentialsInput is the body of sign-up and sign-in.
type CredentialsInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignUp is the handler for POST /v1/auth/signup
func (h *Handlers) SignUp(c *gin.Context) {
	// 1. --- Bind JSON ---
	var input CredentialsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Email and password are required")
		return
	}

	// 2. --- Create the account ---
	user, err := h.Auth.SignUp(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	// 3. --- Open a session right away ---
	session, err := h.Auth.SignIn(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created",
		"user":    user,
		"session": session,
	})
}

// SignIn is the handler for POST /v1/auth/signin
func (h *Handlers) SignIn(c *gin.Context) {
	var input CredentialsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Email and password are required")
		return
	}

	session, err := h.Auth.SignIn(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

// SignOut is the handler for POST /v1/auth/signout
// It revokes the token used for this request.
func (h *Handlers) SignOut(c *gin.Context) {
	token := c.GetString(middleware.TokenKey)
	if err := h.Auth.SignOut(c.Request.Context(), token); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

// GetMe is the handler for GET /v1/me
// It returns the user with their balance, plan and running job.
func (h *Handlers) GetMe(c *gin.Context) {
	// 1. --- Get User ---
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not signed in", "code": "UNAUTHENTICATED"})
		return
	}
	ctx := c.Request.Context()

	// 2. --- Balance ---
	balance, err := h.Credits.Balance(ctx, user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := gin.H{
		"user":    user,
		"balance": balance,
	}

	// 3. --- Optional parts ---
	if h.Subscriptions != nil {
		sub, err := h.Subscriptions.ForUser(ctx, user.ID)
		switch {
		case err == nil:
			resp["subscription"] = gin.H{
				"planType":         sub.PlanType,
				"words":            sub.Words,
				"status":           sub.Status,
				"currentPeriodEnd": nullTime(sub.CurrentPeriodEnd),
			}
		case errors.Is(err, billing.ErrNoSubscription):
		default:
			h.respondError(c, err)
			return
		}
	}
	if h.Jobs != nil {
		if job, ok := h.Jobs.Active(user.ID); ok {
			resp["activeJob"] = job
		}
	}

	c.JSON(http.StatusOK, resp)
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
