package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/01moynul/ai-humanizer/internal/middleware"
	"github.com/01moynul/ai-humanizer/internal/models"
	"github.com/gin-gonic/gin"
)

// GrantCreditsInput is the body of a manual grant.
type GrantCreditsInput struct {
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Note   string `json:"note"`
}

// AdminGrantCredits is the handler for POST /v1/admin/users/:id/credits
// It adds words to any user's balance.
func (h *Handlers) AdminGrantCredits(c *gin.Context) {
	// 1. --- Parse target and body ---
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		badRequest(c, "Invalid user ID")
		return
	}
	var input GrantCreditsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "amount must be a positive number of words")
		return
	}

	// 2. --- Make sure the user exists ---
	if h.Users != nil {
		if _, err := h.Users.UserByID(c.Request.Context(), userID); err != nil {
			h.respondError(c, err)
			return
		}
	}

	// 3. --- Grant ---
	adminID := c.GetInt64(middleware.UserIDKey)
	note := input.Note
	if note == "" {
		note = fmt.Sprintf("manual grant by admin %d", adminID)
	}
	balance, err := h.Credits.Grant(c.Request.Context(), userID, input.Amount, models.CreditTxGrant, note)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.log().Info("Admin granted credits", map[string]interface{}{
		"admin_id": adminID,
		"user_id":  userID,
		"amount":   input.Amount,
	})

	// 4. --- Send Success Response ---
	c.JSON(http.StatusOK, gin.H{
		"message": "Credits granted",
		"userId":  userID,
		"balance": balance,
	})
}
