package handlers

import (
	"net/http"
	"strconv"

	"github.com/01moynul/ai-humanizer/internal/middleware"
	"github.com/gin-gonic/gin"
)

// GetCredits is the handler for GET /v1/credits
// It returns the balance and the most recent transactions.
func (h *Handlers) GetCredits(c *gin.Context) {
	// 1. --- Get User ID ---
	userID := c.GetInt64(middleware.UserIDKey)

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			badRequest(c, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	// 2. --- Load ---
	balance, err := h.Credits.Balance(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	history, err := h.Credits.History(c.Request.Context(), userID, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	transactions := make([]gin.H, 0, len(history))
	for _, tx := range history {
		item := gin.H{
			"id":           tx.ID,
			"type":         tx.Type,
			"amount":       tx.Amount,
			"balanceAfter": tx.BalanceAfter,
			"createdAt":    tx.CreatedAt,
		}
		if tx.Notes.Valid {
			item["notes"] = tx.Notes.String
		}
		transactions = append(transactions, item)
	}

	// 3. --- Send Success Response ---
	c.JSON(http.StatusOK, gin.H{
		"balance":      balance,
		"transactions": transactions,
	})
}
