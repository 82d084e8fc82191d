package handlers

import (
	"net/http"
	"strconv"

	"github.com/01moynul/ai-humanizer/internal/middleware"
	"github.com/01moynul/ai-humanizer/internal/models"
	"github.com/gin-gonic/gin"
)

//
// --- Notification Handlers ---
//

// GetMyNotifications is the handler for GET /v1/notifications
// It retrieves the logged-in user's notifications, unread and newest first.
func (h *Handlers) GetMyNotifications(c *gin.Context) {
	// 1. --- Get User ID ---
	userID := c.GetInt64(middleware.UserIDKey)

	// 2. --- Query ---
	notifications, err := h.Notifications.List(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}

	// 3. --- Send Success Response ---
	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
	})
}

// MarkNotificationAsRead is the handler for PATCH /v1/notifications/:id/read
// It marks a single notification as read.
func (h *Handlers) MarkNotificationAsRead(c *gin.Context) {
	// 1. --- Get IDs ---
	userID := c.GetInt64(middleware.UserIDKey)
	notificationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid notification ID")
		return
	}

	// 2. --- Execute Update ---
	// Only the owner's notification is touched; anything else reads as not found.
	if err := h.Notifications.MarkRead(c.Request.Context(), notificationID, userID); err != nil {
		h.respondError(c, err)
		return
	}

	// 3. --- Send Success Response ---
	c.JSON(http.StatusOK, gin.H{
		"message": "Notification marked as read",
	})
}
