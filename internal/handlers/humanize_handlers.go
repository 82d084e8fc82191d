package handlers

import (
	"net/http"

	"github.com/01moynul/ai-humanizer/internal/humanize"
	"github.com/01moynul/ai-humanizer/internal/middleware"
	"github.com/gin-gonic/gin"
)

// HumanizeInput is the body of POST /v1/humanize.
type HumanizeInput struct {
	Text        string `json:"text" binding:"required"`
	Readability string `json:"readability"`
	Purpose     string `json:"purpose"`
}

// StartHumanize is the handler for POST /v1/humanize
// It charges the caller's words and starts the job in the background.
func (h *Handlers) StartHumanize(c *gin.Context) {
	// 1. --- Bind JSON ---
	var input HumanizeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "text is required")
		return
	}
	userID := c.GetInt64(middleware.UserIDKey)

	// 2. --- Start ---
	// the request context only covers validation and charging; the job outlives it
	job, err := h.Jobs.Start(c.Request.Context(), userID, humanize.Request{
		Text:        input.Text,
		Readability: humanize.Readability(input.Readability),
		Purpose:     humanize.Purpose(input.Purpose),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	// 3. --- Send Accepted Response ---
	c.Header("Location", "/v1/humanize/"+job.ID)
	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

// GetHumanizeJob is the handler for GET /v1/humanize/:id
func (h *Handlers) GetHumanizeJob(c *gin.Context) {
	job, err := h.Jobs.Get(c.Param("id"), c.GetInt64(middleware.UserIDKey))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": job})
}

// CancelHumanizeJob is the handler for DELETE /v1/humanize/:id
// It stops a running job; the charged words are refunded.
func (h *Handlers) CancelHumanizeJob(c *gin.Context) {
	job, err := h.Jobs.Cancel(c.Request.Context(), c.Param("id"), c.GetInt64(middleware.UserIDKey))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": job})
}

// HumanizeOptions is the handler for GET /v1/humanize/options
// It lists the readability levels and purposes a job accepts.
func (h *Handlers) HumanizeOptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"readability": humanize.Readabilities(),
		"purpose":     humanize.Purposes(),
	})
}

// DetectInput is the body of POST /v1/detect.
type DetectInput struct {
	Text string `json:"text" binding:"required"`
}

// DetectAI is the handler for POST /v1/detect
// Detection is free and does not touch the caller's balance.
func (h *Handlers) DetectAI(c *gin.Context) {
	var input DetectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "text is required")
		return
	}

	result, err := h.Detector.Detect(c.Request.Context(), input.Text)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"score": result.Score})
}
