package handlers

import (
	"net/http"
	"strconv"

	"github.com/01moynul/ai-humanizer/internal/pricing"
	"github.com/gin-gonic/gin"
)

// GetPricing is the handler for GET /v1/pricing
// It returns the plan cards and the slider range.
func (h *Handlers) GetPricing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"plans": pricing.Catalog(h.ContactEmail),
		"words": gin.H{
			"min":  pricing.MinWords,
			"max":  pricing.MaxWords,
			"step": pricing.WordsStep,
		},
	})
}

// GetPriceQuote is the handler for GET /v1/pricing/quote
// Pass ?cycle=monthly|yearly and either words or price.
func (h *Handlers) GetPriceQuote(c *gin.Context) {
	// 1. --- Cycle ---
	cycle := pricing.Cycle(c.DefaultQuery("cycle", string(pricing.Monthly)))
	minPrice, maxPrice, ok := pricing.Bounds(cycle)
	if !ok {
		badRequest(c, "cycle must be monthly or yearly")
		return
	}

	// 2. --- Words -> price ---
	if raw := c.Query("words"); raw != "" {
		words, err := strconv.Atoi(raw)
		if err != nil || words < pricing.MinWords || words > pricing.MaxWords {
			badRequest(c, "words must be between 10000 and 380000")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"cycle": cycle,
			"words": words,
			"price": pricing.Price(words, cycle),
		})
		return
	}

	// 3. --- Price -> words ---
	if raw := c.Query("price"); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			badRequest(c, "price must be a number")
			return
		}
		words, ok := pricing.WordsForPrice(price, cycle)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "price is outside the plan range",
				"code":  "VALIDATION",
				"min":   minPrice,
				"max":   maxPrice,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"cycle": cycle,
			"words": words,
			"price": price,
		})
		return
	}

	badRequest(c, "words or price is required")
}
