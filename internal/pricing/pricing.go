// Package pricing turns a monthly word allowance into a plan price and back.
package pricing

import (
	"math"

	"github.com/gosimple/slug"
)

// Cycle is the billing period of a plan.
type Cycle string

const (
	Monthly Cycle = "monthly"
	Yearly  Cycle = "yearly"
)

const (
	MinWords  = 10000
	MaxWords  = 380000
	WordsStep = 1000
)

type priceRange struct {
	min float64
	max float64
}

var ranges = map[Cycle]priceRange{
	Monthly: {min: 11.99, max: 199.99},
	Yearly:  {min: 4.99, max: 149.99},
}

// Bounds returns the cheapest and most expensive price for a cycle.
func Bounds(cycle Cycle) (float64, float64, bool) {
	r, ok := ranges[cycle]
	return r.min, r.max, ok
}

// Price interpolates linearly between the cycle's price bounds, rounded to cents.
func Price(words int, cycle Cycle) float64 {
	r, ok := ranges[cycle]
	if !ok {
		return 0
	}
	perWord := (r.max - r.min) / float64(MaxWords-MinWords)
	price := r.min + float64(words-MinWords)*perWord
	return math.Round(price*100) / 100
}

// WordsForPrice is the inverse of Price. It reports false when the price maps
// outside [MinWords, MaxWords].
func WordsForPrice(price float64, cycle Cycle) (int, bool) {
	r, ok := ranges[cycle]
	if !ok || math.IsNaN(price) {
		return 0, false
	}
	words := int(math.Round((price-r.min)/(r.max-r.min)*float64(MaxWords-MinWords) + MinWords))
	if words < MinWords || words > MaxWords {
		return 0, false
	}
	return words, true
}

// ClampWords snaps a requested allowance onto the slider range.
func ClampWords(words int) int {
	if words < MinWords {
		return MinWords
	}
	if words > MaxWords {
		return MaxWords
	}
	return int(math.Round(float64(words)/WordsStep)) * WordsStep
}

// Plan is one card of the pricing page.
type Plan struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Cycle        Cycle    `json:"cycle,omitempty"`
	DefaultWords int      `json:"defaultWords,omitempty"`
	Price        float64  `json:"price"`
	Discount     string   `json:"discount,omitempty"`
	Features     []string `json:"features"`
	Popular      bool     `json:"popular"`
	Custom       bool     `json:"custom"`
	ContactURL   string   `json:"contactUrl,omitempty"`
}

var standardFeatures = []string{
	"Passes AI detectors",
	"High quality, legible content",
	"Watermark and future proof",
	"Writing level matching",
}

// Catalog returns the plans with prices computed for their default allowance.
func Catalog(contactEmail string) []Plan {
	plans := []Plan{
		{
			Title:        "Monthly",
			Description:  "The flexible option for individuals who want to create high quality content.",
			Cycle:        Monthly,
			DefaultWords: 15000,
			Discount:     "0% Discount",
			Features:     standardFeatures,
		},
		{
			Title:        "Yearly",
			Description:  "Best value for consistent content creation needs.",
			Cycle:        Yearly,
			DefaultWords: MaxWords,
			Discount:     "6 Months Free",
			Features:     standardFeatures,
			Popular:      true,
		},
		{
			Title:       "For Business",
			Description: "Need bulk credits? Looking for permanent words with no monthly expiration?",
			Discount:    "Custom Discount",
			Features: []string{
				"Custom Pricing & Plans",
				"Non-expiring credits",
				"Redistribution & white labeling",
				"Built to fit your needs",
				"API compatible",
			},
			Custom: true,
		},
	}

	for i := range plans {
		plans[i].ID = slug.Make(plans[i].Title)
		if plans[i].Custom {
			if contactEmail != "" {
				plans[i].ContactURL = "mailto:" + contactEmail
			}
			continue
		}
		plans[i].Price = Price(plans[i].DefaultWords, plans[i].Cycle)
	}
	return plans
}

// FindPlan looks a plan up by its slug id.
func FindPlan(id, contactEmail string) (Plan, bool) {
	for _, p := range Catalog(contactEmail) {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}
