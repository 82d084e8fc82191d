package routes

import (
	"net/http"

	"github.com/01moynul/ai-humanizer/internal/handlers"
	"github.com/01moynul/ai-humanizer/internal/logger"
	"github.com/01moynul/ai-humanizer/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter wires every endpoint. allowedOrigins feeds the CORS guard.
func SetupRouter(h *handlers.Handlers, allowedOrigins []string, log logger.Logger) *gin.Engine {
	router := gin.New()

	// --- Global middleware ---
	// CORS must run first so preflights are answered before anything else.
	router.Use(middleware.CORSMiddleware(allowedOrigins))
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Auth Routes (Public) ---
		v1.POST("/auth/signup", h.SignUp)
		v1.POST("/auth/signin", h.SignIn)

		// --- Pricing Routes (Public) ---
		v1.GET("/pricing", h.GetPricing)
		v1.GET("/pricing/quote", h.GetPriceQuote)
		v1.GET("/humanize/options", h.HumanizeOptions)

		// --- Payment provider callback (signed, no session) ---
		v1.POST("/billing/webhook", h.StripeWebhook)

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(middleware.AuthMiddleware(h.Auth, log))
		{
			auth.POST("/auth/signout", h.SignOut)
			auth.GET("/me", h.GetMe)

			// --- Credits ---
			auth.GET("/credits", h.GetCredits)

			// --- Humanize ---
			auth.POST("/humanize", h.StartHumanize)
			auth.GET("/humanize/:id", h.GetHumanizeJob)
			auth.DELETE("/humanize/:id", h.CancelHumanizeJob)

			// --- Detection ---
			auth.POST("/detect", h.DetectAI)

			// --- Billing ---
			auth.POST("/billing/checkout", h.CreateCheckout)

			// --- Notification Routes ---
			auth.GET("/notifications", h.GetMyNotifications)
			auth.PATCH("/notifications/:id/read", h.MarkNotificationAsRead)

			// --- Admin Routes ---
			admin := auth.Group("/admin")
			admin.Use(middleware.AdminMiddleware())
			{
				admin.POST("/users/:id/credits", h.AdminGrantCredits)
			}
		}
	}

	return router
}
