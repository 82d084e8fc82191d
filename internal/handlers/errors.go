package handlers

import (
	"errors"
	"net/http"

	"github.com/01moynul/ai-humanizer/internal/auth"
	"github.com/01moynul/ai-humanizer/internal/billing"
	"github.com/01moynul/ai-humanizer/internal/credits"
	"github.com/01moynul/ai-humanizer/internal/detect"
	"github.com/01moynul/ai-humanizer/internal/humanize"
	"github.com/01moynul/ai-humanizer/internal/notifications"
	"github.com/gin-gonic/gin"
)

// UpgradeURL is where a client sends users who ran out of words.
const UpgradeURL = "/v1/pricing"

type errorMapping struct {
	err    error
	status int
	code   string
}

// Ordered: the first match wins, so quota is checked before the generic submit failure it wraps.
var errorMappings = []errorMapping{
	{credits.ErrInsufficientCredits, http.StatusPaymentRequired, "INSUFFICIENT_CREDITS"},
	{humanize.ErrUpstreamQuota, http.StatusBadGateway, humanize.CodeUpstreamQuota},

	{humanize.ErrTextTooShort, http.StatusBadRequest, "TEXT_TOO_SHORT"},
	{detect.ErrTextTooShort, http.StatusBadRequest, "TEXT_TOO_SHORT"},
	{humanize.ErrInvalidReadability, http.StatusBadRequest, "INVALID_READABILITY"},
	{humanize.ErrInvalidPurpose, http.StatusBadRequest, "INVALID_PURPOSE"},
	{auth.ErrInvalidEmail, http.StatusBadRequest, "INVALID_EMAIL"},
	{auth.ErrWeakPassword, http.StatusBadRequest, "WEAK_PASSWORD"},
	{credits.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
	{billing.ErrUnknownPlan, http.StatusBadRequest, "UNKNOWN_PLAN"},
	{billing.ErrCustomPlan, http.StatusBadRequest, "CUSTOM_PLAN"},
	{billing.ErrInvalidSignature, http.StatusBadRequest, "INVALID_SIGNATURE"},
	{billing.ErrMalformedEvent, http.StatusBadRequest, "MALFORMED_EVENT"},

	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{auth.ErrAccountSuspended, http.StatusForbidden, "ACCOUNT_SUSPENDED"},

	{humanize.ErrJobNotFound, http.StatusNotFound, "NOT_FOUND"},
	{notifications.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{auth.ErrUserNotFound, http.StatusNotFound, "NOT_FOUND"},
	{billing.ErrNoSubscription, http.StatusNotFound, "NOT_FOUND"},

	{humanize.ErrJobActive, http.StatusConflict, "JOB_ACTIVE"},
	{humanize.ErrJobFinished, http.StatusConflict, "JOB_FINISHED"},
	{auth.ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN"},

	{humanize.ErrSubmitFailed, http.StatusBadGateway, humanize.CodeSubmitFailed},
	{humanize.ErrPollFailed, http.StatusBadGateway, humanize.CodePollFailed},
	{detect.ErrUpstream, http.StatusBadGateway, "UPSTREAM_ERROR"},
	{billing.ErrCheckoutFailed, http.StatusBadGateway, "UPSTREAM_ERROR"},

	{credits.ErrUpdateFailed, http.StatusServiceUnavailable, "CREDIT_UPDATE_FAILED"},
	{billing.ErrNotConfigured, http.StatusServiceUnavailable, "UNAVAILABLE"},
	{humanize.ErrShuttingDown, http.StatusServiceUnavailable, "UNAVAILABLE"},
}

// respondError maps a domain error onto the HTTP error taxonomy.
// Unknown errors are logged and answered with a generic 500.
func (h *Handlers) respondError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.err) {
			continue
		}
		body := gin.H{"error": err.Error(), "code": m.code}
		if m.status == http.StatusPaymentRequired {
			body["upgradeUrl"] = UpgradeURL
		}
		c.JSON(m.status, body)
		return
	}

	h.log().Error("Request failed", map[string]interface{}{
		"path":  c.FullPath(),
		"error": err.Error(),
	})
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "code": "INTERNAL"})
}

// badRequest answers malformed input that never reached a service.
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message, "code": "VALIDATION"})
}
