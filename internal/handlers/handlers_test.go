package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/01moynul/ai-humanizer/internal/auth"
	"github.com/01moynul/ai-humanizer/internal/billing"
	"github.com/01moynul/ai-humanizer/internal/credits"
	"github.com/01moynul/ai-humanizer/internal/detect"
	"github.com/01moynul/ai-humanizer/internal/humanize"
	"github.com/01moynul/ai-humanizer/internal/logger/loggertest"
	"github.com/01moynul/ai-humanizer/internal/middleware"
	"github.com/01moynul/ai-humanizer/internal/models"
	"github.com/01moynul/ai-humanizer/internal/notifications"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- fakes ---

type fakeAuth struct {
	users map[string]*models.User
}

func (a *fakeAuth) CurrentUser(_ context.Context, token string) (*models.User, error) {
	u, ok := a.users[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return u, nil
}

func (a *fakeAuth) SignIn(_ context.Context, email, password string) (*auth.Session, error) {
	for token, u := range a.users {
		if u.Email == email && password == "secret1" {
			return &auth.Session{Token: token, ExpiresAt: time.Now().Add(time.Hour), User: u}, nil
		}
	}
	return nil, auth.ErrInvalidCredentials
}

func (a *fakeAuth) SignUp(_ context.Context, email, password string) (*models.User, error) {
	if err := auth.ValidateSignUp(email, password); err != nil {
		return nil, err
	}
	for _, u := range a.users {
		if u.Email == email {
			return nil, auth.ErrEmailTaken
		}
	}
	u := &models.User{ID: int64(len(a.users) + 100), Email: email, Role: models.RoleUser, Status: models.StatusActive}
	a.users["token-"+email] = u
	return u, nil
}

func (a *fakeAuth) SignOut(context.Context, string) error { return nil }

func (a *fakeAuth) UserByID(_ context.Context, id int64) (*models.User, error) {
	for _, u := range a.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

type fakeLedger struct {
	mu       sync.Mutex
	balances map[int64]int64
	history  []models.CreditTransaction
	err      error
}

func (l *fakeLedger) Balance(_ context.Context, userID int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return 0, l.err
	}
	return l.balances[userID], nil
}

func (l *fakeLedger) History(context.Context, int64, int) ([]models.CreditTransaction, error) {
	return l.history, l.err
}

func (l *fakeLedger) Grant(_ context.Context, userID, amount int64, _, _ string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] += amount
	return l.balances[userID], nil
}

type fakeJobs struct {
	startErr error
	jobs     map[string]humanize.Job
}

func (j *fakeJobs) Start(_ context.Context, userID int64, req humanize.Request) (humanize.Job, error) {
	if j.startErr != nil {
		return humanize.Job{}, j.startErr
	}
	job := humanize.Job{ID: "job-1", UserID: userID, Status: humanize.StatusSubmitting, Readability: req.Readability}
	j.jobs[job.ID] = job
	return job, nil
}

func (j *fakeJobs) Get(id string, userID int64) (humanize.Job, error) {
	job, ok := j.jobs[id]
	if !ok || job.UserID != userID {
		return humanize.Job{}, humanize.ErrJobNotFound
	}
	return job, nil
}

func (j *fakeJobs) Active(int64) (humanize.Job, bool) { return humanize.Job{}, false }

func (j *fakeJobs) Cancel(_ context.Context, id string, userID int64) (humanize.Job, error) {
	job, err := j.Get(id, userID)
	if err != nil {
		return job, err
	}
	if job.Status.Terminal() {
		return humanize.Job{}, humanize.ErrJobFinished
	}
	job.Status = humanize.StatusFailed
	job.ErrorCode = humanize.CodeCancelled
	return job, nil
}

type fakeDetector struct {
	err error
}

func (d *fakeDetector) Detect(context.Context, string) (*detect.Result, error) {
	if d.err != nil {
		return nil, d.err
	}
	return &detect.Result{Score: 87.5}, nil
}

type fakeWebhook struct {
	err error
}

func (w *fakeWebhook) Handle(_ context.Context, payload []byte, signature string) (string, error) {
	if w.err != nil {
		return "checkout.session.completed", w.err
	}
	if signature == "" {
		return "", fmt.Errorf("%w: no header", billing.ErrInvalidSignature)
	}
	return "checkout.session.completed", nil
}

type fakeCheckout struct {
	last billing.CheckoutRequest
}

func (f *fakeCheckout) CreateCheckout(_ context.Context, req billing.CheckoutRequest) (*billing.Checkout, error) {
	f.last = req
	if req.PlanID == "for-business" {
		return nil, billing.ErrCustomPlan
	}
	return &billing.Checkout{SessionID: "cs_1", URL: "https://checkout.example.com/cs_1", PlanID: req.PlanID}, nil
}

type fakeNotifications struct {
	list []models.Notification
}

func (n *fakeNotifications) List(context.Context, int64) ([]models.Notification, error) {
	return n.list, nil
}

func (n *fakeNotifications) MarkRead(_ context.Context, id, _ int64) error {
	if id != 1 {
		return notifications.ErrNotFound
	}
	return nil
}

type fakeSubscriptions struct{}

func (fakeSubscriptions) ForUser(_ context.Context, userID int64) (*models.Subscription, error) {
	if userID != 7 {
		return nil, billing.ErrNoSubscription
	}
	return &models.Subscription{UserID: 7, PlanType: "monthly", Words: 15000, Status: "active",
		CurrentPeriodEnd: sql.NullTime{Time: time.Date(2026, 11, 19, 0, 0, 0, 0, time.UTC), Valid: true}}, nil
}

// --- harness ---

type env struct {
	h        *Handlers
	router   *gin.Engine
	ledger   *fakeLedger
	jobs     *fakeJobs
	checkout *fakeCheckout
}

func newEnv(t *testing.T) *env {
	t.Helper()
	fa := &fakeAuth{users: map[string]*models.User{
		"user-token":  {ID: 7, Email: "user@example.com", Role: models.RoleUser, Status: models.StatusActive},
		"admin-token": {ID: 1, Email: "admin@example.com", Role: models.RoleAdmin, Status: models.StatusActive},
	}}
	e := &env{
		ledger:   &fakeLedger{balances: map[int64]int64{7: 1000}},
		jobs:     &fakeJobs{jobs: map[string]humanize.Job{}},
		checkout: &fakeCheckout{},
	}
	e.h = &Handlers{
		Auth:          fa,
		Users:         fa,
		Credits:       e.ledger,
		Jobs:          e.jobs,
		Detector:      &fakeDetector{},
		Checkout:      e.checkout,
		Webhook:       &fakeWebhook{},
		Notifications: &fakeNotifications{},
		Subscriptions: fakeSubscriptions{},
		Log:           loggertest.New(t),
		ContactEmail:  "sales@example.com",
	}

	r := gin.New()
	r.POST("/v1/auth/signup", e.h.SignUp)
	r.POST("/v1/auth/signin", e.h.SignIn)
	r.GET("/v1/pricing", e.h.GetPricing)
	r.GET("/v1/pricing/quote", e.h.GetPriceQuote)
	r.POST("/v1/billing/webhook", e.h.StripeWebhook)
	a := r.Group("/v1", middleware.AuthMiddleware(fa, nil))
	a.POST("/auth/signout", e.h.SignOut)
	a.GET("/me", e.h.GetMe)
	a.GET("/credits", e.h.GetCredits)
	a.POST("/humanize", e.h.StartHumanize)
	a.GET("/humanize/:id", e.h.GetHumanizeJob)
	a.DELETE("/humanize/:id", e.h.CancelHumanizeJob)
	a.POST("/detect", e.h.DetectAI)
	a.POST("/billing/checkout", e.h.CreateCheckout)
	a.GET("/notifications", e.h.GetMyNotifications)
	a.PATCH("/notifications/:id/read", e.h.MarkNotificationAsRead)
	a.POST("/admin/users/:id/credits", middleware.AdminMiddleware(), e.h.AdminGrantCredits)
	e.router = r
	return e
}

func (e *env) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// --- tests ---

func TestSignUpAndSignIn(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/v1/auth/signup", "", gin.H{"email": "new@example.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotNil(t, decode(t, w)["session"])

	w = e.do(http.MethodPost, "/v1/auth/signup", "", gin.H{"email": "user@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "EMAIL_TAKEN", decode(t, w)["code"])

	w = e.do(http.MethodPost, "/v1/auth/signup", "", gin.H{"email": "not-an-email", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_EMAIL", decode(t, w)["code"])

	w = e.do(http.MethodPost, "/v1/auth/signin", "", gin.H{"email": "user@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decode(t, w)["code"])

	w = e.do(http.MethodPost, "/v1/auth/signin", "", gin.H{"email": "user@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMe(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/v1/me", "user-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1000), body["balance"])
	sub := body["subscription"].(map[string]interface{})
	assert.Equal(t, "monthly", sub["planType"])
	assert.NotContains(t, w.Body.String(), "passwordHash")

	w = e.do(http.MethodGet, "/v1/me", "admin-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, decode(t, w), "subscription")

	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/v1/me", "", nil).Code)
}

func TestGetCredits(t *testing.T) {
	e := newEnv(t)
	e.ledger.history = []models.CreditTransaction{
		{ID: 2, UserID: 7, Type: models.CreditTxConsume, Amount: -7, BalanceAfter: 1000,
			Notes: sql.NullString{String: "humanize", Valid: true}},
	}

	w := e.do(http.MethodGet, "/v1/credits", "user-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1000), body["balance"])
	txs := body["transactions"].([]interface{})
	require.Len(t, txs, 1)
	assert.Equal(t, "humanize", txs[0].(map[string]interface{})["notes"])

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/v1/credits?limit=0", "user-token", nil).Code)

	e.ledger.err = errors.New("connection refused")
	w = e.do(http.MethodGet, "/v1/credits", "user-token", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL", decode(t, w)["code"])
}

func TestStartHumanize(t *testing.T) {
	e := newEnv(t)
	text := strings.Repeat("word ", 20)

	w := e.do(http.MethodPost, "/v1/humanize", "user-token", gin.H{"text": text, "readability": "University"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, "/v1/humanize/job-1", w.Header().Get("Location"))
	job := decode(t, w)["job"].(map[string]interface{})
	assert.Equal(t, "job-1", job["id"])
	assert.Equal(t, "University", job["readability"])

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/v1/humanize", "user-token", gin.H{}).Code)
}

func TestStartHumanize_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"too short", fmt.Errorf("%w: 10 characters", humanize.ErrTextTooShort), http.StatusBadRequest, "TEXT_TOO_SHORT"},
		{"bad readability", humanize.ErrInvalidReadability, http.StatusBadRequest, "INVALID_READABILITY"},
		{"no credits", credits.ErrInsufficientCredits, http.StatusPaymentRequired, "INSUFFICIENT_CREDITS"},
		{"busy", humanize.ErrJobActive, http.StatusConflict, "JOB_ACTIVE"},
		{"quota", fmt.Errorf("%w: %w", humanize.ErrSubmitFailed, humanize.ErrUpstreamQuota), http.StatusBadGateway, "UPSTREAM_QUOTA"},
		{"submit", fmt.Errorf("%w: boom", humanize.ErrSubmitFailed), http.StatusBadGateway, "SUBMIT_FAILED"},
		{"credit store", fmt.Errorf("%w: deadlock", credits.ErrUpdateFailed), http.StatusServiceUnavailable, "CREDIT_UPDATE_FAILED"},
		{"unknown", errors.New("something odd"), http.StatusInternalServerError, "INTERNAL"},
		{"shutdown", humanize.ErrShuttingDown, http.StatusServiceUnavailable, "UNAVAILABLE"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			e.jobs.startErr = tc.err

			w := e.do(http.MethodPost, "/v1/humanize", "user-token", gin.H{"text": "some text"})
			assert.Equal(t, tc.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, tc.code, body["code"])
			assert.NotEmpty(t, body["error"])
			if tc.status == http.StatusPaymentRequired {
				assert.Equal(t, UpgradeURL, body["upgradeUrl"])
			} else {
				assert.NotContains(t, body, "upgradeUrl")
			}
		})
	}
}

func TestHumanizeJobLookup(t *testing.T) {
	e := newEnv(t)
	e.jobs.jobs["job-7"] = humanize.Job{ID: "job-7", UserID: 7, Status: humanize.StatusPolling}
	e.jobs.jobs["job-done"] = humanize.Job{ID: "job-done", UserID: 7, Status: humanize.StatusCompleted, Output: "done"}

	w := e.do(http.MethodGet, "/v1/humanize/job-7", "user-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "polling", decode(t, w)["job"].(map[string]interface{})["status"])

	// someone else's job looks missing
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/v1/humanize/job-7", "admin-token", nil).Code)

	w = e.do(http.MethodDelete, "/v1/humanize/job-7", "user-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, humanize.CodeCancelled, decode(t, w)["job"].(map[string]interface{})["errorCode"])

	assert.Equal(t, http.StatusConflict, e.do(http.MethodDelete, "/v1/humanize/job-done", "user-token", nil).Code)
}

func TestDetectAI(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/v1/detect", "user-token", gin.H{"text": strings.Repeat("a", 60)})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 87.5, decode(t, w)["score"])
	assert.Equal(t, int64(1000), e.ledger.balances[7])

	e.h.Detector = &fakeDetector{err: fmt.Errorf("%w: status 500", detect.ErrUpstream)}
	w = e.do(http.MethodPost, "/v1/detect", "user-token", gin.H{"text": strings.Repeat("a", 60)})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "UPSTREAM_ERROR", decode(t, w)["code"])
}

func TestPricing(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/v1/pricing", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	plans := decode(t, w)["plans"].([]interface{})
	require.Len(t, plans, 3)
	assert.Equal(t, "mailto:sales@example.com", plans[2].(map[string]interface{})["contactUrl"])

	w = e.do(http.MethodGet, "/v1/pricing/quote?cycle=monthly&words=15000", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 14.53, decode(t, w)["price"])

	w = e.do(http.MethodGet, "/v1/pricing/quote?cycle=yearly&price=149.99", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(380000), decode(t, w)["words"])

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/v1/pricing/quote?cycle=yearly&price=500", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/v1/pricing/quote?cycle=weekly&words=15000", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/v1/pricing/quote?words=5", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/v1/pricing/quote", "", nil).Code)
}

func TestCreateCheckout(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/v1/billing/checkout", "user-token", gin.H{"planId": "monthly", "words": 20000})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://checkout.example.com/cs_1", decode(t, w)["checkout"].(map[string]interface{})["url"])
	assert.Equal(t, int64(7), e.checkout.last.UserID)
	assert.Equal(t, "user@example.com", e.checkout.last.Email)
	assert.Equal(t, 20000, e.checkout.last.Words)

	w = e.do(http.MethodPost, "/v1/billing/checkout", "user-token", gin.H{"planId": "for-business"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "CUSTOM_PLAN", decode(t, w)["code"])
}

func TestStripeWebhook(t *testing.T) {
	e := newEnv(t)
	post := func(signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/billing/webhook", strings.NewReader(`{"id":"evt_1"}`))
		if signature != "" {
			req.Header.Set("Stripe-Signature", signature)
		}
		w := httptest.NewRecorder()
		e.router.ServeHTTP(w, req)
		return w
	}

	w := post("t=1,v1=abc")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["received"])

	w = post("")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_SIGNATURE", decode(t, w)["code"])

	e.h.Webhook = &fakeWebhook{err: errors.New("db down")}
	assert.Equal(t, http.StatusInternalServerError, post("t=1,v1=abc").Code)
}

func TestNotifications(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/v1/notifications", "user-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"notifications": []}`, w.Body.String())

	assert.Equal(t, http.StatusOK, e.do(http.MethodPatch, "/v1/notifications/1/read", "user-token", nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPatch, "/v1/notifications/2/read", "user-token", nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPatch, "/v1/notifications/abc/read", "user-token", nil).Code)
}

func TestAdminGrantCredits(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/v1/admin/users/7/credits", "admin-token", gin.H{"amount": 500})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1500), decode(t, w)["balance"])

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/v1/admin/users/7/credits", "user-token", gin.H{"amount": 500}).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/v1/admin/users/7/credits", "admin-token", gin.H{"amount": -5}).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPost, "/v1/admin/users/999/credits", "admin-token", gin.H{"amount": 5}).Code)
}
