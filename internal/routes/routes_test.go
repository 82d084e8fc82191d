package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/01moynul/ai-humanizer/internal/handlers"
	"github.com/01moynul/ai-humanizer/internal/logger/loggertest"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestSetupRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := SetupRouter(&handlers.Handlers{Log: loggertest.New(t)}, []string{"http://localhost:5173"}, loggertest.New(t))

	cases := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/v1/ping", http.StatusOK},
		{http.MethodGet, "/v1/pricing", http.StatusOK},
		{http.MethodGet, "/v1/humanize/options", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/v1/me", http.StatusUnauthorized},
		{http.MethodPost, "/v1/humanize", http.StatusUnauthorized},
		{http.MethodGet, "/v1/humanize/abc", http.StatusUnauthorized},
		{http.MethodPost, "/v1/admin/users/1/credits", http.StatusUnauthorized},
		{http.MethodGet, "/v1/nope", http.StatusNotFound},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.status, w.Code, "%s %s", tc.method, tc.path)
	}

	req := httptest.NewRequest(http.MethodOptions, "/v1/humanize", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
