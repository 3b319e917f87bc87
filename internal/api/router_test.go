package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/changheecho2/banju/internal/config"
	"github.com/changheecho2/banju/internal/email"
	"github.com/changheecho2/banju/internal/models"
	"github.com/changheecho2/banju/internal/payment"
	"github.com/changheecho2/banju/internal/utils"
)

type stubGateway struct{}

func (stubGateway) Mode() string { return payment.ModeMock }
func (stubGateway) Initiate(context.Context, *models.ServiceRequest) (*payment.Outcome, error) {
	return &payment.Outcome{Mode: payment.ModeMock}, nil
}
func (stubGateway) HandleWebhook(context.Context, []byte, string) (*payment.WebhookResult, error) {
	return &payment.WebhookResult{Received: true, Mode: payment.ModeMock}, nil
}

func testRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	cfg := &config.Config{
		JwtSecret:               "secret",
		CorsAllowedOrigin:       "https://banju.test",
		RateLimitSoftBucketSize: 2,
		RateLimitSoftRefillRate: 1,
		RateLimitHardBucketSize: 8,
		RateLimitHardRefillRate: 4,
	}
	return SetupRouter(ctx, cfg, Services{Gateway: stubGateway{}})
}

func TestSetupRouter_Ping(t *testing.T) {
	r := testRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/v1/ping", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, "https://banju.test", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSetupRouter_Preflight(t *testing.T) {
	r := testRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodOptions, "/v1/api", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-C-V")
}

func TestSetupRouter_WebhookAndMetrics(t *testing.T) {
	r := testRouter(t)

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/v1/webhook/stripe", bytes.NewBufferString(`{}`))
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, "webhook must not be rate limited")
		assert.JSONEq(t, `{"received":true,"mode":"mock"}`, w.Body.String())
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func serviceCall(r *gin.Engine, method string, args interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]interface{}{"method": method, "arguments": args})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestServiceRouter_Shutdown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	shutdown := make(chan struct{}, 1)
	r := SetupServiceRouter(nil, shutdown)

	w := serviceCall(r, "shutdown", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	select {
	case <-shutdown:
	case <-time.After(time.Second):
		t.Fatal("shutdown was not signalled")
	}

	w = serviceCall(r, "getTestEmail", []string{"only-one"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServiceRouter_GetTestEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rdb := utils.SetupTestRedis(t)
	r := SetupServiceRouter(rdb, make(chan struct{}, 1))

	raw := "To: acc@example.com\r\nFrom: noreply@banju.test\r\n" + email.TemplateHeader + ": new_request\r\n\r\nhello\r\n"
	require.NoError(t, email.NewRedisSender(rdb).Send(context.Background(), []string{"acc@example.com"}, "새 요청", []byte(raw)))

	w := serviceCall(r, "getTestEmail", []string{"new_request", "acc@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "새 요청", resp.Data["subject"])

	// Consumed on read.
	w = serviceCall(r, "getTestEmail", []string{"new_request", "acc@example.com"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
