package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/changheecho2/banju/internal/api/handlers"
	"github.com/changheecho2/banju/internal/api/middleware"
	"github.com/changheecho2/banju/internal/captcha"
	"github.com/changheecho2/banju/internal/config"
	"github.com/changheecho2/banju/internal/email"
	"github.com/changheecho2/banju/internal/payment"
	"github.com/changheecho2/banju/internal/services"
	"github.com/changheecho2/banju/internal/storage"
)

// Services are the dependencies the public API dispatches to.
type Services struct {
	Requests     services.IRequestService
	Lifecycle    services.ILifecycleService
	Accompanists services.IAccompanistService
	Storage      storage.IS3Storage // optional
	Gateway      payment.Gateway
	Verifier     captcha.ITurnstileVerifier
}

// SetupRouter configures and returns the main Gin engine. ctx bounds the
// lifetime of background middleware state.
func SetupRouter(ctx context.Context, cfg *config.Config, svc Services) *gin.Engine {
	r := gin.Default()

	// Provider callbacks and scrapes bypass browser-facing middleware.
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	webhookHandler := handlers.NewWebhookHandler(svc.Gateway)
	r.POST("/v1/webhook/stripe", webhookHandler.HandleStripe)

	readLimits := middleware.Limits{
		SoftRate:  cfg.RateLimitSoftRefillRate * 4,
		SoftBurst: cfg.RateLimitSoftBucketSize * 4,
		HardRate:  cfg.RateLimitHardRefillRate * 2,
		HardBurst: cfg.RateLimitHardBucketSize * 2,
	}
	rateLimiter := middleware.NewRateLimiterMiddleware(ctx, cfg, map[string]middleware.Limits{
		"/v1/accompanist":      readLimits,
		"/v1/accompanist/:uid": readLimits,
	})

	jsonApiHandler := handlers.NewJsonApiHandler(svc.Requests, svc.Lifecycle, svc.Accompanists, svc.Storage)
	restAccompanistHandler := handlers.NewRestAccompanistHandler(svc.Accompanists)

	v1 := r.Group("/v1")
	v1.Use(middleware.CORSMiddleware(cfg.CorsAllowedOrigin))
	v1.Use(middleware.CaptchaMiddleware(cfg, svc.Verifier))
	v1.Use(rateLimiter.Limit())
	v1.Use(middleware.IdentityMiddleware(cfg.JwtSecret))
	{
		v1.POST("/api", jsonApiHandler.HandleRequest)
		v1.GET("/accompanist", restAccompanistHandler.ListAccompanists)
		v1.GET("/accompanist/:uid", restAccompanistHandler.GetAccompanist)

		// Preflight requests are answered by CORSMiddleware.
		for _, path := range []string{"/api", "/accompanist", "/accompanist/:uid"} {
			v1.OPTIONS(path, func(c *gin.Context) {})
		}

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})
	}

	return r
}

// SetupServiceRouter configures and returns the service Gin engine.
// getTestEmail reads messages captured by email.RedisSender.
func SetupServiceRouter(rdb redis.UniversalClient, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			log.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "data": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				log.Println("Shutdown channel already signaled or blocked.")
			}
		case "getTestEmail":
			var args []string // [templateID, email]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [templateId, email]"})
				return
			}
			redisKey := email.MockEmailKey(args[1], args[0])

			emailData, err := pollTestEmail(c.Request.Context(), rdb, redisKey)
			switch {
			case errors.Is(err, redis.Nil):
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found in Redis for key %s", redisKey)})
			case err != nil:
				log.Printf("ERROR: Service API: reading %s: %v", redisKey, err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
			default:
				c.JSON(http.StatusOK, gin.H{"success": true, "data": emailData})
			}

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}

// pollTestEmail waits up to about two seconds for key to appear, then
// consumes it. It returns redis.Nil when the key never shows up.
func pollTestEmail(ctx context.Context, rdb redis.UniversalClient, key string) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	for i := 0; i < 10; i++ {
		raw, err := rdb.GetDel(ctx, key).Result()
		if err == nil {
			var data map[string]interface{}
			if err := json.Unmarshal([]byte(raw), &data); err != nil {
				return nil, fmt.Errorf("parse stored email: %w", err)
			}
			return data, nil
		}
		if !errors.Is(err, redis.Nil) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	return nil, redis.Nil
}
