package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/changheecho2/banju/internal/api"
	"github.com/changheecho2/banju/internal/auth"
	"github.com/changheecho2/banju/internal/cache"
	"github.com/changheecho2/banju/internal/captcha"
	"github.com/changheecho2/banju/internal/config"
	"github.com/changheecho2/banju/internal/db"
	"github.com/changheecho2/banju/internal/email"
	"github.com/changheecho2/banju/internal/payment"
	"github.com/changheecho2/banju/internal/seed"
	"github.com/changheecho2/banju/internal/services"
	"github.com/changheecho2/banju/internal/storage"
	"github.com/changheecho2/banju/internal/store"
	"github.com/changheecho2/banju/internal/tasks"
)

var (
	runMode  = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'all' (default)")
	devToken = flag.String("dev-token", "", "Print a signed token for the given uid and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *devToken != "" {
		token, err := auth.GenerateJWT(*devToken, *devToken+"@example.com", cfg.JwtSecret, 24*time.Hour)
		if err != nil {
			log.Fatalf("Failed to sign dev token: %v", err)
		}
		fmt.Println(token)
		return
	}

	if err := run(cfg); err != nil {
		log.Fatalf("Fatal: %v", err)
	}
	log.Println("Server gracefully stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, mongoDb, err := db.ConnectDB(ctx, cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Printf("ERROR: disconnecting from MongoDB: %v", err)
		}
	}()
	if err := db.EnsureIndexes(ctx, mongoDb); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	redisClient, err := cache.ConnectRedis(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to Redis: %w", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Printf("ERROR: disconnecting from Redis: %v", err)
		}
	}()

	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()

	requestStore := store.NewRequestStore(mongoDb)
	accompanistStore := store.NewAccompanistStore(mongoDb)
	templateService := services.NewEmailTemplateService(mongoDb)
	notifier := tasks.NewEmailNotifier(cfg, taskClient)

	if cfg.SeedFile != "" {
		if err := applySeed(ctx, cfg.SeedFile, accompanistStore, templateService); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	// Service API always runs; it can request a shutdown.
	shutdownChan := make(chan struct{}, 1)
	serveHTTP(g, gctx, "Service API", &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(redisClient, shutdownChan),
	})

	log.Printf("Starting application in '%s' mode...", cfg.RunMode)
	switch cfg.RunMode {
	case "api":
		startAPI(g, gctx, cfg, redisClient, requestStore, accompanistStore, notifier)
	case "bg":
		startWorker(g, gctx, cfg, redisClient, templateService)
	case "all":
		startAPI(g, gctx, cfg, redisClient, requestStore, accompanistStore, notifier)
		startWorker(g, gctx, cfg, redisClient, templateService)
	default:
		return fmt.Errorf("invalid run mode: %s", cfg.RunMode)
	}

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-shutdownChan:
			log.Println("Shutdown requested via Service API. Shutting down gracefully...")
			stop()
		}
		return nil
	})

	return g.Wait()
}

func applySeed(ctx context.Context, path string, profiles seed.ProfileUpserter, templates seed.TemplateSaver) error {
	f, err := seed.Load(path)
	if err != nil {
		return err
	}
	return seed.Apply(ctx, f, profiles, templates, time.Now().UTC())
}

func startAPI(
	g *errgroup.Group,
	ctx context.Context,
	cfg *config.Config,
	redisClient *redis.Client,
	requestStore store.IRequestStore,
	accompanistStore store.IAccompanistStore,
	notifier services.INotifier,
) {
	lifecycle := services.NewLifecycleService(requestStore, notifier)
	var gateway payment.Gateway
	if cfg.PaymentMode == config.PaymentModeStripe {
		gateway = payment.NewStripeGateway(cfg, lifecycle, nil, payment.NewRedisDeduper(redisClient, cfg.WebhookDedupeTTL))
	} else {
		gateway = payment.NewMockGateway(lifecycle)
	}
	lifecycle.SetGateway(gateway)
	log.Printf("Payment gateway: %s", gateway.Mode())

	var portfolio storage.IS3Storage
	if cfg.AwsS3Bucket != "" {
		s3Storage, err := storage.NewS3Storage(ctx, cfg)
		if err != nil {
			log.Printf("WARN: portfolio uploads disabled: %v", err)
		} else {
			portfolio = s3Storage
		}
	}

	profileCache := cache.NewJSONCache(redisClient, cache.ProfilePrefix, cfg.GetCacheTTL)

	router := api.SetupRouter(ctx, cfg, api.Services{
		Requests:     services.NewRequestService(requestStore, accompanistStore, notifier),
		Lifecycle:    lifecycle,
		Accompanists: services.NewAccompanistService(accompanistStore, profileCache),
		Storage:      portfolio,
		Gateway:      gateway,
		Verifier:     captcha.NewTurnstileVerifier(cfg, nil),
	})
	serveHTTP(g, ctx, "Main API", &http.Server{
		Addr:              ":" + cfg.ApiPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	})
}

func startWorker(g *errgroup.Group, ctx context.Context, cfg *config.Config, redisClient *redis.Client, templates services.IEmailTemplateService) {
	var primary email.Sender
	if cfg.MockServices {
		log.Println("MOCK_SERVICES enabled: Using Redis email sender.")
		primary = email.NewRedisSender(redisClient)
	} else {
		primary = email.NewSMTPSender(cfg)
	}
	sender := email.NewCompositeEmailSender(primary)
	if cfg.LogEmailsPath != "" {
		fileSender, err := email.NewFileEmailSender(cfg.LogEmailsPath)
		if err != nil {
			log.Printf("WARN: file email logger disabled (LOG_EMAILS='%s'): %v", cfg.LogEmailsPath, err)
		} else {
			sender.AddSender(fileSender)
		}
	}

	processor := tasks.NewTaskProcessor(cfg, sender, templates)
	srv := tasks.NewServer(redisClient)
	g.Go(func() error {
		log.Println("Background task server starting...")
		if err := srv.Start(tasks.NewServeMux(processor)); err != nil {
			return fmt.Errorf("background task server: %w", err)
		}
		<-ctx.Done()
		srv.Shutdown()
		log.Println("Background task server stopped.")
		return nil
	})
}

// serveHTTP runs srv until ctx is done, then shuts it down.
func serveHTTP(g *errgroup.Group, ctx context.Context, name string, srv *http.Server) {
	g.Go(func() error {
		log.Printf("%s listening on %s", name, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("ERROR: %s shutdown: %v", name, err)
		}
		log.Printf("%s stopped.", name)
		return nil
	})
}
