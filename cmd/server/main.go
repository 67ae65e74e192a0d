package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"yatube.dev/yatube/config"
	"yatube.dev/yatube/database"
	"yatube.dev/yatube/handlers"
	"yatube.dev/yatube/repository"
	"yatube.dev/yatube/routes"
	"yatube.dev/yatube/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	log.Printf("Starting yatube: %s", cfg)

	if cfg.OTELEndpoint != "" {
		shutdown, err := initTracing(ctx, cfg.OTELEndpoint, cfg.OTELServiceName)
		if err != nil {
			log.Fatalf("Tracing init failed: %v", err)
		}
		defer shutdown(context.Background())
	}

	var health []func(context.Context) error

	var store repository.Store
	switch cfg.Store {
	case "sqlite":
		db, err := database.ConnectSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			log.Fatal("DB connection failed: ", err)
		}
		defer db.Close()
		store = repository.NewSQLStore(db)
		health = append(health, db.PingContext)
	default:
		db, err := database.ConnectDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("DB connection failed: ", err)
		}
		defer db.Close()
		if cfg.AutoMigrate {
			if err := database.Migrate(ctx, db); err != nil {
				log.Fatal("DB migration failed: ", err)
			}
		}
		store = repository.NewSQLStore(db)
		health = append(health, db.PingContext)
	}

	var cache services.PageCache = services.NewMemoryPageCache()
	if cfg.RedisAddr != "" {
		rc := services.NewRedisPageCache(cfg.RedisAddr)
		if err := rc.Ping(ctx); err != nil {
			log.Fatalf("[Cache] redis %s unreachable: %v", cfg.RedisAddr, err)
		}
		defer rc.Close()
		cache = rc
		health = append(health, rc.Ping)
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go services.ClearOnSignal(ctx, cache, services.IndexCachePrefix, hup)

	var images services.ImageStorage = services.NewDiskStorage(cfg.MediaRoot)
	if cfg.S3Endpoint != "" {
		s3, err := services.NewS3Storage(services.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			Bucket:    cfg.S3Bucket,
		})
		if err != nil {
			log.Fatalf("[Media] minio client: %v", err)
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			log.Fatalf("[Media] bucket %s: %v", cfg.S3Bucket, err)
		}
		images = s3
	}

	events := services.NoopPublisher()
	if len(cfg.KafkaBrokers) > 0 {
		events = services.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	defer events.Close()

	notifier := services.NoopNotifier()
	if cfg.FirebaseCredentialsPath != "" {
		fcm, err := services.NewFCMNotifier(ctx, cfg.FirebaseCredentialsPath, store)
		if err != nil {
			log.Printf("[FCM] init failed, push notifications disabled: %v", err)
		} else {
			notifier = fcm
		}
	}

	views, err := handlers.NewRenderer()
	if err != nil {
		log.Fatalf("Templates failed to load: %v", err)
	}

	csrfKey := sha256.Sum256([]byte("csrf:" + cfg.SecretKey))
	env := &handlers.Env{
		Blog: services.NewBlog(services.BlogDeps{
			Store:    store,
			Images:   images,
			Notifier: notifier,
			Events:   events,
			PageSize: cfg.PostsPerPage,
		}),
		Auth:          services.NewAuth(store, cfg.SecretKey, cfg.SessionTTL),
		Cache:         cache,
		Images:        images,
		Views:         views,
		IndexCacheTTL: cfg.IndexCacheTTL,
		SessionTTL:    cfg.SessionTTL,
		SecureCookies: cfg.SecureCookies,
		CSRFKey:       csrfKey[:],
		Health: func(ctx context.Context) error {
			for _, check := range health {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	}

	router := routes.NewRouter(env)
	srv := &http.Server{
		Addr:              cfg.AppPort,
		Handler:           otelhttp.NewHandler(handlers.LogRequests(router), "yatube"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("Server is running on port %s", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
