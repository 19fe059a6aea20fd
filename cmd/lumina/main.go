package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"lumina/internal/app"
	"lumina/internal/config"
	"lumina/internal/ratelimit"
	"lumina/internal/server"
	"lumina/internal/storage"
	"lumina/internal/util"
)

const rateWindow = time.Minute

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	var files storage.FileStore
	uploadDir := cfg.UploadDir
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	switch cfg.StorageBackend {
	case "minio":
		files, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("failed to init minio storage: %v", err)
		}
		// The object store serves its own URLs.
		uploadDir = ""
	default:
		files, err = storage.NewDiskStore(uploadDir)
		if err != nil {
			log.Fatalf("failed to init disk storage: %v", err)
		}
	}

	appCore, err := app.New(app.Config{
		DatabaseURL: cfg.DatabaseURL,
		JWTSecret:   cfg.JWTSecret,
		SessionTTL:  sessionTTL,
		Files:       files,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	newLimiter := func(name string, limit, fallback int) *ratelimit.FixedWindowLimiter {
		if limit <= 0 {
			limit = fallback
		}
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "lumina:ratelimit:"+name, limit, rateWindow)
		if err != nil {
			log.Fatalf("failed to init %s rate limiter: %v", name, err)
		}
		return limiter
	}
	registerLimiter := newLimiter("register", cfg.RegisterRateLimitPerMinute, 5)
	loginLimiter := newLimiter("login", cfg.LoginRateLimitPerMinute, 10)

	trustedProxies, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	httpServer := server.New(server.Config{
		App:             appCore,
		RegisterLimiter: registerLimiter,
		LoginLimiter:    loginLimiter,
		UploadDir:       uploadDir,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		CORSOrigins:     cfg.CORSOrigins,
		TrustedProxies:  trustedProxies,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("lumina server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
