package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"metavendas/internal/cache"
	"metavendas/internal/config"
	"metavendas/internal/httpapi"
	"metavendas/internal/photo"
	"metavendas/internal/report"
	"metavendas/internal/sales"
	"metavendas/internal/store"
	pgstore "metavendas/internal/store/postgres"
	"metavendas/internal/store/sheet"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with sheet fallback", err)
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Println("repository: postgres")
	} else {
		sheetStore, err := sheet.Open(cfg.SheetDir)
		if err != nil {
			log.Fatalf("sheet store unavailable at %s: %v", cfg.SheetDir, err)
		}
		repo = sheetStore
		log.Printf("repository: sheet (%s)", cfg.SheetDir)
	}

	cacheStore := cache.ReportCache(cache.NoopReportCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisReportCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
		} else {
			cacheStore = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("cache: redis")
		}
	} else {
		log.Println("cache: noop")
	}

	reports := report.NewBuilder(cacheStore, time.Duration(cfg.ReportTTLSeconds)*time.Second)
	svc := sales.New(repo, reports, cfg.SellerKey)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)

	var photos photo.Uploader
	if cfg.PhotoEndpoint != "" {
		uploader, err := photo.NewMinioUploader(photo.Config{
			Endpoint:  cfg.PhotoEndpoint,
			AccessKey: cfg.PhotoAccessKey,
			SecretKey: cfg.PhotoSecretKey,
			Bucket:    cfg.PhotoBucket,
			BaseURL:   cfg.PhotoBaseURL,
			UseSSL:    cfg.PhotoUseSSL,
		})
		if err != nil {
			log.Printf("photo host unavailable (%v), profile photos disabled", err)
		} else if err := uploader.EnsureBucket(ctx); err != nil {
			log.Printf("photo bucket check failed (%v), profile photos disabled", err)
		} else {
			photos = uploader
			log.Println("photos: minio")
		}
	} else {
		log.Println("photos: disabled")
	}

	api := httpapi.New(svc, auth, photos, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("sales backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}
