// Package main provides the resource catalogue server entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang/glog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/madgeek-arc/resource-catalogue/pkg/api"
	"github.com/madgeek-arc/resource-catalogue/pkg/auth"
	"github.com/madgeek-arc/resource-catalogue/pkg/cache"
	"github.com/madgeek-arc/resource-catalogue/pkg/catalogue"
	"github.com/madgeek-arc/resource-catalogue/pkg/migration"
	"github.com/madgeek-arc/resource-catalogue/pkg/notify"
)

func main() {
	var (
		listenAddr    string
		databaseType  string
		databaseDSN   string
		homeCatalogue string
		corsOrigins   string
	)

	flag.StringVar(&listenAddr, "listen", ":8080", "Address to listen on")
	flag.StringVar(&databaseType, "db-type", "sqlite", "Database type (sqlite, postgres, or mysql)")
	flag.StringVar(&databaseDSN, "db-dsn", "", "Database connection string")
	flag.StringVar(&homeCatalogue, "home-catalogue", "", "Id of the installation's own catalogue")
	flag.StringVar(&corsOrigins, "cors-origins", "", "Comma-separated list of allowed CORS origins")
	flag.Parse()

	// Initialize glog for backwards compatibility
	_ = flag.Set("logtostderr", "true")

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if homeCatalogue == "" {
		homeCatalogue = envOrDefault("REGISTRY_HOME_CATALOGUE", "main")
	}

	logger.Info("starting resource catalogue server",
		"listen", listenAddr,
		"dbType", databaseType,
		"homeCatalogue", homeCatalogue,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	gormDB, err := setupDatabase(databaseType, databaseDSN)
	if err != nil {
		glog.Fatalf("Failed to connect to database: %v", err)
	}

	cacheCfg := cache.DefaultConfig()
	readCache := cache.NewManager(cacheCfg)

	outbox := notify.NewOutboxStore(gormDB)
	if err := outbox.AutoMigrate(); err != nil {
		glog.Fatalf("Failed to migrate notification outbox: %v", err)
	}

	reg, err := catalogue.New(catalogue.Options{
		DB:            gormDB,
		HomeCatalogue: homeCatalogue,
		Cache:         readCache,
		Outbox:        outbox,
		Logger:        logger,
	})
	if err != nil {
		glog.Fatalf("Failed to assemble catalogue registry: %v", err)
	}

	// Notification delivery pool. Without a configured mailer or event
	// publisher it drains the outbox by dropping dispatches.
	notifyCfg := notify.ConfigFromEnv()
	pool := notify.NewWorkerPool(outbox, nil, nil, notifyCfg, logger)
	if notifyCfg.Enabled {
		go pool.Run(ctx)
		logger.Info("notification worker pool started", "concurrency", notifyCfg.Concurrency)
	}

	var authMW func(http.Handler) http.Handler
	switch mode := os.Getenv("REGISTRY_AUTH_MODE"); mode {
	case "jwt":
		mw, err := auth.Middleware(auth.Config{
			PublicKeyPath: os.Getenv("REGISTRY_JWT_PUBLIC_KEY_PATH"),
			Issuer:        os.Getenv("REGISTRY_JWT_ISSUER"),
			Audience:      os.Getenv("REGISTRY_JWT_AUDIENCE"),
			RolesClaim:    envOrDefault("REGISTRY_JWT_ROLES_CLAIM", "realm_access.roles"),
			Logger:        logger,
		})
		if err != nil {
			glog.Fatalf("Failed to set up JWT auth: %v", err)
		}
		authMW = mw
		logger.Info("using JWT auth")
	case "header", "":
		mw, err := auth.Middleware(auth.Config{Logger: logger})
		if err != nil {
			glog.Fatalf("Failed to set up auth: %v", err)
		}
		authMW = mw
		if mode == "" {
			logger.Info("using default header-based auth (X-User-Email)")
		}
	default:
		glog.Fatalf("Unknown auth mode: %q (expected jwt, header, or empty)", mode)
	}

	migrator := migration.New(reg, outbox, logger)
	router := api.NewRouter(api.Options{
		Registry:       reg,
		Migrator:       migrator,
		Auth:           authMW,
		AllowedOrigins: splitOrigins(corsOrigins),
	})

	logger.Info("resource catalogue server ready", "listen", listenAddr)

	httpServer := &http.Server{
		Addr:    listenAddr,
		Handler: router,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

func setupDatabase(dbType, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = os.Getenv("DATABASE_DSN")
	}
	if dbType == "" {
		dbType = envOrDefault("DATABASE_TYPE", "sqlite")
	}

	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}
	switch dbType {
	case "sqlite":
		if dsn == "" {
			dsn = "registry.db"
		}
		return gorm.Open(sqlite.Open(dsn), cfg)
	case "postgres":
		if dsn == "" {
			return nil, fmt.Errorf("database DSN is required (use -db-dsn flag or DATABASE_DSN environment variable)")
		}
		return gorm.Open(postgres.Open(dsn), cfg)
	case "mysql":
		if dsn == "" {
			return nil, fmt.Errorf("database DSN is required (use -db-dsn flag or DATABASE_DSN environment variable)")
		}
		return gorm.Open(mysql.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("unsupported database type: %q", dbType)
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
