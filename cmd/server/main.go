package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/NickCamacho15/bbb-truck-sales-sub000/auth"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/config"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/db"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/metrics"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/server"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/storage"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
	migrationsDir   = flag.String("migrations", "migrations", "Directory of SQL migrations")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()
	configureLogging(cfg.App)

	conn, err := db.Open(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	if *migrateOnlyFlag {
		if err := runMigrations(cfg.Database, conn); err != nil {
			log.WithError(err).Fatal("Migration failed")
		}
		log.Info("Migrations completed successfully")
		return
	}

	if *seedOnlyFlag {
		if err := db.Seed(context.Background(), conn, adminSeed(cfg.Auth)); err != nil {
			log.WithError(err).Fatal("Seeding failed")
		}
		log.Info("Seeding completed successfully")
		return
	}

	if cfg.App.Migrations || cfg.Database.Driver == "sqlite" {
		if err := runMigrations(cfg.Database, conn); err != nil {
			log.WithError(err).Fatal("Migration failed")
		}
		log.Info("Migrations completed")
	}
	if err := db.Seed(context.Background(), conn, adminSeed(cfg.Auth)); err != nil {
		log.WithError(err).Fatal("Seeding failed")
	}

	store, err := storage.NewLocalStore(cfg.Storage.UploadDir, cfg.Storage.BaseURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to prepare upload storage")
	}

	handler := server.New(server.Deps{
		DB:       conn,
		Config:   cfg,
		Auth:     auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Store:    store,
		Registry: metrics.NewRegistry(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.WithFields(log.Fields{"port": cfg.Server.Port, "dev": cfg.App.Dev}).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Error during shutdown")
	}
	if sqlDB, err := conn.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("Server stopped gracefully")
}

// runMigrations applies the SQL migrations on postgres and GORM auto-migrations elsewhere.
func runMigrations(cfg config.DatabaseConfig, conn *gorm.DB) error {
	if cfg.Driver == "sqlite" {
		return db.Migrate(conn)
	}
	return db.MigrateSQL(cfg.MigrateURL(), *migrationsDir)
}

func adminSeed(cfg config.AuthConfig) db.AdminSeed {
	return db.AdminSeed{Username: cfg.AdminUsername, Email: cfg.AdminEmail, Password: cfg.AdminPassword}
}

func configureLogging(cfg config.AppConfig) {
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)
}
