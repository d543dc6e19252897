// Command migrate applies the embedded schema migrations and exits.
package main

import (
	"context"
	"log"
	"time"
	"todo_app/internal/platform/config"
	"todo_app/internal/platform/database"
	"todo_app/internal/platform/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Could not load configuration: %v", err)
	}
	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Could not build logger: %v", err)
	}
	defer zl.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DBConnStr)
	if err != nil {
		zl.Fatal("connect", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		zl.Fatal("migrate", zap.Error(err))
	}
	zl.Info("migrations applied")
}
