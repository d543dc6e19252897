package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"todo_app/internal/api"
	"todo_app/internal/app/service"
	"todo_app/internal/common/security"
	"todo_app/internal/domain/repository"
	"todo_app/internal/platform/cache"
	"todo_app/internal/platform/config"
	"todo_app/internal/platform/database"
	"todo_app/internal/platform/logger"

	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Could not load configuration: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Could not build logger: %v", err)
	}
	defer zl.Sync()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx := context.Background()

	// 2. Initialize Database
	db, err := database.Connect(ctx, cfg.DBConnStr)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	zl.Info("database ready", zap.String("host", cfg.DBHost), zap.String("name", cfg.DBName))

	// 3. Login throttle, Redis-backed when configured
	var limiter service.LoginLimiter
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg)
		if err != nil {
			return err
		}
		defer rdb.Close()
		limiter = cache.NewLoginLimiter(rdb, cfg.LoginMaxAttempts, cfg.LoginLockout)
		zl.Info("redis connected", zap.String("addr", cfg.RedisAddr))
	} else {
		limiter = service.NewMemoryLoginLimiter(cfg.LoginMaxAttempts, cfg.LoginLockout)
		zl.Info("REDIS_ADDR not set, using in-process login throttle")
	}

	// 4. Security
	tokens, err := security.NewTokenService(cfg.JWTKey, cfg.JWTExp)
	if err != nil {
		return err
	}
	hasher := security.NewPasswordHasher(cfg.BcryptCost)
	resolver := security.NewIdentityResolver(tokens)

	// 5. Initialize Services
	store := repository.NewPgStore()
	authService := service.NewAuthService(db, store, hasher, tokens, limiter, zl)
	todoService := service.NewTodoService(db, store, zl)
	userService := service.NewUserService(db, store, hasher, zl)

	// 6. Initialize Router & HTTP Server
	router := api.NewRouter(authService, todoService, userService, resolver, zl)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 7. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		zl.Info("server starting", zap.String("port", cfg.APIPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-stop:
	}

	zl.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	zl.Info("server stopped gracefully")
	return nil
}
