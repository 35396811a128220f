package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"msgboard/internal/cache"
	"msgboard/internal/config"
	"msgboard/internal/database"
	"msgboard/internal/handler"
	"msgboard/internal/observability"
	"msgboard/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  .env file not found, using environment only: %v", err)
	}

	// 環境変数を読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("❌ Failed to build logger: %v", err)
	}

	os.Exit(exitCode(logger, run(cfg, logger)))
}

// exitCode flushes logger before the process exits, so the final error entry
// is not lost to os.Exit skipping deferred calls.
func exitCode(logger *zap.Logger, err error) int {
	code := 0
	if err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		code = 1
	}
	_ = logger.Sync()
	return code
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// データベース接続を初期化
	db, err := database.Init(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer db.Close()

	dialect, err := database.DialectFor(cfg.DBDriver)
	if err != nil {
		return err
	}
	if cfg.DBAutoMigrate {
		if err := database.EnsureSchema(ctx, db, dialect); err != nil {
			return err
		}
	}

	var messages store.MessageStore = store.NewSQLStore(db, dialect, logger)
	if cfg.CacheEnabled() {
		rdb, err := cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("initialize cache: %w", err)
		}
		defer rdb.Close()
		messages = cache.New(messages, rdb, cfg.CacheTTL, logger)
		logger.Info("redis cache enabled", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.CacheTTL))
	}

	// ハンドラー初期化
	h := handler.New(messages, cfg, logger)

	// WebSocket ブロードキャスターを開始
	go h.HandleBroadcast()

	router := h.SetupRouter()
	router.HandleFunc("/health/ready", observability.HealthReadyHandler(db)).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           h.HTTPHandler(router),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	fmt.Println("========================================")
	fmt.Println("  Message Board API Server")
	fmt.Println("========================================")
	fmt.Printf("  Environment: %s\n", cfg.Env)
	fmt.Printf("  Server: http://localhost:%s/api/\n", cfg.ServerPort)
	fmt.Printf("  WebSocket: ws://localhost:%s/api/ws\n", cfg.ServerPort)
	if cfg.DBDriver == config.DriverSQLite {
		fmt.Printf("  Database: sqlite3 %s\n", cfg.DBPath)
	} else {
		fmt.Printf("  Database: %s %s@%s:%s/%s\n", cfg.DBDriver, cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName)
	}
	fmt.Printf("  Allowed Origins: %v\n", cfg.AllowedOrigins)
	fmt.Println("========================================")

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	close(h.Broadcast)

	logger.Info("shutdown complete")
	return nil
}
