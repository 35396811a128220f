package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"msgboard/internal/config"
)

const pingTimeout = 5 * time.Second

// Init opens the connection pool for the configured driver and verifies it with a ping.
func Init(cfg config.Config, logger *zap.Logger) (*sql.DB, error) {
	if _, err := DialectFor(cfg.DBDriver); err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("driver", cfg.DBDriver),
		zap.Int("max_open_conns", cfg.DBMaxOpenConns),
	)
	return db, nil
}

// EnsureSchema creates the messages table if it does not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB, d Dialect) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		%s VARCHAR(36) NOT NULL PRIMARY KEY,
		%s TEXT NOT NULL,
		%s TEXT NOT NULL
	)`, TableMessages, ColID, ColMessage, d.Quote(ColUser))
	if d.Driver == config.DriverMySQL {
		stmt += " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci"
	}

	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create %s table: %w", TableMessages, err)
	}
	return nil
}

// Table and column names of the message table.
const (
	TableMessages = "messages"
	ColID         = "id"
	ColMessage    = "message"
	ColUser       = "user"
)
