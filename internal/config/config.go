package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/kelseyhightower/envconfig"
)

// Supported values of DB_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite3"
)

// Config holds application configuration
type Config struct {
	// データベース接続設定
	DBDriver   string `envconfig:"DB_DRIVER" default:"postgres"`
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"dev"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"messages"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBPath     string `envconfig:"DB_PATH" default:"messages.db"`

	// コネクションプール設定
	DBMaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	DBMaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	DBConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	DBAutoMigrate     bool          `envconfig:"DB_AUTO_MIGRATE" default:"false"`

	// サーバー設定
	ServerPort string `envconfig:"SERVER_PORT" default:"8090"`
	Env        string `envconfig:"ENV" default:"development"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`

	// CORS設定
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`

	// Redis キャッシュ設定 (REDIS_ADDR が空なら無効)
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"10m"`
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}

	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	for i := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(cfg.AllowedOrigins[i])
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBMaxOpenConns <= 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be positive, got %d", c.DBMaxOpenConns)
	}
	if c.DBMaxIdleConns < 0 {
		return fmt.Errorf("DB_MAX_IDLE_CONNS must not be negative, got %d", c.DBMaxIdleConns)
	}
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT must be set")
	}
	return nil
}

// DSN renders the connection string for the configured driver.
func (c Config) DSN() string {
	switch c.DBDriver {
	case DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = c.DBUser
		mc.Passwd = c.DBPassword
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.DBHost, c.DBPort)
		mc.DBName = c.DBName
		mc.ParseTime = true
		return mc.FormatDSN()
	case DriverSQLite:
		return c.DBPath + "?_busy_timeout=5000"
	default:
		// 空や空白を含む値でも壊れないよう全てクォートする
		pairs := []string{
			"host=" + pqQuote(c.DBHost),
			"port=" + pqQuote(c.DBPort),
			"user=" + pqQuote(c.DBUser),
			"password=" + pqQuote(c.DBPassword),
			"dbname=" + pqQuote(c.DBName),
			"sslmode=" + pqQuote(c.DBSSLMode),
		}
		return strings.Join(pairs, " ")
	}
}

var pqEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func pqQuote(v string) string {
	return "'" + pqEscaper.Replace(v) + "'"
}

// AllowsAnyOrigin reports whether ALLOWED_ORIGINS contains the wildcard.
func (c Config) AllowsAnyOrigin() bool {
	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// CacheEnabled reports whether a Redis address was configured.
func (c Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}
