package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/yourorg/tenantplane/internal/domain"
	"github.com/yourorg/tenantplane/internal/reliability/retry"
)

// Config holds database configuration
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN renders the lib/pq connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// ConnectionPool manages the control-plane database connections
type ConnectionPool struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewConnectionPool opens and verifies a pooled connection to the
// control-plane store.
func NewConnectionPool(ctx context.Context, config *Config, logger *slog.Logger) (*ConnectionPool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(25)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(5)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	ctxTest, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctxTest); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connected successfully",
		slog.String("host", config.Host),
		slog.String("database", config.Database),
	)

	return &ConnectionPool{db: db, logger: logger}, nil
}

// GetDB returns the underlying sql.DB connection
func (cp *ConnectionPool) GetDB() *sql.DB {
	return cp.db
}

// Close closes the database connection
func (cp *ConnectionPool) Close() error {
	if cp.db != nil {
		return cp.db.Close()
	}
	return nil
}

// Health checks the database health
func (cp *ConnectionPool) Health(ctx context.Context) error {
	ctxTest, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return cp.db.PingContext(ctxTest)
}

// OpenServerConnection opens a connection to the engine's maintenance
// database for CREATE DATABASE statements. Engine-level DDL cannot run
// inside a transaction; database/sql executes each statement in autocommit
// mode unless a transaction is started, and this connection is never used
// to start one.
func OpenServerConnection(ctx context.Context, config *Config, logger *slog.Logger) (*sql.DB, error) {
	serverCfg := *config
	serverCfg.Database = "postgres"

	db, err := sql.Open("postgres", serverCfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open server connection: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)

	ctxTest, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctxTest); err != nil {
		return nil, fmt.Errorf("failed to ping database server: %w", err)
	}

	logger.Info("database server connection established",
		slog.String("host", serverCfg.Host),
	)
	return db, nil
}

// TenantConnector opens connections to individual tenant databases using
// their stored descriptors.
type TenantConnector struct {
	sslMode string
	retry   *retry.Config
	logger  *slog.Logger
}

// NewTenantConnector creates a connector. A freshly created database can
// briefly refuse connections, so dials are retried with backoff.
func NewTenantConnector(sslMode string, logger *slog.Logger) *TenantConnector {
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantConnector{
		sslMode: sslMode,
		retry:   retry.DefaultConfig(),
		logger:  logger,
	}
}

// Connect opens and pings a pool against the descriptor's database. The
// caller owns the returned handle and must close it.
func (c *TenantConnector) Connect(ctx context.Context, desc domain.ConnectionDescriptor) (*sql.DB, error) {
	cfg := &Config{
		Host:     desc.Host,
		Port:     desc.Port,
		User:     desc.User,
		Password: desc.Password,
		Database: desc.Database,
		SSLMode:  c.sslMode,
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open tenant database %q: %w", desc.Database, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(1)

	err = retry.Do(ctx, c.retry, c.logger, "dial tenant database", func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach tenant database %q: %w", desc.Database, err)
	}

	return db, nil
}
