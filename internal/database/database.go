// Package database manages the MySQL connection behind the relational store.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"github.com/banksodee/clubsync/internal/config"
	"github.com/banksodee/clubsync/internal/logger"
)

const (
	defaultMaxRetries = 3
	connMaxLifetime   = 10 * time.Minute
)

// Manager owns the relational connection pool.
type Manager struct {
	Relational *sql.DB

	config     *config.DatabaseConfig
	logger     *logger.Logger
	maxRetries int
	backoff    time.Duration
}

// NewManager creates a new database manager from configuration.
func NewManager(cfg *config.DatabaseConfig, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{
		config:     cfg,
		logger:     log,
		maxRetries: defaultMaxRetries,
		backoff:    time.Second,
	}
}

// Connect opens the relational pool and verifies it with a ping.
func (m *Manager) Connect(ctx context.Context) error {
	if m.config == nil {
		return fmt.Errorf("relational database is not configured")
	}

	db, err := m.connectWithRetry(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to relational database: %w", err)
	}
	m.Relational = db
	return nil
}

// connectWithRetry attempts to connect with exponential backoff.
func (m *Manager) connectWithRetry(ctx context.Context) (*sql.DB, error) {
	var err error
	backoff := m.backoff

	for i := 0; i < m.maxRetries; i++ {
		var db *sql.DB
		db, err = m.connect()
		if err == nil {
			if err = db.PingContext(ctx); err == nil {
				return db, nil
			}
			db.Close()
		}

		if i < m.maxRetries-1 {
			m.logger.Warnw("Relational connection attempt failed",
				"attempt", i+1,
				"retry_in", backoff,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}

	return nil, fmt.Errorf("failed after %d retries: %w", m.maxRetries, err)
}

func (m *Manager) connect() (*sql.DB, error) {
	db, err := sql.Open("mysql", BuildDSN(m.config))
	if err != nil {
		return nil, err
	}

	if m.config.MaxConnections > 0 {
		db.SetMaxOpenConns(m.config.MaxConnections)
	}
	if m.config.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(m.config.MaxIdleConnections)
	}
	db.SetConnMaxLifetime(connMaxLifetime)

	return db, nil
}

// BuildDSN constructs a MySQL DSN from configuration.
// Format: user:password@tcp(host:port)/database?params
func BuildDSN(cfg *config.DatabaseConfig) string {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	params := "?parseTime=true&charset=utf8mb4"
	switch cfg.TLS {
	case "disable":
		params += "&tls=false"
	case "required":
		params += "&tls=true"
	case "preferred", "":
		params += "&tls=preferred"
	}

	return dsn + params
}

// Close closes the relational pool.
func (m *Manager) Close() error {
	if m.Relational == nil {
		return nil
	}
	if err := m.Relational.Close(); err != nil {
		return fmt.Errorf("relational close: %w", err)
	}
	return nil
}

// Ping verifies the relational pool is alive.
func (m *Manager) Ping(ctx context.Context) error {
	if m.Relational == nil {
		return fmt.Errorf("relational database is not connected")
	}
	if err := m.Relational.PingContext(ctx); err != nil {
		return fmt.Errorf("relational ping failed: %w", err)
	}
	return nil
}
