package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/banksodee/clubsync/internal/config"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *config.DatabaseConfig
		expected string
	}{
		{
			name: "Preferred TLS",
			cfg: &config.DatabaseConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "club",
				Password: "secret",
				Database: "club",
				TLS:      "preferred",
			},
			expected: "club:secret@tcp(localhost:3306)/club?parseTime=true&charset=utf8mb4&tls=preferred",
		},
		{
			name: "Empty password",
			cfg: &config.DatabaseConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "root",
				Database: "testdb",
				TLS:      "disable",
			},
			expected: "root:@tcp(localhost:3306)/testdb?parseTime=true&charset=utf8mb4&tls=false",
		},
		{
			name: "Non-standard port",
			cfg: &config.DatabaseConfig{
				Host:     "db.internal",
				Port:     33060,
				User:     "admin",
				Password: "admin123",
				Database: "club",
				TLS:      "required",
			},
			expected: "admin:admin123@tcp(db.internal:33060)/club?parseTime=true&charset=utf8mb4&tls=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := BuildDSN(tt.cfg)
			if result != tt.expected {
				t.Errorf("BuildDSN() = %q, expected %q", result, tt.expected)
			}
		})
	}
}

func TestBuildDSN_ParsesWithDriver(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:     "localhost",
		Port:     3307,
		User:     "club",
		Password: "p@ss!w0rd",
		Database: "club",
		TLS:      "disable",
	}

	parsed, err := mysql.ParseDSN(BuildDSN(cfg))
	if err != nil {
		t.Fatalf("ParseDSN() error = %v", err)
	}
	if parsed.User != "club" || parsed.Passwd != "p@ss!w0rd" {
		t.Errorf("credentials = %q/%q", parsed.User, parsed.Passwd)
	}
	if parsed.Addr != "localhost:3307" {
		t.Errorf("Addr = %q, expected localhost:3307", parsed.Addr)
	}
	if parsed.DBName != "club" {
		t.Errorf("DBName = %q, expected club", parsed.DBName)
	}
	if !parsed.ParseTime {
		t.Error("ParseTime should be enabled")
	}
}

func TestBuildDSN_TLSVariants(t *testing.T) {
	tests := []struct {
		tlsValue    string
		expectedTLS string
	}{
		{tlsValue: "preferred", expectedTLS: "tls=preferred"},
		{tlsValue: "disable", expectedTLS: "tls=false"},
		{tlsValue: "required", expectedTLS: "tls=true"},
		{tlsValue: "", expectedTLS: "tls=preferred"},
	}

	for _, tt := range tests {
		t.Run("tls_"+tt.tlsValue, func(t *testing.T) {
			cfg := &config.DatabaseConfig{Host: "localhost", Port: 3306, User: "root", Database: "club", TLS: tt.tlsValue}
			result := BuildDSN(cfg)
			if !strings.HasSuffix(result, tt.expectedTLS) {
				t.Errorf("BuildDSN() = %q, should end with %q", result, tt.expectedTLS)
			}
		})
	}
}

func TestNewManager(t *testing.T) {
	cfg := &config.DatabaseConfig{Host: "localhost", Port: 3306, User: "root", Database: "club"}

	manager := NewManager(cfg, nil)
	if manager == nil {
		t.Fatal("NewManager() returned nil")
	}
	if manager.config != cfg {
		t.Error("manager.config should point to provided config")
	}
	if manager.Relational != nil {
		t.Error("Relational should be nil before Connect()")
	}
	if manager.logger == nil {
		t.Error("logger should default to a no-op logger")
	}
	if manager.maxRetries != defaultMaxRetries {
		t.Errorf("maxRetries = %d, expected %d", manager.maxRetries, defaultMaxRetries)
	}
}

func TestManagerCloseWithoutConnect(t *testing.T) {
	manager := NewManager(&config.DatabaseConfig{Host: "localhost"}, nil)

	if err := manager.Close(); err != nil {
		t.Errorf("Close() returned error for unconnected manager: %v", err)
	}
}

func TestManagerPingWithoutConnect(t *testing.T) {
	manager := NewManager(&config.DatabaseConfig{Host: "localhost"}, nil)

	if err := manager.Ping(context.Background()); err == nil {
		t.Error("Ping() should fail before Connect()")
	}
}

func TestManagerConnect_NilConfig(t *testing.T) {
	manager := NewManager(nil, nil)

	err := manager.Connect(context.Background())
	if err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Errorf("Connect() error = %v, expected not configured", err)
	}
}

func TestManagerConnect_CancelledContext(t *testing.T) {
	cfg := &config.DatabaseConfig{Host: "127.0.0.1", Port: 1, User: "root", Database: "club", TLS: "disable"}
	manager := NewManager(cfg, nil)
	manager.backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := manager.Connect(ctx)
	if err == nil {
		t.Fatal("Connect() should fail with cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Connect() error = %v, expected context.Canceled", err)
	}
	if manager.Relational != nil {
		t.Error("Relational should stay nil after a failed Connect()")
	}
}

func TestManagerConnect_ExhaustsRetries(t *testing.T) {
	cfg := &config.DatabaseConfig{Host: "127.0.0.1", Port: 1, User: "root", Database: "club", TLS: "disable"}
	manager := NewManager(cfg, nil)
	manager.maxRetries = 2
	manager.backoff = time.Millisecond

	err := manager.Connect(context.Background())
	if err == nil {
		t.Fatal("Connect() should fail against a closed port")
	}
	if !strings.Contains(err.Error(), "failed after 2 retries") {
		t.Errorf("Connect() error = %v, expected retry count", err)
	}
}

func TestManagerPingAndClose(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}

	manager := NewManager(&config.DatabaseConfig{}, nil)
	manager.Relational = db

	mock.ExpectPing()
	mock.ExpectClose()

	if err := manager.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if err := manager.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestManagerPing_Error(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	manager := NewManager(&config.DatabaseConfig{}, nil)
	manager.Relational = db

	mock.ExpectPing().WillReturnError(errors.New("gone away"))

	err = manager.Ping(context.Background())
	if err == nil || !strings.Contains(err.Error(), "relational ping failed") {
		t.Errorf("Ping() error = %v, expected relational ping failed", err)
	}
}
