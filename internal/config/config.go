// Package config provides configuration structures and loading for clubsync.
package config

import "time"

// Config represents the complete application configuration.
type Config struct {
	Relational DatabaseConfig  `yaml:"relational" mapstructure:"relational"`
	Content    ContentConfig   `yaml:"content" mapstructure:"content"`
	Cache      CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Import     ImportConfig    `yaml:"import" mapstructure:"import"`
	Webhook    WebhookConfig   `yaml:"webhook" mapstructure:"webhook"`
	Scheduler  SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler"`
	Logging    LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// DatabaseConfig represents the MySQL connection for the relational store.
type DatabaseConfig struct {
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	TLS                string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// ContentConfig represents the MongoDB document store holding editorial documents.
type ContentConfig struct {
	URI        string        `yaml:"uri" mapstructure:"uri"`
	Database   string        `yaml:"database" mapstructure:"database"`
	Collection string        `yaml:"collection" mapstructure:"collection"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// CacheConfig controls the resolution cache.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// ImportConfig represents batch import settings.
type ImportConfig struct {
	BatchSize    int           `yaml:"batch_size" mapstructure:"batch_size"`
	BatchDelay   time.Duration `yaml:"batch_delay" mapstructure:"batch_delay"`
	IncludeStaff bool          `yaml:"include_staff" mapstructure:"include_staff"`
}

// WebhookConfig represents the inbound change-notification receiver.
type WebhookConfig struct {
	Listen string `yaml:"listen" mapstructure:"listen"`
	Path   string `yaml:"path" mapstructure:"path"`
	Secret string `yaml:"secret" mapstructure:"secret"`
}

// SchedulerConfig represents periodic import runs.
type SchedulerConfig struct {
	Enabled bool     `yaml:"enabled" mapstructure:"enabled"`
	Spec    string   `yaml:"spec" mapstructure:"spec"` // cron expression or @every
	Kinds   []string `yaml:"kinds" mapstructure:"kinds"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format     string `yaml:"format" mapstructure:"format"` // json or text
	Output     string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Relational: DatabaseConfig{
			Port:               3306,
			TLS:                "preferred",
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Content: ContentConfig{
			URI:        "mongodb://localhost:27017",
			Database:   "content",
			Collection: "documents",
			Timeout:    10 * time.Second,
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Import: ImportConfig{
			BatchSize:    5,
			BatchDelay:   500 * time.Millisecond,
			IncludeStaff: true,
		},
		Webhook: WebhookConfig{
			Listen: ":8080",
			Path:   "/webhooks/content",
		},
		Scheduler: SchedulerConfig{
			Enabled: false,
			Spec:    "@every 1h",
			Kinds:   []string{"person", "sponsor"},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}
