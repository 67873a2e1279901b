package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

var validKinds = map[string]bool{"person": true, "sponsor": true, "match": true}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateDatabase("relational", &c.Relational)...)
	errors = append(errors, c.validateContent()...)
	errors = append(errors, c.validateCache()...)
	errors = append(errors, c.validateImport()...)
	errors = append(errors, c.validateWebhook()...)
	errors = append(errors, c.validateScheduler()...)
	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateDatabase(prefix string, db *DatabaseConfig) ValidationErrors {
	var errors ValidationErrors

	if db.Host == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".host",
			Message: "host is required",
		})
	}

	if db.Port <= 0 || db.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".port",
			Message: "port must be between 1 and 65535",
		})
	}

	if db.User == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".user",
			Message: "user is required",
		})
	}

	if db.Database == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".database",
			Message: "database name is required",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[db.TLS] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	if db.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if db.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateContent() ValidationErrors {
	var errors ValidationErrors

	if !strings.HasPrefix(c.Content.URI, "mongodb://") && !strings.HasPrefix(c.Content.URI, "mongodb+srv://") {
		errors = append(errors, ValidationError{
			Field:   "content.uri",
			Message: "uri must start with mongodb:// or mongodb+srv://",
		})
	}

	if c.Content.Database == "" {
		errors = append(errors, ValidationError{
			Field:   "content.database",
			Message: "database name is required",
		})
	}

	if c.Content.Collection == "" {
		errors = append(errors, ValidationError{
			Field:   "content.collection",
			Message: "collection name is required",
		})
	}

	if c.Content.Timeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "content.timeout",
			Message: "timeout cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateCache() ValidationErrors {
	if c.Cache.TTL <= 0 {
		return ValidationErrors{{Field: "cache.ttl", Message: "ttl must be positive"}}
	}
	return nil
}

func (c *Config) validateImport() ValidationErrors {
	var errors ValidationErrors

	if c.Import.BatchSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "import.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if c.Import.BatchDelay < 0 {
		errors = append(errors, ValidationError{
			Field:   "import.batch_delay",
			Message: "batch_delay cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateWebhook() ValidationErrors {
	var errors ValidationErrors

	if c.Webhook.Listen == "" {
		errors = append(errors, ValidationError{
			Field:   "webhook.listen",
			Message: "listen address is required",
		})
	}

	if !strings.HasPrefix(c.Webhook.Path, "/") {
		errors = append(errors, ValidationError{
			Field:   "webhook.path",
			Message: "path must start with /",
		})
	}

	return errors
}

func (c *Config) validateScheduler() ValidationErrors {
	if !c.Scheduler.Enabled {
		return nil
	}

	var errors ValidationErrors

	if _, err := cron.ParseStandard(c.Scheduler.Spec); err != nil {
		errors = append(errors, ValidationError{
			Field:   "scheduler.spec",
			Message: fmt.Sprintf("invalid schedule: %v", err),
		})
	}

	if len(c.Scheduler.Kinds) == 0 {
		errors = append(errors, ValidationError{
			Field:   "scheduler.kinds",
			Message: "at least one kind must be scheduled",
		})
	}
	for i, kind := range c.Scheduler.Kinds {
		if !validKinds[kind] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("scheduler.kinds[%d]", i),
				Message: "kind must be 'person', 'sponsor', or 'match'",
			})
		}
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
