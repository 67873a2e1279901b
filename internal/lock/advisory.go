// Package lock provides MySQL advisory locks that keep two import runs of the
// same kind from overlapping, across processes and hosts.
package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrLockTimeout is returned when another holder keeps the lock past the timeout.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Timeouts for GET_LOCK, in seconds.
const (
	TimeoutImmediate = 0
	TimeoutShort     = 1
	TimeoutInfinite  = -1
)

const importLockPrefix = "clubsync:import:"

// AdvisoryLock is a named MySQL lock taken with GET_LOCK. MySQL releases it
// when RELEASE_LOCK runs or the session ends.
//
// GET_LOCK is per session, so the lock pins one connection from the pool for
// as long as it is held.
type AdvisoryLock struct {
	db       *sql.DB
	conn     *sql.Conn
	lockName string
}

// NewAdvisoryLock creates a lock; nothing is acquired yet.
func NewAdvisoryLock(db *sql.DB, lockName string) *AdvisoryLock {
	return &AdvisoryLock{db: db, lockName: lockName}
}

// NewImportLock creates the lock guarding import runs of one kind.
func NewImportLock(db *sql.DB, kind string) *AdvisoryLock {
	return NewAdvisoryLock(db, ImportLockName(kind))
}

// ImportLockName returns "clubsync:import:<kind>" with anything outside
// [A-Za-z0-9_-] replaced by an underscore.
func ImportLockName(kind string) string {
	sanitized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, kind)
	return importLockPrefix + sanitized
}

// LockName returns the lock's name.
func (a *AdvisoryLock) LockName() string { return a.lockName }

// IsHeld reports whether this instance holds the lock.
func (a *AdvisoryLock) IsHeld() bool { return a.conn != nil }

// AcquireLock waits up to timeoutSeconds for the lock. It returns false
// without error when the timeout expires.
//
// GET_LOCK returns 1 on success, 0 on timeout and NULL on error.
func (a *AdvisoryLock) AcquireLock(ctx context.Context, timeoutSeconds int) (bool, error) {
	if a.db == nil {
		return false, fmt.Errorf("database connection is nil")
	}
	if a.conn != nil {
		return true, nil
	}

	conn, err := a.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to reserve connection for lock %q: %w", a.lockName, err)
	}

	var result sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", a.lockName, timeoutSeconds).Scan(&result); err != nil {
		_ = conn.Close()
		return false, fmt.Errorf("failed to execute GET_LOCK: %w", err)
	}
	if !result.Valid {
		_ = conn.Close()
		return false, fmt.Errorf("GET_LOCK returned NULL for lock %q", a.lockName)
	}

	switch result.Int64 {
	case 1:
		a.conn = conn
		return true, nil
	case 0:
		_ = conn.Close()
		return false, nil
	default:
		_ = conn.Close()
		return false, fmt.Errorf("unexpected GET_LOCK return value: %d", result.Int64)
	}
}

// TryAcquire takes the lock only if it is free right now.
func (a *AdvisoryLock) TryAcquire(ctx context.Context) (bool, error) {
	return a.AcquireLock(ctx, TimeoutImmediate)
}

// AcquireOrFail takes the lock or returns ErrLockTimeout after TimeoutShort.
func (a *AdvisoryLock) AcquireOrFail(ctx context.Context) error {
	acquired, err := a.AcquireLock(ctx, TimeoutShort)
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("%w: lock %q is held by another instance", ErrLockTimeout, a.lockName)
	}
	return nil
}

// ReleaseLock releases the lock and returns its connection to the pool.
// It returns false when the lock was not held.
//
// RELEASE_LOCK returns 1 when released, 0 when held by another session and
// NULL when the lock does not exist.
func (a *AdvisoryLock) ReleaseLock(ctx context.Context) (bool, error) {
	if a.conn == nil {
		return false, nil
	}
	conn := a.conn
	a.conn = nil
	defer func() { _ = conn.Close() }()

	var result sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT RELEASE_LOCK(?)", a.lockName).Scan(&result); err != nil {
		return false, fmt.Errorf("failed to execute RELEASE_LOCK: %w", err)
	}
	if !result.Valid {
		return false, fmt.Errorf("RELEASE_LOCK returned NULL for lock %q (lock did not exist)", a.lockName)
	}
	return result.Int64 == 1, nil
}

// WithLock runs fn while holding the lock and releases it afterwards, even
// when fn panics.
func (a *AdvisoryLock) WithLock(ctx context.Context, timeoutSeconds int, fn func() error) (err error) {
	acquired, err := a.AcquireLock(ctx, timeoutSeconds)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("%w: lock %q is held by another instance", ErrLockTimeout, a.lockName)
	}

	defer func() {
		// The caller's context may be done by now.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, releaseErr := a.ReleaseLock(releaseCtx); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()

	return fn()
}

// WithImportLock runs fn while holding the import lock for kind. It fails
// fast with ErrLockTimeout when another run of the kind is in progress.
func WithImportLock(ctx context.Context, db *sql.DB, kind string, fn func() error) error {
	return NewImportLock(db, kind).WithLock(ctx, TimeoutShort, fn)
}

// IsImportRunning reports whether another session holds the import lock for kind.
// The answer may be stale as soon as it is returned.
func IsImportRunning(ctx context.Context, db *sql.DB, kind string) (bool, error) {
	l := NewImportLock(db, kind)
	acquired, err := l.TryAcquire(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check import %q: %w", kind, err)
	}
	if acquired {
		_, _ = l.ReleaseLock(ctx)
		return false, nil
	}
	return true, nil
}
