// Package lock serializes exports of the same user's dashboards.
// FileLocker keeps one yaml lock file per user; NoOpLocker is used when
// locking is disabled in the configuration.
package lock

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	exerrors "github.com/randalmurphal/dashexport/internal/errors"
)

// FileExtension is appended to the user name to form the lock file name.
const FileExtension = ".lock"

// DefaultTTL bounds how long a lock counts as held.
const DefaultTTL = 10 * time.Minute

// Lock is the content of a lock file.
type Lock struct {
	Owner    string    `yaml:"owner"` // user@machine
	PID      int       `yaml:"pid"`
	RunID    string    `yaml:"run_id"`
	Acquired time.Time `yaml:"acquired"`
	TTL      string    `yaml:"ttl"`
}

// TTLDuration parses the TTL string, falling back to DefaultTTL.
func (l *Lock) TTLDuration() time.Duration {
	d, err := time.ParseDuration(l.TTL)
	if err != nil || d <= 0 {
		return DefaultTTL
	}
	return d
}

// IsStale reports whether the holder is gone or the lock outlived its TTL.
func (l *Lock) IsStale(now time.Time) bool {
	if now.Sub(l.Acquired) > l.TTLDuration() {
		return true
	}
	return !processExists(l.PID)
}

// Locker defines the interface for per-user export locking.
type Locker interface {
	// Acquire takes the lock for user or returns an error matching
	// errors.ErrExportLocked when a live export holds it.
	Acquire(user string) error

	// Release drops the lock for user if this locker holds it.
	Release(user string) error
}

// NoOpLocker always succeeds.
type NoOpLocker struct{}

// Acquire always succeeds for NoOpLocker.
func (NoOpLocker) Acquire(string) error { return nil }

// Release always succeeds for NoOpLocker.
func (NoOpLocker) Release(string) error { return nil }

// FileLocker implements Locker with lock files in a shared directory.
type FileLocker struct {
	dir   string
	owner string
	runID string
	ttl   time.Duration
	now   func() time.Time
	mu    sync.Mutex
}

// NewFileLocker creates a FileLocker storing locks in dir.
func NewFileLocker(dir string, ttl time.Duration) *FileLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &FileLocker{
		dir:   dir,
		owner: DefaultOwner(),
		runID: uuid.NewString(),
		ttl:   ttl,
		now:   time.Now,
	}
}

// RunID identifies the locks written by this locker.
func (l *FileLocker) RunID() string {
	return l.runID
}

// Path returns the lock file for user.
func (l *FileLocker) Path(user string) string {
	return filepath.Join(l.dir, user+FileExtension)
}

// Acquire creates the lock file for user. A stale lock is taken over.
func (l *FileLocker) Acquire(user string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}

	lock := &Lock{
		Owner:    l.owner,
		PID:      os.Getpid(),
		RunID:    l.runID,
		Acquired: l.now().UTC(),
		TTL:      l.ttl.String(),
	}
	data, err := yaml.Marshal(lock)
	if err != nil {
		return fmt.Errorf("marshal lock: %w", err)
	}

	// One takeover attempt; a second collision means someone else won the race.
	for attempt := 0; attempt < 2; attempt++ {
		err := l.create(user, data)
		if err == nil {
			return nil
		}
		if !errors.Is(err, os.ErrExist) {
			return err
		}

		existing, err := l.read(user)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			// Unreadable lock content cannot name a live holder.
			existing = &Lock{}
		}
		if existing.RunID != l.runID && !existing.IsStale(l.now()) {
			return exerrors.ErrLocked(user, existing.Owner, existing.PID)
		}
		if err := os.Remove(l.Path(user)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove stale lock: %w", err)
		}
	}

	existing, err := l.read(user)
	if err != nil {
		return fmt.Errorf("read lock: %w", err)
	}
	return exerrors.ErrLocked(user, existing.Owner, existing.PID)
}

// Release removes the lock file for user when it carries this locker's run ID.
func (l *FileLocker) Release(user string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.read(user)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read lock: %w", err)
	}
	if existing.RunID != l.runID {
		return nil
	}

	if err := os.Remove(l.Path(user)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}

// Holder returns the current lock for user, or nil when there is none.
func (l *FileLocker) Holder(user string) (*Lock, error) {
	lock, err := l.read(user)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return lock, err
}

func (l *FileLocker) create(user string, data []byte) error {
	f, err := os.OpenFile(l.Path(user), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(l.Path(user))
		return fmt.Errorf("write lock file: %w", err)
	}
	return f.Close()
}

func (l *FileLocker) read(user string) (*Lock, error) {
	data, err := os.ReadFile(l.Path(user))
	if err != nil {
		return nil, err
	}
	var lock Lock
	if err := yaml.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("parse lock file: %w", err)
	}
	return &lock, nil
}

// DefaultOwner returns user@hostname for the current process.
func DefaultOwner() string {
	name := "unknown"
	if u, err := user.Current(); err == nil {
		name = u.Username
	}
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return name + "@" + host
}

// processExists checks if a process with the given PID exists.
func processExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// On Unix, FindProcess always succeeds. Signal 0 probes for existence.
	err = process.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
