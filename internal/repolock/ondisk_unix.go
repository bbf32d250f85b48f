//go:build !windows

package repolock

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/hashicorp/go-hclog"

	"github.com/autoschematic-sh/autoschematic/internal/taxonomy"
)

// OndiskLocker takes per-path POSIX advisory (fcntl) locks on files
// beneath root, one lock file per locked path, mirroring
// opentofu/opentofu's internal/flock but keyed rather than singular:
// this module locks many independent prefixes within one repo
// checkout, not one whole-process lock file.
type OndiskLocker struct {
	root   string
	logger hclog.Logger
}

var _ Locker = (*OndiskLocker)(nil)

// NewOndisk returns a Locker that stores its lock files beneath root.
// root must already exist. A nil logger is replaced with
// hclog.NewNullLogger().
func NewOndisk(root string, logger hclog.Logger) *OndiskLocker {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &OndiskLocker{root: root, logger: logger}
}

func (l *OndiskLocker) lockFilePath(path string) string {
	return filepath.Join(l.root, ".locks", path+".lock")
}

// TryLock attempts a non-blocking exclusive fcntl lock on path's lock
// file, creating the lock file and any missing parent directories
// first. It returns a taxonomy.IO error if the lock is already held by
// another process.
func (l *OndiskLocker) TryLock(ctx context.Context, path string) (Lock, error) {
	lockPath := l.lockFilePath(path)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, taxonomy.Wrap(taxonomy.IO, err, "creating lock directory for %s", path)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, taxonomy.Wrap(taxonomy.IO, err, "opening lock file for %s", path)
	}

	flock := &syscall.Flock_t{
		Type:   syscall.F_WRLCK,
		Whence: int16(io.SeekStart),
		Start:  0,
		Len:    0,
	}
	if err := syscall.FcntlFlock(f.Fd(), syscall.F_SETLK, flock); err != nil {
		f.Close()
		l.logger.Debug("lock contended", "path", path)
		return nil, errContended(path)
	}

	l.logger.Debug("lock acquired", "path", path)
	return &ondiskLock{logger: l.logger, file: f, path: path}, nil
}

type ondiskLock struct {
	once   sync.Once
	logger hclog.Logger
	file   *os.File
	path   string
	err    error
}

func (l *ondiskLock) Unlock() error {
	l.once.Do(func() {
		flock := &syscall.Flock_t{
			Type:   syscall.F_UNLCK,
			Whence: int16(io.SeekStart),
			Start:  0,
			Len:    0,
		}
		if err := syscall.FcntlFlock(l.file.Fd(), syscall.F_SETLK, flock); err != nil {
			l.err = taxonomy.Wrap(taxonomy.IO, err, "unlocking %s", l.path)
		}
		l.file.Close()
		l.logger.Debug("lock released", "path", l.path)
	})
	return l.err
}
