package store

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/kahefi/ontoenv/errs"
)

// Lock is the advisory cross-process lock backing store.lock, per spec §4.7
// "Lock discipline": exclusive for writers, shared for readers. Acquisition
// is a non-blocking try first, then bounded-backoff retries, failing with
// errs.ErrBusy once the timeout elapses.
type Lock struct {
	f *os.File
}

// OpenLock opens (creating if necessary) the zero-byte lock file at path.
func OpenLock(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	return &Lock{f: f}, nil
}

// AcquireExclusive takes the writer lock, retrying with bounded backoff until timeout.
func (l *Lock) AcquireExclusive(timeout time.Duration) error {
	return l.acquire(unix.LOCK_EX, timeout)
}

// AcquireShared takes a reader lock, retrying with bounded backoff until timeout.
func (l *Lock) AcquireShared(timeout time.Duration) error {
	return l.acquire(unix.LOCK_SH, timeout)
}

func (l *Lock) acquire(how int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	backoff := 10 * time.Millisecond
	for {
		err := unix.Flock(int(l.f.Fd()), how|unix.LOCK_NB)
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: could not acquire lock on %s within %s", errs.ErrBusy, l.f.Name(), timeout)
		}
		time.Sleep(backoff)
		if backoff < 500*time.Millisecond {
			backoff *= 2
		}
	}
}

// Release drops the lock.
func (l *Lock) Release() error {
	return unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
}

// Close releases the lock and closes the underlying file descriptor.
func (l *Lock) Close() error {
	_ = l.Release()
	return l.f.Close()
}
