package archive

import (
	"sync"

	"github.com/bgrewell/nufx-kit/pkg/nufxerr"
)

// busyGuard implements the single-writer reentry lock spec.md §5 and §9
// describe: any top-level entry point must set it on entry and clear it
// on every return path, including panics unwound via defer.
type busyGuard struct {
	mu   sync.Mutex
	busy bool
}

// enter sets the busy flag and returns a release func for `defer`. It
// fails with KindBusy if the archive is already mid-operation, which is
// how reentrant calls from within a callback are rejected.
func (b *busyGuard) enter() (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.busy {
		return nil, nufxerr.New(nufxerr.KindBusy, "archive is busy")
	}
	b.busy = true
	return func() {
		b.mu.Lock()
		b.busy = false
		b.mu.Unlock()
	}, nil
}

// isBusy reports the busy flag under the mutex without entering the
// guard; it has no callers (GetExtraData and SetExtraData skip the guard
// entirely).
func (b *busyGuard) isBusy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.busy
}
