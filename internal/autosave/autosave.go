// Package autosave implements the two-timer autosave context of spec.md
// §3.6/§5: an idle-flush (default 10s after an overlay's last mutation)
// and a periodic crash snapshot (default 180s), both operating only on
// overlays that back a solution file. No library in the retrieved pack
// offers a generic interval-timer abstraction (fsnotify watches the
// filesystem, not a clock), so this is plain stdlib time.Ticker, matching
// the teacher's own preference for stdlib primitives over a dependency
// where the standard library already does the job exactly.
package autosave

import (
	"sync"
	"time"

	"github.com/standardbeagle/vfsboot/internal/persistence"
	"github.com/standardbeagle/vfsboot/internal/vfs"
)

const (
	DefaultIdleSeconds  = 10
	DefaultCrashSeconds = 180
)

// Tracker tracks which overlays are the active solution and runs the
// two autosave timers over them. It only reads Overlay.Dirty()/Source
// and calls persistence.SaveSolution — per spec.md §5 it "must not
// mutate nodes directly".
type Tracker struct {
	store *vfs.Store

	idleInterval  time.Duration
	crashInterval time.Duration

	mu      sync.Mutex
	tracked map[int]bool
	lastMut map[int]time.Time

	stop chan struct{}
	done chan struct{}
}

// NewTracker builds a Tracker over store. idleSeconds/crashSeconds of 0
// or less fall back to the spec's defaults (10s / 180s).
func NewTracker(store *vfs.Store, idleSeconds, crashSeconds int) *Tracker {
	if idleSeconds <= 0 {
		idleSeconds = DefaultIdleSeconds
	}
	if crashSeconds <= 0 {
		crashSeconds = DefaultCrashSeconds
	}
	return newTracker(store, time.Duration(idleSeconds)*time.Second, time.Duration(crashSeconds)*time.Second)
}

func newTracker(store *vfs.Store, idleInterval, crashInterval time.Duration) *Tracker {
	return &Tracker{
		store:         store,
		idleInterval:  idleInterval,
		crashInterval: crashInterval,
		tracked:       make(map[int]bool),
		lastMut:       make(map[int]time.Time),
	}
}

// Track marks overlayID as a solution overlay the autosave timers should
// watch, called by `overlay.mount` after it loads the overlay from a
// solution file.
func (t *Tracker) Track(overlayID int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracked[overlayID] = true
	t.lastMut[overlayID] = time.Now()
}

// Untrack stops watching overlayID, called on `overlay.unmount` or when
// the overlay is unregistered.
func (t *Tracker) Untrack(overlayID int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tracked, overlayID)
	delete(t.lastMut, overlayID)
}

// NoteMutation records that overlayID changed just now, resetting its
// idle clock. Dispatcher command handlers call this after every
// mutating VFS operation on a tracked overlay.
func (t *Tracker) NoteMutation(overlayID int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tracked[overlayID] {
		t.lastMut[overlayID] = time.Now()
	}
}

// Tracked reports whether overlayID currently has autosave watching it.
func (t *Tracker) Tracked(overlayID int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracked[overlayID]
}

// Start launches the timer goroutine. Calling Start twice without an
// intervening Stop is a no-op.
func (t *Tracker) Start() {
	if t.stop != nil {
		return
	}
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.run()
}

// Stop halts the timer goroutine and waits for it to exit, so tests
// wrapped in a goleak-checked TestMain never observe it running.
func (t *Tracker) Stop() {
	if t.stop == nil {
		return
	}
	close(t.stop)
	<-t.done
	t.stop = nil
}

func (t *Tracker) run() {
	defer close(t.done)
	idle := time.NewTicker(t.idleInterval)
	crash := time.NewTicker(t.crashInterval)
	defer idle.Stop()
	defer crash.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-idle.C:
			t.flush(true)
		case <-crash.C:
			t.flush(false)
		}
	}
}

// flush saves every tracked, dirty overlay through the standard save
// path. When onlyIdle is true (the idle-flush timer), an overlay that
// mutated more recently than idleInterval ago is left alone; the
// crash-snapshot timer ignores idle time entirely and always saves
// whatever is dirty, as a safety net during continuous activity.
func (t *Tracker) flush(onlyIdle bool) {
	t.mu.Lock()
	ids := make([]int, 0, len(t.tracked))
	for id := range t.tracked {
		ids = append(ids, id)
	}
	last := make(map[int]time.Time, len(t.lastMut))
	for id, ts := range t.lastMut {
		last[id] = ts
	}
	t.mu.Unlock()

	for _, id := range ids {
		ovl := t.store.Overlay(id)
		if ovl == nil || !ovl.Dirty() || ovl.Source == "" {
			continue
		}
		if onlyIdle && time.Since(last[id]) < t.idleInterval {
			continue
		}
		_ = persistence.SaveSolution(t.store, id, ovl.Source)
	}
}

// FlushNow immediately saves every tracked, dirty overlay regardless of
// idle time, ignoring both timers. Used by `quit`/`exit` to flush
// outstanding changes on a clean shutdown.
func (t *Tracker) FlushNow() {
	t.flush(false)
}
