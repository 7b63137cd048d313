// Package watcher delivers filesystem change notifications through a
// single poll based interface, no matter which notification mechanism
// the build target provides.
//
// Exactly one backend is compiled per target:
//
//	linux    inotify, read straight off the descriptor
//	darwin   FSEvents, bridged from its delivery queue
//	windows  ReadDirectoryChangesW with overlapped reads
//	other    fsnotify
//
// A Watcher must only be polled from one goroutine at a time, and
// Close must not race with Poll. Close releases the native capture
// resource and must be called exactly once.
package watcher

import (
	"errors"
	"time"

	"github.com/anthonyquizon/fswatch/pkg/model"
)

// ErrRootRegistered is returned by Add on backends whose native
// mechanism drives a single capture stream per handle.
var ErrRootRegistered = errors.New("a root is already registered on this handle")

// pollInterval is the sleep used by wait loops on backends whose
// native mechanism has no blocking wait with a timeout of its own.
const pollInterval = 10 * time.Millisecond

// backend is the per-platform capture contract. One implementation
// of it is selected at build time; see the watcher_* files.
type backend interface {
	add(path string, recursive bool) error
	poll(timeout time.Duration) (model.Event, bool)
	close() error
}

type Watcher struct {
	b backend
}

// New acquires the platform capture resource. On failure nothing is
// left behind to release.
func New() (*Watcher, error) {
	b, err := newBackend()
	if err != nil {
		return nil, err
	}

	return &Watcher{b: b}, nil
}

// Add registers path for observation. With recursive set, changes in
// nested subdirectories are reported too; backends that only watch
// whole hierarchies widen a non-recursive request and document it.
// Whether a second Add is accepted is backend defined: inotify and
// fsnotify backends take any number of roots, FSEvents and
// ReadDirectoryChangesW backends take exactly one and return
// ErrRootRegistered afterwards.
func (w *Watcher) Add(path string, recursive bool) error {
	return w.b.add(path, recursive)
}

// Poll blocks until a change becomes available or timeout elapses.
// The second return is false when no event arrived in time; a
// transient native error looks the same, the caller is expected to
// keep polling either way. A zero timeout is a non-blocking check.
// Events come out in the order the native mechanism reported them.
func (w *Watcher) Poll(timeout time.Duration) (model.Event, bool) {
	return w.b.poll(timeout)
}

func (w *Watcher) Close() error {
	return w.b.close()
}
