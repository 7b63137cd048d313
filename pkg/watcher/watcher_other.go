//go:build !linux && !darwin && !windows

package watcher

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/anthonyquizon/fswatch/pkg/model"
)

// fsnotifyBackend covers the targets without a dedicated adapter by
// leaning on fsnotify's kqueue and polling implementations. Event
// names are whatever fsnotify reports, the registered path joined
// with the entry name. Roots are additive; recursion is emulated by
// walking the tree at registration time.
type fsnotifyBackend struct {
	fw *fsnotify.Watcher
}

func newBackend() (backend, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &fsnotifyBackend{fw: fw}, nil
}

func (b *fsnotifyBackend) add(path string, recursive bool) error {
	if recursive {
		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}

		for _, f := range entries {
			if f.IsDir() {
				err = b.add(filepath.Join(path, f.Name()), recursive)
				if err != nil {
					return err
				}
			}
		}
	}

	return b.fw.Add(path)
}

func (b *fsnotifyBackend) poll(timeout time.Duration) (model.Event, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case e, ok := <-b.fw.Events:
			if !ok {
				return model.Event{}, false
			}
			op := translateFsnotify(e.Op)
			if op == 0 {
				continue
			}
			return model.Event{Name: model.TruncateName(e.Name), Op: op}, true
		case _, ok := <-b.fw.Errors:
			if !ok {
				return model.Event{}, false
			}
			// transient, indistinguishable from a quiet interval
		case <-timer.C:
			return model.Event{}, false
		}
	}
}

func translateFsnotify(o fsnotify.Op) model.Op {
	var op model.Op
	if o&(fsnotify.Write|fsnotify.Chmod) != 0 {
		op |= model.Modified
	}
	if o&fsnotify.Create != 0 {
		op |= model.Created
	}
	if o&fsnotify.Remove != 0 {
		op |= model.Deleted
	}
	if o&fsnotify.Rename != 0 {
		op |= model.Renamed
	}
	return op
}

func (b *fsnotifyBackend) close() error {
	return b.fw.Close()
}
