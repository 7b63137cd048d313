//go:build linux

package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/anthonyquizon/fswatch/pkg/model"
)

const inotifyMask = unix.IN_MODIFY | unix.IN_ATTRIB | unix.IN_CREATE |
	unix.IN_DELETE | unix.IN_DELETE_SELF | unix.IN_MOVED_FROM | unix.IN_MOVED_TO

// inotifyBackend reads raw inotify records straight off the
// descriptor. Any number of roots may be registered on one handle;
// inotify watches a single directory per descriptor entry, so a
// recursive registration walks the tree and keeps following
// directories created later. Event names are reported relative to
// the root they belong to; the root itself being removed comes out
// as ".".
type inotifyBackend struct {
	fd      int
	watches map[int32]inotifyWatch
	buf     []byte
	pending []model.Event
}

type inotifyWatch struct {
	dir       string
	root      string
	recursive bool
}

func newBackend() (backend, error) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, err
	}

	return &inotifyBackend{
		fd:      fd,
		watches: make(map[int32]inotifyWatch),
		buf:     make([]byte, 4096),
	}, nil
}

func (b *inotifyBackend) add(path string, recursive bool) error {
	return b.watchDir(path, path, recursive)
}

func (b *inotifyBackend) watchDir(dir, root string, recursive bool) error {
	if recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}

		for _, f := range entries {
			if f.IsDir() {
				err = b.watchDir(filepath.Join(dir, f.Name()), root, recursive)
				if err != nil {
					return err
				}
			}
		}
	}

	wd, err := unix.InotifyAddWatch(b.fd, dir, inotifyMask)
	if err != nil {
		return err
	}

	b.watches[int32(wd)] = inotifyWatch{dir: dir, root: root, recursive: recursive}
	return nil
}

func (b *inotifyBackend) poll(timeout time.Duration) (model.Event, bool) {
	deadline := time.Now().Add(timeout)

	for {
		if len(b.pending) > 0 {
			e := b.pending[0]
			b.pending = b.pending[1:]
			return e, true
		}

		ms := int(time.Until(deadline) / time.Millisecond)
		if timeout == 0 {
			ms = 0
		} else if ms < 0 {
			return model.Event{}, false
		}

		pfd := []unix.PollFd{{Fd: int32(b.fd), Events: unix.POLLIN}}
		n, err := unix.Poll(pfd, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil || n <= 0 {
			return model.Event{}, false
		}

		b.readBatch()

		if timeout == 0 && len(b.pending) == 0 {
			return model.Event{}, false
		}
	}
}

// readBatch drains one read worth of raw records into the pending
// queue, in kernel order. Records that translate to nothing are
// skipped here so poll keeps waiting instead of surfacing them.
func (b *inotifyBackend) readBatch() {
	n, err := unix.Read(b.fd, b.buf)
	if err != nil || n < unix.SizeofInotifyEvent {
		return
	}

	var offset int
	for offset+unix.SizeofInotifyEvent <= n {
		raw := (*unix.InotifyEvent)(unsafe.Pointer(&b.buf[offset]))
		nameLen := int(raw.Len)

		var name string
		if nameLen > 0 {
			bs := b.buf[offset+unix.SizeofInotifyEvent : offset+unix.SizeofInotifyEvent+nameLen]
			name = strings.TrimRight(string(bs), "\x00")
		}
		offset += unix.SizeofInotifyEvent + nameLen

		w, known := b.watches[raw.Wd]
		if raw.Mask&(unix.IN_DELETE_SELF|unix.IN_IGNORED) != 0 {
			delete(b.watches, raw.Wd)
		}
		if !known {
			continue
		}

		op := translateInotify(raw.Mask)
		if op == 0 {
			continue
		}

		full := w.dir
		if name != "" {
			full = filepath.Join(w.dir, name)
		}
		rel, err := filepath.Rel(w.root, full)
		if err != nil {
			rel = name
		}

		if op.Has(model.Created) && w.recursive && raw.Mask&unix.IN_ISDIR != 0 {
			// keep following directories created under a recursive root
			_ = b.watchDir(full, w.root, true)
		}

		b.pending = append(b.pending, model.Event{Name: model.TruncateName(rel), Op: op})
	}
}

func translateInotify(mask uint32) model.Op {
	var op model.Op
	if mask&(unix.IN_MODIFY|unix.IN_ATTRIB) != 0 {
		op |= model.Modified
	}
	if mask&unix.IN_CREATE != 0 {
		op |= model.Created
	}
	if mask&(unix.IN_DELETE|unix.IN_DELETE_SELF) != 0 {
		op |= model.Deleted
	}
	if mask&(unix.IN_MOVED_TO|unix.IN_MOVED_FROM) != 0 {
		op |= model.Renamed
	}
	return op
}

func (b *inotifyBackend) close() error {
	return unix.Close(b.fd)
}
