//go:build windows

package watcher

import (
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/anthonyquizon/fswatch/pkg/model"
)

const notifyFilter = windows.FILE_NOTIFY_CHANGE_FILE_NAME |
	windows.FILE_NOTIFY_CHANGE_DIR_NAME |
	windows.FILE_NOTIFY_CHANGE_ATTRIBUTES |
	windows.FILE_NOTIFY_CHANGE_LAST_WRITE

// rdcwBackend drives overlapped ReadDirectoryChangesW reads. One
// directory handle per watcher, so exactly one root may be
// registered. Event names come out relative to the watched root,
// separated the way the system reports them. After a completed read
// is consumed the next one must be issued immediately, or changes in
// between are lost.
type rdcwBackend struct {
	dir        windows.Handle
	overlapped windows.Overlapped
	buf        []byte
	recursive  bool
	pending    []model.Event
}

func newBackend() (backend, error) {
	ev, err := windows.CreateEvent(nil, 0, 0, nil)
	if err != nil {
		return nil, err
	}

	b := &rdcwBackend{
		dir: windows.InvalidHandle,
		buf: make([]byte, 4096),
	}
	b.overlapped.HEvent = ev
	return b, nil
}

func (b *rdcwBackend) add(path string, recursive bool) error {
	if b.dir != windows.InvalidHandle {
		return ErrRootRegistered
	}

	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}

	h, err := windows.CreateFile(p, windows.FILE_LIST_DIRECTORY,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil, windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS|windows.FILE_FLAG_OVERLAPPED, 0)
	if err != nil {
		return err
	}

	b.dir = h
	b.recursive = recursive
	if err := b.arm(); err != nil {
		b.dir = windows.InvalidHandle
		_ = windows.CloseHandle(h)
		return err
	}
	return nil
}

func (b *rdcwBackend) arm() error {
	return windows.ReadDirectoryChanges(b.dir, &b.buf[0], uint32(len(b.buf)),
		b.recursive, notifyFilter, nil, &b.overlapped, 0)
}

func (b *rdcwBackend) poll(timeout time.Duration) (model.Event, bool) {
	deadline := time.Now().Add(timeout)

	for {
		if len(b.pending) > 0 {
			e := b.pending[0]
			b.pending = b.pending[1:]
			return e, true
		}
		if b.dir == windows.InvalidHandle {
			return model.Event{}, false
		}

		ms := time.Until(deadline) / time.Millisecond
		if timeout == 0 {
			ms = 0
		} else if ms < 0 {
			return model.Event{}, false
		}

		status, err := windows.WaitForSingleObject(b.overlapped.HEvent, uint32(ms))
		if err != nil || status != windows.WAIT_OBJECT_0 {
			return model.Event{}, false
		}

		var n uint32
		err = windows.GetOverlappedResult(b.dir, &b.overlapped, &n, false)
		if err != nil {
			_ = b.arm()
			return model.Event{}, false
		}

		b.parseBatch(n)
		_ = b.arm()

		if timeout == 0 && len(b.pending) == 0 {
			return model.Event{}, false
		}
	}
}

// parseBatch walks the FILE_NOTIFY_INFORMATION chain of one
// completed read, in system order. Actions that translate to nothing
// are skipped so poll keeps waiting.
func (b *rdcwBackend) parseBatch(n uint32) {
	if n == 0 {
		return
	}

	var offset uint32
	for {
		info := (*windows.FileNotifyInformation)(unsafe.Pointer(&b.buf[offset]))

		op := translateAction(info.Action)
		if op != 0 {
			name16 := unsafe.Slice(&info.FileName, info.FileNameLength/2)
			name := windows.UTF16ToString(name16)
			b.pending = append(b.pending, model.Event{Name: model.TruncateName(name), Op: op})
		}

		if info.NextEntryOffset == 0 {
			break
		}
		offset += info.NextEntryOffset
		if offset >= uint32(len(b.buf)) {
			break
		}
	}
}

func translateAction(action uint32) model.Op {
	switch action {
	case windows.FILE_ACTION_MODIFIED:
		return model.Modified
	case windows.FILE_ACTION_ADDED:
		return model.Created
	case windows.FILE_ACTION_REMOVED:
		return model.Deleted
	case windows.FILE_ACTION_RENAMED_OLD_NAME, windows.FILE_ACTION_RENAMED_NEW_NAME:
		return model.Renamed
	}
	return 0
}

func (b *rdcwBackend) close() error {
	if b.dir != windows.InvalidHandle {
		_ = windows.CancelIoEx(b.dir, &b.overlapped)
		_ = windows.CloseHandle(b.dir)
	}
	return windows.CloseHandle(b.overlapped.HEvent)
}
