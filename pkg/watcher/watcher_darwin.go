//go:build darwin

package watcher

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsevents"

	"github.com/anthonyquizon/fswatch/pkg/model"
)

// fseventsBackend bridges the FSEvents delivery queue, which runs on
// an execution context owned by the OS framework, into the poller
// through the bounded event queue. One event stream per handle, so
// exactly one root may be registered. FSEvents only watches whole
// hierarchies; a non-recursive Add is widened to recursive. Event
// paths come out the way FSEvents reports them, rooted at the
// device.
type fseventsBackend struct {
	stream *fsevents.EventStream
	queue  *eventQueue
	done   chan struct{}
}

func newBackend() (backend, error) {
	// the queue and done channel exist before any stream does, so a
	// failed add still leaves the backend closable
	return &fseventsBackend{
		queue: &eventQueue{},
		done:  make(chan struct{}),
	}, nil
}

func (b *fseventsBackend) add(path string, recursive bool) error {
	if b.stream != nil {
		return ErrRootRegistered
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		return err
	}

	stream := &fsevents.EventStream{
		Paths:   []string{abs},
		Latency: 100 * time.Millisecond,
		Flags:   fsevents.FileEvents | fsevents.NoDefer | fsevents.WatchRoot,
	}
	if err := stream.Start(); err != nil {
		return err
	}

	b.stream = stream
	go b.forward(stream.Events)
	return nil
}

// forward consumes the stream's delivery channel. It must return to
// the framework promptly, so a full queue drops the newest events
// rather than waiting for the poller.
func (b *fseventsBackend) forward(events chan []fsevents.Event) {
	for {
		select {
		case batch := <-events:
			for _, raw := range batch {
				op := translateFSEvents(raw.Flags)
				if op == 0 {
					continue
				}
				b.queue.push(model.Event{Name: model.TruncateName(raw.Path), Op: op})
			}
		case <-b.done:
			return
		}
	}
}

func (b *fseventsBackend) poll(timeout time.Duration) (model.Event, bool) {
	deadline := time.Now().Add(timeout)

	for {
		if e, ok := b.queue.pop(); ok {
			return e, true
		}
		if !time.Now().Before(deadline) {
			return model.Event{}, false
		}
		time.Sleep(pollInterval)
	}
}

func translateFSEvents(flags fsevents.EventFlags) model.Op {
	var op model.Op
	if flags&(fsevents.ItemModified|fsevents.ItemInodeMetaMod|fsevents.ItemChangeOwner) != 0 {
		op |= model.Modified
	}
	if flags&fsevents.ItemCreated != 0 {
		op |= model.Created
	}
	if flags&(fsevents.ItemRemoved|fsevents.RootChanged) != 0 {
		op |= model.Deleted
	}
	if flags&fsevents.ItemRenamed != 0 {
		op |= model.Renamed
	}
	return op
}

func (b *fseventsBackend) close() error {
	if b.stream != nil {
		b.stream.Stop()
	}
	close(b.done)
	return nil
}
