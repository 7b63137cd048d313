package watcher

import (
	"sync"

	"github.com/anthonyquizon/fswatch/pkg/model"
)

// queueCapacity bounds the pending event queue which hands events
// from a native delivery context over to the poller.
const queueCapacity = 64

// eventQueue is a fixed capacity circular buffer guarded by a mutex.
// The producing side runs on the native delivery context and must
// never block there, so a full queue drops the newest events instead
// of waiting for the consumer.
type eventQueue struct {
	mu    sync.Mutex
	items [queueCapacity]model.Event
	read  int
	write int
	count int
}

// push appends e unless the queue is full. Reports whether the event
// was kept.
func (q *eventQueue) push(e model.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == queueCapacity {
		return false
	}

	q.items[q.write] = e
	q.write = (q.write + 1) % queueCapacity
	q.count++
	return true
}

func (q *eventQueue) pop() (model.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return model.Event{}, false
	}

	e := q.items[q.read]
	q.read = (q.read + 1) % queueCapacity
	q.count--
	return e, true
}
