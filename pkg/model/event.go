package model

import (
	"fmt"
	"strings"
)

// MaxName bounds event names in bytes. The native notification
// records carry fixed-size path buffers, and names longer than this
// are truncated rather than rejected.
const MaxName = 512

type Op uint32

const (
	Modified Op = 1 << iota
	Created
	Deleted
	Renamed
)

// Event is a single normalized filesystem change. Name is reported
// in whatever convention the active platform adapter documents; Op
// is never zero for an event handed to a consumer.
type Event struct {
	Name string
	Op   Op
}

func (op Op) String() string {
	var b strings.Builder
	if op.Has(Modified) {
		b.WriteString("|MODIFIED")
	}
	if op.Has(Created) {
		b.WriteString("|CREATED")
	}
	if op.Has(Deleted) {
		b.WriteString("|DELETED")
	}
	if op.Has(Renamed) {
		b.WriteString("|RENAMED")
	}
	if b.Len() == 0 {
		return "[no events]"
	}
	return b.String()[1:]
}

func (op Op) Has(h Op) bool { return op&h == h }

func (e Event) Has(op Op) bool { return e.Op.Has(op) }

func (e Event) String() string {
	return fmt.Sprintf("%-13s %q", e.Op.String(), e.Name)
}

// TruncateName cuts names longer than MaxName down to a prefix which
// fits. Lossy and silent, same as the native buffers.
func TruncateName(name string) string {
	if len(name) <= MaxName {
		return name
	}
	return name[:MaxName]
}
