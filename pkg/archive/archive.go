// Package archive keeps every processed telex, raw and parsed, in arrival order.
package archive

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/illmade-knight/go-telex/pkg/metrics"
	"github.com/illmade-knight/go-telex/pkg/telex"
)

// Entry is one archived telex.
type Entry struct {
	Seq        int                `json:"seq"`
	ID         string             `json:"id"`
	ReceivedAt time.Time          `json:"receivedAt"`
	Source     string             `json:"source,omitempty"`
	Raw        string             `json:"raw"`
	Record     telex.ParsedRecord `json:"record"`
}

// Archive is an append-only, in-memory log of entries. One mutex guards both
// appends and reads, so Page and Total always see a consistent prefix.
type Archive struct {
	mu          sync.Mutex
	entries     []Entry
	subscribers []func(Entry)
	now         func() time.Time
}

// New returns an empty archive.
func New() *Archive {
	return &Archive{now: time.Now}
}

// Subscribe registers fn to be called with every entry appended from now on.
// Calls happen on the appending goroutine, outside the lock.
func (a *Archive) Subscribe(fn func(Entry)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subscribers = append(a.subscribers, fn)
}

// Append stores raw and rec as the next entry and returns it.
func (a *Archive) Append(raw string, rec telex.ParsedRecord, source string) Entry {
	a.mu.Lock()
	e := Entry{
		Seq:        len(a.entries) + 1,
		ID:         uuid.NewString(),
		ReceivedAt: a.now().UTC(),
		Source:     source,
		Raw:        raw,
		Record:     rec,
	}
	a.entries = append(a.entries, e)
	total := len(a.entries)
	subs := a.subscribers
	a.mu.Unlock()

	metrics.ArchiveEntries.Set(float64(total))
	for _, fn := range subs {
		fn(e)
	}
	return e
}

// Total returns the number of archived entries.
func (a *Archive) Total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// TotalPages returns ceil(Total/size). A size below one yields zero.
func (a *Archive) TotalPages(size int) int {
	if size < 1 {
		return 0
	}
	total := a.Total()
	return (total + size - 1) / size
}

// Page returns the entries of page index (zero based) in insertion order. A page
// past the end, a negative index or a size below one gives an empty slice.
func (a *Archive) Page(index, size int) []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	if index < 0 || size < 1 {
		return []Entry{}
	}
	start := index * size
	if start >= len(a.entries) || start/size != index {
		return []Entry{}
	}
	end := start + size
	if end > len(a.entries) || end < start {
		end = len(a.entries)
	}
	out := make([]Entry, end-start)
	copy(out, a.entries[start:end])
	return out
}

// Latest returns the most recently appended entry.
func (a *Archive) Latest() (Entry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.entries) == 0 {
		return Entry{}, false
	}
	return a.entries[len(a.entries)-1], true
}
