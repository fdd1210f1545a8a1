package push

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Entry is one in-flight push as observed by the ledger.
type Entry struct {
	Ref        string
	Event      string
	Topic      string
	QueuedAt   time.Time
	Deadline   time.Time
	Attempts   int
	LastSentAt time.Time
	LastError  string
	Status     string // resolution status, empty while pending
	ResolvedAt time.Time
}

func (e Entry) Pending() bool {
	return e.Status == ""
}

// Ledger tracks in-flight pushes by correlation id for diagnostics. It holds
// no push references and never influences resolution.
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]Entry)}
}

// Track registers or replaces the entry for one correlation id.
func (l *Ledger) Track(entry Entry) {
	key := strings.TrimSpace(entry.Ref)
	if key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key] = entry
}

// MarkAttempt records one transmission attempt against a tracked push.
func (l *Ledger) MarkAttempt(ref string, at time.Time, lastErr string) (Entry, bool) {
	key := strings.TrimSpace(ref)
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		return Entry{}, false
	}
	entry.Attempts++
	entry.LastSentAt = at
	entry.LastError = strings.TrimSpace(lastErr)
	l.entries[key] = entry
	return entry, true
}

// Resolve stamps a tracked push with its final status.
func (l *Ledger) Resolve(ref, status string, at time.Time) (Entry, bool) {
	key := strings.TrimSpace(ref)
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	if !ok {
		return Entry{}, false
	}
	entry.Status = strings.TrimSpace(status)
	entry.ResolvedAt = at
	l.entries[key] = entry
	return entry, true
}

func (l *Ledger) Remove(ref string) {
	key := strings.TrimSpace(ref)
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

func (l *Ledger) Get(ref string) (Entry, bool) {
	key := strings.TrimSpace(ref)
	l.mu.RLock()
	defer l.mu.RUnlock()
	entry, ok := l.entries[key]
	return entry, ok
}

// List returns all entries ordered by correlation id.
func (l *Ledger) List() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, 0, len(l.entries))
	for _, entry := range l.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Ref < out[j].Ref
	})
	return out
}

// PendingCount reports how many tracked pushes have not resolved.
func (l *Ledger) PendingCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, entry := range l.entries {
		if entry.Pending() {
			n++
		}
	}
	return n
}
