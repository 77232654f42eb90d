// Package progress tracks the per-link progress entries of a download run.
//
// The tracker is keyed by Link ID rather than by anything stored on the page,
// so renderers (the CLI printer, the TUI) only ever read snapshots.
package progress

import (
	"sort"
	"sync"

	"github.com/handiism/kona-downloader/internal/model"
)

// Tracker owns one Entry per link.
//
// A single writer (the pipeline) updates entries while renderers read
// snapshots from other goroutines.
type Tracker struct {
	mu       sync.RWMutex
	entries  map[int]*model.Entry
	onChange func(model.Entry)
}

// NewTracker creates an empty Tracker. onChange may be nil.
func NewTracker(onChange func(model.Entry)) *Tracker {
	return &Tracker{
		entries:  make(map[int]*model.Entry),
		onChange: onChange,
	}
}

// GetOrCreate returns the entry for link, creating it on first use.
//
// The entry is made visible either way.
func (t *Tracker) GetOrCreate(link model.Link) model.Entry {
	t.mu.Lock()
	e, ok := t.entries[link.ID]
	if !ok {
		e = &model.Entry{ID: link.ID}
		t.entries[link.ID] = e
	}
	// IDs are reused across runs, possibly for a different page.
	e.Name = link.FileName()
	e.Visible = true
	snap := *e
	t.mu.Unlock()

	t.notify(snap)
	return snap
}

// Get returns a copy of the entry with the given ID.
func (t *Tracker) Get(id int) (model.Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[id]
	if !ok {
		return model.Entry{}, false
	}
	return *e, true
}

// SetPercent updates the percentage of an existing entry.
//
// Values are clamped to [0,99] and never move an entry backwards; 100 is
// reserved for Complete. Unknown IDs and finished entries are ignored.
func (t *Tracker) SetPercent(id, value int) {
	if value < 0 {
		value = 0
	}
	if value >= model.Complete {
		value = model.Complete - 1
	}

	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok || e.Done || value <= e.Percent {
		t.mu.Unlock()
		return
	}
	e.Percent = value
	snap := *e
	t.mu.Unlock()

	t.notify(snap)
}

// Complete marks the entry as fully processed and renders it as a checkmark.
func (t *Tracker) Complete(id int) {
	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	e.Percent = model.Complete
	e.Done = true
	snap := *e
	t.mu.Unlock()

	t.notify(snap)
}

// HideAll hides every entry. Entries are kept so a later run can reuse them.
func (t *Tracker) HideAll() {
	t.mu.Lock()
	changed := make([]model.Entry, 0, len(t.entries))
	for _, e := range t.entries {
		if e.Visible {
			e.Visible = false
			changed = append(changed, *e)
		}
	}
	t.mu.Unlock()

	sortEntries(changed)
	for _, e := range changed {
		t.notify(e)
	}
}

// Reset restarts every entry at 0% and hides it.
//
// It is called when a run starts so entries left over from a previous run,
// finished or failed, can be reused.
func (t *Tracker) Reset() {
	t.mu.Lock()
	for _, e := range t.entries {
		e.Percent = 0
		e.Done = false
		e.Visible = false
	}
	t.mu.Unlock()
}

// Snapshot returns a copy of all entries ordered by ID.
func (t *Tracker) Snapshot() []model.Entry {
	t.mu.RLock()
	out := make([]model.Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	t.mu.RUnlock()

	sortEntries(out)
	return out
}

// Len returns the number of entries created so far.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (t *Tracker) notify(e model.Entry) {
	if t.onChange != nil {
		t.onChange(e)
	}
}

func sortEntries(entries []model.Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
}
