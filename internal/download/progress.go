package download

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Slot is the progress counter of one running job.
//
// A Slot is created by Tracker.Start and must be handed back with
// Tracker.Remove once the job reaches a terminal state.
type Slot struct {
	ID   uuid.UUID
	Path string
	Size int64

	written atomic.Int64
	tracker *Tracker
}

// Add records n more bytes for this slot and for the aggregate.
func (s *Slot) Add(n int64) {
	s.tracker.add(s, n)
}

// Written returns the bytes recorded for this slot so far.
func (s *Slot) Written() int64 {
	return s.written.Load()
}

// SlotState is a point-in-time copy of a Slot.
type SlotState struct {
	ID      uuid.UUID
	Path    string
	Size    int64
	Written int64
}

// Snapshot is a consistent view of a Tracker.
//
// Aggregate always equals the sum of Active[i].Written plus Retired.
type Snapshot struct {
	// Total is the expected size of the whole run.
	Total int64

	// Aggregate is every byte written so far, by finished and running jobs.
	Aggregate int64

	// Retired is the bytes written by jobs that already finished.
	Retired int64

	// Active lists running jobs, ordered by path.
	Active []SlotState

	// Finished and Failed count jobs that reached a terminal state.
	Finished int
	Failed   int
}

// Tracker holds the per-job and aggregate byte counters of one engine run.
//
// Slot updates take the read lock and bump atomics, so concurrent jobs
// never wait on each other. Snapshot and Remove take the write lock, which
// makes a snapshot see either all or none of any in-flight update.
type Tracker struct {
	total     int64
	aggregate atomic.Int64

	mu       sync.RWMutex
	idle     *sync.Cond
	slots    map[uuid.UUID]*Slot
	retired  int64
	finished int
	failed   int
}

// NewTracker creates a Tracker for a run expected to transfer total bytes.
func NewTracker(total int64) *Tracker {
	t := &Tracker{
		total: total,
		slots: make(map[uuid.UUID]*Slot),
	}
	t.idle = sync.NewCond(&t.mu)
	return t
}

// Start opens a progress slot for a job.
func (t *Tracker) Start(id uuid.UUID, path string, size int64) *Slot {
	s := &Slot{ID: id, Path: path, Size: size, tracker: t}

	t.mu.Lock()
	t.slots[id] = s
	t.mu.Unlock()

	return s
}

func (t *Tracker) add(s *Slot, n int64) {
	t.mu.RLock()
	s.written.Add(n)
	t.aggregate.Add(n)
	t.mu.RUnlock()
}

// Remove retires a slot. Its bytes stay in the aggregate.
//
// Removing a slot twice is a no-op.
func (t *Tracker) Remove(s *Slot, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, found := t.slots[s.ID]; !found {
		return
	}
	delete(t.slots, s.ID)
	t.retired += s.written.Load()
	if ok {
		t.finished++
	} else {
		t.failed++
	}

	if len(t.slots) == 0 {
		t.idle.Broadcast()
	}
}

// Total returns the expected size of the run.
func (t *Tracker) Total() int64 {
	return t.total
}

// Aggregate returns the bytes written so far across all jobs.
func (t *Tracker) Aggregate() int64 {
	return t.aggregate.Load()
}

// Active returns the number of slots still open.
func (t *Tracker) Active() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.slots)
}

// Snapshot returns a consistent copy of the tracker state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		Total:     t.total,
		Aggregate: t.aggregate.Load(),
		Retired:   t.retired,
		Active:    make([]SlotState, 0, len(t.slots)),
		Finished:  t.finished,
		Failed:    t.failed,
	}
	for _, s := range t.slots {
		snap.Active = append(snap.Active, SlotState{
			ID:      s.ID,
			Path:    s.Path,
			Size:    s.Size,
			Written: s.written.Load(),
		})
	}
	sort.Slice(snap.Active, func(i, j int) bool {
		return snap.Active[i].Path < snap.Active[j].Path
	})

	return snap
}

// Wait blocks until no slot is open.
func (t *Tracker) Wait() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for len(t.slots) > 0 {
		t.idle.Wait()
	}
}
