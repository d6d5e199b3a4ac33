package session

import (
	"sync"

	"daytasks/domain"
)

// State tracks the lifecycle of a live task subscription.
type State int

const (
	Unsubscribed State = iota
	Subscribing
	Active
	Errored
)

func (s State) String() string {
	switch s {
	case Unsubscribed:
		return "unsubscribed"
	case Subscribing:
		return "subscribing"
	case Active:
		return "active"
	case Errored:
		return "errored"
	}
	return "unknown"
}

// Reducer owns the locally consistent view of one day's tasks. Every
// incoming snapshot replaces the view wholesale; nothing else writes it.
type Reducer struct {
	mu    sync.Mutex
	state State
	tasks []domain.Task
	err   error
}

func NewReducer() *Reducer {
	return &Reducer{state: Unsubscribed}
}

// Start marks the reducer as waiting for its first snapshot.
func (r *Reducer) Start() {
	r.mu.Lock()
	r.state = Subscribing
	r.err = nil
	r.mu.Unlock()
}

// OnSnapshot replaces the view with the normalized, time-sorted input.
// Earlier content is discarded entirely; a task absent from the snapshot
// is gone, whether it was deleted or filtered out.
func (r *Reducer) OnSnapshot(tasks []domain.Task) {
	normalized := domain.Normalized(tasks)
	r.mu.Lock()
	r.tasks = normalized
	r.state = Active
	r.err = nil
	r.mu.Unlock()
}

// OnError clears the view and records the failure. An empty list is
// preferred over a stale or partially correct one; recovery requires a
// fresh subscription.
func (r *Reducer) OnError(err error) {
	r.mu.Lock()
	r.tasks = nil
	r.state = Errored
	r.err = err
	r.mu.Unlock()
}

// Stop marks the subscription as torn down.
func (r *Reducer) Stop() {
	r.mu.Lock()
	r.state = Unsubscribed
	r.mu.Unlock()
}

// Tasks returns a copy of the current view.
func (r *Reducer) Tasks() []domain.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Task, len(r.tasks))
	copy(out, r.tasks)
	return out
}

func (r *Reducer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Reducer) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
