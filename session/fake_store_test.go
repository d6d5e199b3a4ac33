package session

import (
	"context"
	"fmt"
	"sync"

	"daytasks/domain"
	"daytasks/storage"
)

// fakeStore keeps one day's tasks in memory and counts every call so
// tests can assert which operations reached the store.
type fakeStore struct {
	mu      sync.Mutex
	tasks   map[string]domain.Task
	nextID  int
	creates int
	updates int
	deletes int

	createErr error
	updateErr error
	deleteErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{tasks: map[string]domain.Task{}}
}

func (f *fakeStore) CreateTask(ctx context.Context, task domain.Task) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	id := fmt.Sprintf("task-%d", f.nextID)
	task.ID = id
	f.tasks[id] = task
	return id, nil
}

func (f *fakeStore) SetCompleted(ctx context.Context, ownerID, day, id string, completed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.updateErr != nil {
		return f.updateErr
	}
	t, ok := f.tasks[id]
	if !ok {
		return storage.ErrNotFound
	}
	t.Completed = completed
	f.tasks[id] = t
	return nil
}

func (f *fakeStore) DeleteTask(ctx context.Context, ownerID, day, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.tasks[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeStore) snapshot(ownerID, day string) []domain.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		if t.OwnerID == ownerID && t.Day == day {
			out = append(out, t)
		}
	}
	return out
}

func (f *fakeStore) calls() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates, f.updates, f.deletes
}

// fakeFeed echoes the fake store back to its subscribers: Publish
// delivers a fresh complete snapshot, the way the live feed does.
type fakeFeed struct {
	store *fakeStore

	mu   sync.Mutex
	subs []*fakeSubscription
}

type fakeSubscription struct {
	feed       *fakeFeed
	ownerID    string
	day        string
	onSnapshot func([]domain.Task)
	closed     bool
}

func (s *fakeSubscription) Close() {
	s.feed.mu.Lock()
	s.closed = true
	s.feed.mu.Unlock()
}

func (f *fakeFeed) Subscribe(ctx context.Context, ownerID, day string, onSnapshot func([]domain.Task), onError func(error)) Subscription {
	s := &fakeSubscription{feed: f, ownerID: ownerID, day: day, onSnapshot: onSnapshot}
	f.mu.Lock()
	f.subs = append(f.subs, s)
	f.mu.Unlock()
	onSnapshot(f.store.snapshot(ownerID, day))
	return s
}

func (f *fakeFeed) Publish(ctx context.Context, ownerID, day string) error {
	f.mu.Lock()
	subs := append([]*fakeSubscription(nil), f.subs...)
	f.mu.Unlock()
	for _, s := range subs {
		if !s.closed && s.ownerID == ownerID && s.day == day {
			s.onSnapshot(f.store.snapshot(ownerID, day))
		}
	}
	return nil
}

// recordingTracker captures usage events in order.
type recordingTracker struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingTracker) Track(ctx context.Context, ownerID, event string) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *recordingTracker) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}
