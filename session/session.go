package session

import (
	"context"
	"sync"
	"time"

	"daytasks/analytics"
	"daytasks/domain"
)

// Subscription is a live snapshot subscription handle.
type Subscription interface {
	Close()
}

// Subscriber opens live (owner, day) subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, ownerID, day string, onSnapshot func([]domain.Task), onError func(error)) Subscription
}

// Day formats t as the YYYY-MM-DD day-filter value, in t's location.
func Day(t time.Time) string {
	return t.Format("2006-01-02")
}

// Config carries the collaborators a Session is built from.
type Config struct {
	Store      Store
	Subscriber Subscriber
	Notifier   Notifier
	Tracker    analytics.Tracker
	Confirm    ConfirmFunc
	// Now supplies "today"; defaults to time.Now. It is consulted once
	// per Open, so a session held across midnight keeps its stale day
	// until reopened.
	Now func() time.Time
	// OnChange runs after every reducer update, snapshot or error. It is
	// optional and must not block.
	OnChange func()
}

// Session ties a live subscription, its reducer and a mutation
// coordinator together for one owner and one day. When the observed
// identity changes, the consumer closes the session and opens a new one;
// there is no rebinding in place.
type Session struct {
	OwnerID string
	Day     string

	reducer *Reducer
	coord   *Coordinator
	sub     Subscription
	once    sync.Once
}

// Open derives "today" from cfg.Now, subscribes, and returns the running
// session. Subscription failures surface through the reducer's error
// state rather than an error return, matching the callback contract of
// the live feed.
func Open(ctx context.Context, cfg Config, ownerID string) *Session {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	day := Day(now())

	reducer := NewReducer()
	s := &Session{
		OwnerID: ownerID,
		Day:     day,
		reducer: reducer,
		coord:   NewCoordinator(ownerID, day, cfg.Store, reducer, cfg.Notifier, cfg.Tracker, cfg.Confirm),
	}

	onSnapshot := func(tasks []domain.Task) {
		reducer.OnSnapshot(tasks)
		if cfg.OnChange != nil {
			cfg.OnChange()
		}
	}
	onError := func(err error) {
		reducer.OnError(err)
		if cfg.OnChange != nil {
			cfg.OnChange()
		}
	}

	reducer.Start()
	s.sub = cfg.Subscriber.Subscribe(ctx, ownerID, day, onSnapshot, onError)
	return s
}

// Tasks returns the current view, sorted by time.
func (s *Session) Tasks() []domain.Task {
	return s.reducer.Tasks()
}

// Report aggregates the current view.
func (s *Session) Report() domain.Report {
	return domain.BuildReport(s.reducer.Tasks())
}

func (s *Session) State() State { return s.reducer.State() }

func (s *Session) Err() error { return s.reducer.Err() }

func (s *Session) Busy() bool { return s.coord.Busy() }

// Add creates a task for this session's owner and day.
func (s *Session) Add(ctx context.Context, title, timeOfDay string) (string, error) {
	return s.coord.Add(ctx, title, timeOfDay)
}

// Toggle flips a task's completed flag based on the current view.
func (s *Session) Toggle(ctx context.Context, id string) error {
	return s.coord.Toggle(ctx, id)
}

// Remove deletes a task after confirmation.
func (s *Session) Remove(ctx context.Context, id string) (bool, error) {
	return s.coord.Remove(ctx, id)
}

// Close tears the subscription down. Idempotent.
func (s *Session) Close() {
	s.once.Do(func() {
		if s.sub != nil {
			s.sub.Close()
		}
		s.reducer.Stop()
	})
}
