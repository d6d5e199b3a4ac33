package session

import (
	"context"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
}

func TestSessionEndToEnd(t *testing.T) {
	fs := newFakeStore()
	feed := &fakeFeed{store: fs}
	tracker := &recordingTracker{}

	sess := Open(context.Background(), Config{
		Store:      fs,
		Subscriber: feed,
		Notifier:   feed,
		Tracker:    tracker,
		Now:        fixedNow,
	}, "U1")
	defer sess.Close()

	if sess.Day != "2024-05-01" {
		t.Fatalf("expected day derived at open, got %s", sess.Day)
	}
	if sess.State() != Active {
		t.Fatalf("expected active after initial snapshot, got %s", sess.State())
	}
	if got := sess.Tasks(); len(got) != 0 {
		t.Fatalf("expected empty initial view, got %#v", got)
	}

	id, err := sess.Add(context.Background(), "Buy milk", "08:00")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	tasks := sess.Tasks()
	if len(tasks) != 1 || tasks[0].ID != id || tasks[0].Title != "Buy milk" || tasks[0].Completed {
		t.Fatalf("expected echoed pending task, got %#v", tasks)
	}

	if err := sess.Toggle(context.Background(), id); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	report := sess.Report()
	if report.Total != 1 || report.Completed != 1 || report.CompletionRate != 100 {
		t.Fatalf("unexpected report: %#v", report)
	}

	events := tracker.all()
	if len(events) != 2 || events[0] != "task_added" || events[1] != "task_completed" {
		t.Fatalf("unexpected events: %#v", events)
	}
}

func TestSessionViewOnlyChangesViaSnapshots(t *testing.T) {
	fs := newFakeStore()
	feed := &fakeFeed{store: fs}
	// a notifier that swallows announcements: the store changes but no
	// snapshot is echoed back
	silent := notifierFunc(func(ctx context.Context, ownerID, day string) error { return nil })

	sess := Open(context.Background(), Config{
		Store:      fs,
		Subscriber: feed,
		Notifier:   silent,
		Now:        fixedNow,
	}, "U1")
	defer sess.Close()

	if _, err := sess.Add(context.Background(), "Buy milk", "08:00"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := sess.Tasks(); len(got) != 0 {
		t.Fatalf("expected no optimistic update, got %#v", got)
	}

	// the snapshot arriving later is what makes the task visible
	if err := feed.Publish(context.Background(), "U1", "2024-05-01"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := sess.Tasks(); len(got) != 1 {
		t.Fatalf("expected task after snapshot, got %#v", got)
	}
}

type notifierFunc func(ctx context.Context, ownerID, day string) error

func (f notifierFunc) Publish(ctx context.Context, ownerID, day string) error {
	return f(ctx, ownerID, day)
}

func TestSessionOnChangeFires(t *testing.T) {
	fs := newFakeStore()
	feed := &fakeFeed{store: fs}
	changes := 0

	sess := Open(context.Background(), Config{
		Store:      fs,
		Subscriber: feed,
		Notifier:   feed,
		Now:        fixedNow,
		OnChange:   func() { changes++ },
	}, "U1")
	defer sess.Close()

	if changes != 1 {
		t.Fatalf("expected initial snapshot to fire OnChange, got %d", changes)
	}
	if _, err := sess.Add(context.Background(), "Buy milk", "08:00"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if changes != 2 {
		t.Fatalf("expected echoed snapshot to fire OnChange, got %d", changes)
	}
}

func TestSessionCloseIdempotent(t *testing.T) {
	fs := newFakeStore()
	feed := &fakeFeed{store: fs}

	sess := Open(context.Background(), Config{
		Store:      fs,
		Subscriber: feed,
		Notifier:   feed,
		Now:        fixedNow,
	}, "U1")
	sess.Close()
	sess.Close()

	if sess.State() != Unsubscribed {
		t.Fatalf("expected unsubscribed after close, got %s", sess.State())
	}
}

func TestSessionsAreScopedPerOwner(t *testing.T) {
	fs := newFakeStore()
	feed := &fakeFeed{store: fs}

	s1 := Open(context.Background(), Config{Store: fs, Subscriber: feed, Notifier: feed, Now: fixedNow}, "U1")
	defer s1.Close()
	s2 := Open(context.Background(), Config{Store: fs, Subscriber: feed, Notifier: feed, Now: fixedNow}, "U2")
	defer s2.Close()

	if _, err := s1.Add(context.Background(), "Mine", "09:00"); err != nil {
		t.Fatalf("add: %v", err)
	}

	var owners []string
	for _, task := range append(s1.Tasks(), s2.Tasks()...) {
		owners = append(owners, task.OwnerID)
	}
	for _, o := range owners {
		if o != "U1" {
			t.Fatalf("unexpected owner in view: %#v", owners)
		}
	}
}
