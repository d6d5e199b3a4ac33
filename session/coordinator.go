package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"daytasks/analytics"
	"daytasks/domain"
	"daytasks/storage"
)

// ValidationError rejects bad input before any store call is made.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string { return e.Reason }

// Store is the subset of task store operations the coordinator issues.
type Store interface {
	CreateTask(ctx context.Context, task domain.Task) (string, error)
	SetCompleted(ctx context.Context, ownerID, day, id string, completed bool) error
	DeleteTask(ctx context.Context, ownerID, day, id string) error
}

// Notifier announces successful writes to live subscribers.
type Notifier interface {
	Publish(ctx context.Context, ownerID, day string) error
}

// SnapshotSource exposes the current local view of the day's tasks.
type SnapshotSource interface {
	Tasks() []domain.Task
}

// StaticView adapts an already-held snapshot to SnapshotSource.
type StaticView []domain.Task

func (v StaticView) Tasks() []domain.Task { return v }

// ConfirmFunc asks for approval of a destructive action. Answering no
// makes the operation a complete no-op.
type ConfirmFunc func(ctx context.Context, id string) bool

// Coordinator serializes the user-triggered mutations for one owner and
// day. It never touches the local view directly: the store's next
// snapshot is the only source of visible change. The busy flag is
// advisory UI state, not a lock.
type Coordinator struct {
	ownerID string
	day     string
	store   Store
	view    SnapshotSource
	notify  Notifier
	tracker analytics.Tracker
	confirm ConfirmFunc

	busy atomic.Bool
}

// NewCoordinator builds a coordinator. A nil confirm treats every removal
// as approved; a nil tracker or notifier disables that concern.
func NewCoordinator(ownerID, day string, store Store, view SnapshotSource, notify Notifier, tracker analytics.Tracker, confirm ConfirmFunc) *Coordinator {
	return &Coordinator{
		ownerID: ownerID,
		day:     day,
		store:   store,
		view:    view,
		notify:  notify,
		tracker: tracker,
		confirm: confirm,
	}
}

// Busy reports whether a mutation is currently in flight.
func (c *Coordinator) Busy() bool { return c.busy.Load() }

// Add creates a task for the coordinator's owner and day. An empty title
// after trimming, or an absent time, is a ValidationError and never
// reaches the store.
func (c *Coordinator) Add(ctx context.Context, title, timeOfDay string) (string, error) {
	c.busy.Store(true)
	defer c.busy.Store(false)

	title = strings.TrimSpace(title)
	if title == "" {
		return "", ValidationError{Reason: "title is required"}
	}
	if timeOfDay == "" {
		return "", ValidationError{Reason: "time is required"}
	}

	id, err := c.store.CreateTask(ctx, domain.Task{
		Title:   title,
		Time:    timeOfDay,
		OwnerID: c.ownerID,
		Day:     c.day,
	})
	if err != nil {
		return "", fmt.Errorf("add task: %w", err)
	}
	c.announce(ctx)
	c.track(ctx, analytics.EventTaskAdded)
	return id, nil
}

// Toggle flips the completed flag of the given task, reading its current
// value from the local view. A task missing from the view was deleted
// concurrently; that is a silent no-op with no store call.
func (c *Coordinator) Toggle(ctx context.Context, id string) error {
	c.busy.Store(true)
	defer c.busy.Store(false)

	var current domain.Task
	found := false
	for _, t := range c.view.Tasks() {
		if t.ID == id {
			current = t
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	if err := c.store.SetCompleted(ctx, c.ownerID, c.day, id, !current.Completed); err != nil {
		return fmt.Errorf("toggle task: %w", err)
	}
	c.announce(ctx)
	if !current.Completed {
		c.track(ctx, analytics.EventTaskCompleted)
	}
	return nil
}

// Remove deletes a task after the confirm gate approves it. The returned
// bool reports whether the removal went ahead at all. A task that is
// already gone counts as success: the desired end state holds.
func (c *Coordinator) Remove(ctx context.Context, id string) (bool, error) {
	c.busy.Store(true)
	defer c.busy.Store(false)

	if c.confirm != nil && !c.confirm(ctx, id) {
		return false, nil
	}

	if err := c.store.DeleteTask(ctx, c.ownerID, c.day, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return true, fmt.Errorf("remove task: %w", err)
	}
	c.announce(ctx)
	c.track(ctx, analytics.EventTaskDeleted)
	return true, nil
}

func (c *Coordinator) announce(ctx context.Context) {
	if c.notify == nil {
		return
	}
	if err := c.notify.Publish(ctx, c.ownerID, c.day); err != nil {
		log.WithError(err).WithField("owner", c.ownerID).Error("unable to publish task update")
	}
}

func (c *Coordinator) track(ctx context.Context, event string) {
	if c.tracker == nil {
		return
	}
	c.tracker.Track(ctx, c.ownerID, event)
}
