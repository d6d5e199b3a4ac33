package live

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"daytasks/domain"
)

// Notification announces that one owner's day of tasks changed. Writers
// publish it after every successful create, update or delete; the feed
// responds by refetching and delivering the complete result set, never a
// diff.
type Notification struct {
	OwnerID string `json:"ownerId"`
	Day     string `json:"day"`
}

// Store fetches the complete task set for one owner and day.
type Store interface {
	FetchTasks(ctx context.Context, ownerID, day string) ([]domain.Task, error)
}

// Feed delivers complete task snapshots to per-(owner, day) subscriptions
// driven by a Redis updates channel.
type Feed struct {
	rc      *redis.Client
	store   Store
	channel string

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// NewFeed creates a Feed reading change notifications from the given
// channel. Run must be started for snapshots beyond the initial one to be
// delivered.
func NewFeed(rc *redis.Client, store Store, channel string) *Feed {
	return &Feed{
		rc:      rc,
		store:   store,
		channel: channel,
		subs:    make(map[*Subscription]struct{}),
	}
}

// Publish announces a change so live subscribers refetch their snapshot.
func (f *Feed) Publish(ctx context.Context, ownerID, day string) error {
	data, err := json.Marshal(Notification{OwnerID: ownerID, Day: day})
	if err != nil {
		return err
	}
	return f.rc.Publish(ctx, f.channel, data).Err()
}

// Subscribe opens a live subscription scoped to (ownerID, day). The
// initial complete snapshot is delivered before Subscribe returns; after
// that, every matching notification triggers a refetch and a full
// replacement snapshot. Failures reach onError instead of onSnapshot and
// end the subscription; a fresh Subscribe is the only recovery path.
// Callbacks run under the subscription's lock and must not call Close on
// their own subscription.
func (f *Feed) Subscribe(ctx context.Context, ownerID, day string, onSnapshot func([]domain.Task), onError func(error)) *Subscription {
	s := &Subscription{
		feed:       f,
		ownerID:    ownerID,
		day:        day,
		onSnapshot: onSnapshot,
		onError:    onError,
	}
	f.mu.Lock()
	f.subs[s] = struct{}{}
	f.mu.Unlock()

	tasks, err := f.store.FetchTasks(ctx, ownerID, day)
	if err != nil {
		s.fail(err)
		return s
	}
	s.deliver(tasks)
	return s
}

func (f *Feed) remove(s *Subscription) {
	f.mu.Lock()
	delete(f.subs, s)
	f.mu.Unlock()
}

func (f *Feed) matching(n Notification) []*Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Subscription
	for s := range f.subs {
		if s.ownerID == n.OwnerID && s.day == n.Day {
			out = append(out, s)
		}
	}
	return out
}

// Run consumes the updates channel until ctx is cancelled, reconnecting
// when the pubsub connection drops.
func (f *Feed) Run(ctx context.Context) {
	for {
		sub := f.rc.Subscribe(ctx, f.channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var n Notification
				if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
					log.Errorf("unable to parse update notification: %v", err)
					continue
				}
				f.dispatch(ctx, n)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		log.Error("updates channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}

func (f *Feed) dispatch(ctx context.Context, n Notification) {
	subs := f.matching(n)
	if len(subs) == 0 {
		return
	}
	tasks, err := f.store.FetchTasks(ctx, n.OwnerID, n.Day)
	if err != nil {
		log.WithError(err).WithField("owner", n.OwnerID).Error("fetch snapshot")
		for _, s := range subs {
			s.fail(err)
		}
		return
	}
	for _, s := range subs {
		s.deliver(tasks)
	}
}

// Subscription is a handle on one live (owner, day) query.
type Subscription struct {
	feed       *Feed
	ownerID    string
	day        string
	onSnapshot func([]domain.Task)
	onError    func(error)

	mu     sync.Mutex
	closed bool
	failed bool
}

func (s *Subscription) deliver(tasks []domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.failed {
		return
	}
	s.onSnapshot(tasks)
}

func (s *Subscription) fail(err error) {
	s.mu.Lock()
	if s.closed || s.failed {
		s.mu.Unlock()
		return
	}
	s.failed = true
	s.onError(err)
	s.mu.Unlock()
	s.feed.remove(s)
}

// Close releases the subscription. It is idempotent, and once it returns
// neither callback will run again: Close waits for an in-flight delivery
// to finish. That wait is also why callbacks must not call Close
// themselves.
func (s *Subscription) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.feed.remove(s)
}
