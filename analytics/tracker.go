package analytics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"
)

// Usage event names, one per user-visible action.
const (
	EventTaskAdded     = "task_added"
	EventTaskCompleted = "task_completed"
	EventTaskDeleted   = "task_deleted"
	EventPageView      = "page_view"
)

// Tracker records usage events. Implementations are fire-and-forget: a
// sink failure must never reach the caller.
type Tracker interface {
	Track(ctx context.Context, ownerID, event string)
}

type usageEvent struct {
	OwnerID string `json:"ownerId"`
	Event   string `json:"event"`
	Time    int64  `json:"time"`
}

// QueueTracker enqueues usage events to an Azure Storage queue.
type QueueTracker struct {
	queue *azqueue.QueueClient
	now   func() time.Time
}

// NewQueueTracker creates a tracker writing to the named queue.
func NewQueueTracker(connStr, queueName string) (*QueueTracker, error) {
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 1,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, queueName, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &QueueTracker{queue: q, now: time.Now}, nil
}

func (t *QueueTracker) Track(ctx context.Context, ownerID, event string) {
	data, err := json.Marshal(usageEvent{
		OwnerID: ownerID,
		Event:   event,
		Time:    t.now().UTC().UnixMilli(),
	})
	if err != nil {
		return
	}
	if _, err := t.queue.EnqueueMessage(ctx, string(data), nil); err != nil {
		log.WithError(err).WithField("event", event).Warn("failed to enqueue usage event")
	}
}

// NopTracker discards all events.
type NopTracker struct{}

func (NopTracker) Track(context.Context, string, string) {}
