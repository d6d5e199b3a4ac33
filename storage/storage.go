package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/google/uuid"

	"daytasks/domain"
)

const edmInt64 = "Edm.Int64"

// Storage provides access to the task table. Tasks are partitioned by
// owner, keyed by task id, and carry the day they belong to as a plain
// property so one day's set can be filtered in a single query.
type Storage struct {
	taskTable *aztables.Client
	now       func() time.Time
}

// New creates a Storage instance from the given connection string.
func New(connStr, tasksTable string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	return &Storage{taskTable: svc.NewClient(tasksTable), now: time.Now}, nil
}

type taskEntity struct {
	aztables.Entity
	Title         string `json:"Title"`
	Time          string `json:"Time"`
	Completed     bool   `json:"Completed"`
	Day           string `json:"Day"`
	CreatedAt     int64  `json:"CreatedAt,string"`
	CreatedAtType string `json:"CreatedAt@odata.type,omitempty"`
}

func decodeTaskEntity(data []byte) (domain.Task, error) {
	var ent taskEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, err
	}
	return domain.Task{
		ID:        ent.RowKey,
		Title:     ent.Title,
		Time:      ent.Time,
		Completed: ent.Completed,
		OwnerID:   ent.PartitionKey,
		Day:       ent.Day,
		CreatedAt: ent.CreatedAt,
	}, nil
}

// FetchTasks retrieves the complete task set for one owner and day.
func (s *Storage) FetchTasks(ctx context.Context, ownerID, day string) ([]domain.Task, error) {
	filter := "PartitionKey eq '" + ownerID + "' and Day eq '" + day + "'"
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			task, err := decodeTaskEntity(e)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

// CreateTask inserts a new task row, assigning its id and creation
// timestamp. Owner, day, title and time come from the caller; the task
// always starts pending.
func (s *Storage) CreateTask(ctx context.Context, task domain.Task) (string, error) {
	id := uuid.NewString()
	ent := taskEntity{
		Entity:        aztables.Entity{PartitionKey: task.OwnerID, RowKey: id},
		Title:         task.Title,
		Time:          task.Time,
		Completed:     false,
		Day:           task.Day,
		CreatedAt:     s.now().UTC().UnixMilli(),
		CreatedAtType: edmInt64,
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return "", err
	}
	if _, err := s.taskTable.AddEntity(ctx, payload, nil); err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}
	return id, nil
}

type completedUpdate struct {
	aztables.Entity
	Completed bool `json:"Completed"`
}

// SetCompleted merges the completed flag into an existing task row. The
// day parameter scopes cache invalidation in wrapping layers; the row
// itself is addressed by owner and id alone.
func (s *Storage) SetCompleted(ctx context.Context, ownerID, day, id string, completed bool) error {
	upd := completedUpdate{
		Entity:    aztables.Entity{PartitionKey: ownerID, RowKey: id},
		Completed: completed,
	}
	payload, err := json.Marshal(upd)
	if err != nil {
		return err
	}
	et := azcore.ETagAny
	_, err = s.taskTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeMerge})
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// DeleteTask removes a task row. A row that is already absent yields
// ErrNotFound; callers treat that as the desired end state.
func (s *Storage) DeleteTask(ctx context.Context, ownerID, day, id string) error {
	if _, err := s.taskTable.DeleteEntity(ctx, ownerID, id, nil); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
