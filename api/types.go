package api

import (
	"context"

	"daytasks/domain"
	"daytasks/session"
)

// Storage abstracts persistence for handlers.
type Storage interface {
	FetchTasks(ctx context.Context, ownerID, day string) ([]domain.Task, error)
	CreateTask(ctx context.Context, task domain.Task) (string, error)
	SetCompleted(ctx context.Context, ownerID, day, id string, completed bool) error
	DeleteTask(ctx context.Context, ownerID, day, id string) error
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Feed opens live snapshot subscriptions and broadcasts write
// notifications to them.
type Feed interface {
	Subscribe(ctx context.Context, ownerID, day string, onSnapshot func([]domain.Task), onError func(error)) session.Subscription
	Publish(ctx context.Context, ownerID, day string) error
}
