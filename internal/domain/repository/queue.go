package repository

import (
	"context"

	"github.com/hszk-dev/purestream/internal/domain/model"
)

// PrefetchQueue distributes prefetch tasks to remote workers.
// Implementations should be provided by the infrastructure layer (e.g., RabbitMQ).
type PrefetchQueue interface {
	// PublishPrefetchTask sends a prefetch task to the queue.
	// Used by the viewer when prefetching runs in queue mode.
	PublishPrefetchTask(ctx context.Context, task model.PrefetchTask) error

	// ConsumePrefetchTasks starts consuming prefetch tasks from the queue.
	// The handler function is called for each received task.
	// Used by the worker service.
	ConsumePrefetchTasks(ctx context.Context, handler func(task model.PrefetchTask) error) error

	// Close gracefully closes the connection to the message queue.
	Close() error
}
