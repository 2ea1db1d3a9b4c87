package repo

import (
	"context"

	"github.com/BuzzLyutic/taskflow/internal/model"
)

// TaskRepository is the durable task collection. Implementations must be
// safe for concurrent use.
type TaskRepository interface {
	// Insert stores t under its own ID, replacing any record with that ID.
	Insert(ctx context.Context, t model.Task) error
	Get(ctx context.Context, id string) (model.Task, error)
	List(ctx context.Context, q model.Query) ([]model.Task, error)
	// Update replaces the record with t.ID. A missing record is not an error.
	Update(ctx context.Context, t model.Task) error
	Delete(ctx context.Context, id string) error
	DeleteCompleted(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int, error)
	// Seed inserts tasks only if this database was never seeded before and
	// reports how many were inserted.
	Seed(ctx context.Context, tasks []model.Task) (int, error)
	Close()
}
