package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow/internal/worker"
)

// DeleteCompletedService backs the confirmation dialog for bulk deletion.
// The dialog disappears as soon as the user confirms, so the deletion runs
// on the process-wide pool instead of the dialog's scope. There is no undo.
type DeleteCompletedService struct {
	store  TaskStore
	pool   *worker.Pool
	logger *zap.Logger
}

func NewDeleteCompletedService(store TaskStore, pool *worker.Pool, logger *zap.Logger) *DeleteCompletedService {
	return &DeleteCompletedService{store: store, pool: pool, logger: logger}
}

// OnConfirm hands the deletion to the pool; ctx only bounds the hand-off.
func (s *DeleteCompletedService) OnConfirm(ctx context.Context) error {
	s.logger.Info("bulk delete of completed tasks requested")
	return s.pool.Submit(ctx, worker.Job{
		Name: "delete-completed",
		Run:  s.store.DeleteCompleted,
	})
}
