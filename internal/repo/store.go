package repo

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow/internal/live"
	"github.com/BuzzLyutic/taskflow/internal/model"
)

// TaskStore puts a live read model on top of a TaskRepository: every
// successful write re-runs all active queries.
type TaskStore struct {
	repo     TaskRepository
	notifier *live.Notifier
	logger   *zap.Logger
}

func NewTaskStore(repo TaskRepository, logger *zap.Logger) *TaskStore {
	return &TaskStore{
		repo:     repo,
		notifier: live.NewNotifier(),
		logger:   logger,
	}
}

// Observe emits the tasks matching q now and after every change. A result
// the consumer has not taken yet is replaced by a fresh one when the data
// changes underneath it.
func (s *TaskStore) Observe(ctx context.Context, q model.Query) *live.Stream[[]model.Task] {
	return live.Start(ctx, func(ctx context.Context, out live.Emitter[[]model.Task]) error {
		for {
			changed := s.notifier.Changed()

			tasks, err := s.repo.List(ctx, q)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Error("task query failed", zap.String("search", q.Search), zap.Error(err))
				return fmt.Errorf("list tasks: %w", err)
			}

			if _, err := out.Emit(ctx, tasks, changed); err != nil {
				return err
			}

			select {
			case <-changed:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}

func (s *TaskStore) Get(ctx context.Context, id string) (model.Task, error) {
	return s.repo.Get(ctx, id)
}

func (s *TaskStore) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *TaskStore) Insert(ctx context.Context, t model.Task) error {
	if err := s.repo.Insert(ctx, t); err != nil {
		return fmt.Errorf("insert task %s: %w", t.ID, err)
	}
	s.notifier.Notify()
	return nil
}

func (s *TaskStore) Update(ctx context.Context, t model.Task) error {
	if err := s.repo.Update(ctx, t); err != nil {
		return fmt.Errorf("update task %s: %w", t.ID, err)
	}
	s.notifier.Notify()
	return nil
}

func (s *TaskStore) Delete(ctx context.Context, t model.Task) error {
	if err := s.repo.Delete(ctx, t.ID); err != nil {
		return fmt.Errorf("delete task %s: %w", t.ID, err)
	}
	s.notifier.Notify()
	return nil
}

func (s *TaskStore) DeleteCompleted(ctx context.Context) error {
	n, err := s.repo.DeleteCompleted(ctx)
	if err != nil {
		return fmt.Errorf("delete completed tasks: %w", err)
	}
	s.logger.Info("deleted completed tasks", zap.Int64("count", n))
	s.notifier.Notify()
	return nil
}
