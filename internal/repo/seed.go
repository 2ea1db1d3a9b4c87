package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/taskflow/internal/model"
)

// DemoTasks returns the tasks a brand-new database starts with, created one
// millisecond apart so that date order matches list order.
func DemoTasks(now time.Time) []model.Task {
	seeds := []struct {
		name      string
		important bool
		completed bool
	}{
		{name: "Wash the dishes"},
		{name: "Do the laundry"},
		{name: "Buy groceries", important: true},
		{name: "Prepare food", completed: true},
		{name: "Call mom"},
		{name: "Visit grandma", completed: true},
		{name: "Repair my bike"},
		{name: "Call Elon Musk"},
	}

	base := now.UTC().Truncate(time.Millisecond)
	tasks := make([]model.Task, 0, len(seeds))
	for i, s := range seeds {
		tasks = append(tasks, model.Task{
			ID:        uuid.NewString(),
			Name:      s.name,
			Important: s.important,
			Completed: s.completed,
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		})
	}
	return tasks
}

// Seed fills a never-seeded store with the demo tasks and announces them to
// live observers.
func (s *TaskStore) Seed(ctx context.Context) (int, error) {
	n, err := s.repo.Seed(ctx, DemoTasks(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("seed tasks: %w", err)
	}
	if n > 0 {
		s.notifier.Notify()
	}
	return n, nil
}
