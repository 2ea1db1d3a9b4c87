package service

import (
	"context"
	"errors"

	"github.com/BuzzLyutic/taskflow/internal/model"
	"github.com/BuzzLyutic/taskflow/internal/query"
)

var (
	ErrValidation = errors.New("validation error")
)

const (
	msgNameEmpty   = "Name cannot be empty"
	msgTaskAdded   = "Task added"
	msgTaskUpdated = "Task updated"
)

// TaskStore is what the coordinators need from the task store.
type TaskStore interface {
	query.TaskSource
	Insert(ctx context.Context, t model.Task) error
	Update(ctx context.Context, t model.Task) error
	Delete(ctx context.Context, t model.Task) error
	DeleteCompleted(ctx context.Context) error
}

type PrefsStore interface {
	query.PrefsSource
	SetSortOrder(ctx context.Context, order model.SortOrder) error
	SetHideCompleted(ctx context.Context, hide bool) error
}
