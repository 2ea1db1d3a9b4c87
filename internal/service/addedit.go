package service

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow/internal/events"
	"github.com/BuzzLyutic/taskflow/internal/model"
	"github.com/BuzzLyutic/taskflow/internal/scope"
)

// AddEditService coordinates the screen that creates a task or edits one.
type AddEditService struct {
	store  TaskStore
	scope  *scope.Scope
	events *events.Channel[model.Event]
	logger *zap.Logger

	task *model.Task // nil when adding

	mu        sync.Mutex
	name      string
	important bool
}

// NewAddEditService starts editing task, or a new task when task is nil.
func NewAddEditService(sc *scope.Scope, store TaskStore, task *model.Task, eventBuffer int, logger *zap.Logger) *AddEditService {
	s := &AddEditService{
		store:  store,
		scope:  sc,
		events: events.NewChannel[model.Event](eventBuffer),
		logger: logger,
	}
	if task != nil {
		t := *task
		s.task = &t
		s.name = t.Name
		s.important = t.Important
	}
	return s
}

func (s *AddEditService) Events() *events.Channel[model.Event] {
	return s.events
}

func (s *AddEditService) SetName(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

func (s *AddEditService) SetImportant(important bool) {
	s.mu.Lock()
	s.important = important
	s.mu.Unlock()
}

func (s *AddEditService) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *AddEditService) Important() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.important
}

// Save validates the form and writes it. A blank name produces an invalid
// input message, no write, and ErrValidation. On a closed surface nothing is
// queued and Save returns scope.ErrClosed.
func (s *AddEditService) Save() error {
	s.mu.Lock()
	name, important := s.name, s.important
	s.mu.Unlock()

	if strings.TrimSpace(name) == "" {
		s.launchSend(model.ShowInvalidInputMessage{Message: msgNameEmpty})
		return ErrValidation
	}

	if s.task != nil {
		updated := *s.task
		updated.Name = name
		updated.Important = important
		if !s.scope.Launch(func(ctx context.Context) error {
			if err := s.store.Update(ctx, updated); err != nil {
				return err
			}
			return s.events.Send(ctx, model.NavigateBack{Result: model.EditOK})
		}) {
			return scope.ErrClosed
		}
		return nil
	}

	created := model.NewTask(name, important)
	if !s.scope.Launch(func(ctx context.Context) error {
		if err := s.store.Insert(ctx, created); err != nil {
			return err
		}
		s.logger.Info("task created", zap.String("task_id", created.ID))
		return s.events.Send(ctx, model.NavigateBack{Result: model.AddOK})
	}) {
		return scope.ErrClosed
	}
	return nil
}

func (s *AddEditService) launchSend(e model.Event) {
	s.scope.Launch(func(ctx context.Context) error {
		return s.events.Send(ctx, e)
	})
}
