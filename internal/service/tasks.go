package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow/internal/events"
	"github.com/BuzzLyutic/taskflow/internal/live"
	"github.com/BuzzLyutic/taskflow/internal/model"
	"github.com/BuzzLyutic/taskflow/internal/query"
	"github.com/BuzzLyutic/taskflow/internal/scope"
)

// TasksService coordinates the task list surface. All of its work runs in
// the surface's scope and stops when the surface is closed.
type TasksService struct {
	store    TaskStore
	prefs    PrefsStore
	composer *query.Composer
	scope    *scope.Scope
	events   *events.Channel[model.Event]
	logger   *zap.Logger
}

func NewTasksService(sc *scope.Scope, store TaskStore, prefs PrefsStore, eventBuffer int, logger *zap.Logger) *TasksService {
	return &TasksService{
		store:    store,
		prefs:    prefs,
		composer: query.New(store, prefs, logger),
		scope:    sc,
		events:   events.NewChannel[model.Event](eventBuffer),
		logger:   logger,
	}
}

// Tasks is the live, filtered and ordered task list. It ends with ctx or
// with the surface, whichever comes first.
func (s *TasksService) Tasks(ctx context.Context) *live.Stream[[]model.Task] {
	ctx, cancel := s.within(ctx)
	stream := s.composer.Run(ctx)
	go func() {
		<-stream.Done()
		cancel()
	}()
	return stream
}

// Preferences is the live filter state, e.g. for the hide-completed checkbox.
func (s *TasksService) Preferences(ctx context.Context) *live.Stream[model.FilterPreferences] {
	ctx, cancel := s.within(ctx)
	stream := s.prefs.Observe(ctx)
	go func() {
		<-stream.Done()
		cancel()
	}()
	return stream
}

func (s *TasksService) Events() *events.Channel[model.Event] {
	return s.events
}

func (s *TasksService) Query() model.Query {
	return s.composer.Current()
}

func (s *TasksService) SetSearch(text string) {
	s.composer.SetSearch(text)
}

func (s *TasksService) OnSortOrderSelected(order model.SortOrder) {
	s.scope.Launch(func(ctx context.Context) error {
		return s.prefs.SetSortOrder(ctx, order)
	})
}

func (s *TasksService) OnHideCompletedClick(hide bool) {
	s.scope.Launch(func(ctx context.Context) error {
		return s.prefs.SetHideCompleted(ctx, hide)
	})
}

func (s *TasksService) OnTaskSelected(task model.Task) {
	s.send(model.NavigateToEditScreen{Task: task})
}

func (s *TasksService) OnTaskCheckedChanged(task model.Task, checked bool) {
	task.Completed = checked
	s.scope.Launch(func(ctx context.Context) error {
		return s.store.Update(ctx, task)
	})
}

// OnTaskSwiped deletes task and offers to undo it. The deleted record travels
// with the event so the undo can restore it unchanged.
func (s *TasksService) OnTaskSwiped(task model.Task) {
	s.scope.Launch(func(ctx context.Context) error {
		if err := s.store.Delete(ctx, task); err != nil {
			return err
		}
		s.logger.Info("task deleted", zap.String("task_id", task.ID))
		return s.events.Send(ctx, model.ShowUndoMessage{Task: task})
	})
}

func (s *TasksService) OnUndoDelete(task model.Task) {
	s.scope.Launch(func(ctx context.Context) error {
		return s.store.Insert(ctx, task)
	})
}

func (s *TasksService) OnAddNewTask() {
	s.send(model.NavigateToAddScreen{})
}

func (s *TasksService) OnDeleteAllCompleted() {
	s.send(model.NavigateToDeleteCompletedScreen{})
}

// OnAddEditResult turns the add/edit flow's result code into a
// confirmation. Other codes, such as a cancelled flow, are ignored.
func (s *TasksService) OnAddEditResult(result model.ResultCode) {
	switch result {
	case model.AddOK:
		s.send(model.ShowConfirmation{Message: msgTaskAdded})
	case model.EditOK:
		s.send(model.ShowConfirmation{Message: msgTaskUpdated})
	}
}

func (s *TasksService) within(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.scope.Context(), cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (s *TasksService) send(e model.Event) {
	s.scope.Launch(func(ctx context.Context) error {
		return s.events.Send(ctx, e)
	})
}
