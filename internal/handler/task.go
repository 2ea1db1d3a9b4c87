package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow/internal/events"
	"github.com/BuzzLyutic/taskflow/internal/model"
	"github.com/BuzzLyutic/taskflow/internal/repo"
	"github.com/BuzzLyutic/taskflow/internal/scope"
	"github.com/BuzzLyutic/taskflow/internal/service"
	"github.com/BuzzLyutic/taskflow/pkg/respond"
)

type TaskStore interface {
	service.TaskStore
	Get(ctx context.Context, id string) (model.Task, error)
	Count(ctx context.Context) (int, error)
}

type TaskHandler struct {
	store       TaskStore
	bulk        *service.DeleteCompletedService
	eventBuffer int
	logger      *zap.Logger
	sessions    *sessions
}

// NewTaskHandler serves task list surfaces. Sessions live under base, not
// under the request that opened them.
func NewTaskHandler(base context.Context, store TaskStore, prefs service.PrefsStore, bulk *service.DeleteCompletedService, eventBuffer int, logger *zap.Logger) *TaskHandler {
	h := &TaskHandler{
		store:       store,
		bulk:        bulk,
		eventBuffer: eventBuffer,
		logger:      logger,
	}
	h.sessions = &sessions{
		byID: make(map[string]*session),
		base: base,
		newFn: func(sc *scope.Scope) *service.TasksService {
			return service.NewTasksService(sc, store, prefs, eventBuffer, logger)
		},
		log: logger,
	}
	return h
}

func (h *TaskHandler) Routes(r chi.Router) {
	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/tasks/delete-completed", h.ConfirmDeleteCompleted)

		r.Post("/sessions", h.OpenSession)
		r.Route("/sessions/{sid}", func(r chi.Router) {
			r.Delete("/", h.CloseSession)
			r.Get("/tasks", h.StreamTasks)
			r.Get("/events", h.StreamEvents)
			r.Get("/preferences", h.Preferences)
			r.Put("/search", h.Search)
			r.Put("/sort", h.Sort)
			r.Put("/hide-completed", h.HideCompleted)
			r.Post("/add", h.Add)
			r.Post("/save", h.Save)
			r.Post("/undo", h.Undo)
			r.Post("/delete-completed", h.DeleteCompletedMenu)
			r.Post("/tasks/{id}/select", h.Select)
			r.Put("/tasks/{id}/completed", h.Completed)
			r.Delete("/tasks/{id}", h.Swipe)
		})
	})
}

// Close ends every open session.
func (h *TaskHandler) Close() {
	h.sessions.closeAll()
}

func (h *TaskHandler) Health(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.Count(r.Context())
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, map[string]interface{}{"status": "ok", "tasks": n})
}

func (h *TaskHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.open()
	respond.JSON(w, r, http.StatusCreated, map[string]string{"id": sess.id})
}

func (h *TaskHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.close(chi.URLParam(r, "sid")) {
		respond.Error(w, r, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) StreamTasks(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	stream, err := respond.NewStream(w)
	if err != nil {
		respond.Error(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	tasks := sess.tasks.Tasks(r.Context())
	for list := range tasks.C {
		if err := stream.Event("tasks", list); err != nil {
			h.logger.Debug("task stream client gone", zap.String("session", sess.id), zap.Error(err))
			return
		}
	}
	if err := tasks.Err(); err != nil {
		h.logger.Error("task stream failed", zap.String("session", sess.id), zap.Error(err))
		stream.Event("error", map[string]string{"error": "internal error"})
	}
}

func (h *TaskHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	sub, err := sess.tasks.Events().Subscribe()
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	defer sub.Close()

	stream, err := respond.NewStream(w)
	if err != nil {
		respond.Error(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	for {
		e, err := sub.Next(r.Context())
		if err != nil {
			return
		}
		if err := stream.Event(e.Kind(), e); err != nil {
			h.logger.Warn("event lost, client gone", zap.String("session", sess.id), zap.String("event", e.Kind()))
			return
		}
	}
}

func (h *TaskHandler) Preferences(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	prefs := sess.tasks.Preferences(ctx)
	p, open := <-prefs.C
	if !open {
		h.handleErrors(w, r, prefs.Err())
		return
	}
	respond.JSON(w, r, http.StatusOK, p)
}

func (h *TaskHandler) Search(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Query string `json:"query"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	sess.tasks.SetSearch(req.Query)
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) Sort(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		SortOrder string `json:"sort_order"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	order, err := model.ParseSortOrder(req.SortOrder)
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}

	sess.tasks.OnSortOrderSelected(order)
	w.WriteHeader(http.StatusAccepted)
}

func (h *TaskHandler) HideCompleted(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		HideCompleted bool `json:"hide_completed"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	sess.tasks.OnHideCompletedClick(req.HideCompleted)
	w.WriteHeader(http.StatusAccepted)
}

func (h *TaskHandler) Add(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.tasks.OnAddNewTask()
	w.WriteHeader(http.StatusAccepted)
}

func (h *TaskHandler) DeleteCompletedMenu(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.tasks.OnDeleteAllCompleted()
	w.WriteHeader(http.StatusAccepted)
}

func (h *TaskHandler) Select(w http.ResponseWriter, r *http.Request) {
	sess, task, ok := h.sessionTask(w, r)
	if !ok {
		return
	}
	sess.tasks.OnTaskSelected(task)
	w.WriteHeader(http.StatusAccepted)
}

func (h *TaskHandler) Completed(w http.ResponseWriter, r *http.Request) {
	sess, task, ok := h.sessionTask(w, r)
	if !ok {
		return
	}

	var req struct {
		Completed bool `json:"completed"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	sess.tasks.OnTaskCheckedChanged(task, req.Completed)
	w.WriteHeader(http.StatusAccepted)
}

func (h *TaskHandler) Swipe(w http.ResponseWriter, r *http.Request) {
	sess, task, ok := h.sessionTask(w, r)
	if !ok {
		return
	}
	sess.tasks.OnTaskSwiped(task)
	w.WriteHeader(http.StatusAccepted)
}

func (h *TaskHandler) Undo(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var task model.Task
	if !h.decode(w, r, &task) {
		return
	}
	if task.ID == "" {
		respond.Error(w, r, http.StatusBadRequest, "task id is required")
		return
	}

	sess.tasks.OnUndoDelete(task)
	w.WriteHeader(http.StatusAccepted)
}

// Save runs the add/edit screen for the length of the request and hands its
// result back to the list surface, like returning from a sub-screen.
func (h *TaskHandler) Save(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		TaskID    string `json:"task_id"`
		Name      string `json:"name"`
		Important bool   `json:"important"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	var target *model.Task
	if req.TaskID != "" {
		t, err := h.store.Get(r.Context(), req.TaskID)
		if err != nil {
			h.handleErrors(w, r, err)
			return
		}
		target = &t
	}

	sc := scope.New(r.Context(), "add-edit/"+sess.id, h.logger)
	defer sc.Close()

	form := service.NewAddEditService(sc, h.store, target, h.eventBuffer, h.logger)
	form.SetName(req.Name)
	form.SetImportant(req.Important)

	saveErr := form.Save()
	if saveErr != nil && !errors.Is(saveErr, service.ErrValidation) {
		h.handleErrors(w, r, saveErr)
		return
	}

	e, err := form.Events().Receive(sc.Context())
	if err != nil {
		if closeErr := sc.Close(); closeErr != nil {
			err = closeErr
		}
		h.handleErrors(w, r, err)
		return
	}

	switch e := e.(type) {
	case model.ShowInvalidInputMessage:
		respond.Error(w, r, http.StatusBadRequest, e.Message)
	case model.NavigateBack:
		sess.tasks.OnAddEditResult(e.Result)
		respond.JSON(w, r, http.StatusOK, map[string]interface{}{"result": e.Result})
	default:
		h.handleErrors(w, r, saveErr)
	}
}

func (h *TaskHandler) ConfirmDeleteCompleted(w http.ResponseWriter, r *http.Request) {
	if err := h.bulk.OnConfirm(r.Context()); err != nil {
		h.handleErrors(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *TaskHandler) session(w http.ResponseWriter, r *http.Request) (*session, bool) {
	sess, ok := h.sessions.get(chi.URLParam(r, "sid"))
	if !ok {
		respond.Error(w, r, http.StatusNotFound, "session not found")
	}
	return sess, ok
}

func (h *TaskHandler) sessionTask(w http.ResponseWriter, r *http.Request) (*session, model.Task, bool) {
	sess, ok := h.session(w, r)
	if !ok {
		return nil, model.Task{}, false
	}
	task, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleErrors(w, r, err)
		return nil, model.Task{}, false
	}
	return sess, task, true
}

func (h *TaskHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func (h *TaskHandler) handleErrors(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repo.ErrorNotFound):
		respond.Error(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrValidation):
		respond.Error(w, r, http.StatusBadRequest, "validation error")
	case errors.Is(err, events.ErrBusy):
		respond.Error(w, r, http.StatusConflict, "events already collected")
	default:
		h.logger.Error("internal error", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}
