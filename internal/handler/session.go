package handler

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow/internal/scope"
	"github.com/BuzzLyutic/taskflow/internal/service"
)

// session is one task list surface held open by a client.
type session struct {
	id    string
	scope *scope.Scope
	tasks *service.TasksService
}

type sessions struct {
	mu    sync.Mutex
	byID  map[string]*session
	base  context.Context
	newFn func(sc *scope.Scope) *service.TasksService
	log   *zap.Logger
}

func (s *sessions) open() *session {
	id := uuid.NewString()
	sc := scope.New(s.base, "tasks/"+id, s.log)
	sess := &session{id: id, scope: sc, tasks: s.newFn(sc)}

	s.mu.Lock()
	s.byID[id] = sess
	s.mu.Unlock()
	return sess
}

func (s *sessions) get(id string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	return sess, ok
}

// close tears the surface down; its pending work is cancelled.
func (s *sessions) close(id string) bool {
	s.mu.Lock()
	sess, ok := s.byID[id]
	delete(s.byID, id)
	s.mu.Unlock()

	if !ok {
		return false
	}
	// cancel first: senders blocked on a full buffer must see cancellation, not ErrClosed
	if err := sess.scope.Close(); err != nil {
		s.log.Warn("session ended with a failed operation", zap.String("session", id), zap.Error(err))
	}
	sess.tasks.Events().Close()
	return true
}

func (s *sessions) closeAll() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.close(id)
	}
}
