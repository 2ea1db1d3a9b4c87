// Package prefs persists the task list filter preferences and pushes every
// change to live observers.
package prefs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow/internal/live"
	"github.com/BuzzLyutic/taskflow/internal/model"
)

// ErrUnreadable marks a preference file that exists but cannot be read or
// decoded. Readers fall back to defaults on it.
var ErrUnreadable = errors.New("preferences unreadable")

// stored mirrors the file; absent keys fall back to their defaults.
type stored struct {
	SortOrder     *string `json:"sort_order,omitempty"`
	HideCompleted *bool   `json:"hide_completed,omitempty"`
}

type Store struct {
	path     string
	logger   *zap.Logger
	notifier *live.Notifier

	mu       sync.Mutex
	readFile func(string) ([]byte, error)
}

func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{
		path:     path,
		logger:   logger,
		notifier: live.NewNotifier(),
		readFile: os.ReadFile,
	}
}

// Observe emits the current preferences, then every distinct change.
func (s *Store) Observe(ctx context.Context) *live.Stream[model.FilterPreferences] {
	return live.Start(ctx, func(ctx context.Context, out live.Emitter[model.FilterPreferences]) error {
		var (
			last    model.FilterPreferences
			emitted bool
		)
		for {
			changed := s.notifier.Changed()

			p, err := s.Current(ctx)
			if err != nil {
				return err
			}

			if !emitted || p != last {
				sent, err := out.Emit(ctx, p, changed)
				if err != nil {
					return err
				}
				if sent {
					last, emitted = p, true
				}
			}

			select {
			case <-changed:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}

// Current reads the persisted preferences, substituting defaults when the
// file is unreadable.
func (s *Store) Current(ctx context.Context) (model.FilterPreferences, error) {
	if err := ctx.Err(); err != nil {
		return model.FilterPreferences{}, err
	}

	st, err := s.load()
	if err != nil {
		if !errors.Is(err, ErrUnreadable) {
			return model.FilterPreferences{}, err
		}
		s.logger.Warn("error reading preferences, using defaults", zap.String("path", s.path), zap.Error(err))
		return model.DefaultPreferences(), nil
	}
	return st.resolve(), nil
}

func (s *Store) SetSortOrder(ctx context.Context, order model.SortOrder) error {
	if _, err := model.ParseSortOrder(string(order)); err != nil {
		return err
	}
	return s.edit(ctx, func(st *stored) bool {
		if st.SortOrder != nil && *st.SortOrder == string(order) {
			return false
		}
		v := string(order)
		st.SortOrder = &v
		return true
	})
}

func (s *Store) SetHideCompleted(ctx context.Context, hide bool) error {
	return s.edit(ctx, func(st *stored) bool {
		if st.HideCompleted != nil && *st.HideCompleted == hide {
			return false
		}
		st.HideCompleted = &hide
		return true
	})
}

// edit applies mutate to the stored record under the write lock. Nothing is
// written or announced when mutate reports no change.
func (s *Store) edit(ctx context.Context, mutate func(*stored) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		if !errors.Is(err, ErrUnreadable) {
			return err
		}
		s.logger.Warn("overwriting unreadable preferences", zap.String("path", s.path), zap.Error(err))
		st = stored{}
	}

	if !mutate(&st) {
		return nil
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create preferences dir: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}

	s.notifier.Notify()
	return nil
}

func (s *Store) load() (stored, error) {
	data, err := s.readFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return stored{}, nil
		}
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return stored{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		return stored{}, fmt.Errorf("read preferences: %w", err)
	}

	var st stored
	if err := json.Unmarshal(data, &st); err != nil {
		return stored{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if st.SortOrder != nil {
		if _, err := model.ParseSortOrder(*st.SortOrder); err != nil {
			return stored{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
	}
	return st, nil
}

func (st stored) resolve() model.FilterPreferences {
	p := model.DefaultPreferences()
	if st.SortOrder != nil {
		p.SortOrder = model.SortOrder(*st.SortOrder)
	}
	if st.HideCompleted != nil {
		p.HideCompleted = *st.HideCompleted
	}
	return p
}
