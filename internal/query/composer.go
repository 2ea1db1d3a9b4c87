// Package query derives the visible task list from the search text and the
// filter preferences.
package query

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow/internal/live"
	"github.com/BuzzLyutic/taskflow/internal/model"
)

type TaskSource interface {
	Observe(ctx context.Context, q model.Query) *live.Stream[[]model.Task]
}

type PrefsSource interface {
	Observe(ctx context.Context) *live.Stream[model.FilterPreferences]
}

// Composer keeps exactly one task subscription open, for the newest
// combination of search text and preferences. When either input changes the
// old subscription is cancelled before a new one starts, and any result it
// produced but did not deliver yet is discarded.
type Composer struct {
	tasks  TaskSource
	prefs  PrefsSource
	logger *zap.Logger

	searchChanged *live.Notifier

	mu      sync.Mutex
	search  string
	current model.Query
}

func New(tasks TaskSource, prefs PrefsSource, logger *zap.Logger) *Composer {
	return &Composer{
		tasks:         tasks,
		prefs:         prefs,
		logger:        logger,
		searchChanged: live.NewNotifier(),
	}
}

func (c *Composer) SetSearch(text string) {
	c.mu.Lock()
	if c.search == text {
		c.mu.Unlock()
		return
	}
	c.search = text
	c.mu.Unlock()

	c.searchChanged.Notify()
}

func (c *Composer) Search() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.search
}

// Current returns the parameters of the active task subscription.
func (c *Composer) Current() model.Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Run starts the composed stream. Nothing is queried before the first
// preferences value arrives.
func (c *Composer) Run(ctx context.Context) *live.Stream[[]model.Task] {
	return live.Start(ctx, func(ctx context.Context, out live.Emitter[[]model.Task]) error {
		prefsStream := c.prefs.Observe(ctx)

		var (
			prefs     model.FilterPreferences
			havePrefs bool

			sub       *live.Stream[[]model.Task]
			cancelSub = context.CancelFunc(func() {})
			active    model.Query

			pending     []model.Task
			havePending bool
		)
		defer func() { cancelSub() }()

		for {
			searchChanged := c.searchChanged.Changed()

			if havePrefs {
				q := model.Query{Search: c.Search(), SortOrder: prefs.SortOrder, HideCompleted: prefs.HideCompleted}
				if sub == nil || q != active {
					cancelSub()
					pending, havePending = nil, false

					subCtx, cancel := context.WithCancel(ctx)
					sub, cancelSub, active = c.tasks.Observe(subCtx, q), cancel, q
					c.setCurrent(q)
					c.logger.Debug("task query resubscribed",
						zap.String("search", q.Search),
						zap.String("sort_order", string(q.SortOrder)),
						zap.Bool("hide_completed", q.HideCompleted))
				}
			}

			var subC <-chan []model.Task
			if sub != nil {
				subC = sub.C
			}
			var sendC chan<- []model.Task
			if havePending {
				sendC = out.Send()
			}

			select {
			case <-ctx.Done():
				return ctx.Err()

			case p, ok := <-prefsStream.C:
				if !ok {
					if err := prefsStream.Err(); err != nil {
						return fmt.Errorf("observe preferences: %w", err)
					}
					return ctx.Err()
				}
				prefs, havePrefs = p, true

			case <-searchChanged:

			case tasks, ok := <-subC:
				if !ok {
					if err := sub.Err(); err != nil {
						return fmt.Errorf("observe tasks: %w", err)
					}
					sub = nil
					continue
				}
				pending, havePending = tasks, true

			case sendC <- pending:
				pending, havePending = nil, false
			}
		}
	})
}

func (c *Composer) setCurrent(q model.Query) {
	c.mu.Lock()
	c.current = q
	c.mu.Unlock()
}
