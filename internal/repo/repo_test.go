package repo

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/BuzzLyutic/taskflow/internal/model"
)

func newSQLiteRepo(t *testing.T) *SQLiteTaskRepo {
	t.Helper()
	r, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

var (
	pgOnce      sync.Once
	pgContainer *postgres.PostgresContainer
	pgURL       string
	pgErr       error
)

func TestMain(m *testing.M) {
	code := m.Run()
	if pgContainer != nil {
		_ = pgContainer.Terminate(context.Background())
	}
	os.Exit(code)
}

// pgDatabaseURL returns TEST_DATABASE_URL or, without it, a throwaway
// PostgreSQL container shared by the whole package run.
func pgDatabaseURL(t *testing.T) string {
	t.Helper()
	if dbURL := os.Getenv("TEST_DATABASE_URL"); dbURL != "" {
		return dbURL
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	pgOnce.Do(func() {
		ctx := context.Background()
		// Создаем PostgreSQL контейнер
		pgContainer, pgErr = postgres.Run(ctx,
			"postgres:15-alpine",
			postgres.WithDatabase("taskflow"),
			postgres.WithUsername("taskflow"),
			postgres.WithPassword("taskflow"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		if pgErr != nil {
			return
		}
		pgURL, pgErr = pgContainer.ConnectionString(ctx, "sslmode=disable")
	})
	require.NoError(t, pgErr, "start postgres container")
	return pgURL
}

func newPgRepo(t *testing.T) *PgTaskRepo {
	t.Helper()
	r, err := OpenPostgres(context.Background(), pgDatabaseURL(t))
	require.NoError(t, err)
	t.Cleanup(r.Close)

	// Очистка
	_, err = r.pool.Exec(context.Background(), "TRUNCATE tasks, app_meta")
	require.NoError(t, err)
	return r
}

func TestSQLiteTaskRepo(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) TaskRepository { return newSQLiteRepo(t) })
}

func TestPgTaskRepo(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) TaskRepository { return newPgRepo(t) })
}

func runRepositoryContract(t *testing.T, open func(t *testing.T) TaskRepository) {
	ctx := context.Background()

	t.Run("insert is an upsert keeping the caller id", func(t *testing.T) {
		r := open(t)
		task := model.NewTask("Call mom", false)
		require.NoError(t, r.Insert(ctx, task))

		task.Name = "Call dad"
		task.Completed = true
		require.NoError(t, r.Insert(ctx, task))

		got, err := r.Get(ctx, task.ID)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(task, got))

		n, err := r.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("update and delete of missing ids are silent", func(t *testing.T) {
		r := open(t)
		ghost := model.NewTask("ghost", false)
		assert.NoError(t, r.Update(ctx, ghost))
		assert.NoError(t, r.Delete(ctx, ghost.ID))

		_, err := r.Get(ctx, ghost.ID)
		assert.ErrorIs(t, err, ErrorNotFound)
	})

	t.Run("update replaces the whole record", func(t *testing.T) {
		r := open(t)
		task := model.NewTask("Repair my bike", false)
		require.NoError(t, r.Insert(ctx, task))

		task.Name = "Repair the bike"
		task.Important = true
		task.Completed = true
		require.NoError(t, r.Update(ctx, task))

		got, err := r.Get(ctx, task.ID)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(task, got))
	})

	t.Run("delete completed leaves open tasks", func(t *testing.T) {
		r := open(t)
		open1 := model.NewTask("open", false)
		done := model.NewTask("done", false)
		done.Completed = true
		require.NoError(t, r.Insert(ctx, open1))
		require.NoError(t, r.Insert(ctx, done))

		n, err := r.DeleteCompleted(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		tasks, err := r.List(ctx, model.Query{SortOrder: model.ByDate})
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, open1.ID, tasks[0].ID)
	})

	t.Run("seed runs once", func(t *testing.T) {
		r := open(t)
		n, err := r.Seed(ctx, DemoTasks(time.Now()))
		require.NoError(t, err)
		assert.Equal(t, 8, n)

		n, err = r.Seed(ctx, DemoTasks(time.Now()))
		require.NoError(t, err)
		assert.Zero(t, n)

		count, err := r.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 8, count)
	})

	t.Run("list filters and orders", func(t *testing.T) {
		r := open(t)
		all := randomTasks(40)
		for _, task := range all {
			require.NoError(t, r.Insert(ctx, task))
		}

		for _, search := range []string{"", "a", "Ta", "task", "zz"} {
			for _, order := range []model.SortOrder{model.ByName, model.ByDate} {
				for _, hide := range []bool{false, true} {
					q := model.Query{Search: search, SortOrder: order, HideCompleted: hide}
					t.Run(fmt.Sprintf("%q/%s/%v", search, order, hide), func(t *testing.T) {
						got, err := r.List(ctx, q)
						require.NoError(t, err)
						assert.Empty(t, cmp.Diff(expected(all, q), got))
					})
				}
			}
		}
	})

	t.Run("important first when sorted by name", func(t *testing.T) {
		r := open(t)
		zebra := model.NewTask("Zebra", false)
		zebra.CreatedAt = time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
		urgent := model.NewTask("aardvark later", true)
		require.NoError(t, r.Insert(ctx, zebra))
		require.NoError(t, r.Insert(ctx, urgent))

		got, err := r.List(ctx, model.Query{SortOrder: model.ByName})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, urgent.ID, got[0].ID)
		assert.Equal(t, zebra.ID, got[1].ID)
	})
}

func randomTasks(n int) []model.Task {
	rnd := rand.New(rand.NewSource(42))
	words := []string{"Task", "task", "alpha", "Beta", "gamma", "Zulu", "bazaar"}
	base := time.Now().UTC().Truncate(time.Microsecond)

	tasks := make([]model.Task, 0, n)
	for i := 0; i < n; i++ {
		t := model.NewTask(fmt.Sprintf("%s %s", words[rnd.Intn(len(words))], words[rnd.Intn(len(words))]), rnd.Intn(3) == 0)
		t.Completed = rnd.Intn(2) == 0
		t.CreatedAt = base.Add(time.Duration(rnd.Intn(10_000)) * time.Millisecond)
		tasks = append(tasks, t)
	}
	return tasks
}

func expected(all []model.Task, q model.Query) []model.Task {
	out := make([]model.Task, 0)
	for _, t := range all {
		if q.Matches(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return q.Less(out[i], out[j]) })
	return out
}
