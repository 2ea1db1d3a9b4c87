package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/BuzzLyutic/taskflow/internal/model"
)

const (
	sqliteSelectTasks = `
		SELECT id, name, important, completed, created_at
		FROM tasks
		WHERE (completed = 0 OR ? = 0)
		  AND (? = '' OR instr(name, ?) > 0)`
	sqliteOrderByName = ` ORDER BY important DESC, name, id`
	sqliteOrderByDate = ` ORDER BY important DESC, created_at, id`
)

// SQLiteTaskRepo stores tasks in a local SQLite file. created_at is kept as
// Unix nanoseconds so that it sorts numerically.
type SQLiteTaskRepo struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteTaskRepo, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// одно соединение: SQLite сериализует запись сам, а так нет SQLITE_BUSY
	db.SetMaxOpenConns(1)

	schema, err := migrationFiles.ReadFile("migrations/sqlite.sql")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("read schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(schema)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteTaskRepo{db: db}, nil
}

func (r *SQLiteTaskRepo) Close() {
	_ = r.db.Close()
}

func (r *SQLiteTaskRepo) Insert(ctx context.Context, t model.Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, name, important, completed, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET name = excluded.name, important = excluded.important,
		    completed = excluded.completed, created_at = excluded.created_at
	`, t.ID, t.Name, boolInt(t.Important), boolInt(t.Completed), t.CreatedAt.UnixNano())
	return err
}

func (r *SQLiteTaskRepo) Get(ctx context.Context, id string) (model.Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, important, completed, created_at
		FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, ErrorNotFound
	}
	return t, err
}

func (r *SQLiteTaskRepo) List(ctx context.Context, q model.Query) ([]model.Task, error) {
	query := sqliteSelectTasks + sqliteOrderByDate
	if q.SortOrder == model.ByName {
		query = sqliteSelectTasks + sqliteOrderByName
	}

	rows, err := r.db.QueryContext(ctx, query, boolInt(q.HideCompleted), q.Search, q.Search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *SQLiteTaskRepo) Update(ctx context.Context, t model.Task) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET name = ?, important = ?, completed = ?, created_at = ?
		WHERE id = ?`,
		t.Name, boolInt(t.Important), boolInt(t.Completed), t.CreatedAt.UnixNano(), t.ID,
	)
	return err
}

func (r *SQLiteTaskRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	return err
}

func (r *SQLiteTaskRepo) DeleteCompleted(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE completed = 1`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLiteTaskRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n)
	return n, err
}

func (r *SQLiteTaskRepo) Seed(ctx context.Context, tasks []model.Task) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO app_meta (key, value) VALUES (?, ?)`,
		seededKey, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return 0, err
	}

	for _, t := range tasks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (id, name, important, completed, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			t.ID, t.Name, boolInt(t.Important), boolInt(t.Completed), t.CreatedAt.UnixNano(),
		); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(tasks), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(s rowScanner) (model.Task, error) {
	var (
		t         model.Task
		important int64
		completed int64
		createdAt int64
	)
	if err := s.Scan(&t.ID, &t.Name, &important, &completed, &createdAt); err != nil {
		return model.Task{}, err
	}
	t.Important = important != 0
	t.Completed = completed != 0
	t.CreatedAt = time.Unix(0, createdAt).UTC()
	return t, nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
