package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/taskflow/internal/model"
)

const (
	pgSelectTasks = `
		SELECT id, name, important, completed, created_at
		FROM tasks
		WHERE (completed = FALSE OR $2::boolean = FALSE)
		  AND ($1::text = '' OR strpos(name, $1::text) > 0)`
	// COLLATE "C" keeps name ordering bytewise, independent of the database locale.
	pgOrderByName = ` ORDER BY important DESC, name COLLATE "C", id`
	pgOrderByDate = ` ORDER BY important DESC, created_at, id`
)

type PgTaskRepo struct { // Репозиторий поверх PostgreSQL
	pool *pgxpool.Pool
}

func NewPgTaskRepo(pool *pgxpool.Pool) *PgTaskRepo {
	return &PgTaskRepo{
		pool: pool,
	}
}

// OpenPostgres connects, pings and applies the schema.
func OpenPostgres(ctx context.Context, url string) (*PgTaskRepo, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	schema, err := migrationFiles.ReadFile("migrations/postgres.sql")
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("read schema: %w", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return NewPgTaskRepo(pool), nil
}

func (r *PgTaskRepo) Close() {
	r.pool.Close()
}

func (r *PgTaskRepo) Insert(ctx context.Context, t model.Task) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tasks (id, name, important, completed, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, important = EXCLUDED.important,
		    completed = EXCLUDED.completed, created_at = EXCLUDED.created_at
	`, t.ID, t.Name, t.Important, t.Completed, t.CreatedAt)
	return err
}

func (r *PgTaskRepo) Get(ctx context.Context, id string) (model.Task, error) {
	var t model.Task
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, important, completed, created_at
		FROM tasks
		WHERE id = $1
	`, id).Scan(&t.ID, &t.Name, &t.Important, &t.Completed, &t.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrorNotFound
	}
	t.CreatedAt = t.CreatedAt.UTC()
	return t, err
}

func (r *PgTaskRepo) List(ctx context.Context, q model.Query) ([]model.Task, error) {
	query := pgSelectTasks + pgOrderByDate
	if q.SortOrder == model.ByName {
		query = pgSelectTasks + pgOrderByName
	}

	rows, err := r.pool.Query(ctx, query, q.Search, q.HideCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(&t.ID, &t.Name, &t.Important, &t.Completed, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.CreatedAt = t.CreatedAt.UTC()
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *PgTaskRepo) Update(ctx context.Context, t model.Task) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET name = $2, important = $3, completed = $4, created_at = $5
		WHERE id = $1
	`, t.ID, t.Name, t.Important, t.Completed, t.CreatedAt)
	return err
}

func (r *PgTaskRepo) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
	return err
}

func (r *PgTaskRepo) DeleteCompleted(ctx context.Context) (int64, error) {
	cmd, err := r.pool.Exec(ctx, "DELETE FROM tasks WHERE completed = TRUE")
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *PgTaskRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM tasks").Scan(&n)
	return n, err
}

func (r *PgTaskRepo) Seed(ctx context.Context, tasks []model.Task) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	// Маркер вставляется первым: параллельный Seed упрется в конфликт и ничего не добавит
	cmd, err := tx.Exec(ctx, `
		INSERT INTO app_meta (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING
	`, seededKey, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	if cmd.RowsAffected() == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, t := range tasks {
		batch.Queue(`
			INSERT INTO tasks (id, name, important, completed, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, t.ID, t.Name, t.Important, t.Completed, t.CreatedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(tasks), nil
}
