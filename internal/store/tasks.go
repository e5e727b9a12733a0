package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"taskmirror/internal/service"
)

const taskColumns = `id, source_id, source, title, description, completed, read, stocked,
	created_at, updated_at, tags, author, url, icon_url, image_url, ogp_image_url,
	notion_page_url, synced_with_notion`

const insertTaskSQL = `INSERT INTO tasks (` + taskColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const upsertTaskSQL = insertTaskSQL + `
	ON CONFLICT(id) DO UPDATE SET
		source_id = excluded.source_id,
		source = excluded.source,
		title = excluded.title,
		description = excluded.description,
		completed = excluded.completed,
		read = excluded.read,
		stocked = excluded.stocked,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at,
		tags = excluded.tags,
		author = excluded.author,
		url = excluded.url,
		icon_url = excluded.icon_url,
		image_url = excluded.image_url,
		ogp_image_url = excluded.ogp_image_url,
		notion_page_url = excluded.notion_page_url,
		synced_with_notion = excluded.synced_with_notion`

// GetAll returns every task, newest first.
func (s *Store) GetAll(ctx context.Context) ([]service.Task, error) {
	return queryTasks(ctx, s.db, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC, id`)
}

// GetByID returns the task with the given id or ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (service.Task, error) {
	return getByID(ctx, s.db, id)
}

// GetUnsynced returns Notion tasks whose local edits have not been pushed,
// oldest edit first.
func (s *Store) GetUnsynced(ctx context.Context) ([]service.Task, error) {
	return queryTasks(ctx, s.db, `SELECT `+taskColumns+` FROM tasks
		WHERE source = ? AND synced_with_notion = 0
		ORDER BY updated_at, id`, string(service.SourceNotion))
}

// Insert adds a new task. It fails with ErrDuplicateKey if the id exists.
func (s *Store) Insert(ctx context.Context, task service.Task) error {
	return insertTask(ctx, s.db, task)
}

// Upsert writes task by id. With markUnsyncedIfNotion set, a Notion task is
// flagged as not synced; push-back acknowledgements pass false.
func (s *Store) Upsert(ctx context.Context, task service.Task, markUnsyncedIfNotion bool) error {
	if markUnsyncedIfNotion && task.Source == service.SourceNotion {
		task.SyncedWithNotion = false
	}
	return upsertTask(ctx, s.db, task)
}

// AddTask merges a remotely fetched task. An existing record keeps its
// Read, Stocked and SyncedWithNotion flags and takes every other field from
// task; a new record is inserted as-is. Reports whether a row was inserted.
func (s *Store) AddTask(ctx context.Context, task service.Task) (bool, error) {
	inserted := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := getByID(ctx, tx, task.ID)
		switch {
		case errors.Is(err, ErrNotFound):
			inserted = true
			return insertTask(ctx, tx, task)
		case err != nil:
			return err
		}

		task.Read = existing.Read
		task.Stocked = existing.Stocked
		task.SyncedWithNotion = existing.SyncedWithNotion
		return upsertTask(ctx, tx, task)
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// Delete removes a task. It returns ErrNotFound when nothing was deleted.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear removes every task.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return fmt.Errorf("failed to clear tasks: %w", err)
	}
	return nil
}

func getByID(ctx context.Context, db dbtx, id string) (service.Task, error) {
	row := db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return service.Task{}, ErrNotFound
	}
	if err != nil {
		return service.Task{}, fmt.Errorf("query row scan failed: %w", err)
	}
	return task, nil
}

func insertTask(ctx context.Context, db dbtx, task service.Task) error {
	args, err := taskArgs(task)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, insertTaskSQL, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, task.ID)
		}
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

func upsertTask(ctx context.Context, db dbtx, task service.Task) error {
	args, err := taskArgs(task)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, upsertTaskSQL, args...); err != nil {
		return fmt.Errorf("failed to upsert task: %w", err)
	}
	return nil
}

func queryTasks(ctx context.Context, db dbtx, query string, args ...any) ([]service.Task, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select tasks: %w", err)
	}
	defer rows.Close()

	result := []service.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (service.Task, error) {
	var t service.Task
	var source, tags string
	var completed, read, stocked, synced int
	var createdAt, updatedAt int64
	err := row.Scan(&t.ID, &t.SourceID, &source, &t.Title, &t.Description,
		&completed, &read, &stocked, &createdAt, &updatedAt, &tags,
		&t.Author, &t.URL, &t.IconURL, &t.ImageURL, &t.OGPImageURL,
		&t.NotionPageURL, &synced)
	if err != nil {
		return service.Task{}, err
	}

	t.Source = service.Source(source)
	t.Completed = completed != 0
	t.Read = read != 0
	t.Stocked = stocked != 0
	t.SyncedWithNotion = synced != 0
	t.CreatedAt = fromNanos(createdAt)
	t.UpdatedAt = fromNanos(updatedAt)

	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
			return service.Task{}, fmt.Errorf("invalid tags for task %s: %w", t.ID, err)
		}
	}
	if len(t.Tags) == 0 {
		t.Tags = nil
	}
	return t, nil
}

func taskArgs(t service.Task) ([]any, error) {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	return []any{
		t.ID, t.SourceID, string(t.Source), t.Title, t.Description,
		boolInt(t.Completed), boolInt(t.Read), boolInt(t.Stocked),
		toNanos(t.CreatedAt), toNanos(t.UpdatedAt), string(tagsJSON),
		t.Author, t.URL, t.IconURL, t.ImageURL, t.OGPImageURL,
		t.NotionPageURL, boolInt(t.SyncedWithNotion),
	}, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
