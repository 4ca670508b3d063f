// Implements the SQLite-backed todo store.

// Package storage persists todo items in a single-file SQLite database.
//
// Every operation opens its own connection and closes it before returning.
// There is no in-process shared state beyond the configured path; concurrent
// writers are serialized by SQLite's file locking only.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/maruel/todod/internal/storage/migrations"
	"github.com/maruel/todod/internal/storage/sqlitemigrate"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

var errTitleRequired = errors.New("title is required")

// Config locates the store.
type Config struct {
	// Path is the final location of the database file. It must already be
	// resolved; the store does not interpret relative paths.
	Path string
}

// TodoStore reads and writes the todos table.
type TodoStore struct {
	path string
	dsn  string
}

// NewTodoStore returns a store for cfg. Call Init before serving requests.
func NewTodoStore(cfg Config) (*TodoStore, error) {
	p := strings.TrimSpace(cfg.Path)
	if p == "" {
		return nil, errors.New("store path is required")
	}
	p = filepath.Clean(p)
	return &TodoStore{
		path: p,
		dsn:  "file:" + filepath.ToSlash(p) + "?_pragma=busy_timeout(5000)",
	}, nil
}

// Path returns the database file location.
func (s *TodoStore) Path() string {
	return s.path
}

// Init creates the parent directory and the schema if absent.
func (s *TodoStore) Init(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil { //nolint:gosec // G301: data directory
		return fmt.Errorf("failed to create directory for %s: %w", s.path, err)
	}
	return s.with(ctx, func(db *sql.DB) error {
		if err := sqlitemigrate.Apply(ctx, db, migrations.FS); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", s.path, err)
		}
		return nil
	})
}

// List returns all todos in insertion order.
func (s *TodoStore) List(ctx context.Context) ([]Todo, error) {
	todos := []Todo{}
	err := s.with(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `SELECT id, title, completed FROM todos ORDER BY id`)
		if err != nil {
			return fmt.Errorf("failed to list todos: %w", err)
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var t Todo
			if err := rows.Scan(&t.ID, &t.Title, &t.Completed); err != nil {
				return fmt.Errorf("failed to scan todo: %w", err)
			}
			todos = append(todos, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return todos, nil
}

// Get returns the todo with the given id or ErrNotFound.
func (s *TodoStore) Get(ctx context.Context, id int64) (Todo, error) {
	var t Todo
	err := s.with(ctx, func(db *sql.DB) error {
		var err error
		t, err = get(ctx, db, id)
		return err
	})
	return t, err
}

// Create inserts a new incomplete todo and returns it with its assigned id.
func (s *TodoStore) Create(ctx context.Context, title string) (Todo, error) {
	if strings.TrimSpace(title) == "" {
		return Todo{}, errTitleRequired
	}
	t := Todo{Title: title}
	err := s.with(ctx, func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, `INSERT INTO todos (title, completed) VALUES (?, ?)`, title, false)
		if err != nil {
			return fmt.Errorf("failed to insert todo: %w", err)
		}
		if t.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read inserted id: %w", err)
		}
		return nil
	})
	if err != nil {
		return Todo{}, err
	}
	return t, nil
}

// Update merges patch over the stored todo and persists the result.
//
// Returns ErrNotFound when id does not exist. The read and the write are not
// in a transaction; concurrent updates to the same id may lose one of them.
func (s *TodoStore) Update(ctx context.Context, id int64, patch *TodoPatch) (Todo, error) {
	var merged Todo
	err := s.with(ctx, func(db *sql.DB) error {
		cur, err := get(ctx, db, id)
		if err != nil {
			return err
		}
		merged = patch.Apply(cur)
		if strings.TrimSpace(merged.Title) == "" {
			return errTitleRequired
		}
		if _, err := db.ExecContext(ctx, `UPDATE todos SET title = ?, completed = ? WHERE id = ?`, merged.Title, merged.Completed, id); err != nil {
			return fmt.Errorf("failed to update todo %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return Todo{}, err
	}
	return merged, nil
}

// Delete removes the todo if present. Deleting an absent id is not an error.
func (s *TodoStore) Delete(ctx context.Context, id int64) error {
	return s.with(ctx, func(db *sql.DB) error {
		if _, err := db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete todo %d: %w", id, err)
		}
		return nil
	})
}

// with opens a connection for the duration of fn.
func (s *TodoStore) with(ctx context.Context, fn func(db *sql.DB) error) error {
	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	db.SetMaxOpenConns(1)
	if err = db.PingContext(ctx); err != nil {
		err = fmt.Errorf("failed to connect to %s: %w", s.path, err)
	} else {
		err = fn(db)
	}
	if err2 := db.Close(); err == nil && err2 != nil {
		err = fmt.Errorf("failed to close %s: %w", s.path, err2)
	}
	return err
}

func get(ctx context.Context, db *sql.DB, id int64) (Todo, error) {
	var t Todo
	err := db.QueryRowContext(ctx, `SELECT id, title, completed FROM todos WHERE id = ?`, id).Scan(&t.ID, &t.Title, &t.Completed)
	if errors.Is(err, sql.ErrNoRows) {
		return Todo{}, ErrNotFound
	}
	if err != nil {
		return Todo{}, fmt.Errorf("failed to get todo %d: %w", id, err)
	}
	return t, nil
}
