// Defines the todo entity and its partial update.

package storage

import (
	"database/sql"
	"errors"
)

// ErrNotFound is returned when a todo id is absent from the store.
var ErrNotFound = errors.New("todo not found")

// Todo is a persisted todo item.
type Todo struct {
	ID        int64
	Title     string
	Completed bool
}

// TodoPatch is a partial update. Only the fields marked Valid are applied.
type TodoPatch struct {
	Title     sql.Null[string]
	Completed sql.Null[bool]
}

// IsZero reports whether the patch changes nothing.
func (p *TodoPatch) IsZero() bool {
	return !p.Title.Valid && !p.Completed.Valid
}

// Apply overlays the present fields of p onto t and returns the result.
func (p *TodoPatch) Apply(t Todo) Todo {
	if p.Title.Valid {
		t.Title = p.Title.V
	}
	if p.Completed.Valid {
		t.Completed = p.Completed.V
	}
	return t
}
