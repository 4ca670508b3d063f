package handlers

import (
	"database/sql"

	"github.com/maruel/todod/internal/server/dto"
	"github.com/maruel/todod/internal/storage"
)

func todoToDTO(t storage.Todo) *dto.Todo {
	return &dto.Todo{ID: t.ID, Title: t.Title, Completed: t.Completed}
}

func todosToDTO(todos []storage.Todo) []dto.Todo {
	out := make([]dto.Todo, len(todos))
	for i, t := range todos {
		out[i] = *todoToDTO(t)
	}
	return out
}

// updateRequestToPatch keeps absent and null fields unset.
func updateRequestToPatch(req *dto.UpdateTodoRequest) *storage.TodoPatch {
	p := &storage.TodoPatch{}
	if req.Title != nil {
		p.Title = sql.Null[string]{V: *req.Title, Valid: true}
	}
	if req.Completed != nil {
		p.Completed = sql.Null[bool]{V: *req.Completed, Valid: true}
	}
	return p
}
