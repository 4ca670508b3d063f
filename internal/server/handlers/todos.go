// Handles the todo CRUD endpoints.

package handlers

import (
	"context"
	"errors"

	"github.com/maruel/todod/internal/server/dto"
	"github.com/maruel/todod/internal/storage"
)

// TodoStore is the persistence used by TodoHandler. *storage.TodoStore
// implements it.
type TodoStore interface {
	List(ctx context.Context) ([]storage.Todo, error)
	Create(ctx context.Context, title string) (storage.Todo, error)
	Update(ctx context.Context, id int64, patch *storage.TodoPatch) (storage.Todo, error)
	Delete(ctx context.Context, id int64) error
}

// TodoHandler handles todo requests.
type TodoHandler struct {
	store TodoStore
}

// NewTodoHandler creates a new todo handler.
func NewTodoHandler(store TodoStore) *TodoHandler {
	return &TodoHandler{store: store}
}

// ListTodos returns every todo, oldest first.
func (h *TodoHandler) ListTodos(ctx context.Context, _ *dto.ListTodosRequest) (*[]dto.Todo, error) {
	todos, err := h.store.List(ctx)
	if err != nil {
		return nil, dto.InternalWithError("Failed to list todos", err)
	}
	out := todosToDTO(todos)
	return &out, nil
}

// CreateTodo creates a todo that is not completed.
func (h *TodoHandler) CreateTodo(ctx context.Context, req *dto.CreateTodoRequest) (*dto.Todo, error) {
	t, err := h.store.Create(ctx, req.Title)
	if err != nil {
		return nil, dto.InternalWithError("Failed to create todo", err)
	}
	return todoToDTO(t), nil
}

// UpdateTodo applies the fields present in the request to an existing todo.
func (h *TodoHandler) UpdateTodo(ctx context.Context, req *dto.UpdateTodoRequest) (*dto.Todo, error) {
	t, err := h.store.Update(ctx, req.ID, updateRequestToPatch(req))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, dto.NotFound("Todo").WithDetail("id", req.ID)
		}
		return nil, dto.InternalWithError("Failed to update todo", err)
	}
	return todoToDTO(t), nil
}

// DeleteTodo removes a todo. Deleting an absent id succeeds.
func (h *TodoHandler) DeleteTodo(ctx context.Context, req *dto.DeleteTodoRequest) (*dto.DeleteTodoResponse, error) {
	if err := h.store.Delete(ctx, req.ID); err != nil {
		return nil, dto.InternalWithError("Failed to delete todo", err)
	}
	return &dto.DeleteTodoResponse{Message: "Todo deleted"}, nil
}
