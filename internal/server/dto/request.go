package dto

import "strings"

// Validatable is implemented by every request type. Validate runs after the
// body is decoded and path parameters are populated.
type Validatable interface {
	Validate() error
}

// --- Health ---

// HealthRequest is the request type for health check (empty).
type HealthRequest struct{}

// Validate is a no-op for HealthRequest.
func (r *HealthRequest) Validate() error {
	return nil
}

// SchemaRequest is a request for the API's JSON Schemas (empty).
type SchemaRequest struct{}

// Validate is a no-op for SchemaRequest.
func (r *SchemaRequest) Validate() error {
	return nil
}

// --- Todos ---

// ListTodosRequest is a request to list all todos.
type ListTodosRequest struct{}

// Validate is a no-op for ListTodosRequest.
func (r *ListTodosRequest) Validate() error {
	return nil
}

// CreateTodoRequest is a request to create a todo.
type CreateTodoRequest struct {
	Title string `json:"title" jsonschema:"minLength=1,description=Text of the todo item"`
}

// Validate validates the create todo request fields.
func (r *CreateTodoRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return InvalidField("title", "must not be empty")
	}
	return nil
}

// UpdateTodoRequest is a request to update a todo. Absent fields are left
// unchanged.
type UpdateTodoRequest struct {
	ID        int64   `json:"-" path:"id"`
	Title     *string `json:"title,omitempty" jsonschema:"minLength=1,description=New text of the todo item"`
	Completed *bool   `json:"completed,omitempty" jsonschema:"description=New completion state"`
}

// Validate validates the update todo request fields.
func (r *UpdateTodoRequest) Validate() error {
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return InvalidField("title", "must not be empty")
	}
	return nil
}

// DeleteTodoRequest is a request to delete a todo.
type DeleteTodoRequest struct {
	ID int64 `json:"-" path:"id"`
}

// Validate is a no-op for DeleteTodoRequest. Any integer id is accepted.
func (r *DeleteTodoRequest) Validate() error {
	return nil
}
