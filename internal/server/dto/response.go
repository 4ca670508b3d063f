package dto

import "github.com/invopop/jsonschema"

// Todo is a todo item as returned by the API.
type Todo struct {
	ID        int64  `json:"id" jsonschema:"description=Identifier assigned by the store"`
	Title     string `json:"title" jsonschema:"description=Text of the todo item"`
	Completed bool   `json:"completed" jsonschema:"description=Whether the item is done"`
}

// DeleteTodoResponse acknowledges a delete.
type DeleteTodoResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the response for health check.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// SchemaResponse maps API type names to their JSON Schema.
type SchemaResponse map[string]*jsonschema.Schema
