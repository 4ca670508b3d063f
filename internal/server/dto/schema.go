// Derives JSON Schemas from the API types and checks required fields.

package dto

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sync"

	"github.com/invopop/jsonschema"
)

// schemaCache holds one *jsonschema.Schema per reflect.Type.
var schemaCache sync.Map

// SchemaOf returns the JSON Schema of T. Fields without omitempty are
// required; fields tagged json:"-" (path parameters) are not part of it.
func SchemaOf[T any]() *jsonschema.Schema {
	return schemaOfType(reflect.TypeFor[T]())
}

func schemaOfType(t reflect.Type) *jsonschema.Schema {
	if s, ok := schemaCache.Load(t); ok {
		return s.(*jsonschema.Schema)
	}
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	s, _ := schemaCache.LoadOrStore(t, r.ReflectFromType(t))
	return s.(*jsonschema.Schema)
}

// Schemas returns the schema of every request and response body type.
func Schemas() SchemaResponse {
	return SchemaResponse{
		"CreateTodoRequest":  SchemaOf[CreateTodoRequest](),
		"UpdateTodoRequest":  SchemaOf[UpdateTodoRequest](),
		"Todo":               SchemaOf[Todo](),
		"DeleteTodoResponse": SchemaOf[DeleteTodoResponse](),
		"HealthResponse":     SchemaOf[HealthResponse](),
		"ErrorResponse":      SchemaOf[ErrorResponse](),
	}
}

// CheckRequired verifies that body, a JSON object, carries every property
// the schema of T lists as required. A null value counts as missing.
//
// It returns nil for types without required properties, whatever the body.
func CheckRequired[T any](body []byte) error {
	required := SchemaOf[T]().Required
	if len(required) == 0 {
		return nil
	}
	fields := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(body)) != 0 {
		if err := json.Unmarshal(body, &fields); err != nil {
			return ValidationFailed("Request body must be a JSON object").Wrap(err)
		}
	}
	for _, name := range required {
		v, ok := fields[name]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return MissingField(name)
		}
	}
	return nil
}
