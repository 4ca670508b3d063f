package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maruel/todod/internal/server/dto"
)

func TestCheckBodyPresent(t *testing.T) {
	tests := []struct {
		method  string
		body    string
		wantErr bool
	}{
		{http.MethodPut, "", true},
		{http.MethodPut, " \t\n", true},
		{http.MethodPut, "{}", false},
		{http.MethodPost, "", true},
		{http.MethodPatch, "", true},
		{http.MethodGet, "", false},
		{http.MethodDelete, "", false},
	}
	for _, tt := range tests {
		err := checkBodyPresent(tt.method, []byte(tt.body))
		if (err != nil) != tt.wantErr {
			t.Errorf("checkBodyPresent(%s, %q) = %v, want error %t", tt.method, tt.body, err, tt.wantErr)
		}
		var apiErr *dto.APIError
		if err != nil && (!errors.As(err, &apiErr) || apiErr.StatusCode() != http.StatusUnprocessableEntity) {
			t.Errorf("checkBodyPresent(%s, %q) = %v, want 422", tt.method, tt.body, err)
		}
	}
}

func TestDecodeBody(t *testing.T) {
	t.Run("ExtraFields", func(t *testing.T) {
		var req dto.UpdateTodoRequest
		if err := decodeBody([]byte(`{"title":"a","id":5,"extra":[1]}`), &req); err != nil {
			t.Fatal(err)
		}
		if req.ID != 0 || req.Title == nil || *req.Title != "a" || req.Completed != nil {
			t.Errorf("req = %+v", req)
		}
	})
	t.Run("Trailing", func(t *testing.T) {
		var req dto.CreateTodoRequest
		if err := decodeBody([]byte(`{"title":"a"} 1`), &req); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestPopulatePathParams(t *testing.T) {
	tests := []struct {
		value   string
		want    int64
		wantErr bool
	}{
		{"12", 12, false},
		{"0", 0, false},
		{"-7", -7, false},
		{"x", 0, true},
		{"1.5", 0, true},
		{"99999999999999999999", 0, true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodDelete, "/api/todos/"+tt.value, strings.NewReader(""))
		r.SetPathValue("id", tt.value)
		var req dto.DeleteTodoRequest
		err := populatePathParams(r, &req)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: err = %v, want error %t", tt.value, err, tt.wantErr)
			continue
		}
		if req.ID != tt.want {
			t.Errorf("%q: ID = %d, want %d", tt.value, req.ID, tt.want)
		}
	}
}
