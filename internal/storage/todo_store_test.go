package storage

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *TodoStore {
	t.Helper()
	s, err := NewTodoStore(Config{Path: filepath.Join(t.TempDir(), "data", "todos.db")})
	if err != nil {
		t.Fatalf("NewTodoStore: %v", err)
	}
	if err := s.Init(t.Context()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s
}

func TestNewTodoStore(t *testing.T) {
	if _, err := NewTodoStore(Config{Path: "  "}); err == nil {
		t.Fatal("expected error for empty path")
	}
	s, err := NewTodoStore(Config{Path: "/tmp/x/../todos.db"})
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Path(); got != filepath.Clean("/tmp/todos.db") {
		t.Errorf("Path() = %q", got)
	}
}

func TestTodoStore(t *testing.T) {
	t.Run("Init", func(t *testing.T) {
		s := newTestStore(t)
		if _, err := os.Stat(s.Path()); err != nil {
			t.Fatalf("database file not created: %v", err)
		}
		if err := s.Init(t.Context()); err != nil {
			t.Fatalf("second Init: %v", err)
		}
	})

	t.Run("Create", func(t *testing.T) {
		s := newTestStore(t)
		ctx := t.Context()
		got, err := s.Create(ctx, "Buy milk")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if got.ID <= 0 {
			t.Errorf("expected positive id, got %d", got.ID)
		}
		if got.Title != "Buy milk" || got.Completed {
			t.Errorf("Create() = %+v", got)
		}
		list, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(list) != 1 || list[0] != got {
			t.Errorf("List() = %+v, want [%+v]", list, got)
		}
	})

	t.Run("CreateEmptyTitle", func(t *testing.T) {
		s := newTestStore(t)
		if _, err := s.Create(t.Context(), " "); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("ListEmpty", func(t *testing.T) {
		s := newTestStore(t)
		list, err := s.List(t.Context())
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if list == nil || len(list) != 0 {
			t.Errorf("List() = %#v, want empty non-nil slice", list)
		}
	})

	t.Run("ListOrder", func(t *testing.T) {
		s := newTestStore(t)
		ctx := t.Context()
		for _, title := range []string{"a", "b", "c"} {
			if _, err := s.Create(ctx, title); err != nil {
				t.Fatal(err)
			}
		}
		list, err := s.List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 3 || list[0].Title != "a" || list[1].Title != "b" || list[2].Title != "c" {
			t.Errorf("List() = %+v", list)
		}
		if list[0].ID >= list[1].ID || list[1].ID >= list[2].ID {
			t.Errorf("ids not increasing: %+v", list)
		}
	})

	t.Run("Update", func(t *testing.T) {
		tests := []struct {
			name  string
			patch TodoPatch
			want  Todo
		}{
			{
				name:  "completed only",
				patch: TodoPatch{Completed: sql.Null[bool]{V: true, Valid: true}},
				want:  Todo{Title: "Old", Completed: true},
			},
			{
				name:  "title only",
				patch: TodoPatch{Title: sql.Null[string]{V: "New", Valid: true}},
				want:  Todo{Title: "New"},
			},
			{
				name: "both",
				patch: TodoPatch{
					Title:     sql.Null[string]{V: "New", Valid: true},
					Completed: sql.Null[bool]{V: true, Valid: true},
				},
				want: Todo{Title: "New", Completed: true},
			},
			{
				name: "nothing",
				want: Todo{Title: "Old"},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s := newTestStore(t)
				ctx := t.Context()
				created, err := s.Create(ctx, "Old")
				if err != nil {
					t.Fatal(err)
				}
				got, err := s.Update(ctx, created.ID, &tt.patch)
				if err != nil {
					t.Fatalf("Update: %v", err)
				}
				tt.want.ID = created.ID
				if got != tt.want {
					t.Errorf("Update() = %+v, want %+v", got, tt.want)
				}
				stored, err := s.Get(ctx, created.ID)
				if err != nil {
					t.Fatalf("Get: %v", err)
				}
				if stored != tt.want {
					t.Errorf("stored = %+v, want %+v", stored, tt.want)
				}
			})
		}
	})

	t.Run("UpdateNotFound", func(t *testing.T) {
		s := newTestStore(t)
		ctx := t.Context()
		created, err := s.Create(ctx, "keep")
		if err != nil {
			t.Fatal(err)
		}
		patch := TodoPatch{Title: sql.Null[string]{V: "x", Valid: true}}
		if _, err := s.Update(ctx, 9999, &patch); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Update() error = %v, want ErrNotFound", err)
		}
		list, err := s.List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 1 || list[0] != created {
			t.Errorf("store changed: %+v", list)
		}
	})

	t.Run("UpdateEmptyTitle", func(t *testing.T) {
		s := newTestStore(t)
		ctx := t.Context()
		created, err := s.Create(ctx, "keep")
		if err != nil {
			t.Fatal(err)
		}
		patch := TodoPatch{Title: sql.Null[string]{Valid: true}}
		if _, err := s.Update(ctx, created.ID, &patch); err == nil {
			t.Fatal("expected error")
		}
		if got, _ := s.Get(ctx, created.ID); got.Title != "keep" {
			t.Errorf("title changed to %q", got.Title)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := newTestStore(t)
		ctx := t.Context()
		a, err := s.Create(ctx, "a")
		if err != nil {
			t.Fatal(err)
		}
		b, err := s.Create(ctx, "b")
		if err != nil {
			t.Fatal(err)
		}
		if err := s.Delete(ctx, a.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if err := s.Delete(ctx, a.ID); err != nil {
			t.Fatalf("second Delete: %v", err)
		}
		if err := s.Delete(ctx, 9999); err != nil {
			t.Fatalf("Delete absent: %v", err)
		}
		list, err := s.List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 1 || list[0] != b {
			t.Errorf("List() = %+v, want [%+v]", list, b)
		}
		if _, err := s.Get(ctx, a.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("Reopen", func(t *testing.T) {
		s := newTestStore(t)
		ctx := t.Context()
		created, err := s.Create(ctx, "persisted")
		if err != nil {
			t.Fatal(err)
		}
		s2, err := NewTodoStore(Config{Path: s.Path()})
		if err != nil {
			t.Fatal(err)
		}
		if err := s2.Init(ctx); err != nil {
			t.Fatalf("Init: %v", err)
		}
		list, err := s2.List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 1 || list[0] != created {
			t.Errorf("List() = %+v, want [%+v]", list, created)
		}
	})
}

func TestTodoPatch(t *testing.T) {
	var p TodoPatch
	if !p.IsZero() {
		t.Error("zero patch should be zero")
	}
	base := Todo{ID: 1, Title: "t", Completed: true}
	if got := p.Apply(base); got != base {
		t.Errorf("Apply() = %+v", got)
	}
	p.Completed = sql.Null[bool]{V: false, Valid: true}
	if p.IsZero() {
		t.Error("patch with completed should not be zero")
	}
	if got := p.Apply(base); got.Completed || got.Title != "t" {
		t.Errorf("Apply() = %+v", got)
	}
}
