package synclog

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	if err == nil {
		t.Fatal("Open(\"\") should return error")
	}
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "history.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	if err := store.Record(t.Context(), Entry{Project: "~/src/widget", Action: ActionCreated}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
}

func TestStore_RecordAndRecent(t *testing.T) {
	store := openTestStore(t)

	e := Entry{
		Project:   "~/src/widget",
		ChangeID:  "abc123def456",
		Bookmark:  "push-abc123def456",
		Base:      "main",
		Action:    ActionCreated,
		PRNumber:  42,
		PRURL:     "https://github.com/acme/widget/pull/42",
		Title:     "Fix login bug",
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := store.Record(t.Context(), e); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entries, err := store.Recent(t.Context(), QueryOptions{})
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}

	got := entries[0]
	if got.ID == "" {
		t.Error("ID should be auto-filled")
	}
	if got.Project != e.Project {
		t.Errorf("Project = %q, want %q", got.Project, e.Project)
	}
	if got.ChangeID != e.ChangeID {
		t.Errorf("ChangeID = %q, want %q", got.ChangeID, e.ChangeID)
	}
	if got.Bookmark != e.Bookmark {
		t.Errorf("Bookmark = %q, want %q", got.Bookmark, e.Bookmark)
	}
	if got.Base != e.Base {
		t.Errorf("Base = %q, want %q", got.Base, e.Base)
	}
	if got.Action != ActionCreated {
		t.Errorf("Action = %q, want %q", got.Action, ActionCreated)
	}
	if got.PRNumber != 42 {
		t.Errorf("PRNumber = %d, want 42", got.PRNumber)
	}
	if got.PRURL != e.PRURL {
		t.Errorf("PRURL = %q, want %q", got.PRURL, e.PRURL)
	}
	if got.Title != e.Title {
		t.Errorf("Title = %q, want %q", got.Title, e.Title)
	}
	if !got.CreatedAt.Equal(e.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, e.CreatedAt)
	}
}

func TestStore_Record_FillsDefaults(t *testing.T) {
	store := openTestStore(t)

	before := time.Now().Add(-time.Second)
	if err := store.Record(t.Context(), Entry{Project: "~/src/widget", Action: ActionUpdated}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entries, err := store.Recent(t.Context(), QueryOptions{})
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].ID == "" {
		t.Error("ID should be generated when empty")
	}
	if entries[0].CreatedAt.Before(before) {
		t.Errorf("CreatedAt = %v, should default to now", entries[0].CreatedAt)
	}
}

func TestStore_Recent_NewestFirst(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, title := range []string{"first", "second", "third"} {
		err := store.Record(t.Context(), Entry{
			Project:   "~/src/widget",
			Action:    ActionCreated,
			Title:     title,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	entries, err := store.Recent(t.Context(), QueryOptions{})
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}

	wantOrder := []string{"third", "second", "first"}
	for i, want := range wantOrder {
		if entries[i].Title != want {
			t.Errorf("entries[%d].Title = %q, want %q", i, entries[i].Title, want)
		}
	}
}

func TestStore_Recent_SameSecondKeepsInsertOrder(t *testing.T) {
	store := openTestStore(t)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for _, title := range []string{"first", "second"} {
		err := store.Record(t.Context(), Entry{
			Project:   "~/src/widget",
			Action:    ActionUpdated,
			Title:     title,
			CreatedAt: at,
		})
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	entries, err := store.Recent(t.Context(), QueryOptions{})
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Title != "second" || entries[1].Title != "first" {
		t.Errorf("order = [%q, %q], want newest insert first", entries[0].Title, entries[1].Title)
	}
}

func TestStore_Recent_FiltersByProject(t *testing.T) {
	store := openTestStore(t)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for _, project := range []string{"~/src/widget", "~/src/gadget", "~/src/widget"} {
		err := store.Record(t.Context(), Entry{
			Project:   project,
			Action:    ActionCreated,
			CreatedAt: at,
		})
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		at = at.Add(time.Minute)
	}

	entries, err := store.Recent(t.Context(), QueryOptions{Project: "~/src/widget"})
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	for _, e := range entries {
		if e.Project != "~/src/widget" {
			t.Errorf("Project = %q, want only widget entries", e.Project)
		}
	}
}

func TestStore_Recent_AppliesLimit(t *testing.T) {
	store := openTestStore(t)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := store.Record(t.Context(), Entry{
			Project:   "~/src/widget",
			Action:    ActionUpdated,
			CreatedAt: at.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	entries, err := store.Recent(t.Context(), QueryOptions{Limit: 2})
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("len(entries) = %d, want 2", len(entries))
	}
}

func TestStore_Recent_EmptyStore(t *testing.T) {
	store := openTestStore(t)

	entries, err := store.Recent(t.Context(), QueryOptions{})
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d, want 0", len(entries))
	}
}

func TestBuildRecentQuery(t *testing.T) {
	t.Run("default limit", func(t *testing.T) {
		query, args := buildRecentQuery(QueryOptions{})

		if strings.Contains(query, "WHERE") {
			t.Errorf("query should have no filter: %s", query)
		}
		if !strings.Contains(query, "ORDER BY created_at DESC") {
			t.Errorf("query missing ordering: %s", query)
		}
		if len(args) != 1 {
			t.Fatalf("len(args) = %d, want 1", len(args))
		}
		if limit, ok := args[0].(int); !ok || limit != DefaultLimit {
			t.Errorf("limit arg = %v, want %d", args[0], DefaultLimit)
		}
	})

	t.Run("project filter", func(t *testing.T) {
		query, args := buildRecentQuery(QueryOptions{Project: "~/src/widget", Limit: 5})

		if !strings.Contains(query, "WHERE project = ?") {
			t.Errorf("query missing project filter: %s", query)
		}
		if len(args) != 2 {
			t.Fatalf("len(args) = %d, want 2", len(args))
		}
		if args[0] != "~/src/widget" {
			t.Errorf("args[0] = %v, want project path", args[0])
		}
		if args[1] != 5 {
			t.Errorf("args[1] = %v, want 5", args[1])
		}
	})
}
