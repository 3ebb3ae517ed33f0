package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// newTestStore creates a Store backed by a file in a temp directory.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file should exist after creating store")
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", s.Path(), dbPath)
	}
}

func TestNewStore_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	for _, table := range []string{"templates", "template_landmarks", "sessions"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q should exist after migrations: %v", table, err)
		}
	}
}

func TestNewStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := s.Templates().Create(&Template{Name: "fist", Tolerance: 1}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s.Close()

	if n, _ := s.Templates().Count(); n != 1 {
		t.Errorf("Count() after reopen = %d, want 1", n)
	}
}

func TestTemplateRepository_CreateAndGet(t *testing.T) {
	repo := newTestStore(t).Templates()

	tmpl := &Template{
		Name:      "peace",
		Tolerance: 1.5,
		Landmarks: []Landmark{{X: 0, Y: 0, Z: 0}, {X: 0.1, Y: -0.2, Z: 0.3}, {X: 1, Y: 1, Z: 1}},
	}
	if err := repo.Create(tmpl); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if tmpl.ID == "" {
		t.Fatal("Create() left ID empty")
	}

	got, err := repo.GetByID(tmpl.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "peace" || got.Tolerance != 1.5 || got.Builtin {
		t.Errorf("GetByID() = %+v", got)
	}
	if len(got.Landmarks) != 3 || got.Landmarks[1] != tmpl.Landmarks[1] {
		t.Errorf("landmarks = %v, want %v", got.Landmarks, tmpl.Landmarks)
	}

	byName, err := repo.GetByName("peace")
	if err != nil || byName.ID != tmpl.ID {
		t.Errorf("GetByName() = %v, %v", byName, err)
	}
}

func TestTemplateRepository_DuplicateName(t *testing.T) {
	repo := newTestStore(t).Templates()

	if err := repo.Create(&Template{Name: "fist"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(&Template{Name: "fist"}); err == nil {
		t.Error("expected unique constraint error")
	}
}

func TestTemplateRepository_NotFound(t *testing.T) {
	repo := newTestStore(t).Templates()

	if _, err := repo.GetByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetByName("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByName() error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestTemplateRepository_DeleteCascades(t *testing.T) {
	s := newTestStore(t)
	repo := s.Templates()

	tmpl := &Template{Name: "wave", Landmarks: []Landmark{{X: 1}, {X: 2}}}
	if err := repo.Create(tmpl); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Delete(tmpl.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	var n int
	s.DB().QueryRow(`SELECT COUNT(*) FROM template_landmarks WHERE template_id = ?`, tmpl.ID).Scan(&n)
	if n != 0 {
		t.Errorf("%d landmarks left after delete", n)
	}
}

func TestTemplateRepository_ListWithLandmarks(t *testing.T) {
	repo := newTestStore(t).Templates()

	for _, name := range []string{"a", "b"} {
		if err := repo.Create(&Template{Name: name, Landmarks: []Landmark{{X: 1}}}); err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
	}

	list, err := repo.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() returned %d templates, want 2", len(list))
	}
	for _, tmpl := range list {
		if len(tmpl.Landmarks) != 1 {
			t.Errorf("template %s has %d landmarks, want 1", tmpl.Name, len(tmpl.Landmarks))
		}
	}
}

func TestTemplateRepository_Seed(t *testing.T) {
	repo := newTestStore(t).Templates()
	defaults := []Template{{Name: "thumbs_up"}, {Name: "open_palm"}}

	n, err := repo.Seed(defaults)
	if err != nil || n != 2 {
		t.Fatalf("Seed() = %d, %v, want 2, nil", n, err)
	}

	n, err = repo.Seed(defaults)
	if err != nil || n != 0 {
		t.Errorf("second Seed() = %d, %v, want 0, nil", n, err)
	}

	got, err := repo.GetByName("thumbs_up")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if !got.Builtin {
		t.Error("seeded template not marked builtin")
	}
	if defaults[0].ID != "" {
		t.Error("Seed() modified the caller's defaults")
	}
}

func TestSessionRepository_Lifecycle(t *testing.T) {
	repo := newTestStore(t).Sessions()

	rec := &SessionRecord{Mode: "dual", Gestures: true, Decimation: 2}
	if err := repo.Begin(rec); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if rec.ID == "" || rec.StartedAt.IsZero() {
		t.Fatalf("Begin() did not fill ID and StartedAt: %+v", rec)
	}

	got, err := repo.GetByID(rec.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.StoppedAt != nil {
		t.Error("running session has a stop time")
	}

	counters := SessionCounters{Ticks: 10, Dispatched: 5, SkippedBusy: 2, SkippedUnavailable: 1, InferenceFailures: 1, Publishes: 4}
	if err := repo.Finish(rec.ID, time.Now(), counters); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	got, err = repo.GetByID(rec.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.StoppedAt == nil {
		t.Error("finished session has no stop time")
	}
	if got.Counters != counters {
		t.Errorf("Counters = %+v, want %+v", got.Counters, counters)
	}
	if got.Mode != "dual" || !got.Gestures || got.Decimation != 2 {
		t.Errorf("options not persisted: %+v", got)
	}
}

func TestSessionRepository_FinishUnknown(t *testing.T) {
	repo := newTestStore(t).Sessions()

	if err := repo.Finish("missing", time.Now(), SessionCounters{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Finish() error = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestSessionRepository_ListNewestFirst(t *testing.T) {
	repo := newTestStore(t).Sessions()
	base := time.Now()

	for i := 0; i < 3; i++ {
		rec := &SessionRecord{Mode: "single", StartedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := repo.Begin(rec); err != nil {
			t.Fatalf("Begin() error = %v", err)
		}
	}

	all, err := repo.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List(0) returned %d, want 3", len(all))
	}
	if !all[0].StartedAt.After(all[2].StartedAt) {
		t.Error("List() not ordered newest first")
	}

	limited, _ := repo.List(2)
	if len(limited) != 2 {
		t.Errorf("List(2) returned %d, want 2", len(limited))
	}
}
