package stores

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// setupTestStore creates an in-memory SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: MemoryPath,
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newBuild(id string, startedAt time.Time) *Build {
	return &Build{
		ID:         id,
		ConfigPath: "input/v1.3/leipzig-v1.3-config.yaml",
		Options:    `{"sampleSize":1}`,
		StartedAt:  startedAt,
	}
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}

	store, err := NewSQLiteStore(Config{
		Path: filepath.Join(t.TempDir(), "history.db"),
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.HealthCheck(ctx); err == nil {
		t.Fatal("expected health check to fail before init")
	}

	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	// migrating twice is a no-op
	for i := 0; i < 2; i++ {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to migrate store: %v", err)
		}
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

// TestStoreMigrations tests database migrations
func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, table := range []string{"builds", "build_bindings", "build_stages"} {
		var count int
		if err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}
}

// TestBuildCRUD tests Build CRUD operations
func TestBuildCRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	build := newBuild("build-1", time.Now().UTC().Truncate(time.Second))
	if err := store.CreateBuild(ctx, build); err != nil {
		t.Fatalf("failed to create build: %v", err)
	}

	got, err := store.GetBuild(ctx, "build-1")
	if err != nil {
		t.Fatalf("failed to get build: %v", err)
	}
	if got.Status != BuildStatusRunning {
		t.Errorf("expected status %s, got %s", BuildStatusRunning, got.Status)
	}
	if got.Options != build.Options || got.ConfigPath != build.ConfigPath {
		t.Errorf("expected %+v, got %+v", build, got)
	}
	if !got.StartedAt.Equal(build.StartedAt) {
		t.Errorf("expected started at %v, got %v", build.StartedAt, got.StartedAt)
	}
	if got.CompletedAt != nil {
		t.Errorf("expected no completion time, got %v", got.CompletedAt)
	}

	msg := "drt service area is empty"
	if err := store.CompleteBuild(ctx, "build-1", BuildStatusFailed, &msg); err != nil {
		t.Fatalf("failed to complete build: %v", err)
	}

	got, err = store.GetBuild(ctx, "build-1")
	if err != nil {
		t.Fatalf("failed to get build: %v", err)
	}
	if got.Status != BuildStatusFailed {
		t.Errorf("expected status %s, got %s", BuildStatusFailed, got.Status)
	}
	if got.Error == nil || *got.Error != msg {
		t.Errorf("expected error %q, got %v", msg, got.Error)
	}
	if got.CompletedAt == nil {
		t.Error("expected completion time")
	}

	if err := store.CompleteBuild(ctx, "build-1", BuildStatusCompleted, nil); err == nil {
		t.Error("expected error completing a finished build")
	}
	if err := store.CompleteBuild(ctx, "build-1", BuildStatusRunning, nil); err == nil {
		t.Error("expected error for non-terminal status")
	}

	if err := store.DeleteBuild(ctx, "build-1"); err != nil {
		t.Fatalf("failed to delete build: %v", err)
	}
	if _, err := store.GetBuild(ctx, "build-1"); err == nil {
		t.Error("expected error for deleted build")
	}
	if err := store.DeleteBuild(ctx, "build-1"); err == nil {
		t.Error("expected error deleting missing build")
	}
}

func TestCreateBuild_Validation(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.CreateBuild(ctx, &Build{}); err == nil {
		t.Error("expected error for missing id")
	}

	build := &Build{ID: "defaults"}
	if err := store.CreateBuild(ctx, build); err != nil {
		t.Fatalf("failed to create build: %v", err)
	}
	if build.Options != "{}" || build.StartedAt.IsZero() {
		t.Errorf("expected defaults to be filled, got %+v", build)
	}

	if err := store.CreateBuild(ctx, &Build{ID: "defaults"}); err == nil {
		t.Error("expected error for duplicate id")
	}
}

func TestListBuilds(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := store.CreateBuild(ctx, newBuild(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("failed to create build %s: %v", id, err)
		}
	}
	if err := store.CompleteBuild(ctx, "b", BuildStatusCompleted, nil); err != nil {
		t.Fatalf("failed to complete build: %v", err)
	}

	ids := func(builds []*Build) []string {
		var out []string
		for _, b := range builds {
			out = append(out, b.ID)
		}
		return out
	}

	all, err := store.ListBuilds(ctx, nil, 10, 0)
	if err != nil {
		t.Fatalf("failed to list builds: %v", err)
	}
	if want := []string{"c", "b", "a"}; !reflect.DeepEqual(ids(all), want) {
		t.Errorf("expected %v, got %v", want, ids(all))
	}

	page, err := store.ListBuilds(ctx, nil, 1, 1)
	if err != nil {
		t.Fatalf("failed to list builds: %v", err)
	}
	if want := []string{"b"}; !reflect.DeepEqual(ids(page), want) {
		t.Errorf("expected %v, got %v", want, ids(page))
	}

	status := BuildStatusRunning
	running, err := store.ListBuilds(ctx, &status, 10, 0)
	if err != nil {
		t.Fatalf("failed to list builds: %v", err)
	}
	if want := []string{"c", "a"}; !reflect.DeepEqual(ids(running), want) {
		t.Errorf("expected %v, got %v", want, ids(running))
	}
}

func TestStagesAndBindings(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.CreateBuild(ctx, newBuild("build-1", time.Now().UTC())); err != nil {
		t.Fatalf("failed to create build: %v", err)
	}

	stages := []string{"activity-params", "sample", "bike-handling"}
	if err := store.SaveStages(ctx, "build-1", stages); err != nil {
		t.Fatalf("failed to save stages: %v", err)
	}
	got, err := store.ListStages(ctx, "build-1")
	if err != nil {
		t.Fatalf("failed to list stages: %v", err)
	}
	if !reflect.DeepEqual(got, stages) {
		t.Errorf("expected %v, got %v", stages, got)
	}

	bindings := []BindingRecord{
		{Group: "core", Capability: "Module", Target: "PtFareModule"},
		{Group: "parking", Capability: "EventHandler", Target: "TimeRestrictedParkingCostHandler", Params: `{"end":19,"start":7}`},
	}
	if err := store.SaveBindings(ctx, "build-1", bindings); err != nil {
		t.Fatalf("failed to save bindings: %v", err)
	}

	// saving again replaces
	if err := store.SaveBindings(ctx, "build-1", bindings); err != nil {
		t.Fatalf("failed to save bindings: %v", err)
	}

	records, err := store.ListBindings(ctx, "build-1")
	if err != nil {
		t.Fatalf("failed to list bindings: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(records))
	}
	if records[0].Position != 0 || records[0].Params != "{}" || records[0].BuildID != "build-1" {
		t.Errorf("unexpected first binding %+v", records[0])
	}
	if records[1].Target != "TimeRestrictedParkingCostHandler" || records[1].Params != bindings[1].Params {
		t.Errorf("unexpected second binding %+v", records[1])
	}

	if err := store.SaveBindings(ctx, "missing", bindings); err == nil {
		t.Error("expected foreign key error for unknown build")
	}
}

// TestCascadeDelete tests that stages and bindings go with their build
func TestCascadeDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.CreateBuild(ctx, newBuild("build-1", time.Now().UTC())); err != nil {
		t.Fatalf("failed to create build: %v", err)
	}
	if err := store.SaveStages(ctx, "build-1", []string{"sample"}); err != nil {
		t.Fatalf("failed to save stages: %v", err)
	}
	if err := store.SaveBindings(ctx, "build-1", []BindingRecord{{Group: "core", Capability: "Module", Target: "X"}}); err != nil {
		t.Fatalf("failed to save bindings: %v", err)
	}

	if err := store.DeleteBuild(ctx, "build-1"); err != nil {
		t.Fatalf("failed to delete build: %v", err)
	}

	stages, err := store.ListStages(ctx, "build-1")
	if err != nil {
		t.Fatalf("failed to list stages: %v", err)
	}
	bindings, err := store.ListBindings(ctx, "build-1")
	if err != nil {
		t.Fatalf("failed to list bindings: %v", err)
	}
	if len(stages) != 0 || len(bindings) != 0 {
		t.Errorf("expected cascade delete, got %d stages and %d bindings", len(stages), len(bindings))
	}
}
