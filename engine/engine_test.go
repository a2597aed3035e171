package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/dataset"
	"github.com/rushteam/movierec/store"
)

func scenarioStore(t *testing.T) *store.MemoryRatingStore {
	t.Helper()
	s := store.NewMemoryRatingStore()
	err := s.AddAll([]core.Rating{
		{UserID: 1, ItemID: 10, Value: 5.0},
		{UserID: 1, ItemID: 20, Value: 3.0},
		{UserID: 2, ItemID: 10, Value: 4.0},
		{UserID: 2, ItemID: 20, Value: 5.0},
		{UserID: 3, ItemID: 10, Value: 1.0},
	})
	if err != nil {
		t.Fatalf("AddAll() error = %v", err)
	}
	return s
}

type failingSource struct{ err error }

func (f *failingSource) Name() string { return "failing" }
func (f *failingSource) LoadRatings(context.Context) ([]core.Rating, error) {
	return nil, f.err
}

// switchSource 第一次返回 ok，之后返回 err。
type switchSource struct {
	ok    core.RatingSource
	err   error
	calls int
}

func (s *switchSource) Name() string { return "switch" }
func (s *switchSource) LoadRatings(ctx context.Context) ([]core.Rating, error) {
	s.calls++
	if s.calls > 1 {
		return nil, s.err
	}
	return s.ok.LoadRatings(ctx)
}

func TestEngine_NotReady(t *testing.T) {
	e, err := New(scenarioStore(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if e.Ready() {
		t.Fatal("Ready() = true before Rebuild")
	}
	if _, err := e.Snapshot(); !errors.Is(err, core.ErrNotReady) {
		t.Errorf("Snapshot() error = %v, want ErrNotReady", err)
	}
	if _, err := e.RecommendForUser(3, 5); !core.IsUnavailable(err) {
		t.Errorf("RecommendForUser() error = %v, want unavailable", err)
	}
	if _, err := e.Model(); !errors.Is(err, core.ErrNotReady) {
		t.Errorf("Model() error = %v, want ErrNotReady", err)
	}
}

func TestEngine_Rebuild(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	e, err := New(scenarioStore(t), WithMetrics(metrics))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	snap, err := e.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	st := snap.Stats()
	want := Stats{Version: 1, BuiltAt: st.BuiltAt, Users: 3, Items: 2, Ratings: 5, Metric: "cosine"}
	if !reflect.DeepEqual(st, want) {
		t.Errorf("Stats() = %+v, want %+v", st, want)
	}

	got, err := e.RecommendForUser(3, 1)
	if err != nil {
		t.Fatalf("RecommendForUser(3) error = %v", err)
	}
	if len(got) != 1 || got[0].ID != 20 {
		t.Errorf("RecommendForUser(3) = %v, want [20]", got)
	}

	similar, err := e.SimilarItems(10, 5)
	if err != nil {
		t.Fatalf("SimilarItems(10) error = %v", err)
	}
	if len(similar) != 1 || similar[0].ID != 20 {
		t.Errorf("SimilarItems(10) = %v, want [20]", similar)
	}

	if _, err := e.RecommendForUser(99, 5); !core.IsUnknownEntity(err) {
		t.Errorf("RecommendForUser(99) error = %v, want unknown entity", err)
	}

	if got := testutil.ToFloat64(metrics.RebuildsTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("rebuilds ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.SnapshotUsers); got != 3 {
		t.Errorf("snapshot users = %v, want 3", got)
	}
	if got := testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("recommend", "error")); got != 1 {
		t.Errorf("recommend errors = %v, want 1", got)
	}

	snap2, err := e.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("second Rebuild() error = %v", err)
	}
	if snap2.Version != 2 {
		t.Errorf("second version = %d, want 2", snap2.Version)
	}
}

func TestEngine_RebuildFailureKeepsSnapshot(t *testing.T) {
	boom := errors.New("boom")
	src := &switchSource{ok: scenarioStore(t), err: boom}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	e, err := New(src, WithMetrics(metrics))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	first, err := e.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	if _, err := e.Rebuild(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Rebuild() error = %v, want boom", err)
	}
	cur, err := e.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if cur != first {
		t.Error("failed rebuild replaced the snapshot")
	}
	if got := testutil.ToFloat64(metrics.RebuildsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("rebuilds error = %v, want 1", got)
	}
}

func TestEngine_RebuildErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   core.RatingSource
		cfg   func(*Config)
		check func(error) bool
	}{
		{
			name:  "source error",
			src:   &failingSource{err: core.NewDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "down")},
			check: core.IsUnavailable,
		},
		{
			name:  "matrix too large",
			src:   scenarioStore(t),
			cfg:   func(c *Config) { c.MaxCells = 2 },
			check: core.IsTooLarge,
		},
		{
			name:  "similarity too large",
			src:   scenarioStore(t),
			cfg:   func(c *Config) { c.MaxSimilarityEntries = 2 },
			check: core.IsTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			e, err := New(tt.src, WithConfig(cfg))
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if _, err := e.Rebuild(context.Background()); !tt.check(err) {
				t.Errorf("Rebuild() error = %v", err)
			}
			if e.Ready() {
				t.Error("Ready() = true after failed rebuild")
			}
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  func(*Config)
	}{
		{name: "metric", cfg: func(c *Config) { c.Metric = "jaccard" }},
		{name: "duplicate policy", cfg: func(c *Config) { c.DuplicatePolicy = "merge" }},
		{name: "top n", cfg: func(c *Config) { c.DefaultTopN = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.cfg(&cfg)
			if _, err := New(store.NewMemoryRatingStore(), WithConfig(cfg)); !core.IsInvalidInput(err) {
				t.Errorf("New() error = %v, want invalid input", err)
			}
		})
	}
	if _, err := New(nil); !core.IsInvalidInput(err) {
		t.Errorf("New(nil) error = %v, want invalid input", err)
	}
}

func TestSnapshot_TopN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metric = "pearson"
	s := store.NewMemoryRatingStore()
	for u := int64(1); u <= 3; u++ {
		for i := int64(1); i <= 4; i++ {
			s.Put(core.Rating{UserID: u, ItemID: i*10 + u%2, Value: float64((u+i)%5 + 1)})
		}
	}
	ratings, _ := s.LoadRatings(context.Background())
	snap, err := BuildSnapshot(context.Background(), ratings, cfg)
	if err != nil {
		t.Fatalf("BuildSnapshot() error = %v", err)
	}
	if snap.Metric != "pearson" {
		t.Errorf("Metric = %q, want pearson", snap.Metric)
	}
	got, err := snap.SimilarItems(10, 0)
	if err != nil {
		t.Fatalf("SimilarItems(topN=0) error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("SimilarItems(topN=0) = %v, want empty", got)
	}
	got, err = snap.SimilarItems(10, 1)
	if err != nil || len(got) != 1 {
		t.Errorf("SimilarItems(topN=1) = %v, %v, want one entry", got, err)
	}
	if !snap.HasUser(2) || snap.HasUser(9) || !snap.HasItem(10) || snap.HasItem(99) {
		t.Error("HasUser/HasItem mismatch")
	}
}

func TestEngine_Watch(t *testing.T) {
	if testing.Short() {
		t.Skip("watches the filesystem")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "ratings.csv")
	initial := "userId,movieId,rating\n1,10,5\n2,10,4\n2,20,3\n"
	if err := os.WriteFile(path, []byte(initial), 0o644); err != nil {
		t.Fatal(err)
	}

	e, err := New(&dataset.Files{RatingsPath: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := e.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Watch(ctx, []string{path}, 50*time.Millisecond) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Watch() error = %v", err)
		}
	}()

	// 等待 watcher 注册完成后再写文件
	time.Sleep(100 * time.Millisecond)
	updated := initial + strings.Join([]string{"3,30,4", "3,10,2"}, "\n") + "\n"
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := e.Snapshot()
		if err == nil && snap.Version >= 2 && snap.Stats().Users == 3 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("snapshot was not rebuilt after file change")
}
