package store

import (
	"context"
	"os"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/rushteam/movierec/core"
)

func sampleRatings() []core.Rating {
	return []core.Rating{
		{UserID: 2, ItemID: 20, Value: 5.0},
		{UserID: 1, ItemID: 20, Value: 3.0},
		{UserID: 1, ItemID: 10, Value: 5.0},
		{UserID: 3, ItemID: 10, Value: 1.0},
		{UserID: 2, ItemID: 10, Value: 4.0},
	}
}

func sortedSample() []core.Rating {
	return []core.Rating{
		{UserID: 1, ItemID: 10, Value: 5.0},
		{UserID: 1, ItemID: 20, Value: 3.0},
		{UserID: 2, ItemID: 10, Value: 4.0},
		{UserID: 2, ItemID: 20, Value: 5.0},
		{UserID: 3, ItemID: 10, Value: 1.0},
	}
}

func TestMemoryRatingStore(t *testing.T) {
	s := NewMemoryRatingStore()
	if err := s.AddAll(sampleRatings()); err != nil {
		t.Fatalf("AddAll() error = %v", err)
	}

	if s.Len() != 5 {
		t.Errorf("Len() = %d, want 5", s.Len())
	}
	if v, ok := s.Get(2, 20); !ok || v != 5.0 {
		t.Errorf("Get(2, 20) = %v, %v", v, ok)
	}
	if _, ok := s.Get(3, 20); ok {
		t.Error("Get(3, 20) found, want missing")
	}
	if got, want := s.Users(), []int64{1, 2, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("Users() = %v, want %v", got, want)
	}
	if got, want := s.Items(), []int64{10, 20}; !reflect.DeepEqual(got, want) {
		t.Errorf("Items() = %v, want %v", got, want)
	}
	if got, want := s.ItemRatings(10), map[int64]float64{1: 5, 2: 4, 3: 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("ItemRatings(10) = %v, want %v", got, want)
	}

	ur := s.UserRatings(1)
	ur[10] = 0
	if v, _ := s.Get(1, 10); v != 5.0 {
		t.Error("store mutated through UserRatings()")
	}

	got, err := s.LoadRatings(context.Background())
	if err != nil {
		t.Fatalf("LoadRatings() error = %v", err)
	}
	if !reflect.DeepEqual(got, sortedSample()) {
		t.Errorf("LoadRatings() = %v, want %v", got, sortedSample())
	}
}

func TestMemoryRatingStore_Duplicates(t *testing.T) {
	s := NewMemoryRatingStore()
	if err := s.Add(core.Rating{UserID: 1, ItemID: 10, Value: 5}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	err := s.Add(core.Rating{UserID: 1, ItemID: 10, Value: 2})
	if !core.IsDuplicateRating(err) {
		t.Fatalf("Add(duplicate) error = %v, want duplicate", err)
	}

	s.Put(core.Rating{UserID: 1, ItemID: 10, Value: 2})
	if v, _ := s.Get(1, 10); v != 2 {
		t.Errorf("Get after Put = %v, want 2", v)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestMemoryRatingStore_CanceledContext(t *testing.T) {
	s := NewMemoryRatingStore()
	_ = s.AddAll(sampleRatings())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.LoadRatings(ctx); err == nil {
		t.Error("LoadRatings(canceled) error = nil")
	}
}

// 需要本地 Redis：MOVIEREC_REDIS_ADDR=localhost:6379 go test ./store/...
func TestRedisRatingStore(t *testing.T) {
	addr := os.Getenv("MOVIEREC_REDIS_ADDR")
	if addr == "" {
		t.Skip("MOVIEREC_REDIS_ADDR not set, skipping redis test")
	}

	prefix := "movierec-test-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	s, err := NewRedisRatingStore(addr, 0, prefix)
	if err != nil {
		t.Fatalf("NewRedisRatingStore() error = %v", err)
	}
	defer s.Close()
	ctx := context.Background()
	defer func() { _ = s.Clear(ctx) }()

	if err := s.SaveRatings(ctx, sampleRatings()); err != nil {
		t.Fatalf("SaveRatings() error = %v", err)
	}
	got, err := s.LoadRatings(ctx)
	if err != nil {
		t.Fatalf("LoadRatings() error = %v", err)
	}
	if !reflect.DeepEqual(got, sortedSample()) {
		t.Errorf("LoadRatings() = %v, want %v", got, sortedSample())
	}

	ur, err := s.UserRatings(ctx, 2)
	if err != nil {
		t.Fatalf("UserRatings() error = %v", err)
	}
	if want := map[int64]float64{10: 4, 20: 5}; !reflect.DeepEqual(ur, want) {
		t.Errorf("UserRatings(2) = %v, want %v", ur, want)
	}
}

func TestNewRedisRatingStore_Unavailable(t *testing.T) {
	if testing.Short() {
		t.Skip("dials a closed port")
	}
	_, err := NewRedisRatingStore("127.0.0.1:1", 0, "")
	if !core.IsUnavailable(err) {
		t.Fatalf("error = %v, want unavailable", err)
	}
}
