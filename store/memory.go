package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/movierec/core"
)

// MemoryRatingStore 是内存实现的评分存储，用于测试/开发/原型，以及从 CSV 加载后的驻留数据。
// 只做数据持有与查询，不包含任何算法逻辑；并发安全。
type MemoryRatingStore struct {
	mu    sync.RWMutex
	users map[int64]map[int64]float64 // user -> item -> rating
	items map[int64]map[int64]float64 // item -> user -> rating
	count int
}

func NewMemoryRatingStore() *MemoryRatingStore {
	return &MemoryRatingStore{
		users: make(map[int64]map[int64]float64),
		items: make(map[int64]map[int64]float64),
	}
}

func (m *MemoryRatingStore) Name() string { return "memory" }

// Add 写入一条评分；同一 (user, item) 已存在时返回 DuplicateRatingError。
func (m *MemoryRatingStore) Add(r core.Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[r.UserID][r.ItemID]; ok {
		return core.NewDuplicateRatingError(r.UserID, r.ItemID)
	}
	m.put(r)
	return nil
}

// AddAll 依次写入多条评分，遇到第一个重复时停止并返回错误（之前的记录保留）。
func (m *MemoryRatingStore) AddAll(ratings []core.Rating) error {
	for _, r := range ratings {
		if err := m.Add(r); err != nil {
			return fmt.Errorf("store: add rating: %w", err)
		}
	}
	return nil
}

// Put 写入或覆盖一条评分。
func (m *MemoryRatingStore) Put(r core.Rating) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(r)
}

func (m *MemoryRatingStore) put(r core.Rating) {
	if m.users[r.UserID] == nil {
		m.users[r.UserID] = make(map[int64]float64)
	}
	if m.items[r.ItemID] == nil {
		m.items[r.ItemID] = make(map[int64]float64)
	}
	if _, ok := m.users[r.UserID][r.ItemID]; !ok {
		m.count++
	}
	m.users[r.UserID][r.ItemID] = r.Value
	m.items[r.ItemID][r.UserID] = r.Value
}

// Get 返回 (user, item) 的评分。
func (m *MemoryRatingStore) Get(userID, itemID int64) (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.users[userID][itemID]
	return v, ok
}

// UserRatings 返回用户评过的物品及评分（副本）。
func (m *MemoryRatingStore) UserRatings(userID int64) map[int64]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyRatings(m.users[userID])
}

// ItemRatings 返回评过该物品的用户及评分（副本）。
func (m *MemoryRatingStore) ItemRatings(itemID int64) map[int64]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyRatings(m.items[itemID])
}

// Users 返回所有 user ID（升序）。
func (m *MemoryRatingStore) Users() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedIDs(m.users)
}

// Items 返回所有 item ID（升序）。
func (m *MemoryRatingStore) Items() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedIDs(m.items)
}

// Len 返回评分条数。
func (m *MemoryRatingStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}

// LoadRatings 实现 core.RatingSource，按 (user, item) 升序返回全部评分。
func (m *MemoryRatingStore) LoadRatings(ctx context.Context) ([]core.Rating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.Rating, 0, m.count)
	for _, uid := range sortedIDs(m.users) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := m.users[uid]
		for _, iid := range sortedIDs(row) {
			out = append(out, core.Rating{UserID: uid, ItemID: iid, Value: row[iid]})
		}
	}
	return out, nil
}

func copyRatings(src map[int64]float64) map[int64]float64 {
	out := make(map[int64]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func sortedIDs[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

var _ core.RatingSource = (*MemoryRatingStore)(nil)
