// Package catalog 把推荐结果中的电影 ID 解析回可读的标题与类型。
package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/rushteam/movierec/core"
)

// Recommendation 是解析后的一条推荐结果。
type Recommendation struct {
	MovieID int64    `json:"movie_id"`
	Title   string   `json:"title"`
	Genres  []string `json:"genres,omitempty"`
	Score   float64  `json:"score"`
}

// Catalog 是只读的电影元数据索引，构建后可并发读取。
type Catalog struct {
	movies map[int64]core.Movie
}

// New 用电影列表构建索引；ID 重复时后出现的覆盖先出现的。
func New(movies []core.Movie) *Catalog {
	c := &Catalog{movies: make(map[int64]core.Movie, len(movies))}
	for _, m := range movies {
		c.movies[m.ID] = m
	}
	return c
}

// Load 从 CatalogSource 读取电影并构建索引。
func Load(ctx context.Context, src core.CatalogSource) (*Catalog, error) {
	movies, err := src.LoadMovies(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: load movies: %w", err)
	}
	return New(movies), nil
}

// Len 返回电影数量。
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.movies)
}

// Movie 按 ID 查询电影。
func (c *Catalog) Movie(id int64) (core.Movie, bool) {
	if c == nil {
		return core.Movie{}, false
	}
	m, ok := c.movies[id]
	return m, ok
}

// Title 返回电影标题；未知 ID 返回 "movie {id}" 占位，不报错。
func (c *Catalog) Title(id int64) string {
	if m, ok := c.Movie(id); ok && m.Title != "" {
		return m.Title
	}
	return fmt.Sprintf("movie %d", id)
}

// IDs 返回全部电影 ID（升序）。
func (c *Catalog) IDs() []int64 {
	if c == nil {
		return nil
	}
	ids := make([]int64, 0, len(c.movies))
	for id := range c.movies {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Resolve 按原顺序把 []core.Scored 解析为带标题的推荐结果。
func (c *Catalog) Resolve(scored []core.Scored) []Recommendation {
	out := make([]Recommendation, 0, len(scored))
	for _, s := range scored {
		rec := Recommendation{MovieID: s.ID, Title: c.Title(s.ID), Score: s.Score}
		if m, ok := c.Movie(s.ID); ok {
			rec.Genres = m.Genres
		}
		out = append(out, rec)
	}
	return out
}

// ResolveItems 与 Resolve 相同，输入为 Pipeline 输出的 []*core.Item。
func (c *Catalog) ResolveItems(items []*core.Item) []Recommendation {
	scored := make([]core.Scored, 0, len(items))
	for _, it := range items {
		if it != nil {
			scored = append(scored, core.Scored{ID: it.ID, Score: it.Score})
		}
	}
	return c.Resolve(scored)
}
