package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/matrix"
	"github.com/rushteam/movierec/recall"
	"github.com/rushteam/movierec/similarity"
)

// Snapshot 是一次完整构建的结果：交互矩阵 + 用户相似度 + 物品相似度。
// 构建完成后不可变，可被任意多个请求并发读取。
type Snapshot struct {
	Version uint64
	BuiltAt time.Time
	Ratings int
	Metric  similarity.Metric

	interaction *matrix.Interaction
	userSim     *similarity.Matrix
	itemSim     *similarity.Matrix
}

// Stats 是快照的概要信息。
type Stats struct {
	Version uint64    `json:"version"`
	BuiltAt time.Time `json:"built_at"`
	Users   int       `json:"users"`
	Items   int       `json:"items"`
	Ratings int       `json:"ratings"`
	Metric  string    `json:"metric"`
}

// BuildSnapshot 从评分构建快照：先构建交互矩阵，再并发计算用户与物品两个相似度矩阵。
func BuildSnapshot(ctx context.Context, ratings []core.Rating, cfg Config) (*Snapshot, error) {
	mopts, err := cfg.matrixOptions()
	if err != nil {
		return nil, err
	}
	sopts, err := cfg.similarityOptions()
	if err != nil {
		return nil, err
	}

	m, err := matrix.Build(ratings, mopts...)
	if err != nil {
		return nil, fmt.Errorf("engine: build matrix: %w", err)
	}

	var userSim, itemSim *similarity.Matrix
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		s, err := similarity.Compute(egCtx, m, matrix.AxisUsers, sopts...)
		if err != nil {
			return fmt.Errorf("engine: user similarity: %w", err)
		}
		userSim = s
		return nil
	})
	eg.Go(func() error {
		s, err := similarity.Compute(egCtx, m, matrix.AxisItems, sopts...)
		if err != nil {
			return fmt.Errorf("engine: item similarity: %w", err)
		}
		itemSim = s
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	metric, _ := similarity.ParseMetric(cfg.Metric)
	return &Snapshot{
		BuiltAt:     time.Now(),
		Ratings:     len(ratings),
		Metric:      metric,
		interaction: m,
		userSim:     userSim,
		itemSim:     itemSim,
	}, nil
}

func (s *Snapshot) Interaction() *matrix.Interaction   { return s.interaction }
func (s *Snapshot) UserSimilarity() *similarity.Matrix { return s.userSim }
func (s *Snapshot) ItemSimilarity() *similarity.Matrix { return s.itemSim }

// RecommendForUser 基于用户的推荐，最多 topN 条；topN 为 0 时结果为空。
func (s *Snapshot) RecommendForUser(userID int64, topN int) ([]core.Scored, error) {
	return recall.RecommendForUser(userID, s.interaction, s.userSim, topN)
}

// SimilarItems 返回与 itemID 最相似的电影。
func (s *Snapshot) SimilarItems(itemID int64, topN int) ([]core.Scored, error) {
	return recall.SimilarItems(itemID, s.itemSim, topN)
}

// RecommendFromHistory 基于物品的推荐（以用户评过的电影为种子）。
func (s *Snapshot) RecommendFromHistory(userID int64, topN int) ([]core.Scored, error) {
	return recall.RecommendFromHistory(userID, s.interaction, s.itemSim, topN)
}

// HasUser 报告用户是否在快照中。
func (s *Snapshot) HasUser(userID int64) bool {
	_, ok := s.interaction.UserIndex(userID)
	return ok
}

// HasItem 报告电影是否在快照中。
func (s *Snapshot) HasItem(itemID int64) bool {
	_, ok := s.interaction.ItemIndex(itemID)
	return ok
}

// Stats 返回快照概要。
func (s *Snapshot) Stats() Stats {
	users, items := s.interaction.Shape()
	return Stats{
		Version: s.Version,
		BuiltAt: s.BuiltAt,
		Users:   users,
		Items:   items,
		Ratings: s.Ratings,
		Metric:  string(s.Metric),
	}
}

var _ recall.Model = (*Snapshot)(nil)
