package core

import "context"

// RatingSource 是评分数据来源的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store / dataset）实现
//   - 核心算法只消费 []Rating，不关心数据来自 CSV、内存还是 Redis
//
// 实现：
//   - store.MemoryRatingStore
//   - store.RedisRatingStore
//   - dataset.Files（MovieLens CSV）
type RatingSource interface {
	// Name 返回数据源名称（用于日志/监控）
	Name() string

	// LoadRatings 读取全部评分记录，顺序不限
	LoadRatings(ctx context.Context) ([]Rating, error)
}

// CatalogSource 是物品元数据（电影标题等）来源的领域接口。
type CatalogSource interface {
	// LoadMovies 读取全部电影元数据
	LoadMovies(ctx context.Context) ([]Movie, error)
}
