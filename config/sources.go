package config

import (
	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/dataset"
	"github.com/rushteam/movierec/store"
)

// Sources 是按配置打开的数据源。
type Sources struct {
	Ratings core.RatingSource

	// Catalog 为 nil 表示没有配置电影元数据
	Catalog core.CatalogSource

	// WatchPaths 是需要监听变化的文件，只有 csv 来源且开启 data.watch 时非空
	WatchPaths []string

	closers []func() error
}

// Close 释放数据源持有的连接。
func (s *Sources) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// CSVFiles 返回 data 段描述的 CSV 文件。
func (a *App) CSVFiles() *dataset.Files {
	return &dataset.Files{
		RatingsPath: a.Data.RatingsPath,
		MoviesPath:  a.Data.MoviesPath,
		MaxUsers:    a.Data.MaxUsers,
	}
}

// OpenSources 按 data.source 打开评分来源；电影元数据始终从 data.movies_path 读取。
func (a *App) OpenSources() (*Sources, error) {
	files := a.CSVFiles()
	s := &Sources{}
	if a.Data.MoviesPath != "" {
		s.Catalog = files
	}

	switch a.Data.Source {
	case SourceRedis:
		rs, err := store.NewRedisRatingStore(a.Redis.Addr, a.Redis.DB, a.Redis.Prefix)
		if err != nil {
			return nil, err
		}
		s.Ratings = rs
		s.closers = append(s.closers, rs.Close)
	default:
		s.Ratings = files
		if a.Data.Watch {
			s.WatchPaths = files.Paths()
		}
	}
	return s, nil
}
