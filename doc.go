// Package movierec 是一个基于协同过滤的电影推荐系统。
//
// 设计要点：
// - 快照式构建: 评分 → 稠密交互矩阵 → 用户/物品相似度矩阵，一次构建、并发只读
// - 两条推荐路径: 基于用户（相似用户的加权平均评分）与基于物品（相似电影）
// - Pipeline-first: 召回源可以组合进 Pipeline（Recall → Filter → ReRank → PostProcess）
package movierec

import "github.com/rushteam/movierec/pipeline"

// 轻量 facade：便于用户直接 import "movierec" 使用 Pipeline 抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
