// Package similarity 计算交互矩阵行（用户）或列（物品）之间的两两相似度。
//
// 结果是对称方阵，只计算并保存上三角（含对角线），At(a, b) 与 At(b, a)
// 读取同一个值，对称性由存储结构保证。
//
// 复杂度为 O(n²·d)（n 为向量个数，d 为维度），是整个系统的主要开销，
// 也是稠密内存方案无法扩展到大规模 n 的原因。
package similarity

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/matrix"
)

// DefaultMaxEntries 是相似度矩阵上三角默认允许的最大元素个数。
const DefaultMaxEntries = 50_000_000

// Metric 相似度度量方式：cosine / pearson
type Metric string

const (
	MetricCosine  Metric = "cosine"
	MetricPearson Metric = "pearson"
)

// ParseMetric 解析配置中的度量名，空字符串为 cosine。
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case "", MetricCosine:
		return MetricCosine, nil
	case MetricPearson:
		return MetricPearson, nil
	default:
		return "", core.NewDomainError(core.ModuleSimilarity, core.ErrorCodeInvalidInput,
			fmt.Sprintf("similarity: unknown metric %q", s))
	}
}

type options struct {
	metric     Metric
	workers    int
	maxEntries int64
}

// Option 配置 Compute。
type Option func(*options)

// WithMetric 设置相似度度量，默认 cosine。
func WithMetric(m Metric) Option {
	return func(o *options) { o.metric = m }
}

// WithWorkers 设置并发 worker 数，<= 0 时使用 runtime.NumCPU()。
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithMaxEntries 设置上三角最大元素个数；<= 0 表示不限制。
func WithMaxEntries(n int64) Option {
	return func(o *options) { o.maxEntries = n }
}

// Compute 计算交互矩阵在指定轴上的相似度矩阵：
// AxisUsers 比较行（用户），AxisItems 比较列（物品）。
func Compute(ctx context.Context, m *matrix.Interaction, axis matrix.Axis, opts ...Option) (*Matrix, error) {
	return FromVectors(ctx, m.Vectors(axis), opts...)
}

// FromVectors 计算一组向量的两两相似度。
//
// 行被分发给 errgroup worker 池并行计算；每个格子只由一个 worker 写入预分配的缓冲区，
// 因此结果与串行计算逐位一致。零范数向量与任何向量（包括自身）的相似度都是 0。
func FromVectors(ctx context.Context, v matrix.Vectors, opts ...Option) (*Matrix, error) {
	o := options{metric: MetricCosine, maxEntries: DefaultMaxEntries}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers <= 0 {
		o.workers = runtime.NumCPU()
	}

	n := v.Len()
	entries := int64(n) * int64(n+1) / 2
	if o.maxEntries > 0 && entries > o.maxEntries {
		return nil, core.NewDomainError(core.ModuleSimilarity, core.ErrorCodeTooLarge,
			fmt.Sprintf("similarity: %d vectors need %d entries, exceeds limit %d", n, entries, o.maxEntries))
	}

	vecs, err := prepare(v, o.metric)
	if err != nil {
		return nil, err
	}
	norms := make([]float64, n)
	for i, vec := range vecs {
		norms[i] = math.Sqrt(dot(vec, vec))
	}

	s := newMatrix(v.IDs())
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(o.workers)
	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			base := s.offset(i)
			for j := i; j < n; j++ {
				s.packed[base+j-i] = cosineWithNorms(vecs[i], vecs[j], norms[i], norms[j])
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return s, nil
}

// prepare 按度量方式准备向量副本：cosine 使用原值，pearson 去均值。
func prepare(v matrix.Vectors, metric Metric) ([][]float64, error) {
	n := v.Len()
	vecs := make([][]float64, n)
	switch metric {
	case MetricCosine, "":
		for i := 0; i < n; i++ {
			vecs[i] = v.At(i)
		}
	case MetricPearson:
		for i := 0; i < n; i++ {
			vecs[i] = center(v.At(i))
		}
	default:
		return nil, core.NewDomainError(core.ModuleSimilarity, core.ErrorCodeInvalidInput,
			fmt.Sprintf("similarity: unknown metric %q", metric))
	}
	return vecs, nil
}

// Cosine 计算余弦相似度；长度不一致、为空或任一向量范数为 0 时返回 0。
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return cosineWithNorms(a, b, math.Sqrt(dot(a, a)), math.Sqrt(dot(b, b)))
}

// Pearson 计算皮尔逊相关系数（去均值后的余弦）；任一方差为 0 时返回 0。
func Pearson(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return Cosine(center(a), center(b))
}

func cosineWithNorms(a, b []float64, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot(a, b) / (normA * normB)
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func center(x []float64) []float64 {
	if len(x) == 0 {
		return nil
	}
	var mean float64
	for _, v := range x {
		mean += v
	}
	mean /= float64(len(x))
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v - mean
	}
	return out
}
