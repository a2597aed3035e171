package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX），可穿透 fmt.Errorf("%w") 包装
//
// 使用场景：
//   - 查询不存在的用户/物品：NOT_FOUND
//   - 构建交互矩阵时出现重复评分：DUPLICATE
//   - 矩阵规模超出限制：TOO_LARGE
//   - 引擎尚未完成首次构建：UNAVAILABLE
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "DUPLICATE"）
	Message string // 错误消息
	Module  string // 模块名称（如 "matrix", "similarity", "recall"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is 让 errors.Is 按 Module + Code 比较，便于与哨兵错误对比。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && (t.Module == "" || e.Module == t.Module)
}

// IsDomainError 检查错误链中是否包含 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的 DomainError，如果不存在则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 用户/物品不存在
	ErrorCodeDuplicate     = "DUPLICATE"      // 重复的 (user, item) 评分
	ErrorCodeTooLarge      = "TOO_LARGE"      // 矩阵规模超出限制
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleMatrix     = "matrix"
	ModuleSimilarity = "similarity"
	ModuleRecall     = "recall"
	ModuleStore      = "store"
	ModuleDataset    = "dataset"
	ModuleEngine     = "engine"
	ModuleCatalog    = "catalog"
	ModulePipeline   = "pipeline"
	ModuleConfig     = "config"
)

// 实体类型，用于 UnknownEntityError 的消息
const (
	EntityUser = "user"
	EntityItem = "item"
)

// ErrNotReady 表示引擎还没有可用的快照（首次构建尚未完成）。
var ErrNotReady = NewDomainError(ModuleEngine, ErrorCodeUnavailable, "engine: no snapshot built yet")

// NewUnknownEntityError 创建"实体不存在"错误（请求的 user/item 不在索引中）。
// 可恢复：调用方应当把它报告给用户，而不是视为致命错误。
func NewUnknownEntityError(module, kind string, id int64) *DomainError {
	return NewDomainError(module, ErrorCodeNotFound, fmt.Sprintf("%s: unknown %s %d", module, kind, id))
}

// NewDuplicateRatingError 创建重复评分错误（严格模式下构建交互矩阵时返回）。
func NewDuplicateRatingError(userID, itemID int64) *DomainError {
	return NewDomainError(ModuleMatrix, ErrorCodeDuplicate,
		fmt.Sprintf("matrix: duplicate rating for user %d item %d", userID, itemID))
}

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsUnknownEntity 检查错误是否为 NOT_FOUND（未知用户/物品）
func IsUnknownEntity(err error) bool {
	return hasCode(err, ErrorCodeNotFound)
}

// IsDuplicateRating 检查错误是否为 DUPLICATE
func IsDuplicateRating(err error) bool {
	return hasCode(err, ErrorCodeDuplicate)
}

// IsTooLarge 检查错误是否为 TOO_LARGE
func IsTooLarge(err error) bool {
	return hasCode(err, ErrorCodeTooLarge)
}

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool {
	return hasCode(err, ErrorCodeInvalidInput)
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	return hasCode(err, ErrorCodeUnavailable)
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	return hasCode(err, ErrorCodeNotSupported)
}
