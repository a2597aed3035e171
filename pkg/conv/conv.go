// Package conv 提供类型转换与配置读取的泛型工具，用于简化各模块中的重复逻辑。
// 主要服务于 YAML/JSON 解析出的 map[string]any：YAML 数字常为 int，JSON 数字总是 float64。
package conv

import (
	"strconv"
	"time"
)

// ToFloat64 将 any 转为 float64。
// 支持 float64、float32、int、int64、int32；bool 视为 1.0/0.0。
func ToFloat64(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case bool:
		if val {
			return 1.0, true
		}
		return 0.0, true
	default:
		return 0, false
	}
}

// ToInt64 将 any 转为 int64。
// 支持整数、浮点数（截断）以及十进制数字字符串（常见于 JSON 中的 ID）。
func ToInt64(v any) (int64, bool) {
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int64:
		return val, true
	case int32:
		return int64(val), true
	case float64:
		return int64(val), true
	case float32:
		return int64(val), true
	case string:
		n, err := strconv.ParseInt(val, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// ConvertSlice 将 []T 按 convert 转为 []U，convert 返回 false 的元素被跳过。
func ConvertSlice[T, U any](s []T, convert func(T) (U, bool)) []U {
	if s == nil {
		return nil
	}
	out := make([]U, 0, len(s))
	for _, v := range s {
		if u, ok := convert(v); ok {
			out = append(out, u)
		}
	}
	return out
}

// ConfigGet 从 map[string]any（如 YAML/JSON 解析结果）按 key 取 T，取不到或类型不符时返回 defaultVal。
func ConfigGet[T any](m map[string]any, key string, defaultVal T) T {
	if m == nil {
		return defaultVal
	}
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	t, ok := v.(T)
	if !ok {
		return defaultVal
	}
	return t
}

// ConfigGetInt64 从 config 取 int64。YAML/JSON 常得到 int 或 float64，此处兼容并统一为 int64。
func ConfigGetInt64(m map[string]any, key string, defaultVal int64) int64 {
	if m == nil {
		return defaultVal
	}
	if n, ok := ToInt64(m[key]); ok {
		return n
	}
	return defaultVal
}

// ConfigGetInt 同 ConfigGetInt64，返回 int。
func ConfigGetInt(m map[string]any, key string, defaultVal int) int {
	return int(ConfigGetInt64(m, key, int64(defaultVal)))
}

// ConfigGetFloat64 从 config 取 float64，兼容 YAML 中的整数写法。
func ConfigGetFloat64(m map[string]any, key string, defaultVal float64) float64 {
	if m == nil {
		return defaultVal
	}
	if f, ok := ToFloat64(m[key]); ok {
		return f
	}
	return defaultVal
}

// ConfigGetDuration 从 config 取时长：字符串按 time.ParseDuration（"200ms"），数字按毫秒。
func ConfigGetDuration(m map[string]any, key string, defaultVal time.Duration) time.Duration {
	if m == nil {
		return defaultVal
	}
	switch v := m[key].(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case nil:
	default:
		if ms, ok := ToFloat64(v); ok {
			return time.Duration(ms * float64(time.Millisecond))
		}
	}
	return defaultVal
}

// ConfigGetInt64Slice 从 config 取 []int64（YAML/JSON 列表为 []any）。
func ConfigGetInt64Slice(m map[string]any, key string) []int64 {
	raw, _ := m[key].([]any)
	return ConvertSlice(raw, ToInt64)
}

// ConfigGetStringSlice 从 config 取 []string，非字符串元素被跳过。
func ConfigGetStringSlice(m map[string]any, key string) []string {
	raw, _ := m[key].([]any)
	return ConvertSlice(raw, func(v any) (string, bool) {
		s, ok := v.(string)
		return s, ok
	})
}
