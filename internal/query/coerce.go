package query

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	errNotString  = errors.New("不是字符串")
	errNotInteger = errors.New("不是整数")
	errBadSortDir = errors.New("排序方向只能是 asc 或 desc")
)

// lookup 取出字段值。[]string 取第一个元素；nil、空切片、空白字符串都视为字段缺失。
func lookup(raw Raw, key string) (any, bool) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, false
	}
	switch t := v.(type) {
	case []string:
		if len(t) == 0 {
			return nil, false
		}
		v = t[0]
	case *string:
		if t == nil {
			return nil, false
		}
		v = *t
	case *int:
		if t == nil {
			return nil, false
		}
		v = *t
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return nil, false
	}
	return v, true
}

// coerceString 只接受字符串，去掉首尾空白。
func coerceString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errNotString
	}
	return strings.TrimSpace(s), nil
}

// coerceInt 接受数字字符串、各种整数类型、整数值的 float64 以及 json.Number。
func coerceInt(v any) (int, error) {
	switch t := v.(type) {
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, errNotInteger
		}
		return n, nil
	case int:
		return t, nil
	case int8:
		return int(t), nil
	case int16:
		return int(t), nil
	case int32:
		return int(t), nil
	case int64:
		if t > math.MaxInt || t < math.MinInt {
			return 0, errNotInteger
		}
		return int(t), nil
	case uint:
		if uint64(t) > math.MaxInt {
			return 0, errNotInteger
		}
		return int(t), nil
	case uint8:
		return int(t), nil
	case uint16:
		return int(t), nil
	case uint32:
		return int(t), nil
	case uint64:
		if t > math.MaxInt {
			return 0, errNotInteger
		}
		return int(t), nil
	case float32:
		return floatToInt(float64(t))
	case float64:
		return floatToInt(t)
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, errNotInteger
		}
		return coerceInt(n)
	default:
		return 0, errNotInteger
	}
}

func floatToInt(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, errNotInteger
	}
	if f >= float64(math.MaxInt) || f < float64(math.MinInt) {
		return 0, errNotInteger
	}
	return int(f), nil
}

// coerceSortDir 严格匹配枚举，不做大小写折叠，也不回退默认值。
func coerceSortDir(v any) (SortDirection, error) {
	s, err := coerceString(v)
	if err != nil {
		return "", err
	}
	switch SortDirection(s) {
	case SortAsc, SortDesc:
		return SortDirection(s), nil
	default:
		return "", errBadSortDir
	}
}
