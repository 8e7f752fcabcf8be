package query

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidQueryShape 表示原始输入中存在无法转换为声明类型的字段。
// 调用方通过 errors.Is(err, ErrInvalidQueryShape) 判断。
var ErrInvalidQueryShape = errors.New("查询参数结构无效")

// FieldError 描述单个字段的校验失败。
type FieldError struct {
	Field  string `json:"field"`  // 参数名，例如 "page"
	Value  any    `json:"value"`  // 原始值
	Reason string `json:"reason"` // 失败原因
}

// ValidationError 汇总一次校验中所有失败的字段。
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s=%v (%s)", f.Field, f.Value, f.Reason))
	}
	return fmt.Sprintf("%s: %s", ErrInvalidQueryShape.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidQueryShape
}

// FieldNames 返回失败字段名，顺序与发现顺序一致。
func (e *ValidationError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return names
}
