package executor

import (
	"errors"
	"fmt"
)

var (
	// ErrQueryExecution 远程查询失败：传输错误、非 2xx 状态或响应体不合法。
	ErrQueryExecution = errors.New("查询执行失败")
	// ErrStaleResponseDiscarded 响应已被更新的请求取代，结果被丢弃。仅作内部信号，不展示给用户。
	ErrStaleResponseDiscarded = errors.New("过期响应已丢弃")
)

// ExecutionError 记录失败发生在哪一步以及对应的请求参数。
type ExecutionError struct {
	Op     string // 例如 "search"、"tags"、"decode"
	Params string // 编码后的请求参数
	Err    error
}

func (e *ExecutionError) Error() string {
	if e.Params == "" {
		return fmt.Sprintf("%s: %s: %v", ErrQueryExecution.Error(), e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s?%s: %v", ErrQueryExecution.Error(), e.Op, e.Params, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Is 让 errors.Is(err, ErrQueryExecution) 对所有 ExecutionError 成立。
func (e *ExecutionError) Is(target error) bool { return target == ErrQueryExecution }
