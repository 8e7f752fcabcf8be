// Package executor 把校验后的查询发送到远程目录服务，并校验返回的响应。
package executor

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/Xushengqwer/game_offers/internal/models"
	"github.com/Xushengqwer/game_offers/internal/query"
)

const (
	DefaultSearchPath = "/search"
	DefaultTagsPath   = "/tags"
)

// Getter 是 HTTP 客户端协作者：GET path?params 并把 JSON 响应解码到 out。
// 重试、缓存等策略由实现自行决定。
type Getter interface {
	Get(ctx context.Context, path string, params url.Values, out any) error
}

// Executor 执行搜索查询。本身不缓存，同一查询重复执行没有副作用。
type Executor struct {
	getter     Getter
	logger     *zap.Logger
	searchPath string
	tagsPath   string
}

// Option 配置 Executor。
type Option func(*Executor)

// WithSearchPath 覆盖搜索接口路径。
func WithSearchPath(path string) Option {
	return func(e *Executor) {
		if path != "" {
			e.searchPath = path
		}
	}
}

// WithTagsPath 覆盖标签接口路径。
func WithTagsPath(path string) Option {
	return func(e *Executor) {
		if path != "" {
			e.tagsPath = path
		}
	}
}

// New 创建 Executor。getter 与 logger 为必需依赖。
func New(getter Getter, logger *zap.Logger, opts ...Option) *Executor {
	if getter == nil {
		panic("executor.New: getter 不能为 nil")
	}
	if logger == nil {
		panic("executor.New: logger 不能为 nil")
	}
	e := &Executor{
		getter:     getter,
		logger:     logger,
		searchPath: DefaultSearchPath,
		tagsPath:   DefaultTagsPath,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute 执行一次搜索。默认值字段不会出现在请求参数中。
// 返回的 page/limit 是上游的回显值，不做任何修正；响应不合法时整体失败，不返回部分数据。
func (e *Executor) Execute(ctx context.Context, q query.SearchQuery) (*models.SearchResponse, error) {
	params := q.Values()

	var resp models.SearchResponse
	if err := e.getter.Get(ctx, e.searchPath, params, &resp); err != nil {
		e.logger.Warn("搜索请求失败",
			zap.Object("query", q),
			zap.Error(err),
		)
		return nil, &ExecutionError{Op: "search", Params: params.Encode(), Err: err}
	}

	if err := resp.Verify(); err != nil {
		e.logger.Error("上游搜索响应不合法",
			zap.Object("query", q),
			zap.Error(err),
		)
		return nil, &ExecutionError{Op: "verify", Params: params.Encode(), Err: err}
	}

	if resp.Page != q.Page || resp.Limit != q.Limit {
		e.logger.Debug("上游分页与请求不一致，按上游回显返回",
			zap.Int("requestedPage", q.Page),
			zap.Int("requestedLimit", q.Limit),
			zap.Int("page", resp.Page),
			zap.Int("limit", resp.Limit),
		)
	}

	e.logger.Debug("搜索完成",
		zap.Object("query", q),
		zap.Int64("total", resp.Total),
		zap.Int("offers", len(resp.Offers)),
		zap.Float64("elapsedMs", resp.Meta.ElapsedMs),
		zap.Bool("cached", resp.Meta.Cached),
	)
	return &resp, nil
}

// Tags 预取分面词表：GET <tagsPath>?raw=true。
func (e *Executor) Tags(ctx context.Context) ([]models.Tag, error) {
	params := url.Values{"raw": {"true"}}
	var tags []models.Tag
	if err := e.getter.Get(ctx, e.tagsPath, params, &tags); err != nil {
		e.logger.Warn("获取标签词表失败", zap.Error(err))
		return nil, &ExecutionError{Op: "tags", Params: params.Encode(), Err: err}
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	return tags, nil
}
