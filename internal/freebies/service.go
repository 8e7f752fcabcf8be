package freebies

import (
	"context"

	"go.uber.org/zap"

	"github.com/Xushengqwer/game_offers/internal/executor"
	"github.com/Xushengqwer/game_offers/internal/models"
	"github.com/Xushengqwer/game_offers/internal/query"
)

// DefaultPath 上游免费活动列表接口。
const DefaultPath = "/free-games"

// Service 通过 HTTP 客户端协作者获取免费活动并合并。
type Service struct {
	getter executor.Getter
	logger *zap.Logger
	path   string
}

// NewService 创建免费活动服务，path 为空时使用 DefaultPath。
func NewService(getter executor.Getter, logger *zap.Logger, path string) *Service {
	if getter == nil {
		panic("freebies.NewService: getter 不能为 nil")
	}
	if logger == nil {
		panic("freebies.NewService: logger 不能为 nil")
	}
	if path == "" {
		path = DefaultPath
	}
	return &Service{getter: getter, logger: logger, path: path}
}

// List 获取一页免费活动（year、sortBy、sortDir、page、limit 参与请求）并按 namespace 合并。
// 失败或响应不合法时返回 *executor.ExecutionError，不返回部分数据。
func (s *Service) List(ctx context.Context, q query.SearchQuery) (*models.FreebiesResult, error) {
	params := q.Values()
	// 免费活动接口不支持文本和类型过滤。
	params.Del(query.ParamQuery)
	params.Del(query.ParamOfferType)

	var list models.FreebiesList
	if err := s.getter.Get(ctx, s.path, params, &list); err != nil {
		s.logger.Warn("获取免费活动失败", zap.String("params", params.Encode()), zap.Error(err))
		return nil, &executor.ExecutionError{Op: "freebies", Params: params.Encode(), Err: err}
	}

	if err := list.Verify(); err != nil {
		s.logger.Error("上游免费活动响应不合法", zap.String("params", params.Encode()), zap.Error(err))
		return nil, &executor.ExecutionError{Op: "verify", Params: params.Encode(), Err: err}
	}

	merged := Merge(list.Offers)
	s.logger.Debug("免费活动合并完成",
		zap.Int("rawOffers", len(list.Offers)),
		zap.Int("merged", len(merged)),
	)
	return &models.FreebiesResult{
		Total:    list.Total,
		Page:     list.Page,
		Limit:    list.Limit,
		Freebies: merged,
	}, nil
}
