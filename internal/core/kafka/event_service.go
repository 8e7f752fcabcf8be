package kafka

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Xushengqwer/game_offers/internal/models"
)

// ErrInvalidEventFormat 事件缺少必填字段或取值无效，重试无意义。
var ErrInvalidEventFormat = errors.New("无效的事件格式或缺少关键数据")

// CacheInvalidator 按路径前缀失效上游响应缓存。
type CacheInvalidator interface {
	InvalidatePrefix(ctx context.Context, prefix string) (int, error)
}

// InvalidationPaths 各类上游接口的路径，用作缓存键前缀。
type InvalidationPaths struct {
	Search   string
	Tags     string
	Freebies string
}

// EventService 根据目录变更事件失效受影响的缓存。
type EventService struct {
	cache  CacheInvalidator
	paths  InvalidationPaths
	logger *zap.Logger
}

// NewEventService 创建 EventService。
func NewEventService(cache CacheInvalidator, paths InvalidationPaths, logger *zap.Logger) *EventService {
	if logger == nil {
		panic("致命错误 [事件服务]: Logger 不能为 nil")
	}
	if cache == nil {
		panic("致命错误 [事件服务]: CacheInvalidator 不能为 nil")
	}
	return &EventService{cache: cache, paths: paths, logger: logger}
}

// HandleOfferChanged 失效该事件可能影响的缓存：
// 搜索结果总是失效；免费活动或下架事件同时失效免费列表；上架或下架事件同时失效标签表。
func (s *EventService) HandleOfferChanged(ctx context.Context, event models.OfferChangedEvent) error {
	if err := event.Validate(); err != nil {
		s.logger.Warn("目录变更事件校验失败", zap.String("event_id", event.EventID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrInvalidEventFormat, err)
	}

	prefixes := s.affectedPrefixes(event)
	total := 0
	for _, prefix := range prefixes {
		n, err := s.cache.InvalidatePrefix(ctx, prefix)
		if err != nil {
			s.logger.Error("失效缓存失败",
				zap.String("event_id", event.EventID),
				zap.String("prefix", prefix),
				zap.Error(err),
			)
			return fmt.Errorf("失效缓存前缀 %q 失败: %w", prefix, err)
		}
		total += n
	}

	s.logger.Info("目录变更事件处理完成",
		zap.String("event_id", event.EventID),
		zap.String("operation", event.Operation),
		zap.String("offer_id", event.OfferID),
		zap.Strings("prefixes", prefixes),
		zap.Int("invalidated_keys", total),
	)
	return nil
}

func (s *EventService) affectedPrefixes(event models.OfferChangedEvent) []string {
	prefixes := []string{s.paths.Search}
	if event.Freebie || event.Operation == models.OfferOperationDelete {
		prefixes = append(prefixes, s.paths.Freebies)
	}
	if event.Operation == models.OfferOperationUpsert || event.Operation == models.OfferOperationDelete {
		prefixes = append(prefixes, s.paths.Tags)
	}
	out := prefixes[:0]
	for _, p := range prefixes {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
