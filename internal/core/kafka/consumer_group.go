package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/Xushengqwer/game_offers/config"
)

// consumeRetryDelay Consume 异常返回后重新加入消费者组前的等待时间。
const consumeRetryDelay = 5 * time.Second

// ConsumerGroup 管理目录变更主题的消费循环。
type ConsumerGroup struct {
	cg      sarama.ConsumerGroup
	handler sarama.ConsumerGroupHandler
	topics  []string
	wg      sync.WaitGroup
	logger  *zap.Logger
	groupID string
}

// NewConsumerGroup 校验配置并连接到 Kafka 集群。
func NewConsumerGroup(cfg config.KafkaConfig, clientConfig *sarama.Config, handler sarama.ConsumerGroupHandler, logger *zap.Logger) (*ConsumerGroup, error) {
	if handler == nil {
		return nil, errors.New("初始化消费者组失败：消息处理器不能为空")
	}
	if clientConfig == nil {
		return nil, errors.New("初始化消费者组失败：Sarama 客户端配置不能为空")
	}
	if cfg.GroupID == "" {
		return nil, errors.New("初始化消费者组失败：消费者组 ID 不能为空")
	}
	if len(cfg.SubscribedTopics) == 0 {
		return nil, errors.New("初始化消费者组失败：订阅的主题列表不能为空")
	}
	for _, topic := range cfg.SubscribedTopics {
		if topic == "" {
			return nil, errors.New("初始化消费者组失败：订阅的主题列表中包含空主题名称")
		}
	}

	cg, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, clientConfig)
	if err != nil {
		logger.Error("创建 Kafka 消费者组客户端失败",
			zap.String("group_id", cfg.GroupID),
			zap.Strings("brokers", cfg.Brokers),
			zap.Error(err),
		)
		return nil, fmt.Errorf("创建 Kafka 消费者组 '%s' 失败: %w", cfg.GroupID, err)
	}
	return newConsumerGroup(cg, cfg.GroupID, cfg.SubscribedTopics, handler, logger), nil
}

func newConsumerGroup(cg sarama.ConsumerGroup, groupID string, topics []string, handler sarama.ConsumerGroupHandler, logger *zap.Logger) *ConsumerGroup {
	logger.Info("Kafka 消费者组客户端初始化成功", zap.String("group_id", groupID), zap.Strings("topics", topics))
	return &ConsumerGroup{
		cg:      cg,
		handler: handler,
		topics:  append([]string(nil), topics...),
		logger:  logger,
		groupID: groupID,
	}
}

// Start 在后台 goroutine 中循环 Consume，直到 ctx 结束或消费者组关闭。
// 若 handler 提供 Ready 通道，Start 会等待其就绪后返回。
func (c *ConsumerGroup) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			if err := c.cg.Consume(ctx, c.topics, c.handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					c.logger.Info("消费循环已停止", zap.String("group_id", c.groupID), zap.Error(err))
					return
				}
				c.logger.Error("Consume 出错，稍后重试", zap.String("group_id", c.groupID), zap.Error(err))
				select {
				case <-time.After(consumeRetryDelay):
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				c.logger.Info("上下文已取消，退出消费循环", zap.String("group_id", c.groupID))
				return
			}
			// Consume 正常返回意味着发生了重平衡，重新加入。
		}
	}()

	if rp, ok := c.handler.(interface{ Ready() <-chan bool }); ok {
		select {
		case <-rp.Ready():
			c.logger.Info("消息处理器已就绪", zap.String("group_id", c.groupID))
		case <-ctx.Done():
			c.logger.Warn("等待消息处理器就绪时上下文被取消", zap.String("group_id", c.groupID))
		}
	}
}

// Close 关闭底层消费者组并等待消费 goroutine 退出，最多等待 15 秒。
func (c *ConsumerGroup) Close() error {
	closeErr := c.cg.Close()
	if closeErr != nil {
		c.logger.Error("关闭 Sarama 消费者组客户端时发生错误", zap.String("group_id", c.groupID), zap.Error(closeErr))
	}

	finished := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(finished)
	}()

	const waitTimeout = 15 * time.Second
	select {
	case <-finished:
	case <-time.After(waitTimeout):
		c.logger.Warn("等待消费 goroutine 退出超时", zap.String("group_id", c.groupID), zap.Duration("timeout", waitTimeout))
		if closeErr == nil {
			return fmt.Errorf("关闭消费者组 '%s' 时等待内部 goroutine 退出超时 (%v)", c.groupID, waitTimeout)
		}
	}

	if closeErr != nil {
		return fmt.Errorf("关闭消费者组 '%s' 失败: %w", c.groupID, closeErr)
	}
	c.logger.Info("消费者组已关闭", zap.String("group_id", c.groupID))
	return nil
}
