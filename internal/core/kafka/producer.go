package kafka

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/Xushengqwer/game_offers/config"
)

// DLQ 消息头部键。
const (
	HeaderOriginalTopic     = "dlq_original_topic"
	HeaderOriginalPartition = "dlq_original_partition"
	HeaderOriginalOffset    = "dlq_original_offset"
	HeaderProcessingError   = "dlq_processing_error"
	HeaderDLQTimestamp      = "dlq_timestamp_utc"
)

// NewSyncProducer 创建用于发送死信消息的同步生产者。
func NewSyncProducer(cfg config.KafkaConfig, clientConfig *sarama.Config, logger *zap.Logger) (sarama.SyncProducer, error) {
	if clientConfig == nil {
		return nil, errors.New("创建 Kafka 同步生产者失败：Sarama 客户端配置不能为空")
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("创建 Kafka 同步生产者失败：Broker 地址列表不能为空")
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, clientConfig)
	if err != nil {
		logger.Error("创建 Kafka 同步生产者失败", zap.Strings("brokers", cfg.Brokers), zap.Error(err))
		return nil, fmt.Errorf("创建 Kafka 同步生产者失败，目标 Broker: %v, 错误: %w", cfg.Brokers, err)
	}
	logger.Info("Kafka 同步生产者初始化成功", zap.Strings("brokers", cfg.Brokers))
	return producer, nil
}

// SendToDLQ 把处理失败的原始消息连同失败原因发往死信主题。
// 发送在独立 goroutine 中进行，ctx 结束时立即返回。
func SendToDLQ(ctx context.Context, producer sarama.SyncProducer, dlqTopic string,
	original *sarama.ConsumerMessage, processingErr error, logger *zap.Logger) error {
	if original == nil {
		return errors.New("发送到 DLQ 失败：原始消息不能为空")
	}
	if producer == nil || dlqTopic == "" {
		logger.Error("DLQ 未配置，消息将被丢弃",
			zap.String("original_topic", original.Topic),
			zap.Int64("original_offset", original.Offset),
			zap.Bool("producer_configured", producer != nil),
			zap.String("dlq_topic", dlqTopic),
		)
		return errors.New("发送到 DLQ 失败：DLQ 生产者或主题未配置")
	}

	headers := []sarama.RecordHeader{
		{Key: []byte(HeaderOriginalTopic), Value: []byte(original.Topic)},
		{Key: []byte(HeaderOriginalPartition), Value: []byte(strconv.FormatInt(int64(original.Partition), 10))},
		{Key: []byte(HeaderOriginalOffset), Value: []byte(strconv.FormatInt(original.Offset, 10))},
		{Key: []byte(HeaderDLQTimestamp), Value: []byte(time.Now().UTC().Format(time.RFC3339Nano))},
	}
	if processingErr != nil {
		headers = append(headers, sarama.RecordHeader{Key: []byte(HeaderProcessingError), Value: []byte(processingErr.Error())})
	}

	msg := &sarama.ProducerMessage{
		Topic:   dlqTopic,
		Value:   sarama.ByteEncoder(original.Value),
		Headers: headers,
	}
	if original.Key != nil {
		msg.Key = sarama.ByteEncoder(original.Key)
	}

	type sendResult struct {
		partition int32
		offset    int64
		err       error
	}
	resultc := make(chan sendResult, 1)
	go func() {
		p, o, err := producer.SendMessage(msg)
		resultc <- sendResult{p, o, err}
	}()

	select {
	case res := <-resultc:
		if res.err != nil {
			logger.Error("发送消息到 DLQ 失败",
				zap.String("dlq_topic", dlqTopic),
				zap.String("original_topic", original.Topic),
				zap.Int64("original_offset", original.Offset),
				zap.Error(res.err),
			)
			return fmt.Errorf("发送消息到 DLQ 失败 (原始主题 '%s'，偏移量 %d): %w", original.Topic, original.Offset, res.err)
		}
		logger.Info("消息已发送到 DLQ",
			zap.String("dlq_topic", dlqTopic),
			zap.Int32("dlq_partition", res.partition),
			zap.Int64("dlq_offset", res.offset),
			zap.String("original_topic", original.Topic),
			zap.Int64("original_offset", original.Offset),
		)
		return nil
	case <-ctx.Done():
		logger.Warn("发送消息到 DLQ 因上下文结束而中止", zap.String("dlq_topic", dlqTopic), zap.Error(ctx.Err()))
		return fmt.Errorf("发送消息到 DLQ 中止 (原始主题 '%s'，偏移量 %d): %w", original.Topic, original.Offset, ctx.Err())
	}
}
