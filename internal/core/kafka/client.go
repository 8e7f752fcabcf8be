package kafka

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/Xushengqwer/game_offers/config"
)

// ConfigureSarama 根据服务配置生成消费者组与 DLQ 生产者共用的 Sarama 配置。
func ConfigureSarama(cfg config.KafkaConfig, logger *zap.Logger) (*sarama.Config, error) {
	saramaCfg := sarama.NewConfig()

	if cfg.KafkaVersion != "" {
		version, err := sarama.ParseKafkaVersion(cfg.KafkaVersion)
		if err != nil {
			logger.Error("无效的 Kafka 版本配置", zap.String("configured_version", cfg.KafkaVersion), zap.Error(err))
			return nil, fmt.Errorf("无效的 Kafka 版本配置 '%s': %w", cfg.KafkaVersion, err)
		}
		saramaCfg.Version = version
	} else {
		logger.Warn("未在配置中指定 Kafka 版本，将使用 Sarama 的默认版本")
	}

	// 消费者：轮询分配分区，手动提交偏移量。
	saramaCfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	if cfg.AutoOffsetReset == "earliest" {
		saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		saramaCfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	if cfg.SessionTimeout > 0 {
		saramaCfg.Consumer.Group.Session.Timeout = cfg.SessionTimeout
	} else {
		saramaCfg.Consumer.Group.Session.Timeout = 30 * time.Second
	}
	saramaCfg.Consumer.Offsets.AutoCommit.Enable = false

	// 生产者：仅用于 DLQ，SyncProducer 要求返回成功与失败结果。
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.Return.Errors = true
	if cfg.DLQ.Timeout > 0 {
		saramaCfg.Producer.Timeout = cfg.DLQ.Timeout
	} else {
		saramaCfg.Producer.Timeout = 10 * time.Second
	}

	switch cfg.DLQ.Acks {
	case "all", "-1":
		saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	case "1", "leader":
		saramaCfg.Producer.RequiredAcks = sarama.WaitForLocal
	case "0", "none":
		saramaCfg.Producer.RequiredAcks = sarama.NoResponse
	default:
		saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
		logger.Warn("无效的生产者 ACKS 配置，将使用 'all'", zap.String("configured_acks", cfg.DLQ.Acks))
	}

	logger.Info("Sarama 配置完成",
		zap.String("version", saramaCfg.Version.String()),
		zap.String("auto_offset_reset", cfg.AutoOffsetReset),
		zap.Duration("session_timeout", saramaCfg.Consumer.Group.Session.Timeout),
		zap.Duration("producer_timeout", saramaCfg.Producer.Timeout),
		zap.Int16("required_acks", int16(saramaCfg.Producer.RequiredAcks)),
	)
	return saramaCfg, nil
}
