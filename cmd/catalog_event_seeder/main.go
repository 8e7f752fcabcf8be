package main

import (
	"encoding/json"
	"flag"
	"log"
	"path/filepath"
	"time"

	"github.com/IBM/sarama"
	"github.com/Xushengqwer/go-common/core"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Xushengqwer/game_offers/config"
	internalKafka "github.com/Xushengqwer/game_offers/internal/core/kafka"
	"github.com/Xushengqwer/game_offers/internal/models"
)

// 向目录变更主题写入一批样例事件，用于本地联调缓存失效链路。
func main() {
	var configFile string
	defaultConfigPath := filepath.Join("..", "..", "config", "config.development.yaml")
	flag.StringVar(&configFile, "config", defaultConfigPath, "指定配置文件的路径 (相对于当前工作目录或绝对路径)")
	interval := flag.Duration("interval", 100*time.Millisecond, "两条消息之间的发送间隔")
	flag.Parse()

	if !filepath.IsAbs(configFile) {
		absPath, err := filepath.Abs(configFile)
		if err != nil {
			log.Fatalf("无法将配置文件路径 '%s' 转换为绝对路径: %v", configFile, err)
		}
		configFile = absPath
	}

	var cfg config.GameOffersConfig
	if err := core.LoadConfig(configFile, &cfg); err != nil {
		log.Fatalf("致命错误: 加载配置文件 '%s' 失败: %v", configFile, err)
	}

	logger, loggerErr := core.NewZapLogger(cfg.ZapConfig)
	if loggerErr != nil {
		log.Fatalf("致命错误: 初始化 ZapLogger 失败: %v", loggerErr)
	}
	defer func() {
		if err := logger.Logger().Sync(); err != nil {
			log.Printf("警告: ZapLogger Sync 操作失败: %v\n", err)
		}
	}()

	kafkaCfg := cfg.KafkaConfig
	if len(kafkaCfg.SubscribedTopics) == 0 {
		logger.Fatal("Kafka 配置错误：subscribedTopics 为空，不知道往哪个主题写事件。")
	}
	topic := kafkaCfg.SubscribedTopics[0]

	saramaConfig, err := internalKafka.ConfigureSarama(kafkaCfg, logger.Logger())
	if err != nil {
		logger.Fatal("配置 Sarama 失败", zap.Error(err))
	}
	producer, err := sarama.NewSyncProducer(kafkaCfg.Brokers, saramaConfig)
	if err != nil {
		logger.Fatal("创建 Kafka 同步生产者失败", zap.Error(err))
	}
	defer func() {
		if err := producer.Close(); err != nil {
			logger.Error("关闭 Kafka 同步生产者时发生错误", zap.Error(err))
		}
	}()

	now := time.Now().UTC()
	events := []models.OfferChangedEvent{
		{Operation: models.OfferOperationUpsert, OfferID: "a7c1", Namespace: "celeste", OfferType: "BASE_GAME"},
		{Operation: models.OfferOperationPriceChanged, OfferID: "a7c1", Namespace: "celeste", OfferType: "BASE_GAME"},
		{Operation: models.OfferOperationUpsert, OfferID: "f9e2", Namespace: "hades", OfferType: "BASE_GAME", Freebie: true},
		{Operation: models.OfferOperationDelete, OfferID: "0b33", Namespace: "control", OfferType: "DLC"},
	}

	sent := 0
	for _, event := range events {
		event.EventID = uuid.NewString()
		event.ChangedAt = now

		payload, err := json.Marshal(event)
		if err != nil {
			logger.Error("序列化 OfferChangedEvent 失败", zap.String("offer_id", event.OfferID), zap.Error(err))
			continue
		}
		// 同一报价的事件落在同一分区，保证消费顺序。
		msg := &sarama.ProducerMessage{
			Topic: topic,
			Key:   sarama.StringEncoder(event.Namespace + ":" + event.OfferID),
			Value: sarama.ByteEncoder(payload),
		}
		partition, offset, err := producer.SendMessage(msg)
		if err != nil {
			logger.Error("发送目录变更事件失败",
				zap.String("topic", topic),
				zap.String("offer_id", event.OfferID),
				zap.Error(err),
			)
			continue
		}
		sent++
		logger.Info("目录变更事件已发送",
			zap.String("topic", topic),
			zap.String("event_id", event.EventID),
			zap.String("operation", event.Operation),
			zap.Int32("partition", partition),
			zap.Int64("offset", offset),
		)
		time.Sleep(*interval)
	}
	logger.Info("样例事件发送完毕", zap.Int("sent", sent), zap.Int("total", len(events)))
}
