package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Xushengqwer/go-common/config"
)

// GameOffersConfig 是服务的完整配置，由 core.LoadConfig 从 YAML 加载。
type GameOffersConfig struct {
	Server              config.ServerConfig `mapstructure:"server" json:"server" yaml:"server"`
	ZapConfig           config.ZapConfig    `mapstructure:"zapConfig" json:"zapConfig" yaml:"zapConfig"`
	TracerConfig        config.TracerConfig `mapstructure:"tracerConfig" json:"tracerConfig" yaml:"tracerConfig"`
	UpstreamConfig      UpstreamConfig      `mapstructure:"upstream" json:"upstream" yaml:"upstream"`
	RedisConfig         RedisConfig         `mapstructure:"redisConfig" json:"redisConfig" yaml:"redisConfig"`
	ElasticsearchConfig ESConfig            `mapstructure:"elasticsearchConfig" json:"elasticsearchConfig" yaml:"elasticsearchConfig"`
	KafkaConfig         KafkaConfig         `mapstructure:"kafkaConfig" json:"kafkaConfig" yaml:"kafkaConfig"`
	SessionConfig       SessionConfig       `mapstructure:"sessionConfig" json:"sessionConfig" yaml:"sessionConfig"`
}

// ApplyDefaults 为未配置的可选项填充默认值。
func (c *GameOffersConfig) ApplyDefaults() {
	u := &c.UpstreamConfig
	if u.SearchPath == "" {
		u.SearchPath = "/search"
	}
	if u.TagsPath == "" {
		u.TagsPath = "/tags"
	}
	if u.FreebiesPath == "" {
		u.FreebiesPath = "/free-games"
	}
	if u.Timeout <= 0 {
		u.Timeout = 5 * time.Second
	}
	if u.RetryInitialInterval <= 0 {
		u.RetryInitialInterval = 200 * time.Millisecond
	}
	if u.MaxBodyBytes <= 0 {
		u.MaxBodyBytes = 8 << 20
	}

	if c.RedisConfig.KeyPrefix == "" {
		c.RedisConfig.KeyPrefix = "game_offers:upstream:"
	}

	es := &c.ElasticsearchConfig.HotTermsIndex
	if es.Name == "" {
		es.Name = "game_offers_hot_terms"
	}
	if es.NumberOfShards <= 0 {
		es.NumberOfShards = 1
	}

	k := &c.KafkaConfig
	if k.KafkaVersion == "" {
		k.KafkaVersion = "2.8.0"
	}
	if k.MaxRetryAttempts == 0 {
		k.MaxRetryAttempts = 3
	}
	if k.SessionTimeout <= 0 {
		k.SessionTimeout = 30 * time.Second
	}
	if k.AutoOffsetReset == "" {
		k.AutoOffsetReset = "latest"
	}
	if k.DLQ.Acks == "" {
		k.DLQ.Acks = "all"
	}
	if k.DLQ.Timeout <= 0 {
		k.DLQ.Timeout = 10 * time.Second
	}

	s := &c.SessionConfig
	if s.MaxSessions <= 0 {
		s.MaxSessions = 10000
	}
	if s.HistoryLimit <= 0 {
		s.HistoryLimit = 50
	}
	if s.IdleTTL <= 0 {
		s.IdleTTL = 30 * time.Minute
	}
	if s.SweepInterval <= 0 {
		s.SweepInterval = time.Minute
	}
}

// Validate 检查必填项。Elasticsearch 与 Kafka 为可选组件，未配置地址时不启用。
func (c *GameOffersConfig) Validate() error {
	var errs []error
	if c.UpstreamConfig.BaseURL == "" {
		errs = append(errs, errors.New("upstream.baseURL 不能为空"))
	}
	if c.RedisConfig.Enabled && c.RedisConfig.Address == "" {
		errs = append(errs, errors.New("redisConfig.enabled 为 true 时 redisConfig.address 不能为空"))
	}
	if c.RedisConfig.Enabled && c.UpstreamConfig.CacheTTL <= 0 {
		errs = append(errs, errors.New("启用 Redis 缓存时 upstream.cacheTTL 必须大于 0"))
	}
	if len(c.KafkaConfig.Brokers) > 0 {
		if c.KafkaConfig.GroupID == "" {
			errs = append(errs, errors.New("kafkaConfig.groupId 不能为空"))
		}
		if len(c.KafkaConfig.SubscribedTopics) == 0 {
			errs = append(errs, errors.New("kafkaConfig.subscribedTopics 不能为空"))
		}
	}
	switch c.KafkaConfig.AutoOffsetReset {
	case "", "latest", "earliest":
	default:
		errs = append(errs, fmt.Errorf("kafkaConfig.autoOffsetReset 取值无效: %q", c.KafkaConfig.AutoOffsetReset))
	}
	return errors.Join(errs...)
}

// ElasticsearchEnabled 是否配置了热门搜索词统计所需的 Elasticsearch。
func (c *GameOffersConfig) ElasticsearchEnabled() bool {
	return len(c.ElasticsearchConfig.Addresses) > 0
}

// KafkaEnabled 是否配置了目录变更事件消费。
func (c *GameOffersConfig) KafkaEnabled() bool {
	return len(c.KafkaConfig.Brokers) > 0
}
