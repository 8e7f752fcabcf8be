package config

import "time"

// KafkaConfig 目录变更事件的消费设置。Brokers 为空时服务不启动消费者。
type KafkaConfig struct {
	Brokers          []string      `mapstructure:"brokers" json:"brokers" yaml:"brokers"`
	GroupID          string        `mapstructure:"groupId" json:"groupId" yaml:"groupId"`
	SubscribedTopics []string      `mapstructure:"subscribedTopics" json:"subscribedTopics" yaml:"subscribedTopics"` // 目录变更主题，均按 OfferChangedEvent 解析
	KafkaVersion     string        `mapstructure:"kafkaVersion" json:"kafkaVersion" yaml:"kafkaVersion"`             // 交给 Sarama 做协议协商
	AutoOffsetReset  string        `mapstructure:"autoOffsetReset" json:"autoOffsetReset" yaml:"autoOffsetReset"`    // 新消费者组从哪里开始：latest / earliest
	SessionTimeout   time.Duration `mapstructure:"sessionTimeout" json:"sessionTimeout" yaml:"sessionTimeout"`
	MaxRetryAttempts uint64        `mapstructure:"maxRetryAttempts" json:"maxRetryAttempts" yaml:"maxRetryAttempts"` // 失效缓存失败后的重试次数，用尽后转入 DLQ
	DLQ              DLQConfig     `mapstructure:"dlq" json:"dlq" yaml:"dlq"`
}

// DLQConfig 处理失败的变更事件转发到的死信主题。
type DLQConfig struct {
	Topic   string        `mapstructure:"topic" json:"topic" yaml:"topic"` // 为空时失败消息只记录日志
	Acks    string        `mapstructure:"acks" json:"acks" yaml:"acks"`    // all / 1 / 0
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
}
