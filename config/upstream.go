package config

import "time"

// UpstreamConfig 定义远程目录 API 的访问配置。
type UpstreamConfig struct {
	BaseURL              string        `mapstructure:"baseURL" json:"baseURL" yaml:"baseURL"`                                        // 目录 API 根地址，例如 https://catalog.example.com/api
	SearchPath           string        `mapstructure:"searchPath" json:"searchPath" yaml:"searchPath"`                               // 搜索接口路径
	TagsPath             string        `mapstructure:"tagsPath" json:"tagsPath" yaml:"tagsPath"`                                     // 标签词表接口路径
	FreebiesPath         string        `mapstructure:"freebiesPath" json:"freebiesPath" yaml:"freebiesPath"`                         // 免费活动列表接口路径
	Timeout              time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`                                        // 单次请求超时
	MaxRetries           uint64        `mapstructure:"maxRetries" json:"maxRetries" yaml:"maxRetries"`                               // 传输错误与 5xx 的最大重试次数
	RetryInitialInterval time.Duration `mapstructure:"retryInitialInterval" json:"retryInitialInterval" yaml:"retryInitialInterval"` // 首次重试等待时间
	CacheTTL             time.Duration `mapstructure:"cacheTTL" json:"cacheTTL" yaml:"cacheTTL"`                                     // 响应缓存时长，0 表示不缓存
	MaxBodyBytes         int64         `mapstructure:"maxBodyBytes" json:"maxBodyBytes" yaml:"maxBodyBytes"`                         // 响应体大小上限
}

// RedisConfig 定义上游响应缓存所用的 Redis 连接。
type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Address   string `mapstructure:"address" json:"address" yaml:"address"`
	Password  string `mapstructure:"password" json:"password" yaml:"password"`
	DB        int    `mapstructure:"db" json:"db" yaml:"db"`
	KeyPrefix string `mapstructure:"keyPrefix" json:"keyPrefix" yaml:"keyPrefix"` // 所有缓存键的前缀
}

// SessionConfig 定义服务端搜索会话的限制。
type SessionConfig struct {
	MaxSessions   int           `mapstructure:"maxSessions" json:"maxSessions" yaml:"maxSessions"`       // 同时存在的会话上限
	HistoryLimit  int           `mapstructure:"historyLimit" json:"historyLimit" yaml:"historyLimit"`    // 单个会话的历史记录条数
	IdleTTL       time.Duration `mapstructure:"idleTTL" json:"idleTTL" yaml:"idleTTL"`                   // 空闲多久后清理
	SweepInterval time.Duration `mapstructure:"sweepInterval" json:"sweepInterval" yaml:"sweepInterval"` // 清理任务间隔
}
