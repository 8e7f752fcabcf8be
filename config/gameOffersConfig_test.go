package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	var cfg GameOffersConfig
	cfg.ApplyDefaults()

	assert.Equal(t, "/search", cfg.UpstreamConfig.SearchPath)
	assert.Equal(t, "/tags", cfg.UpstreamConfig.TagsPath)
	assert.Equal(t, "/free-games", cfg.UpstreamConfig.FreebiesPath)
	assert.Equal(t, 5*time.Second, cfg.UpstreamConfig.Timeout)
	assert.Equal(t, "game_offers_hot_terms", cfg.ElasticsearchConfig.HotTermsIndex.Name)
	assert.Equal(t, "latest", cfg.KafkaConfig.AutoOffsetReset)
	assert.Equal(t, 30*time.Second, cfg.KafkaConfig.SessionTimeout)
	assert.Equal(t, "all", cfg.KafkaConfig.DLQ.Acks)
	assert.EqualValues(t, 3, cfg.KafkaConfig.MaxRetryAttempts)
	assert.Equal(t, 30*time.Minute, cfg.SessionConfig.IdleTTL)

	// 已配置的值不会被覆盖。
	cfg = GameOffersConfig{UpstreamConfig: UpstreamConfig{SearchPath: "/v2/search", Timeout: time.Second}}
	cfg.ApplyDefaults()
	assert.Equal(t, "/v2/search", cfg.UpstreamConfig.SearchPath)
	assert.Equal(t, time.Second, cfg.UpstreamConfig.Timeout)
}

func TestValidate(t *testing.T) {
	valid := func() GameOffersConfig {
		cfg := GameOffersConfig{UpstreamConfig: UpstreamConfig{BaseURL: "http://catalog", CacheTTL: time.Minute}}
		cfg.ApplyDefaults()
		return cfg
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.KafkaEnabled())
	assert.False(t, cfg.ElasticsearchEnabled())

	tests := []struct {
		name   string
		mutate func(*GameOffersConfig)
	}{
		{"missing base url", func(c *GameOffersConfig) { c.UpstreamConfig.BaseURL = "" }},
		{"redis without address", func(c *GameOffersConfig) { c.RedisConfig.Enabled = true }},
		{"redis without ttl", func(c *GameOffersConfig) {
			c.RedisConfig = RedisConfig{Enabled: true, Address: "localhost:6379"}
			c.UpstreamConfig.CacheTTL = 0
		}},
		{"kafka without group", func(c *GameOffersConfig) {
			c.KafkaConfig.Brokers = []string{"localhost:9092"}
			c.KafkaConfig.SubscribedTopics = []string{"t"}
		}},
		{"kafka without topics", func(c *GameOffersConfig) {
			c.KafkaConfig.Brokers = []string{"localhost:9092"}
			c.KafkaConfig.GroupID = "g"
		}},
		{"bad offset reset", func(c *GameOffersConfig) { c.KafkaConfig.AutoOffsetReset = "middle" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
