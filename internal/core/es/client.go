package es

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	"github.com/Xushengqwer/game_offers/config"
)

// hotTermsIndexMapping 热门搜索词索引的映射。term 为 keyword，文档 ID 与其相同。
func hotTermsIndexMapping(shards int, replicas int) string {
	return fmt.Sprintf(`{
        "settings": {
            "number_of_shards": %d,
            "number_of_replicas": %d
        },
        "mappings": {
            "properties": {
                "term": { "type": "keyword" },
                "count": { "type": "long" },
                "first_searched_at": { "type": "date" },
                "last_searched_at": { "type": "date" }
            }
        }
    }`, shards, replicas)
}

// EnsureIndex 检查索引是否存在，不存在则按 mappingFunc 创建。
func EnsureIndex(
	ctx context.Context,
	esClient *elasticsearch.Client,
	indexCfg config.IndexSpecificConfig,
	mappingFunc func(shards, replicas int) string,
	logger *zap.Logger,
) error {
	if indexCfg.Name == "" {
		return fmt.Errorf("索引名称未在配置中指定")
	}
	if indexCfg.NumberOfShards <= 0 {
		return fmt.Errorf("索引 '%s' 配置的分片数无效: %d，必须大于0", indexCfg.Name, indexCfg.NumberOfShards)
	}
	if indexCfg.NumberOfReplicas < 0 {
		return fmt.Errorf("索引 '%s' 配置的副本数无效: %d，必须大于或等于0", indexCfg.Name, indexCfg.NumberOfReplicas)
	}

	checkCtx, checkCancel := context.WithTimeout(ctx, 5*time.Second)
	defer checkCancel()

	existsRes, err := esClient.Indices.Exists(
		[]string{indexCfg.Name},
		esClient.Indices.Exists.WithContext(checkCtx),
	)
	if err != nil {
		logger.Error("检查索引是否存在时发生请求错误", zap.String("index_name", indexCfg.Name), zap.Error(err))
		return fmt.Errorf("检查索引 '%s' 是否存在失败: %w", indexCfg.Name, err)
	}
	defer existsRes.Body.Close()

	switch {
	case existsRes.StatusCode == http.StatusNotFound:
		logger.Warn("索引不存在，将尝试创建...",
			zap.String("index_name", indexCfg.Name),
			zap.Int("shards", indexCfg.NumberOfShards),
			zap.Int("replicas", indexCfg.NumberOfReplicas),
		)

		createCtx, createCancel := context.WithTimeout(ctx, 10*time.Second)
		defer createCancel()

		createReq := esapi.IndicesCreateRequest{
			Index: indexCfg.Name,
			Body:  strings.NewReader(mappingFunc(indexCfg.NumberOfShards, indexCfg.NumberOfReplicas)),
		}
		createRes, err := createReq.Do(createCtx, esClient)
		if err != nil {
			logger.Error("发送创建索引请求失败", zap.String("index_name", indexCfg.Name), zap.Error(err))
			return fmt.Errorf("发送创建索引 '%s' 请求失败: %w", indexCfg.Name, err)
		}
		defer createRes.Body.Close()

		if createRes.IsError() {
			bodyBytes, _ := io.ReadAll(createRes.Body)
			var parsedError map[string]interface{}
			if jsonErr := json.Unmarshal(bodyBytes, &parsedError); jsonErr == nil {
				logger.Error("创建索引失败",
					zap.String("index_name", indexCfg.Name),
					zap.String("status", createRes.Status()),
					zap.Any("es_error_details", parsedError),
				)
			} else {
				logger.Error("创建索引失败，且无法解析JSON错误响应",
					zap.String("index_name", indexCfg.Name),
					zap.String("status", createRes.Status()),
					zap.ByteString("raw_response", bodyBytes),
				)
			}
			return fmt.Errorf("创建索引 '%s' 失败, 状态码: %s, 响应: %s", indexCfg.Name, createRes.Status(), bodyBytes)
		}
		logger.Info("成功创建索引及映射", zap.String("index_name", indexCfg.Name))

	case existsRes.IsError():
		bodyBytes, _ := io.ReadAll(existsRes.Body)
		logger.Error("检查索引存在性时出错",
			zap.String("index_name", indexCfg.Name),
			zap.String("status", existsRes.Status()),
			zap.ByteString("response", bodyBytes),
		)
		return fmt.Errorf("检查索引 '%s' 存在性时出错: %s", indexCfg.Name, existsRes.Status())

	default:
		logger.Info("索引已存在", zap.String("index_name", indexCfg.Name))
	}
	return nil
}

// NewESClient 初始化 Elasticsearch 客户端，Ping 成功后确保热门搜索词索引存在。
func NewESClient(cfg config.ESConfig, logger *zap.Logger, transport http.RoundTripper) (*elasticsearch.Client, error) {
	esClient, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: transport,
	})
	if err != nil {
		logger.Error("创建 Elasticsearch 客户端失败", zap.Error(err))
		return nil, fmt.Errorf("创建 Elasticsearch 客户端失败: %w", err)
	}
	logger.Info("Elasticsearch 客户端配置完成", zap.Strings("addresses", cfg.Addresses))

	ctxPing, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	pingRes, err := esClient.Ping(esClient.Ping.WithContext(ctxPing))
	if err != nil {
		logger.Error("Ping Elasticsearch 失败", zap.Error(err))
		return nil, fmt.Errorf("ping Elasticsearch 失败: %w", err)
	}
	defer pingRes.Body.Close()
	if pingRes.IsError() {
		bodyBytes, _ := io.ReadAll(pingRes.Body)
		logger.Error("Elasticsearch Ping 不成功", zap.String("status", pingRes.Status()), zap.ByteString("response", bodyBytes))
		return nil, fmt.Errorf("elasticsearch Ping 不成功: %s", pingRes.Status())
	}
	logger.Info("Elasticsearch 客户端连接成功 (Ping 成功)", zap.String("status", pingRes.Status()))

	if err := EnsureIndex(context.Background(), esClient, cfg.HotTermsIndex, hotTermsIndexMapping, logger); err != nil {
		return nil, err
	}
	return esClient, nil
}
