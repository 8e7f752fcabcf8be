package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	"github.com/Xushengqwer/game_offers/internal/models"
)

const (
	// MaxTermLength 超过该长度（按字符计）的搜索词会被截断后统计。
	MaxTermLength = 64
	// DefaultHotTermsLimit 未指定数量时返回的热门词条数。
	DefaultHotTermsLimit = 10
)

// HotSearchTermRepository 定义了热门搜索词统计的读写操作。
type HotSearchTermRepository interface {
	IncrementSearchTermCount(ctx context.Context, term string) error
	GetHotSearchTerms(ctx context.Context, limit int) ([]models.HotSearchTerm, error)
}

// NormalizeTerm 把搜索词规范化为统计口径：去首尾空白、合并连续空白、转小写并截断。
// 返回空字符串表示该词不参与统计。
func NormalizeTerm(term string) string {
	term = strings.ToLower(strings.Join(strings.Fields(term), " "))
	if utf8.RuneCountInString(term) > MaxTermLength {
		term = strings.TrimSpace(string([]rune(term)[:MaxTermLength]))
	}
	return term
}

// esHotSearchTermRepository 是 HotSearchTermRepository 的 Elasticsearch 实现。
type esHotSearchTermRepository struct {
	client    *elasticsearch.Client
	logger    *zap.Logger
	indexName string
	window    time.Duration // 只统计最近 window 内被搜索过的词，0 表示不限
	now       func() time.Time
}

// NewESHotSearchTermRepository 创建热门搜索词仓库。
func NewESHotSearchTermRepository(client *elasticsearch.Client, logger *zap.Logger, indexName string, window time.Duration) HotSearchTermRepository {
	if logger == nil {
		panic("创建 esHotSearchTermRepository 失败：Logger 实例不能为 nil")
	}
	if client == nil {
		logger.Fatal("创建 esHotSearchTermRepository 失败：Elasticsearch 客户端实例 (client) 不能为 nil。")
	}
	if indexName == "" {
		logger.Fatal("创建 esHotSearchTermRepository 失败：热门搜索词索引名称 (indexName) 不能为空。")
	}
	logger.Info("Elasticsearch HotSearchTermRepository 初始化成功", zap.String("index_name", indexName))
	return &esHotSearchTermRepository{
		client:    client,
		logger:    logger,
		indexName: indexName,
		window:    window,
		now:       time.Now,
	}
}

// logAndWrapESError 读取失败响应体，记录日志并返回包装后的错误。
func (repo *esHotSearchTermRepository) logAndWrapESError(res *esapi.Response, operationDesc string, contextIdentifier interface{}) error {
	var errorBodyContent string
	if res.Body != nil {
		if bodyBytes, err := io.ReadAll(res.Body); err == nil {
			errorBodyContent = string(bodyBytes)
		}
	}

	logFields := []zap.Field{
		zap.Any("context_identifier", contextIdentifier),
		zap.String("es_status", res.Status()),
	}
	if errorBodyContent != "" {
		logFields = append(logFields, zap.String("es_error_response_body", errorBodyContent))
	}
	repo.logger.Error(fmt.Sprintf("Elasticsearch 热门搜索词操作 '%s' 失败", operationDesc), logFields...)

	if errorBodyContent != "" {
		return fmt.Errorf("Elasticsearch 热门搜索词操作 '%s' 失败，状态码: %s，响应: %s", operationDesc, res.Status(), errorBodyContent)
	}
	return fmt.Errorf("Elasticsearch 热门搜索词操作 '%s' 失败，状态码: %s", operationDesc, res.Status())
}

// IncrementSearchTermCount 对规范化后的搜索词计数加一，文档不存在时以计数 1 创建。
func (repo *esHotSearchTermRepository) IncrementSearchTermCount(ctx context.Context, term string) error {
	term = NormalizeTerm(term)
	if term == "" {
		return nil
	}
	now := repo.now().UTC()

	updateBody := map[string]interface{}{
		"script": map[string]interface{}{
			"source": "ctx._source.count += params.count_val; ctx._source.last_searched_at = params.now;",
			"lang":   "painless",
			"params": map[string]interface{}{
				"count_val": 1,
				"now":       now,
			},
		},
		"upsert": models.HotSearchTermES{
			Term:            term,
			Count:           1,
			FirstSearchedAt: now,
			LastSearchedAt:  now,
		},
	}

	payload, err := json.Marshal(updateBody)
	if err != nil {
		return fmt.Errorf("序列化热门搜索词更新请求体 (term: %s) 失败: %w", term, err)
	}

	req := esapi.UpdateRequest{
		Index:           repo.indexName,
		DocumentID:      term,
		Body:            bytes.NewReader(payload),
		Refresh:         "false",
		RetryOnConflict: esapi.IntPtr(3),
	}

	res, err := req.Do(ctx, repo.client)
	if err != nil {
		repo.logger.Error("执行热门搜索词更新请求时发生连接或客户端错误", zap.String("term", term), zap.Error(err))
		return fmt.Errorf("Elasticsearch 热门搜索词更新请求 (term: %s) 失败: %w", term, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return repo.logAndWrapESError(res, "更新热门搜索词计数", term)
	}

	repo.logger.Debug("热门搜索词计数已更新", zap.String("term", term), zap.String("es_status", res.Status()))
	return nil
}

// GetHotSearchTerms 按计数降序返回前 limit 个搜索词，计数相同时按最近搜索时间排序。
func (repo *esHotSearchTermRepository) GetHotSearchTerms(ctx context.Context, limit int) ([]models.HotSearchTerm, error) {
	if limit <= 0 {
		limit = DefaultHotTermsLimit
	}

	dsl := map[string]interface{}{
		"size": limit,
		"sort": []map[string]interface{}{
			{"count": map[string]string{"order": "desc"}},
			{"last_searched_at": map[string]string{"order": "desc"}},
		},
	}
	if repo.window > 0 {
		dsl["query"] = map[string]interface{}{
			"range": map[string]interface{}{
				"last_searched_at": map[string]interface{}{
					"gte": repo.now().Add(-repo.window).UTC().Format(time.RFC3339),
				},
			},
		}
	}

	queryJSON, err := json.Marshal(dsl)
	if err != nil {
		return nil, fmt.Errorf("序列化热门搜索词查询 DSL 失败: %w", err)
	}
	repo.logger.Debug("热门搜索词查询 DSL", zap.ByteString("dsl_query", queryJSON))

	searchReq := esapi.SearchRequest{
		Index: []string{repo.indexName},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := searchReq.Do(ctx, repo.client)
	if err != nil {
		repo.logger.Error("执行热门搜索词搜索请求时发生连接或客户端错误", zap.Error(err))
		return nil, fmt.Errorf("Elasticsearch 热门搜索词搜索请求失败: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, repo.logAndWrapESError(res, "检索热门搜索词", fmt.Sprintf("limit: %d", limit))
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source models.HotSearchTermES `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		repo.logger.Error("解码热门搜索词响应体失败", zap.Error(err))
		return nil, fmt.Errorf("解码 Elasticsearch 热门搜索词响应失败: %w", err)
	}

	terms := make([]models.HotSearchTerm, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		terms = append(terms, models.HotSearchTerm{Term: hit.Source.Term, Count: hit.Source.Count})
	}

	repo.logger.Debug("成功检索热门搜索词", zap.Int("retrieved_count", len(terms)))
	return terms, nil
}
