package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Xushengqwer/game_offers/internal/executor"
	"github.com/Xushengqwer/game_offers/internal/freebies"
	"github.com/Xushengqwer/game_offers/internal/models"
	"github.com/Xushengqwer/game_offers/internal/query"
	"github.com/Xushengqwer/game_offers/internal/repositories"
	"github.com/Xushengqwer/game_offers/internal/session"
)

// ErrHotTermsUnavailable 未启用 Elasticsearch 时热门搜索词不可用。
var ErrHotTermsUnavailable = errors.New("热门搜索词统计未启用")

// termRecordTimeout 异步记录单个搜索词的超时。
const termRecordTimeout = 5 * time.Second

// SearchService 协调上游目录查询、搜索词统计与搜索会话，是 HTTP 层唯一依赖的业务入口。
type SearchService struct {
	executor *executor.Executor
	freebies *freebies.Service
	hotTerms repositories.HotSearchTermRepository // 可为 nil
	sessions *session.Registry
	logger   *zap.Logger

	recording sync.WaitGroup
}

// NewSearchService 创建 SearchService。hotTerms 为 nil 表示不统计搜索词。
func NewSearchService(
	exec *executor.Executor,
	freebiesSvc *freebies.Service,
	hotTerms repositories.HotSearchTermRepository,
	sessions *session.Registry,
	logger *zap.Logger,
) *SearchService {
	if logger == nil {
		panic("创建 SearchService 失败：Logger 实例不能为 nil。")
	}
	if exec == nil || freebiesSvc == nil || sessions == nil {
		logger.Fatal("创建 SearchService 失败：Executor、免费活动服务与会话注册表均不能为 nil。")
	}
	logger.Info("SearchService 初始化成功", zap.Bool("hot_terms_enabled", hotTerms != nil))
	return &SearchService{
		executor: exec,
		freebies: freebiesSvc,
		hotTerms: hotTerms,
		sessions: sessions,
		logger:   logger,
	}
}

// Search 宽松解析参数并执行搜索。被回退为默认值的字段以 warnings 返回，不影响查询。
// 非空关键词会被异步计入热门搜索词。
func (s *SearchService) Search(ctx context.Context, raw query.Raw) (*models.SearchResponse, []query.FieldError, error) {
	q, warnings := normalize(raw)
	s.logger.Info("正在处理搜索请求", zap.Object("query", q), zap.Int("warnings", len(warnings)))

	resp, err := s.executor.Execute(ctx, q)
	if err != nil {
		return nil, warnings, err
	}
	s.recordTerm(q.Query)

	s.logger.Info("搜索成功完成",
		zap.Int64("total", resp.Total),
		zap.Int("offers", len(resp.Offers)),
		zap.Int("page", resp.Page),
	)
	return resp, warnings, nil
}

// Freebies 宽松解析参数并返回合并后的免费活动列表。
func (s *SearchService) Freebies(ctx context.Context, raw query.Raw) (*models.FreebiesResult, []query.FieldError, error) {
	q, warnings := normalize(raw)
	res, err := s.freebies.List(ctx, q)
	if err != nil {
		return nil, warnings, err
	}
	return res, warnings, nil
}

// Tags 返回上游的分面标签词表。
func (s *SearchService) Tags(ctx context.Context) ([]models.Tag, error) {
	return s.executor.Tags(ctx)
}

// HotTerms 返回前 limit 个热门搜索词。
func (s *SearchService) HotTerms(ctx context.Context, limit int) ([]models.HotSearchTerm, error) {
	if s.hotTerms == nil {
		return nil, ErrHotTermsUnavailable
	}
	terms, err := s.hotTerms.GetHotSearchTerms(ctx, limit)
	if err != nil {
		s.logger.Error("获取热门搜索词列表失败", zap.Int("limit", limit), zap.Error(err))
		return nil, fmt.Errorf("获取热门搜索词列表失败 (limit: %d): %w", limit, err)
	}
	if terms == nil {
		terms = []models.HotSearchTerm{}
	}
	return terms, nil
}

// Vocabulary 并发获取标签词表与热门搜索词，供界面一次性预取。
// 热门搜索词不可用时返回空列表，标签词表失败则整体失败。
func (s *SearchService) Vocabulary(ctx context.Context, hotLimit int) (*models.Vocabulary, error) {
	vocab := &models.Vocabulary{HotTerms: []models.HotSearchTerm{}}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		tags, err := s.executor.Tags(gctx)
		if err != nil {
			return err
		}
		vocab.Tags = tags
		return nil
	})
	if s.hotTerms != nil {
		g.Go(func() error {
			terms, err := s.hotTerms.GetHotSearchTerms(gctx, hotLimit)
			if err != nil {
				s.logger.Warn("预取热门搜索词失败，返回空列表", zap.Error(err))
				return nil
			}
			if terms != nil {
				vocab.HotTerms = terms
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vocab, nil
}

// CreateSession 创建会话；location 非空时立即按该地址执行一次导航。
func (s *SearchService) CreateSession(ctx context.Context, kind models.SessionKind, location string) (models.SessionSnapshot, error) {
	var values url.Values
	if location != "" {
		var err error
		values, err = url.ParseQuery(location)
		if err != nil {
			return models.SessionSnapshot{}, fmt.Errorf("%w: location 无法解析: %v", query.ErrInvalidQueryShape, err)
		}
	}

	sess, err := s.sessions.Create(kind)
	if err != nil {
		return models.SessionSnapshot{}, err
	}
	if values == nil {
		return sess.Snapshot(), nil
	}
	snap, err := sess.Navigate(ctx, values)
	if err == nil && kind == models.SessionKindSearch {
		s.recordTerm(snap.Query.Query)
	}
	return snap, err
}

// GetSession 返回会话快照。
func (s *SearchService) GetSession(id string) (models.SessionSnapshot, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return models.SessionSnapshot{}, err
	}
	return sess.Snapshot(), nil
}

// Navigate 让会话访问带 values 参数的地址。
func (s *SearchService) Navigate(ctx context.Context, id string, values url.Values) (models.SessionSnapshot, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return models.SessionSnapshot{}, err
	}
	snap, err := sess.Navigate(ctx, values)
	if err == nil && sess.Kind() == models.SessionKindSearch {
		s.recordTerm(snap.Query.Query)
	}
	return snap, err
}

// Interact 以严格校验的方式修改会话查询。
func (s *SearchService) Interact(ctx context.Context, id string, raw query.Raw) (models.SessionSnapshot, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return models.SessionSnapshot{}, err
	}
	snap, err := sess.Interact(ctx, raw)
	if err == nil && sess.Kind() == models.SessionKindSearch {
		s.recordTerm(snap.Query.Query)
	}
	return snap, err
}

// Back 会话后退一步。
func (s *SearchService) Back(ctx context.Context, id string) (models.SessionSnapshot, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return models.SessionSnapshot{}, err
	}
	return sess.Back(ctx)
}

// Forward 会话前进一步。
func (s *SearchService) Forward(ctx context.Context, id string) (models.SessionSnapshot, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return models.SessionSnapshot{}, err
	}
	return sess.Forward(ctx)
}

// DeleteSession 关闭并移除会话。
func (s *SearchService) DeleteSession(id string) error {
	return s.sessions.Delete(id)
}

// Wait 等待所有异步搜索词记录完成，用于优雅关闭。
func (s *SearchService) Wait() {
	s.recording.Wait()
}

// recordTerm 异步计入热门搜索词。记录失败只写日志，不影响搜索本身。
func (s *SearchService) recordTerm(term string) {
	if s.hotTerms == nil || repositories.NormalizeTerm(term) == "" {
		return
	}
	s.recording.Add(1)
	go func() {
		defer s.recording.Done()
		ctx, cancel := context.WithTimeout(context.Background(), termRecordTimeout)
		defer cancel()
		if err := s.hotTerms.IncrementSearchTermCount(ctx, term); err != nil {
			s.logger.Error("异步记录搜索关键词失败", zap.String("term", term), zap.Error(err))
		}
	}()
}

func normalize(raw query.Raw) (query.SearchQuery, []query.FieldError) {
	q, err := query.Normalize(raw)
	var verr *query.ValidationError
	if errors.As(err, &verr) {
		return q, verr.Fields
	}
	return q, nil
}
