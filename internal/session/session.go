// Package session 管理服务端的搜索上下文。每个会话拥有独立的查询状态、地址历史与请求序列，
// 会话之间没有任何共享的可变状态。
package session

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Xushengqwer/game_offers/internal/executor"
	"github.com/Xushengqwer/game_offers/internal/freebies"
	"github.com/Xushengqwer/game_offers/internal/models"
	"github.com/Xushengqwer/game_offers/internal/navigation"
	"github.com/Xushengqwer/game_offers/internal/query"
	"github.com/Xushengqwer/game_offers/internal/state"
)

// ErrHistoryBoundary 已在历史记录的最早或最新位置，无法继续后退或前进。
var ErrHistoryBoundary = errors.New("已到达历史记录边界")

// Result 是一次执行的结果，按会话类型只填充其一。
type Result struct {
	Search   *models.SearchResponse
	Freebies *models.FreebiesResult
}

// RunFunc 针对一个查询执行远程请求。
type RunFunc func(ctx context.Context, q query.SearchQuery) (Result, error)

// SearchRunner 使用 Executor 执行搜索。
func SearchRunner(exec *executor.Executor) RunFunc {
	return func(ctx context.Context, q query.SearchQuery) (Result, error) {
		resp, err := exec.Execute(ctx, q)
		if err != nil {
			return Result{}, err
		}
		return Result{Search: resp}, nil
	}
}

// FreebiesRunner 使用免费活动服务获取并合并结果。
func FreebiesRunner(svc *freebies.Service) RunFunc {
	return func(ctx context.Context, q query.SearchQuery) (Result, error) {
		res, err := svc.List(ctx, q)
		if err != nil {
			return Result{}, err
		}
		return Result{Freebies: res}, nil
	}
}

// Session 是一个搜索上下文。
//
// 状态变更（写 store、改地址、发令牌）在 opMu 内串行进行；远程请求在锁外执行，
// 因此新的操作可以取代仍在进行的请求，被取代的响应经 Sequencer 判定后丢弃。
type Session struct {
	id      string
	kind    models.SessionKind
	store   *state.Store
	history *navigation.History
	binder  *navigation.Binder
	seq     executor.Sequencer
	run     RunFunc
	logger  *zap.Logger
	now     func() time.Time

	opMu sync.Mutex

	mu         sync.Mutex
	result     Result
	lastErr    string
	warnings   []query.FieldError
	updatedAt  time.Time
	lastAccess time.Time
}

func newSession(id string, kind models.SessionKind, base *url.URL, historyLimit int, run RunFunc, logger *zap.Logger, now func() time.Time) *Session {
	s := &Session{
		id:      id,
		kind:    kind,
		store:   state.New(query.Default()),
		history: navigation.NewHistory(base, historyLimit),
		run:     run,
		logger:  logger.With(zap.String("sessionID", id), zap.String("kind", string(kind))),
		now:     now,
	}
	s.binder = navigation.Bind(s.store, s.history, s.logger)
	s.lastAccess = now()
	s.updatedAt = s.lastAccess
	return s
}

// ID 返回会话标识。
func (s *Session) ID() string { return s.id }

// Kind 返回会话类型。
func (s *Session) Kind() models.SessionKind { return s.kind }

// Navigate 模拟用户直接访问带有 values 参数的地址：新增历史记录，由地址恢复状态并执行查询。
// 非法参数回退为默认值，原因记录在快照的 Warnings 中。
func (s *Session) Navigate(ctx context.Context, values url.Values) (models.SessionSnapshot, error) {
	s.opMu.Lock()
	if err := s.history.Push(values); err != nil {
		s.opMu.Unlock()
		return s.Snapshot(), err
	}
	return s.syncFromLocationLocked(ctx)
}

// Interact 处理用户在界面上修改查询：严格校验，通过后写入 store（地址随之新增记录）并执行查询。
// 与 Navigate 不同，这里不回退默认值：非法字段直接返回 query.ErrInvalidQueryShape（HTTP 层映射为 400），
// store、地址与历史都保持不变。
// 需要宽松处理的输入应走 Navigate，由 query.Normalize 替换为默认值并记录 Warnings。
func (s *Session) Interact(ctx context.Context, raw query.Raw) (models.SessionSnapshot, error) {
	q, err := query.Validate(raw)
	if err != nil {
		s.touch()
		return s.Snapshot(), err
	}

	s.opMu.Lock()
	s.store.Set(q)
	s.setWarnings(nil)
	token, runCtx, release := s.seq.IssueWithContext(ctx)
	s.opMu.Unlock()

	return s.execute(runCtx, release, token, q)
}

// Back 后退一步并恢复对应状态。
func (s *Session) Back(ctx context.Context) (models.SessionSnapshot, error) {
	return s.travel(ctx, s.history.Back)
}

// Forward 前进一步并恢复对应状态。
func (s *Session) Forward(ctx context.Context) (models.SessionSnapshot, error) {
	return s.travel(ctx, s.history.Forward)
}

func (s *Session) travel(ctx context.Context, step func() bool) (models.SessionSnapshot, error) {
	s.opMu.Lock()
	if !step() {
		s.opMu.Unlock()
		s.touch()
		return s.Snapshot(), ErrHistoryBoundary
	}
	return s.syncFromLocationLocked(ctx)
}

// syncFromLocationLocked 在持有 opMu 时调用，返回前释放 opMu。
func (s *Session) syncFromLocationLocked(ctx context.Context) (models.SessionSnapshot, error) {
	q, warn := s.binder.LocationChanged()
	var verr *query.ValidationError
	if errors.As(warn, &verr) {
		s.setWarnings(verr.Fields)
	} else {
		s.setWarnings(nil)
	}
	token, runCtx, release := s.seq.IssueWithContext(ctx)
	s.opMu.Unlock()

	return s.execute(runCtx, release, token, q)
}

func (s *Session) execute(ctx context.Context, release context.CancelFunc, token executor.Token, q query.SearchQuery) (models.SessionSnapshot, error) {
	defer release()

	result, runErr := s.run(ctx, q)
	commitErr := s.seq.Commit(token, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if runErr != nil {
			s.result = Result{}
			s.lastErr = runErr.Error()
		} else {
			s.result = result
			s.lastErr = ""
		}
		s.updatedAt = s.now()
	})
	s.touch()

	if commitErr != nil {
		s.logger.Debug("响应已被更新的请求取代，丢弃",
			zap.Uint64("token", uint64(token)),
			zap.Object("query", q),
		)
		return s.Snapshot(), commitErr
	}
	if runErr != nil {
		s.logger.Warn("会话查询执行失败", zap.Object("query", q), zap.Error(runErr))
	}
	return s.Snapshot(), runErr
}

// Snapshot 返回会话当前可见状态。
func (s *Session) Snapshot() models.SessionSnapshot {
	q := s.store.Get()
	loc := s.history.Current()

	s.mu.Lock()
	defer s.mu.Unlock()
	snap := models.SessionSnapshot{
		ID:        s.id,
		Kind:      s.kind,
		Query:     q,
		Location:  loc.RawQuery,
		Version:   s.store.Version(),
		Search:    s.result.Search,
		Freebies:  s.result.Freebies,
		Error:     s.lastErr,
		UpdatedAt: s.updatedAt,
	}
	if len(s.warnings) > 0 {
		snap.Warnings = append([]query.FieldError(nil), s.warnings...)
	}
	return snap
}

// Close 取消仍在进行的请求并解除绑定。之后到达的响应都会被丢弃。
func (s *Session) Close() {
	s.seq.Issue()
	s.binder.Close()
}

func (s *Session) setWarnings(w []query.FieldError) {
	s.mu.Lock()
	s.warnings = w
	s.mu.Unlock()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastAccess = s.now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}
