package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Xushengqwer/game_offers/internal/models"
)

var (
	ErrSessionNotFound = errors.New("会话不存在")
	ErrTooManySessions = errors.New("会话数量已达上限")
	ErrUnknownKind     = errors.New("不支持的会话类型")
)

// Config 会话注册表配置。
type Config struct {
	MaxSessions   int           // 同时存在的会话上限，<= 0 表示不限制
	HistoryLimit  int           // 单个会话保留的历史记录条数
	IdleTTL       time.Duration // 空闲超过该时长的会话会被清理
	SweepInterval time.Duration // 后台清理间隔
}

// 每种会话类型的地址路径，仅用于生成 Location。
var kindPaths = map[models.SessionKind]string{
	models.SessionKindSearch:   "/search",
	models.SessionKindFreebies: "/free-games",
}

// Registry 保存所有活跃会话。
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	runners  map[models.SessionKind]RunFunc
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

// NewRegistry 创建会话注册表，runners 为每种会话类型提供执行函数。
func NewRegistry(cfg Config, runners map[models.SessionKind]RunFunc, logger *zap.Logger) *Registry {
	if logger == nil {
		panic("session.NewRegistry: logger 不能为 nil")
	}
	if len(runners) == 0 {
		panic("session.NewRegistry: 至少需要一种会话类型的执行函数")
	}
	return &Registry{
		sessions: make(map[string]*Session),
		runners:  runners,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Create 创建新会话，初始状态为默认查询，尚未执行任何请求。
func (r *Registry) Create(kind models.SessionKind) (*Session, error) {
	run, ok := r.runners[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg.MaxSessions > 0 && len(r.sessions) >= r.cfg.MaxSessions {
		return nil, ErrTooManySessions
	}

	id := uuid.NewString()
	s := newSession(id, kind, &url.URL{Path: kindPaths[kind]}, r.cfg.HistoryLimit, run, r.logger, r.now)
	r.sessions[id] = s
	r.logger.Info("会话已创建", zap.String("sessionID", id), zap.String("kind", string(kind)))
	return s, nil
}

// Get 按 ID 查找会话。
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete 关闭并移除会话。
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	r.logger.Info("会话已删除", zap.String("sessionID", id))
	return nil
}

// Len 返回活跃会话数。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep 清理空闲超过 idle 的会话，返回清理数量。
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		r.logger.Info("已清理空闲会话", zap.Int("count", len(expired)), zap.Duration("idle", idle))
	}
	return len(expired)
}

// Run 按 SweepInterval 周期清理空闲会话，直到 ctx 结束。
func (r *Registry) Run(ctx context.Context) {
	if r.cfg.IdleTTL <= 0 || r.cfg.SweepInterval <= 0 {
		r.logger.Info("未配置会话空闲清理，跳过后台清理任务")
		return
	}
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("会话清理任务已停止")
			return
		case <-ticker.C:
			r.Sweep(r.cfg.IdleTTL)
		}
	}
}
