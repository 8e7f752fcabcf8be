package executor

import (
	"context"
	"sync"
)

// Token 标识一次发出的请求，单调递增。
type Token uint64

// Sequencer 为同一搜索上下文中的请求编号，只允许最新请求的结果生效。
type Sequencer struct {
	mu     sync.Mutex
	latest Token
	cancel context.CancelFunc
}

// Issue 发出新的令牌，之前的所有令牌随即过期。
func (s *Sequencer) Issue() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked()
}

// IssueWithContext 发出新令牌，同时取消上一个仍在进行的请求的 context。
// 调用方在请求结束后必须调用返回的 release。
func (s *Sequencer) IssueWithContext(parent context.Context) (Token, context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	t := s.issueLocked()
	s.cancel = cancel
	s.mu.Unlock()

	return t, ctx, cancel
}

func (s *Sequencer) issueLocked() Token {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.latest++
	return s.latest
}

// Latest 返回最近发出的令牌，尚未发出时为 0。
func (s *Sequencer) Latest() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Commit 仅当 t 仍是最新令牌时执行 apply，否则返回 ErrStaleResponseDiscarded。
// apply 在锁内执行，不得再调用同一个 Sequencer。
func (s *Sequencer) Commit(t Token, apply func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t != s.latest {
		return ErrStaleResponseDiscarded
	}
	apply()
	return nil
}
