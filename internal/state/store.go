// Package state 保存单个搜索上下文的当前查询，并在变更后同步通知订阅者。
package state

import (
	"sync"

	"github.com/Xushengqwer/game_offers/internal/query"
)

// Observer 在每次 Set 生效后被调用，参数是新值及其版本号。
type Observer func(q query.SearchQuery, version uint64)

type subscription struct {
	id uint64
	fn Observer
}

// Store 是单一所有者的可变单元加一个有序订阅列表。
//
// Set 不会递归通知：通知周期进行中（无论来自订阅者回调内部还是另一个 goroutine）
// 到达的 Set 会进入 FIFO 队列，由正在派发的调用方在当前周期结束后依次处理。
// Store 不做任何校验，调用方必须先经过 query.Validate / query.Normalize。
type Store struct {
	mu          sync.Mutex
	current     query.SearchQuery
	version     uint64
	pending     []query.SearchQuery
	dispatching bool
	subs        []subscription
	nextSubID   uint64
}

// New 以初始查询创建 Store。
func New(initial query.SearchQuery) *Store {
	return &Store{current: initial}
}

// Get 返回当前查询。
func (s *Store) Get() query.SearchQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Version 返回已生效的 Set 次数。
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Set 写入新查询。若当前没有派发中的周期，本次调用负责逐个应用队列中的值并通知订阅者；
// 否则仅入队后立即返回，值会在当前周期结束后生效。
// 订阅者 panic 会中止当前周期并丢弃队列中尚未应用的值，panic 继续向上传播。
func (s *Store) Set(next query.SearchQuery) {
	s.mu.Lock()
	s.pending = append(s.pending, next)
	if s.dispatching {
		s.mu.Unlock()
		return
	}
	s.dispatching = true

	// 订阅者 panic 时仍要结束派发状态，否则之后的 Set 只会入队而永远不生效。
	finished := false
	defer func() {
		if finished {
			return
		}
		s.mu.Lock()
		s.pending = nil
		s.dispatching = false
		s.mu.Unlock()
	}()

	for len(s.pending) > 0 {
		q := s.pending[0]
		s.pending = s.pending[1:]
		s.current = q
		s.version++
		version := s.version
		observers := make([]Observer, len(s.subs))
		for i, sub := range s.subs {
			observers[i] = sub.fn
		}
		s.mu.Unlock()

		for _, fn := range observers {
			fn(q, version)
		}

		s.mu.Lock()
	}
	s.pending = nil
	s.dispatching = false
	finished = true
	s.mu.Unlock()
}

// Subscribe 注册订阅者，返回的函数用于取消订阅（可重复调用）。
// 在通知周期内取消的订阅者仍会收到当前周期的通知。
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}
