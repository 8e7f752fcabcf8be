package navigation

import (
	"net/url"
	"sync"
)

// DefaultMaxEntries 单个会话保留的历史记录上限。
const DefaultMaxEntries = 50

// Entry 一条历史记录。
type Entry struct {
	URL         *url.URL
	ResetScroll bool
}

// History 是内存中的 Location 实现，模拟浏览器的前进后退栈。
type History struct {
	mu         sync.Mutex
	entries    []Entry
	cursor     int
	maxEntries int
}

// NewHistory 以初始地址创建历史栈。maxEntries <= 0 时使用 DefaultMaxEntries。
func NewHistory(initial *url.URL, maxEntries int) *History {
	if initial == nil {
		initial = &url.URL{}
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &History{
		entries:    []Entry{{URL: cloneURL(initial)}},
		maxEntries: maxEntries,
	}
}

// Current 返回当前地址的副本。
func (h *History) Current() *url.URL {
	h.mu.Lock()
	defer h.mu.Unlock()
	return cloneURL(h.entries[h.cursor].URL)
}

// CurrentEntry 返回当前记录。
func (h *History) CurrentEntry() Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	e := h.entries[h.cursor]
	e.URL = cloneURL(e.URL)
	return e
}

// Update 应用地址更新。新增记录会丢弃当前位置之后的前进记录。
func (h *History) Update(p Patch) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := Entry{URL: Apply(h.entries[h.cursor].URL, p), ResetScroll: p.ResetScroll}
	if p.Replace {
		h.entries[h.cursor] = next
		return nil
	}

	h.entries = append(h.entries[:h.cursor+1], next)
	if over := len(h.entries) - h.maxEntries; over > 0 {
		h.entries = append([]Entry(nil), h.entries[over:]...)
	}
	h.cursor = len(h.entries) - 1
	return nil
}

// Push 新增一条以 values 为查询参数的记录，相当于用户直接访问了新地址。
func (h *History) Push(values url.Values) error {
	return h.Update(Patch{Query: values, ResetScroll: true})
}

// Back 后退一步，已在最早记录时返回 false。
func (h *History) Back() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cursor == 0 {
		return false
	}
	h.cursor--
	return true
}

// Forward 前进一步，已在最新记录时返回 false。
func (h *History) Forward() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cursor >= len(h.entries)-1 {
		return false
	}
	h.cursor++
	return true
}

// Len 返回历史记录条数。
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

func cloneURL(u *url.URL) *url.URL {
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}
