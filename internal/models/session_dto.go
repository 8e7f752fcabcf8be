package models

import (
	"time"

	"github.com/Xushengqwer/game_offers/internal/query"
)

// SessionSnapshot 是会话当前可见状态的只读副本。
// Search 与 Freebies 只会按会话类型填充其一。
type SessionSnapshot struct {
	ID        string             `json:"id"`
	Kind      SessionKind        `json:"kind"`
	Query     query.SearchQuery  `json:"query"`
	Location  string             `json:"location"` // 规范化后的地址栏参数
	Version   uint64             `json:"version"`  // 查询状态的变更次数
	Search    *SearchResponse    `json:"search,omitempty"`
	Freebies  *FreebiesResult    `json:"freebies,omitempty"`
	Error     string             `json:"error,omitempty"`    // 最近一次执行失败的原因
	Warnings  []query.FieldError `json:"warnings,omitempty"` // 最近一次地址解析中被回退为默认值的字段
	UpdatedAt time.Time          `json:"updatedAt"`
}
