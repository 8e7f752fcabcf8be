package models

import "time"

// HotSearchTermES 是热门搜索词索引中的文档结构，文档 ID 即搜索词本身。
type HotSearchTermES struct {
	Term            string    `json:"term"`
	Count           int64     `json:"count"`
	FirstSearchedAt time.Time `json:"first_searched_at"` // UTC，仅在首次写入时设置
	LastSearchedAt  time.Time `json:"last_searched_at"`  // UTC
}
