package models

// HotSearchTerm 定义 API 返回的热门搜索词。
type HotSearchTerm struct {
	Term  string `json:"term"`            // 规范化（小写、去空白）后的搜索词
	Count int64  `json:"count,omitempty"` // 被搜索的次数
}
