package models

import (
	"errors"
	"fmt"
)

// SearchMeta 诊断信息，不作为正确性依据。
type SearchMeta struct {
	ElapsedMs float64 `json:"elapsedMs"`
	TimedOut  bool    `json:"timedOut"`
	Cached    bool    `json:"cached"`
}

// SearchResponse 定义上游搜索接口的响应结构，本服务原样转发给前端。
type SearchResponse struct {
	Total        int64            `json:"total"`  // 所有页的命中总数
	Offers       []OfferWithPrice `json:"offers"` // 当前页结果，保持上游顺序
	Page         int              `json:"page"`   // 上游实际使用的页码
	Limit        int              `json:"limit"`  // 上游实际使用的每页大小
	Aggregations Aggregations     `json:"aggregations" swaggertype:"object"`
	Meta         SearchMeta       `json:"meta"`
}

// Verify 检查响应体是否满足基本约束。不满足时调用方应当整体丢弃，不做修补。
func (r *SearchResponse) Verify() error {
	if r.Total < 0 {
		return fmt.Errorf("total 为负数: %d", r.Total)
	}
	if r.Page < 1 {
		return fmt.Errorf("page 必须 >= 1，实际为 %d", r.Page)
	}
	if r.Limit < 1 {
		return fmt.Errorf("limit 必须 > 0，实际为 %d", r.Limit)
	}
	if r.Aggregations.PriceStats != nil && r.Aggregations.PriceStats.Count < 0 {
		return errors.New("priceStats.count 为负数")
	}
	for _, f := range r.Aggregations.Facets {
		if f.Buckets.SumOtherDocCount < 0 {
			return fmt.Errorf("分面 %q 的 sum_other_doc_count 为负数", f.Name)
		}
		for _, b := range f.Buckets.Buckets {
			if b.DocCount < 0 {
				return fmt.Errorf("分面 %q 的桶 %v 计数为负数", f.Name, b.Key)
			}
		}
	}
	return nil
}

// FreebiesList 是上游免费活动接口的分页响应。
type FreebiesList struct {
	Total  int64           `json:"total"`
	Offers []GiveawayOffer `json:"offers"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
}

// Verify 与 SearchResponse.Verify 的分页约束一致，缺失的 page/limit 同样视为不合法。
func (l *FreebiesList) Verify() error {
	if l.Total < 0 {
		return fmt.Errorf("total 为负数: %d", l.Total)
	}
	if l.Page < 1 {
		return fmt.Errorf("page 必须 >= 1，实际为 %d", l.Page)
	}
	if l.Limit < 1 {
		return fmt.Errorf("limit 必须 > 0，实际为 %d", l.Limit)
	}
	return nil
}

// FreebiesResult 是合并后返回给前端的结构。
type FreebiesResult struct {
	Total    int64           `json:"total"` // 上游报告的原始报价总数
	Page     int             `json:"page"`
	Limit    int             `json:"limit"`
	Freebies []MergedFreebie `json:"freebies"` // 按 namespace 合并后的记录
}

// Vocabulary 首次查询前预取的分面词表与热门搜索词。
type Vocabulary struct {
	Tags     []Tag           `json:"tags"`
	HotTerms []HotSearchTerm `json:"hotTerms"`
}
