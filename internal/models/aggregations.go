package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// PriceStatsKey 是聚合对象中价格统计所在的键，其余键均视为分面。
const PriceStatsKey = "priceStats"

// PriceStats 价格统计聚合（ES stats 聚合的结果形状）。
type PriceStats struct {
	Count int64   `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Sum   float64 `json:"sum"`
}

// Bucket 单个分面桶。Key 可能是字符串也可能是数字，按原样透传。
type Bucket struct {
	Key      interface{} `json:"key"`
	DocCount int64       `json:"doc_count"`
}

// AggregationBuckets 是 terms 聚合的结果。
// SumOtherDocCount 与各桶计数之和只是 total 的近似值，不要求相等。
type AggregationBuckets struct {
	DocCountErrorUpperBound int64    `json:"doc_count_error_upper_bound"`
	SumOtherDocCount        int64    `json:"sum_other_doc_count"`
	Buckets                 []Bucket `json:"buckets"`
}

// Facet 是一个具名的分面聚合。
type Facet struct {
	Name    string
	Buckets AggregationBuckets
}

// Aggregations 保存搜索响应中的全部聚合。
// 分面以切片保存，反序列化再序列化后，分面顺序与桶顺序都和上游一致。
type Aggregations struct {
	PriceStats *PriceStats
	Facets     []Facet
}

// Facet 按名称查找分面。
func (a Aggregations) Facet(name string) (AggregationBuckets, bool) {
	for _, f := range a.Facets {
		if f.Name == name {
			return f.Buckets, true
		}
	}
	return AggregationBuckets{}, false
}

// MarshalJSON 先输出 priceStats，再按保存顺序输出各分面。
func (a Aggregations) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	writeKey := func(key string) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		return nil
	}

	if a.PriceStats != nil {
		if err := writeKey(PriceStatsKey); err != nil {
			return nil, err
		}
		v, err := json.Marshal(a.PriceStats)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	for _, f := range a.Facets {
		if err := writeKey(f.Name); err != nil {
			return nil, err
		}
		b := f.Buckets
		if b.Buckets == nil {
			b.Buckets = []Bucket{}
		}
		v, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("序列化分面 %q 失败: %w", f.Name, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON 以流式 token 读取对象，按出现顺序记录分面。
// 数字型桶键保留为 json.Number，重新编码时与上游逐字一致。
func (a *Aggregations) UnmarshalJSON(data []byte) error {
	*a = Aggregations{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("读取聚合对象失败: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("聚合必须是 JSON 对象")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("读取聚合键失败: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("聚合键类型错误: %v", tok)
		}

		if name == PriceStatsKey {
			var stats PriceStats
			if err := dec.Decode(&stats); err != nil {
				return fmt.Errorf("解析 priceStats 失败: %w", err)
			}
			a.PriceStats = &stats
			continue
		}

		var buckets AggregationBuckets
		if err := dec.Decode(&buckets); err != nil {
			return fmt.Errorf("解析分面 %q 失败: %w", name, err)
		}
		a.Facets = append(a.Facets, Facet{Name: name, Buckets: buckets})
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("读取聚合结尾失败: %w", err)
	}
	return nil
}
