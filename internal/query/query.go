// Package query 定义搜索参数的结构、默认值与校验规则。
//
// 原始输入（URL 参数、JSON 请求体）统一表示为 Raw，经 Validate 或 Normalize
// 转换为类型明确的 SearchQuery。两个函数都是纯函数，不依赖路由或存储。
package query

import (
	"errors"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap/zapcore"
)

// SortDirection 排序方向。
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

const (
	DefaultPage  = 1
	DefaultLimit = 25
	MaxLimit     = 100
)

// 参数名，地址栏与上游请求共用同一套名称。
const (
	ParamQuery     = "query"
	ParamOfferType = "offerType"
	ParamSortBy    = "sortBy"
	ParamSortDir   = "sortDir"
	ParamYear      = "year"
	ParamPage      = "page"
	ParamLimit     = "limit"
)

// Raw 是尚未校验的原始参数。
type Raw map[string]any

// SearchQuery 是经过校验的规范查询对象。空字符串表示字段缺失。
type SearchQuery struct {
	Query     string        `json:"query,omitempty"`
	OfferType string        `json:"offerType,omitempty"`
	SortBy    string        `json:"sortBy,omitempty"`
	SortDir   SortDirection `json:"sortDir,omitempty" validate:"omitempty,oneof=asc desc"`
	Year      *int          `json:"year,omitempty" validate:"omitempty,min=1"`
	Page      int           `json:"page" validate:"min=1"`
	Limit     int           `json:"limit" validate:"min=1,max=100"`
}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 错误中使用 json 名称，与参数名保持一致。
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Default 返回全部字段取默认值的查询。
func Default() SearchQuery {
	return SearchQuery{Page: DefaultPage, Limit: DefaultLimit}
}

// Validate 严格校验：任一字段无法转换或越界即返回 *ValidationError。
func Validate(raw Raw) (SearchQuery, error) {
	q, issues := parse(raw, false)
	if len(issues) > 0 {
		return SearchQuery{}, &ValidationError{Fields: issues}
	}
	return q, nil
}

// Normalize 宽松校验：出错字段回退为默认值，其余字段照常保留。
// 返回的错误只是提示（*ValidationError），查询对象始终可用。
func Normalize(raw Raw) (SearchQuery, error) {
	q, issues := parse(raw, true)
	if len(issues) > 0 {
		return q, &ValidationError{Fields: issues}
	}
	return q, nil
}

func parse(raw Raw, repair bool) (SearchQuery, []FieldError) {
	q := Default()
	var issues []FieldError
	fail := func(field string, value any, err error) {
		issues = append(issues, FieldError{Field: field, Value: value, Reason: err.Error()})
	}

	for _, f := range []struct {
		name string
		dst  *string
	}{
		{ParamQuery, &q.Query},
		{ParamOfferType, &q.OfferType},
		{ParamSortBy, &q.SortBy},
	} {
		if v, ok := lookup(raw, f.name); ok {
			s, err := coerceString(v)
			if err != nil {
				fail(f.name, v, err)
				continue
			}
			*f.dst = s
		}
	}

	if v, ok := lookup(raw, ParamSortDir); ok {
		dir, err := coerceSortDir(v)
		if err != nil {
			fail(ParamSortDir, v, err)
		} else {
			q.SortDir = dir
		}
	}

	if v, ok := lookup(raw, ParamYear); ok {
		year, err := coerceInt(v)
		if err != nil {
			fail(ParamYear, v, err)
		} else {
			q.Year = &year
		}
	}

	for _, f := range []struct {
		name string
		dst  *int
	}{
		{ParamPage, &q.Page},
		{ParamLimit, &q.Limit},
	} {
		if v, ok := lookup(raw, f.name); ok {
			n, err := coerceInt(v)
			if err != nil {
				fail(f.name, v, err)
				continue
			}
			*f.dst = n
		}
	}

	if err := structValidator.Struct(q); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			fail("", nil, err)
			return q, issues
		}
		for _, fe := range verrs {
			issues = append(issues, FieldError{
				Field:  fe.Field(),
				Value:  fe.Value(),
				Reason: "不满足约束 " + fe.Tag() + paramSuffix(fe.Param()),
			})
			if repair {
				q.reset(fe.Field())
			}
		}
	}
	return q, issues
}

func paramSuffix(p string) string {
	if p == "" {
		return ""
	}
	return "=" + p
}

// reset 把单个字段恢复为默认值。
func (q *SearchQuery) reset(field string) {
	switch field {
	case ParamQuery:
		q.Query = ""
	case ParamOfferType:
		q.OfferType = ""
	case ParamSortBy:
		q.SortBy = ""
	case ParamSortDir:
		q.SortDir = ""
	case ParamYear:
		q.Year = nil
	case ParamPage:
		q.Page = DefaultPage
	case ParamLimit:
		q.Limit = DefaultLimit
	}
}

// Values 序列化为 URL 参数，省略取默认值的字段。
func (q SearchQuery) Values() url.Values {
	v := url.Values{}
	if q.Query != "" {
		v.Set(ParamQuery, q.Query)
	}
	if q.OfferType != "" {
		v.Set(ParamOfferType, q.OfferType)
	}
	if q.SortBy != "" {
		v.Set(ParamSortBy, q.SortBy)
	}
	if q.SortDir != "" {
		v.Set(ParamSortDir, string(q.SortDir))
	}
	if q.Year != nil {
		v.Set(ParamYear, strconv.Itoa(*q.Year))
	}
	if q.Page != DefaultPage {
		v.Set(ParamPage, strconv.Itoa(q.Page))
	}
	if q.Limit != DefaultLimit {
		v.Set(ParamLimit, strconv.Itoa(q.Limit))
	}
	return v
}

// Raw 序列化为原始参数，可再次交给 Validate。
func (q SearchQuery) Raw() Raw {
	return RawFromValues(q.Values())
}

// CacheKey 返回规范编码，键按字母排序，相同查询得到相同字符串。
func (q SearchQuery) CacheKey() string {
	return q.Values().Encode()
}

// Equal 按值比较两个查询。
func (q SearchQuery) Equal(o SearchQuery) bool {
	if q.Query != o.Query || q.OfferType != o.OfferType || q.SortBy != o.SortBy ||
		q.SortDir != o.SortDir || q.Page != o.Page || q.Limit != o.Limit {
		return false
	}
	if q.Year == nil || o.Year == nil {
		return q.Year == nil && o.Year == nil
	}
	return *q.Year == *o.Year
}

// WithPage 返回翻页后的副本。
func (q SearchQuery) WithPage(page int) SearchQuery {
	q.Page = page
	return q
}

// MarshalLogObject 让 SearchQuery 可以直接作为 zap.Object 字段输出。
func (q SearchQuery) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if q.Query != "" {
		enc.AddString(ParamQuery, q.Query)
	}
	if q.OfferType != "" {
		enc.AddString(ParamOfferType, q.OfferType)
	}
	if q.SortBy != "" {
		enc.AddString(ParamSortBy, q.SortBy)
	}
	if q.SortDir != "" {
		enc.AddString(ParamSortDir, string(q.SortDir))
	}
	if q.Year != nil {
		enc.AddInt(ParamYear, *q.Year)
	}
	enc.AddInt(ParamPage, q.Page)
	enc.AddInt(ParamLimit, q.Limit)
	return nil
}

// RawFromValues 把 URL 参数转成 Raw：单值取字符串，多值保留切片。
func RawFromValues(values url.Values) Raw {
	raw := make(Raw, len(values))
	for k, vs := range values {
		switch len(vs) {
		case 0:
		case 1:
			raw[k] = vs[0]
		default:
			raw[k] = append([]string(nil), vs...)
		}
	}
	return raw
}
