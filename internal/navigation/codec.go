// Package navigation 在地址（URL 查询参数）与搜索状态之间双向同步，
// 使查询可以分享、收藏，并能通过前进后退恢复。
package navigation

import (
	"net/url"

	"github.com/Xushengqwer/game_offers/internal/query"
)

// Patch 是一次地址更新请求。
type Patch struct {
	Query       url.Values // 新的查询参数，完整替换原有参数
	Replace     bool       // true 替换当前历史记录，false 新增一条
	ResetScroll bool       // 状态同步产生的更新始终为 false
}

// Location 是可浏览地址协作者。
type Location interface {
	Current() *url.URL
	Update(p Patch) error
}

// Decode 从地址中取出原始查询参数，nil 地址得到空参数。
func Decode(loc *url.URL) query.Raw {
	if loc == nil {
		return query.Raw{}
	}
	return query.RawFromValues(loc.Query())
}

// Encode 生成表示 q 的地址更新，省略默认值字段。
func Encode(q query.SearchQuery) Patch {
	return Patch{Query: q.Values()}
}

// Apply 返回应用 p 之后的新地址，路径与片段保持不变，原地址不会被修改。
func Apply(loc *url.URL, p Patch) *url.URL {
	next := &url.URL{}
	if loc != nil {
		next = cloneURL(loc)
	}
	next.RawQuery = p.Query.Encode()
	next.ForceQuery = false
	return next
}

// canonical 判断地址的查询参数是否正好是 p 的规范编码。
func canonical(loc *url.URL, p Patch) bool {
	if loc == nil {
		return len(p.Query) == 0
	}
	return loc.Query().Encode() == p.Query.Encode()
}
