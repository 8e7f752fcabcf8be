package models

// SessionKind 搜索会话的类型，每种类型对应独立的查询状态。
type SessionKind string

const (
	SessionKindSearch   SessionKind = "search"
	SessionKindFreebies SessionKind = "freebies"
)

// Valid 判断会话类型是否受支持。
func (k SessionKind) Valid() bool {
	return k == SessionKindSearch || k == SessionKindFreebies
}

// CreateSessionRequest 定义创建会话接口的请求体。
type CreateSessionRequest struct {
	Kind SessionKind `json:"kind" binding:"required,oneof=search freebies" example:"search"`
	// Location 是可选的初始地址栏参数，例如 "query=witcher&page=2"。
	Location string `json:"location,omitempty" example:"query=witcher&page=2"`
}

// HotTermsRequest 定义热门搜索词接口的查询参数。
type HotTermsRequest struct {
	Limit int `form:"limit,default=10" binding:"omitempty,min=1,max=50"`
}
