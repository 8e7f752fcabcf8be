package models

// 以下结构体只用于 Swagger 文档：swag 无法解析泛型的 response.APIResponse[T]，
// 字段需要与 gateway/pkg/response 实际输出的 JSON 保持一致。

// SwaggerSearchResponse 搜索接口的成功响应。
type SwaggerSearchResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    SearchResponse `json:"data,omitempty"`
}

// SwaggerFreebiesResponse 免费活动接口的成功响应。
type SwaggerFreebiesResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    FreebiesResult `json:"data,omitempty"`
}

// SwaggerTagsResponse 标签词表接口的成功响应。
type SwaggerTagsResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    []Tag  `json:"data,omitempty"`
}

// SwaggerHotSearchTermsResponse 热门搜索词接口的成功响应。
type SwaggerHotSearchTermsResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    []HotSearchTerm `json:"data,omitempty"`
}

// SwaggerVocabularyResponse 词表预取接口的成功响应。
type SwaggerVocabularyResponse struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    Vocabulary `json:"data,omitempty"`
}

// SwaggerSessionResponse 会话相关接口的响应，Data 为会话最新快照。
type SwaggerSessionResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    SessionSnapshot `json:"data,omitempty"`
}

// SwaggerErrorResponse 错误响应，data 通常为空。
type SwaggerErrorResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// SwaggerHealthCheckResponse 健康检查响应。
type SwaggerHealthCheckResponse struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
