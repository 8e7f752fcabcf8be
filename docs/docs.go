// Package docs 由 swag init 生成，供 gin-swagger 提供 /swagger 页面。
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "termsOfService": "http://swagger.io/terms/",
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/_health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "健康检查",
                "responses": {
                    "200": {"description": "服务存活", "schema": {"$ref": "#/definitions/models.SwaggerHealthCheckResponse"}}
                }
            }
        },
        "/api/v1/search": {
            "get": {
                "description": "按关键词、类型、年份、排序和分页条件搜索报价。无法解析的参数回退为默认值，参数名通过 X-Query-Warnings 响应头返回。",
                "produces": ["application/json"],
                "tags": ["Search"],
                "summary": "搜索报价",
                "parameters": [
                    {"type": "string", "description": "搜索关键词", "name": "query", "in": "query"},
                    {"type": "string", "description": "报价类型", "name": "offerType", "in": "query"},
                    {"type": "string", "description": "排序字段", "name": "sortBy", "in": "query"},
                    {"enum": ["asc", "desc"], "type": "string", "description": "排序方向", "name": "sortDir", "in": "query"},
                    {"minimum": 1, "type": "integer", "description": "发行年份", "name": "year", "in": "query"},
                    {"minimum": 1, "type": "integer", "default": 1, "description": "页码 (从1开始)", "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 25, "description": "每页数量", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "搜索成功", "schema": {"$ref": "#/definitions/models.SwaggerSearchResponse"}},
                    "502": {"description": "上游目录服务请求失败或响应不合法", "schema": {"$ref": "#/definitions/models.SwaggerErrorResponse"}}
                }
            }
        },
        "/api/v1/search/hot-terms": {
            "get": {
                "description": "返回搜索次数最多的关键词列表。",
                "produces": ["application/json"],
                "tags": ["Search"],
                "summary": "获取热门搜索词",
                "parameters": [
                    {"maximum": 50, "minimum": 1, "type": "integer", "default": 10, "description": "返回的热门搜索词数量", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "成功，返回热门搜索词列表。", "schema": {"$ref": "#/definitions/models.SwaggerHotSearchTermsResponse"}},
                    "400": {"description": "limit 参数无效", "schema": {"$ref": "#/definitions/models.SwaggerErrorResponse"}},
                    "500": {"description": "服务器内部错误，无法获取热门搜索词。", "schema": {"$ref": "#/definitions/models.SwaggerErrorResponse"}},
                    "503": {"description": "热门搜索词统计未启用", "schema": {"$ref": "#/definitions/models.SwaggerErrorResponse"}}
                }
            }
        },
        "/api/v1/tags": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Search"],
                "summary": "分面标签词表",
                "responses": {
                    "200": {"description": "获取成功", "schema": {"$ref": "#/definitions/models.SwaggerTagsResponse"}},
                    "502": {"description": "上游目录服务请求失败", "schema": {"$ref": "#/definitions/models.SwaggerErrorResponse"}}
                }
            }
        },
        "/api/v1/vocabulary": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Search"],
                "summary": "词表预取",
                "parameters": [
                    {"maximum": 50, "minimum": 1, "type": "integer", "default": 10, "description": "热门搜索词数量", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "获取成功", "schema": {"$ref": "#/definitions/models.SwaggerVocabularyResponse"}},
                    "400": {"description": "limit 参数无效", "schema": {"$ref": "#/definitions/models.SwaggerErrorResponse"}},
                    "502": {"description": "上游目录服务请求失败", "schema": {"$ref": "#/definitions/models.SwaggerErrorResponse"}}
                }
            }
        },
        "/api/v1/freebies": {
            "get": {
                "description": "返回按 namespace 合并后的免费领取活动，同一游戏的多个平台版本合并为一条。",
                "produces": ["application/json"],
                "tags": ["Freebies"],
                "summary": "免费领取活动",
                "parameters": [
                    {"type": "string", "description": "排序字段", "name": "sortBy", "in": "query"},
                    {"enum": ["asc", "desc"], "type": "string", "description": "排序方向", "name": "sortDir", "in": "query"},
                    {"minimum": 1, "type": "integer", "description": "年份", "name": "year", "in": "query"},
                    {"minimum": 1, "type": "integer", "default": 1, "description": "页码 (从1开始)", "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 25, "description": "每页数量", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "获取成功", "schema": {"$ref": "#/definitions/models.SwaggerFreebiesResponse"}},
                    "502": {"description": "上游目录服务请求失败", "schema": {"$ref": "#/definitions/models.SwaggerErrorResponse"}}
                }
            }
        },
        "/api/v1/sessions": {
            "post": {
                "description": "创建独立的搜索上下文。location 非空时立即按该地址参数执行一次查询。",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Sessions"],
                "summary": "创建搜索会话",
                "parameters": [
                    {"description": "会话类型与初始地址参数", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.CreateSessionRequest"}}
                ],
                "responses": {
                    "200": {"description": "创建成功；初始查询失败时 data.error 记录原因", "schema": {"$ref": "#/definitions/models.SwaggerSessionResponse"}},
                    "400": {"description": "请求体无效", "schema": {"$ref": "#/definitions/models.SwaggerErrorResponse"}},
                    "429": {"description": "会话数量已达上限", "schema": {"$ref": "#/definitions/models.SwaggerErrorResponse"}}
                }
            }
        },
        "/api/v1/sessions/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Sessions"],
                "summary": "获取会话快照",
                "parameters": [{"type": "string", "description": "会话 ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "获取成功", "schema": {"$ref": "#/definitions/models.SwaggerSessionResponse"}},
                    "404": {"description": "会话不存在", "schema": {"$ref": "#/definitions/models.SwaggerErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["Sessions"],
                "summary": "删除会话",
                "parameters": [{"type": "string", "description": "会话 ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "删除成功，data.id 为被删除的会话 ID", "schema": {"$ref": "#/definitions/models.SwaggerHealthCheckResponse"}},
                    "404": {"description": "会话不存在", "schema": {"$ref": "#/definitions/models.SwaggerErrorResponse"}}
                }
            }
        },
        "/api/v1/sessions/{id}/navigate": {
            "get": {
                "description": "以请求的查询参数作为新地址，新增一条历史记录并执行查询。无法解析的参数回退为默认值。",
                "produces": ["application/json"],
                "tags": ["Sessions"],
                "summary": "会话导航",
                "parameters": [{"type": "string", "description": "会话 ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "导航成功；响应被更新的请求取代时带 X-Stale-Response-Discarded 头", "schema": {"$ref": "#/definitions/models.SwaggerSessionResponse"}},
                    "404": {"description": "会话不存在", "schema": {"$ref": "#/definitions/models.SwaggerErrorResponse"}},
                    "502": {"description": "查询失败", "schema": {"$ref": "#/definitions/models.SwaggerErrorResponse"}}
                }
            }
        },
        "/api/v1/sessions/{id}/query": {
            "patch": {
                "description": "严格校验请求体中的查询参数，通过后写入会话状态并执行查询。",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Sessions"],
                "summary": "修改会话查询",
                "parameters": [
                    {"type": "string", "description": "会话 ID", "name": "id", "in": "path", "required": true},
                    {"description": "完整的查询参数", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/query.SearchQuery"}}
                ],
                "responses": {
                    "200": {"description": "修改成功", "schema": {"$ref": "#/definitions/models.SwaggerSessionResponse"}},
                    "400": {"description": "查询参数无效", "schema": {"$ref": "#/definitions/models.SwaggerErrorResponse"}},
                    "404": {"description": "会话不存在", "schema": {"$ref": "#/definitions/models.SwaggerErrorResponse"}},
                    "502": {"description": "查询失败", "schema": {"$ref": "#/definitions/models.SwaggerErrorResponse"}}
                }
            }
        },
        "/api/v1/sessions/{id}/back": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Sessions"],
                "summary": "会话后退",
                "parameters": [{"type": "string", "description": "会话 ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "后退成功", "schema": {"$ref": "#/definitions/models.SwaggerSessionResponse"}},
                    "404": {"description": "会话不存在", "schema": {"$ref": "#/definitions/models.SwaggerErrorResponse"}},
                    "409": {"description": "已在最早的历史记录", "schema": {"$ref": "#/definitions/models.SwaggerErrorResponse"}}
                }
            }
        },
        "/api/v1/sessions/{id}/forward": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Sessions"],
                "summary": "会话前进",
                "parameters": [{"type": "string", "description": "会话 ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "前进成功", "schema": {"$ref": "#/definitions/models.SwaggerSessionResponse"}},
                    "404": {"description": "会话不存在", "schema": {"$ref": "#/definitions/models.SwaggerErrorResponse"}},
                    "409": {"description": "已在最新的历史记录", "schema": {"$ref": "#/definitions/models.SwaggerErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.CreateSessionRequest": {
            "type": "object",
            "required": ["kind"],
            "properties": {
                "kind": {"type": "string", "enum": ["search", "freebies"], "example": "search"},
                "location": {"type": "string", "example": "query=witcher&page=2"}
            }
        },
        "query.SearchQuery": {
            "type": "object",
            "properties": {
                "query": {"type": "string"},
                "offerType": {"type": "string"},
                "sortBy": {"type": "string"},
                "sortDir": {"type": "string", "enum": ["asc", "desc"]},
                "year": {"type": "integer"},
                "page": {"type": "integer"},
                "limit": {"type": "integer"}
            }
        },
        "models.SwaggerSearchResponse": {
            "type": "object",
            "properties": {"code": {"type": "integer"}, "message": {"type": "string"}, "data": {"type": "object"}}
        },
        "models.SwaggerFreebiesResponse": {
            "type": "object",
            "properties": {"code": {"type": "integer"}, "message": {"type": "string"}, "data": {"type": "object"}}
        },
        "models.SwaggerTagsResponse": {
            "type": "object",
            "properties": {"code": {"type": "integer"}, "message": {"type": "string"}, "data": {"type": "array", "items": {"type": "object"}}}
        },
        "models.SwaggerHotSearchTermsResponse": {
            "type": "object",
            "properties": {"code": {"type": "integer"}, "message": {"type": "string"}, "data": {"type": "array", "items": {"type": "object"}}}
        },
        "models.SwaggerVocabularyResponse": {
            "type": "object",
            "properties": {"code": {"type": "integer"}, "message": {"type": "string"}, "data": {"type": "object"}}
        },
        "models.SwaggerSessionResponse": {
            "type": "object",
            "properties": {"code": {"type": "integer"}, "message": {"type": "string"}, "data": {"type": "object"}}
        },
        "models.SwaggerErrorResponse": {
            "type": "object",
            "properties": {"code": {"type": "integer"}, "message": {"type": "string"}, "data": {}}
        },
        "models.SwaggerHealthCheckResponse": {
            "type": "object",
            "properties": {"code": {"type": "integer"}, "message": {"type": "string"}, "data": {"type": "object", "additionalProperties": true}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8084",
	BasePath:         "",
	Schemes:          []string{"http", "https"},
	Title:            "游戏报价浏览服务 API",
	Description:      "代理上游目录服务的报价搜索、免费活动与标签接口，并提供服务端搜索会话与热门搜索词统计。",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
