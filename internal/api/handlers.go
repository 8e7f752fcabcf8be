package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Xushengqwer/gateway/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Xushengqwer/game_offers/internal/executor"
	"github.com/Xushengqwer/game_offers/internal/models"
	"github.com/Xushengqwer/game_offers/internal/query"
	"github.com/Xushengqwer/game_offers/internal/repositories"
	"github.com/Xushengqwer/game_offers/internal/service"
	"github.com/Xushengqwer/game_offers/internal/session"
)

// 响应头。
const (
	HeaderQueryWarnings  = "X-Query-Warnings"           // 被回退为默认值的参数名，逗号分隔
	HeaderStaleDiscarded = "X-Stale-Response-Discarded" // 本次请求的响应已被更新的请求取代
)

// SearchHandler 封装目录搜索、免费活动与搜索会话的 HTTP 接口。
type SearchHandler struct {
	searchService *service.SearchService
	logger        *zap.Logger
}

// NewSearchHandler 创建 SearchHandler 实例。
func NewSearchHandler(searchSvc *service.SearchService, logger *zap.Logger) *SearchHandler {
	if logger == nil {
		panic("NewSearchHandler: logger cannot be nil")
	}
	if searchSvc == nil {
		logger.Fatal("NewSearchHandler: SearchService 不能为 nil")
	}
	return &SearchHandler{searchService: searchSvc, logger: logger}
}

// SearchOffers 处理目录搜索请求
// @Summary      搜索报价
// @Description  按关键词、类型、年份、排序和分页条件搜索报价。无法解析的参数回退为默认值，参数名通过 X-Query-Warnings 响应头返回。
// @Tags         Search
// @Produce      json
// @Param        query      query     string  false  "搜索关键词"
// @Param        offerType  query     string  false  "报价类型"
// @Param        sortBy     query     string  false  "排序字段"
// @Param        sortDir    query     string  false  "排序方向" Enums(asc, desc)
// @Param        year       query     int     false  "发行年份" minimum(1)
// @Param        page       query     int     false  "页码 (从1开始)" default(1) minimum(1)
// @Param        limit      query     int     false  "每页数量" default(25) minimum(1) maximum(100)
// @Success      200        {object}  models.SwaggerSearchResponse "搜索成功"
// @Failure      502        {object}  models.SwaggerErrorResponse "上游目录服务请求失败或响应不合法"
// @Router       /api/v1/search [get]
func (h *SearchHandler) SearchOffers(c *gin.Context) {
	raw := query.RawFromValues(c.Request.URL.Query())
	resp, warnings, err := h.searchService.Search(c.Request.Context(), raw)
	setWarningsHeader(c, warnings)
	if err != nil {
		h.respondExecutionError(c, err, "搜索失败")
		return
	}
	response.RespondSuccess(c, resp, "搜索成功")
}

// GetFreebies 处理免费活动列表请求
// @Summary      免费领取活动
// @Description  返回按 namespace 合并后的免费领取活动，同一游戏的多个平台版本合并为一条。
// @Tags         Freebies
// @Produce      json
// @Param        sortBy     query     string  false  "排序字段"
// @Param        sortDir    query     string  false  "排序方向" Enums(asc, desc)
// @Param        year       query     int     false  "年份" minimum(1)
// @Param        page       query     int     false  "页码 (从1开始)" default(1) minimum(1)
// @Param        limit      query     int     false  "每页数量" default(25) minimum(1) maximum(100)
// @Success      200        {object}  models.SwaggerFreebiesResponse "获取成功"
// @Failure      502        {object}  models.SwaggerErrorResponse "上游目录服务请求失败"
// @Router       /api/v1/freebies [get]
func (h *SearchHandler) GetFreebies(c *gin.Context) {
	raw := query.RawFromValues(c.Request.URL.Query())
	res, warnings, err := h.searchService.Freebies(c.Request.Context(), raw)
	setWarningsHeader(c, warnings)
	if err != nil {
		h.respondExecutionError(c, err, "获取免费活动失败")
		return
	}
	response.RespondSuccess(c, res, "获取免费活动成功")
}

// GetTags 处理标签词表请求
// @Summary      分面标签词表
// @Tags         Search
// @Produce      json
// @Success      200  {object}  models.SwaggerTagsResponse "获取成功"
// @Failure      502  {object}  models.SwaggerErrorResponse "上游目录服务请求失败"
// @Router       /api/v1/tags [get]
func (h *SearchHandler) GetTags(c *gin.Context) {
	tags, err := h.searchService.Tags(c.Request.Context())
	if err != nil {
		h.respondExecutionError(c, err, "获取标签词表失败")
		return
	}
	response.RespondSuccess(c, tags, "获取标签词表成功")
}

// GetHotSearchTerms 处理获取热门搜索词的请求
// @Summary      获取热门搜索词
// @Description  返回搜索次数最多的关键词列表。
// @Tags         Search
// @Produce      json
// @Param        limit    query     int     false  "返回的热门搜索词数量" default(10) minimum(1) maximum(50)
// @Success      200      {object}  models.SwaggerHotSearchTermsResponse "成功，返回热门搜索词列表。"
// @Failure      400      {object}  models.SwaggerErrorResponse "limit 参数无效"
// @Failure      500      {object}  models.SwaggerErrorResponse "服务器内部错误，无法获取热门搜索词。"
// @Failure      503      {object}  models.SwaggerErrorResponse "热门搜索词统计未启用"
// @Router       /api/v1/search/hot-terms [get]
func (h *SearchHandler) GetHotSearchTerms(c *gin.Context) {
	var req models.HotTermsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Warn("热门搜索词请求参数无效", zap.Error(err))
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "limit 参数无效")
		return
	}
	if req.Limit == 0 {
		req.Limit = repositories.DefaultHotTermsLimit
	}

	terms, err := h.searchService.HotTerms(c.Request.Context(), req.Limit)
	if errors.Is(err, service.ErrHotTermsUnavailable) {
		response.RespondError(c, http.StatusServiceUnavailable, response.ErrCodeServerInternal, "热门搜索词统计未启用")
		return
	}
	if err != nil {
		h.logger.Error("获取热门搜索词失败", zap.Int("limit", req.Limit), zap.Error(err))
		response.RespondError(c, http.StatusInternalServerError, response.ErrCodeServerInternal, "获取热门搜索词失败")
		return
	}
	response.RespondSuccess(c, terms, "热门搜索词获取成功")
}

// GetVocabulary 一次性预取标签词表与热门搜索词
// @Summary      词表预取
// @Tags         Search
// @Produce      json
// @Param        limit  query     int     false  "热门搜索词数量" default(10) minimum(1) maximum(50)
// @Success      200    {object}  models.SwaggerVocabularyResponse "获取成功"
// @Failure      400    {object}  models.SwaggerErrorResponse "limit 参数无效"
// @Failure      502    {object}  models.SwaggerErrorResponse "上游目录服务请求失败"
// @Router       /api/v1/vocabulary [get]
func (h *SearchHandler) GetVocabulary(c *gin.Context) {
	var req models.HotTermsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "limit 参数无效")
		return
	}
	if req.Limit == 0 {
		req.Limit = repositories.DefaultHotTermsLimit
	}
	vocab, err := h.searchService.Vocabulary(c.Request.Context(), req.Limit)
	if err != nil {
		h.respondExecutionError(c, err, "获取词表失败")
		return
	}
	response.RespondSuccess(c, vocab, "获取词表成功")
}

// CreateSession 创建搜索会话
// @Summary      创建搜索会话
// @Description  创建独立的搜索上下文。location 非空时立即按该地址参数执行一次查询。
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        request  body      models.CreateSessionRequest  true  "会话类型与初始地址参数"
// @Success      200      {object}  models.SwaggerSessionResponse "创建成功；初始查询失败时 data.error 记录原因"
// @Failure      400      {object}  models.SwaggerErrorResponse "请求体无效"
// @Failure      429      {object}  models.SwaggerErrorResponse "会话数量已达上限"
// @Router       /api/v1/sessions [post]
func (h *SearchHandler) CreateSession(c *gin.Context) {
	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("创建会话请求体无效", zap.Error(err))
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "请求体无效")
		return
	}
	snap, err := h.searchService.CreateSession(c.Request.Context(), req.Kind, req.Location)
	if err != nil && snap.ID != "" && errors.Is(err, executor.ErrQueryExecution) {
		// 会话已创建，初始查询失败的原因记录在快照的 error 字段中。
		response.RespondSuccess(c, snap, "会话已创建，初始查询失败")
		return
	}
	h.respondSession(c, snap, err)
}

// GetSession 获取会话快照
// @Summary      获取会话快照
// @Tags         Sessions
// @Produce      json
// @Param        id   path      string  true  "会话 ID"
// @Success      200  {object}  models.SwaggerSessionResponse "获取成功"
// @Failure      404  {object}  models.SwaggerErrorResponse "会话不存在"
// @Router       /api/v1/sessions/{id} [get]
func (h *SearchHandler) GetSession(c *gin.Context) {
	snap, err := h.searchService.GetSession(c.Param("id"))
	h.respondSession(c, snap, err)
}

// NavigateSession 让会话访问新地址
// @Summary      会话导航
// @Description  以请求的查询参数作为新地址，新增一条历史记录并执行查询。无法解析的参数回退为默认值。
// @Tags         Sessions
// @Produce      json
// @Param        id   path      string  true  "会话 ID"
// @Success      200  {object}  models.SwaggerSessionResponse "导航成功；响应被更新的请求取代时带 X-Stale-Response-Discarded 头"
// @Failure      404  {object}  models.SwaggerErrorResponse "会话不存在"
// @Failure      502  {object}  models.SwaggerErrorResponse "查询失败"
// @Router       /api/v1/sessions/{id}/navigate [get]
func (h *SearchHandler) NavigateSession(c *gin.Context) {
	snap, err := h.searchService.Navigate(c.Request.Context(), c.Param("id"), c.Request.URL.Query())
	setWarningsHeader(c, snap.Warnings)
	h.respondSession(c, snap, err)
}

// UpdateSessionQuery 修改会话查询
// @Summary      修改会话查询
// @Description  严格校验请求体中的查询参数，通过后写入会话状态并执行查询。
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        id       path      string             true  "会话 ID"
// @Param        request  body      query.SearchQuery  true  "完整的查询参数"
// @Success      200      {object}  models.SwaggerSessionResponse "修改成功"
// @Failure      400      {object}  models.SwaggerErrorResponse "查询参数无效"
// @Failure      404      {object}  models.SwaggerErrorResponse "会话不存在"
// @Failure      502      {object}  models.SwaggerErrorResponse "查询失败"
// @Router       /api/v1/sessions/{id}/query [patch]
func (h *SearchHandler) UpdateSessionQuery(c *gin.Context) {
	var raw query.Raw
	if err := c.ShouldBindJSON(&raw); err != nil {
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "请求体必须是 JSON 对象")
		return
	}
	snap, err := h.searchService.Interact(c.Request.Context(), c.Param("id"), raw)
	h.respondSession(c, snap, err)
}

// SessionBack 会话后退
// @Summary      会话后退
// @Tags         Sessions
// @Produce      json
// @Param        id   path      string  true  "会话 ID"
// @Success      200  {object}  models.SwaggerSessionResponse "后退成功"
// @Failure      404  {object}  models.SwaggerErrorResponse "会话不存在"
// @Failure      409  {object}  models.SwaggerErrorResponse "已在最早的历史记录"
// @Router       /api/v1/sessions/{id}/back [post]
func (h *SearchHandler) SessionBack(c *gin.Context) {
	snap, err := h.searchService.Back(c.Request.Context(), c.Param("id"))
	h.respondSession(c, snap, err)
}

// SessionForward 会话前进
// @Summary      会话前进
// @Tags         Sessions
// @Produce      json
// @Param        id   path      string  true  "会话 ID"
// @Success      200  {object}  models.SwaggerSessionResponse "前进成功"
// @Failure      404  {object}  models.SwaggerErrorResponse "会话不存在"
// @Failure      409  {object}  models.SwaggerErrorResponse "已在最新的历史记录"
// @Router       /api/v1/sessions/{id}/forward [post]
func (h *SearchHandler) SessionForward(c *gin.Context) {
	snap, err := h.searchService.Forward(c.Request.Context(), c.Param("id"))
	h.respondSession(c, snap, err)
}

// DeleteSession 删除会话
// @Summary      删除会话
// @Tags         Sessions
// @Produce      json
// @Param        id   path      string  true  "会话 ID"
// @Success      200  {object}  models.SwaggerHealthCheckResponse "删除成功，data.id 为被删除的会话 ID"
// @Failure      404  {object}  models.SwaggerErrorResponse "会话不存在"
// @Router       /api/v1/sessions/{id} [delete]
func (h *SearchHandler) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	if err := h.searchService.DeleteSession(id); err != nil {
		h.respondSession(c, models.SessionSnapshot{}, err)
		return
	}
	response.RespondSuccess(c, gin.H{"id": id}, "会话已删除")
}

// HealthCheck 健康检查处理函数
// @Summary      健康检查
// @Tags         Health
// @Produce      json
// @Success      200  {object}  models.SwaggerHealthCheckResponse "服务存活"
// @Router       /api/v1/_health [get]
func (h *SearchHandler) HealthCheck(c *gin.Context) {
	response.RespondSuccess(c, gin.H{"status": "ok"}, "服务存活")
}

// RegisterRoutes 将所有路由注册到提供的 Gin 路由组上。
func (h *SearchHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.SearchOffers)
	rg.GET("/search/hot-terms", h.GetHotSearchTerms)
	rg.GET("/tags", h.GetTags)
	rg.GET("/freebies", h.GetFreebies)
	rg.GET("/vocabulary", h.GetVocabulary)

	sessions := rg.Group("/sessions")
	sessions.POST("", h.CreateSession)
	sessions.GET("/:id", h.GetSession)
	sessions.DELETE("/:id", h.DeleteSession)
	sessions.GET("/:id/navigate", h.NavigateSession)
	sessions.PATCH("/:id/query", h.UpdateSessionQuery)
	sessions.POST("/:id/back", h.SessionBack)
	sessions.POST("/:id/forward", h.SessionForward)

	rg.GET("/_health", h.HealthCheck)
	h.logger.Info("SearchHandler 的所有路由已注册完成。")
}

// respondExecutionError 上游失败映射为 502，其余错误为 500。
func (h *SearchHandler) respondExecutionError(c *gin.Context, err error, msg string) {
	if errors.Is(err, executor.ErrQueryExecution) {
		h.logger.Warn(msg, zap.Error(err))
		response.RespondError(c, http.StatusBadGateway, response.ErrCodeServerInternal, msg)
		return
	}
	h.logger.Error(msg, zap.Error(err))
	response.RespondError(c, http.StatusInternalServerError, response.ErrCodeServerInternal, msg)
}

// respondSession 统一处理会话接口的结果。
// 被取代的响应不是错误：返回会话当前快照并通过响应头标记。
func (h *SearchHandler) respondSession(c *gin.Context, snap models.SessionSnapshot, err error) {
	switch {
	case err == nil:
		response.RespondSuccess(c, snap, "操作成功")
	case errors.Is(err, executor.ErrStaleResponseDiscarded):
		c.Header(HeaderStaleDiscarded, "true")
		response.RespondSuccess(c, snap, "请求已被更新的操作取代")
	case errors.Is(err, session.ErrSessionNotFound):
		response.RespondError(c, http.StatusNotFound, response.ErrCodeClientInvalidInput, "会话不存在")
	case errors.Is(err, session.ErrTooManySessions):
		response.RespondError(c, http.StatusTooManyRequests, response.ErrCodeClientInvalidInput, "会话数量已达上限")
	case errors.Is(err, session.ErrUnknownKind):
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "不支持的会话类型")
	case errors.Is(err, session.ErrHistoryBoundary):
		response.RespondError(c, http.StatusConflict, response.ErrCodeClientInvalidInput, "已到达历史记录边界")
	case errors.Is(err, query.ErrInvalidQueryShape):
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, err.Error())
	default:
		h.respondExecutionError(c, err, "会话查询失败")
	}
}

func setWarningsHeader(c *gin.Context, warnings []query.FieldError) {
	if len(warnings) == 0 {
		return
	}
	names := make([]string, 0, len(warnings))
	for _, w := range warnings {
		names = append(names, w.Field)
	}
	c.Header(HeaderQueryWarnings, strings.Join(names, ","))
}
