package router

import (
	"time"

	"github.com/Xushengqwer/go-common/core"
	commonMiddleware "github.com/Xushengqwer/go-common/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	otelgin "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/Xushengqwer/game_offers/config"
	"github.com/Xushengqwer/game_offers/constants"
	_ "github.com/Xushengqwer/game_offers/docs"
	"github.com/Xushengqwer/game_offers/internal/api"
)

// defaultRequestTimeout server.requestTimeout 未配置时的请求超时。
const defaultRequestTimeout = 10 * time.Second

// SetupRouter 初始化 Gin 引擎：注册追踪、错误恢复、请求日志与超时中间件，
// 把业务路由挂到 /api/v1 下，并提供 Swagger UI。
func SetupRouter(logger *core.ZapLogger, cfg *config.GameOffersConfig, searchHandler *api.SearchHandler) *gin.Engine {
	if searchHandler == nil {
		panic("致命错误：SearchHandler 未初始化，无法注册 API 路由。")
	}

	router := gin.Default()

	// 追踪中间件放在最前面，后续中间件的耗时都计入 span。
	router.Use(otelgin.Middleware(constants.ServiceName))
	router.Use(commonMiddleware.ErrorHandlingMiddleware(logger))
	if baseLogger := logger.Logger(); baseLogger != nil {
		router.Use(commonMiddleware.RequestLoggerMiddleware(baseLogger))
	} else {
		logger.Warn("无法获取底层的 *zap.Logger 实例，跳过请求日志中间件的注册。")
	}

	requestTimeout := cfg.Server.RequestTimeout
	if requestTimeout <= 0 {
		logger.Warn("server.requestTimeout 无效或未设置，使用默认超时",
			zap.Duration("configured", cfg.Server.RequestTimeout),
			zap.Duration("default", defaultRequestTimeout),
		)
		requestTimeout = defaultRequestTimeout
	}
	router.Use(commonMiddleware.RequestTimeoutMiddleware(logger, requestTimeout))

	searchHandler.RegisterRoutes(router.Group("/api/v1"))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	logger.Info("Gin 路由设置完成",
		zap.String("service", constants.ServiceName),
		zap.Duration("request_timeout", requestTimeout),
	)
	return router
}
