package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Xushengqwer/go-common/core"
	sharedTracing "github.com/Xushengqwer/go-common/core/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/Xushengqwer/game_offers/config"
	"github.com/Xushengqwer/game_offers/constants"
	"github.com/Xushengqwer/game_offers/internal/api"
	coreES "github.com/Xushengqwer/game_offers/internal/core/es"
	"github.com/Xushengqwer/game_offers/internal/core/httpclient"
	coreKafka "github.com/Xushengqwer/game_offers/internal/core/kafka"
	"github.com/Xushengqwer/game_offers/internal/executor"
	"github.com/Xushengqwer/game_offers/internal/freebies"
	"github.com/Xushengqwer/game_offers/internal/models"
	"github.com/Xushengqwer/game_offers/internal/repositories"
	"github.com/Xushengqwer/game_offers/internal/service"
	"github.com/Xushengqwer/game_offers/internal/session"
	"github.com/Xushengqwer/game_offers/router"
)

// @title 游戏报价浏览服务 API
// @version 1.0.0
// @description 代理上游目录服务的报价搜索、免费活动与标签接口，并提供服务端搜索会话与热门搜索词统计。
// @termsOfService http://swagger.io/terms/

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8084
// @schemes http https
func main() {
	// --- 0. 配置和日志 ---
	var configFile string
	flag.StringVar(&configFile, "config", "config/config.development.yaml", "指定配置文件的路径")
	flag.Parse()

	var cfg config.GameOffersConfig
	if err := core.LoadConfig(configFile, &cfg); err != nil {
		log.Fatalf("致命错误: 加载配置文件 '%s' 失败: %v", configFile, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("致命错误: 配置校验失败: %v", err)
	}

	logger, loggerErr := core.NewZapLogger(cfg.ZapConfig)
	if loggerErr != nil {
		log.Fatalf("致命错误: 初始化 ZapLogger 失败: %v", loggerErr)
	}
	defer func() {
		if err := logger.Logger().Sync(); err != nil {
			log.Printf("警告: ZapLogger Sync 操作失败: %v\n", err)
		}
	}()
	zl := logger.Logger()

	// --- 1. HTTP Transport 和 Tracer ---
	var transport http.RoundTripper = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if cfg.TracerConfig.Enabled {
		tracerShutdown, err := sharedTracing.InitTracerProvider(constants.ServiceName, constants.ServiceVersion, cfg.TracerConfig)
		if err != nil {
			logger.Fatal("初始化分布式追踪 TracerProvider 失败", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerShutdown(ctx); err != nil {
				logger.Error("关闭分布式追踪 TracerProvider 时发生错误", zap.Error(err))
			}
		}()
		// 上游目录 API 与 Elasticsearch 的出站请求都会带上追踪上下文。
		transport = otelhttp.NewTransport(transport)
		logger.Info("分布式追踪功能已初始化。")
	} else {
		logger.Info("分布式追踪功能已禁用 (根据配置)。")
	}

	// --- 2. 上游目录 API 客户端与响应缓存 ---
	var cache httpclient.ResponseCache
	if cfg.RedisConfig.Enabled {
		redisCache, err := httpclient.NewRedisCache(cfg.RedisConfig)
		if err != nil {
			logger.Fatal("连接 Redis 失败", zap.String("address", cfg.RedisConfig.Address), zap.Error(err))
		}
		defer func() {
			if err := redisCache.Close(); err != nil {
				logger.Error("关闭 Redis 连接时发生错误", zap.Error(err))
			}
		}()
		cache = redisCache
		logger.Info("上游响应缓存已启用", zap.String("address", cfg.RedisConfig.Address), zap.Duration("ttl", cfg.UpstreamConfig.CacheTTL))
	}

	upstream, err := httpclient.New(cfg.UpstreamConfig, transport, cache, zl)
	if err != nil {
		logger.Fatal("创建上游目录 API 客户端失败", zap.Error(err))
	}

	exec := executor.New(upstream, zl,
		executor.WithSearchPath(cfg.UpstreamConfig.SearchPath),
		executor.WithTagsPath(cfg.UpstreamConfig.TagsPath),
	)
	freebiesSvc := freebies.NewService(upstream, zl, cfg.UpstreamConfig.FreebiesPath)

	// --- 3. 热门搜索词统计 (可选) ---
	var hotTermsRepo repositories.HotSearchTermRepository
	if cfg.ElasticsearchEnabled() {
		esClient, err := coreES.NewESClient(cfg.ElasticsearchConfig, zl, transport)
		if err != nil {
			logger.Fatal("创建 Elasticsearch 客户端失败", zap.Error(err))
		}
		hotTermsRepo = repositories.NewESHotSearchTermRepository(
			esClient, zl, cfg.ElasticsearchConfig.HotTermsIndex.Name, cfg.ElasticsearchConfig.HotTermsWindow)
	} else {
		logger.Info("未配置 Elasticsearch，热门搜索词统计已禁用。")
	}

	// --- 4. 搜索会话与业务服务 ---
	registry := session.NewRegistry(session.Config{
		MaxSessions:   cfg.SessionConfig.MaxSessions,
		HistoryLimit:  cfg.SessionConfig.HistoryLimit,
		IdleTTL:       cfg.SessionConfig.IdleTTL,
		SweepInterval: cfg.SessionConfig.SweepInterval,
	}, map[models.SessionKind]session.RunFunc{
		models.SessionKindSearch:   session.SearchRunner(exec),
		models.SessionKindFreebies: session.FreebiesRunner(freebiesSvc),
	}, zl)

	searchSvc := service.NewSearchService(exec, freebiesSvc, hotTermsRepo, registry, zl)
	searchHandler := api.NewSearchHandler(searchSvc, zl)
	ginRouter := router.SetupRouter(logger, &cfg, searchHandler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go registry.Run(ctx)

	// --- 5. 目录变更事件 (可选) ---
	if cfg.KafkaEnabled() && cache == nil {
		logger.Warn("未启用 Redis 缓存，目录变更事件没有可失效的缓存，跳过 Kafka 消费者。")
	} else if cfg.KafkaEnabled() {
		closeKafka := startCatalogConsumer(ctx, &cfg, upstream, zl)
		defer closeKafka()
	}

	// --- 6. HTTP 服务与优雅关闭 ---
	serverAddr := cfg.Server.ListenAddr
	if serverAddr == "" {
		serverAddr = ":" + cfg.Server.Port
	} else if !strings.Contains(serverAddr, ":") {
		serverAddr = serverAddr + ":" + cfg.Server.Port
	}
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: ginRouter,
	}

	go func() {
		logger.Info("HTTP API 服务器正在启动...", zap.String("listen_address", serverAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP API 服务器启动失败或意外停止", zap.Error(err))
			cancel()
		}
	}()

	quitSignal := make(chan os.Signal, 1)
	signal.Notify(quitSignal, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quitSignal:
		logger.Info("接收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Warn("服务上下文已结束，开始关闭...")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("关闭 HTTP API 服务器时发生错误", zap.Error(err))
	}
	searchSvc.Wait()
	logger.Info("服务所有组件已完成关闭流程，程序即将退出。")
}

// startCatalogConsumer 启动目录变更事件消费者，返回按逆序关闭消费者组与 DLQ 生产者的函数。
func startCatalogConsumer(ctx context.Context, cfg *config.GameOffersConfig, invalidator coreKafka.CacheInvalidator, logger *zap.Logger) func() {
	saramaCfg, err := coreKafka.ConfigureSarama(cfg.KafkaConfig, logger)
	if err != nil {
		logger.Fatal("配置 Sarama 失败", zap.Error(err))
	}

	dlqProducer, err := coreKafka.NewSyncProducer(cfg.KafkaConfig, saramaCfg, logger)
	if err != nil {
		logger.Fatal("创建 Kafka DLQ 同步生产者失败", zap.Error(err))
	}

	eventSvc := coreKafka.NewEventService(invalidator, coreKafka.InvalidationPaths{
		Search:   cfg.UpstreamConfig.SearchPath,
		Tags:     cfg.UpstreamConfig.TagsPath,
		Freebies: cfg.UpstreamConfig.FreebiesPath,
	}, logger)
	handler := coreKafka.NewHandler(eventSvc, dlqProducer, cfg.KafkaConfig.DLQ.Topic,
		cfg.KafkaConfig.SubscribedTopics, logger, cfg.KafkaConfig.MaxRetryAttempts)

	consumerGroup, err := coreKafka.NewConsumerGroup(cfg.KafkaConfig, saramaCfg, handler, logger)
	if err != nil {
		logger.Fatal("创建 Kafka 消费者组失败", zap.Error(err))
	}
	consumerGroup.Start(ctx)

	return func() {
		if err := consumerGroup.Close(); err != nil {
			logger.Error("关闭 Kafka 消费者组时发生错误", zap.Error(err))
		}
		if err := dlqProducer.Close(); err != nil {
			logger.Error("关闭 Kafka DLQ 生产者时发生错误", zap.Error(err))
		}
	}
}
