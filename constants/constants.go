package constants

// 服务标识，用于分布式追踪与 otelgin 中间件。
const (
	ServiceName    = "game_offers"
	ServiceVersion = "1.0.0"
)
