package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prakasham-om/jbnet/app/config"
	"github.com/prakasham-om/jbnet/internal/adapters"
	"github.com/prakasham-om/jbnet/internal/cipher"
	"github.com/prakasham-om/jbnet/internal/handlers"
	"github.com/prakasham-om/jbnet/internal/repositories"
	"github.com/prakasham-om/jbnet/internal/services"
	websocket "github.com/prakasham-om/jbnet/internal/websocet"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	otelgin "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.opentelemetry.io/otel/trace"
)

type Container struct {
	isShuttingDown bool

	GinEngine   *gin.Engine
	Config      *config.Config
	Redis       *redis.Client
	RateLimiter *RateLimiter

	Metrics        *Metrics
	Logger         *slog.Logger
	TracerProvider *tracesdk.TracerProvider
	Tracer         trace.Tracer

	Server *http.Server

	Cipher     *cipher.Cipher
	Repository *repositories.RepositoryAdapter

	ChatService     *services.ChatService
	IdentityService *services.IdentityService

	ChatHandler      *handlers.ChatHandler
	IdentityHandler  *handlers.IdentityHandler
	WebSocketHandler *handlers.WebsocetHandler

	WsHub *websocket.Hub
}

func NewContainer() (*Container, error) {
	container := &Container{}

	if err := container.initCore(); err != nil {
		return nil, err
	}

	if err := container.initProductionFeatures(); err != nil {
		return nil, err
	}

	return container, nil
}

func (c *Container) initCore() error {
	var cfg, err = config.LoadConfig()
	if err != nil {
		return err
	}
	c.Config = &cfg

	c.Logger = c.initLogger()
	c.Redis = c.initRedis()

	if err = c.initTracing(); err != nil {
		return err
	}

	c.Cipher, err = cipher.NewCipher([]byte(cfg.Cipher.Key))
	if err != nil {
		return err
	}

	c.Repository, err = repositories.NewRepositoryAdapter(cfg.Database, c.Cipher, c.Logger)
	if err != nil {
		c.Logger.Error("Repository initialize error", "error", err.Error())
		return err
	}

	c.ChatService = services.NewChatService(c.Repository.Message, c.Logger)
	c.IdentityService = services.NewIdentityService(adapters.NewRedisTokenRepository(c.Redis), []byte(cfg.Auth.SecretKey), c.Logger)

	c.WsHub = websocket.NewHub(c.ChatService, c.Logger)
	go c.WsHub.Run()

	c.RateLimiter = NewRateLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)

	c.ChatHandler = handlers.NewChatHandler(c.ChatService, c.Logger)
	c.IdentityHandler = handlers.NewIdentityHandler(c.IdentityService, c.Logger)
	c.WebSocketHandler = handlers.NewWebSocketHandler(c.WsHub, c.Logger)

	c.initMetrics()

	c.Server = c.initServer()
	c.GinEngine = c.initGinEngine()
	c.Server.Handler = c.GinEngine

	return nil
}

func (c *Container) initProductionFeatures() error {
	c.initHealthRoutes(c.GinEngine)

	c.GinEngine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return nil
}

func (c *Container) initMetrics() {
	c.Metrics = &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP request duration",
			},
			[]string{"method", "endpoint"},
		),
		ActiveWebSockets: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "websocket_active_connections",
				Help: "Currently open websocket connections",
			},
		),
	}
	prometheus.MustRegister(c.Metrics.RequestsTotal, c.Metrics.RequestDuration, c.Metrics.ActiveWebSockets)

	c.WsHub.SetActiveConnectionsGauge(c.Metrics.ActiveWebSockets)
}

func (c *Container) initTracing() error {
	if !c.Config.Tracing.Enabled {
		c.Logger.Info("tracing disabled")
		return nil
	}

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(c.Config.Tracing.Endpoint)))
	if err != nil {
		return err
	}

	c.TracerProvider = tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(c.Config.Tracing.ServiceName),
			attribute.String("environment", c.Config.Environment.Current),
		)),
	)

	otel.SetTracerProvider(c.TracerProvider)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	c.Tracer = c.TracerProvider.Tracer("jbnet-chat")

	c.Logger.Info("tracing initialized", "endpoint", c.Config.Tracing.Endpoint)
	return nil
}

func (c *Container) initHealthRoutes(eng *gin.Engine) {
	eng.GET("/health", func(ctx *gin.Context) {
		health := map[string]string{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}

		if err := c.Repository.HealthCheck(ctx.Request.Context()); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			ctx.JSON(503, health)
			return
		}

		if err := c.Redis.Ping().Err(); err != nil {
			health["redis"] = "unhealthy"
			health["status"] = "degraded"
			ctx.JSON(503, health)
			return
		}

		health["database"] = "healthy"
		health["redis"] = "healthy"
		ctx.JSON(200, health)
	})

	eng.GET("/ready", func(ctx *gin.Context) {
		if c.isShuttingDown {
			ctx.JSON(503, gin.H{"status": "shutting down"})
			return
		}
		ctx.JSON(200, gin.H{"status": "ready"})
	})

	eng.GET("/live", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "live"})
	})
}

func (c *Container) initGinEngine() *gin.Engine {
	var eng = gin.Default()

	if c.Config.Tracing.Enabled {
		eng.Use(otelgin.Middleware(c.Config.Tracing.ServiceName))
	}

	eng.Use(services.SecurityMiddleware())
	eng.Use(services.RequestIDMiddleware())
	eng.Use(MetricsMiddleware(c.Metrics))

	api := eng.Group("/api")

	api.Use(RateLimitMiddleware(c.RateLimiter))
	{
		messagesGroup := api.Group("/messages")
		if c.Config.Auth.SecretKey != "" {
			messagesGroup.Use(handlers.IdentityMiddleware(c.IdentityService, c.Config.Auth.Required, c.Logger))
		}
		{
			messagesGroup.GET("", c.ChatHandler.GetMessages)
			messagesGroup.POST("", c.ChatHandler.CreateMessage)
			messagesGroup.DELETE("/:id", c.ChatHandler.DeleteMessage)
		}

		if c.Config.Auth.SecretKey != "" {
			api.POST("/identity/revoke", c.IdentityHandler.RevokeToken)
		}

		api.GET("/ws", c.WebSocketHandler.HandleWebSocket)
	}

	return eng
}

func (c *Container) initLogger() *slog.Logger {
	var logger *slog.Logger
	if c.Config.Environment.Current == "development" {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	slog.SetDefault(logger)
	return logger
}

func (c *Container) initRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Addr,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
}

func (c *Container) initServer() *http.Server {
	return &http.Server{
		Addr:         ":" + c.Config.Server.Port,
		ReadTimeout:  time.Duration(c.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(c.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(c.Config.Server.IdleTimeout) * time.Second,
	}
}

func (c *Container) Close() error {
	c.isShuttingDown = true

	if c.TracerProvider != nil {
		if err := c.TracerProvider.Shutdown(context.Background()); err != nil {
			c.Logger.Error("failed to shutdown tracer provider", "error", err)
		}
	}

	if c.Repository != nil {
		if err := c.Repository.Close(c.Logger); err != nil {
			return err
		}
	}

	if c.Redis != nil {
		return c.Redis.Close()
	}

	return nil
}
