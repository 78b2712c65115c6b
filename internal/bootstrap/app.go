package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httpHandler "github.com/itzsudipta/SwiftChat/internal/handler/http"
	wsHandler "github.com/itzsudipta/SwiftChat/internal/handler/websocket"
	"github.com/itzsudipta/SwiftChat/internal/hub"
	gormpersistence "github.com/itzsudipta/SwiftChat/internal/infra/persistence/gorm"
	"github.com/itzsudipta/SwiftChat/internal/infra/setup"
	redisstate "github.com/itzsudipta/SwiftChat/internal/infra/state/redis"
	"github.com/itzsudipta/SwiftChat/internal/middleware"
	"github.com/itzsudipta/SwiftChat/internal/service"
	"github.com/itzsudipta/SwiftChat/internal/tasks"
	"github.com/itzsudipta/SwiftChat/internal/worker"
)

// Config 存储从环境变量加载的配置
type Config struct {
	DatabaseURL     string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	JWTSecret       string
	JWTExpiryHours  int
	ServerPort      string
	LogLevel        string
	AppEnv          string // development / production
	KeyPrefix       string // Redis key 前缀
	AllowedOrigin   string // CORS
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// LoadConfig 从环境变量加载配置，优先读取 .env 文件
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // .env 不存在时忽略，直接用环境变量

	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		ServerPort:      os.Getenv("SERVER_PORT"),
		LogLevel:        os.Getenv("LOG_LEVEL"),
		AppEnv:          os.Getenv("APP_ENV"),
		KeyPrefix:       os.Getenv("REDIS_KEY_PREFIX"),
		AllowedOrigin:   os.Getenv("CORS_ALLOWED_ORIGIN"),
		RateLimitMax:    100,
		RateLimitWindow: 1 * time.Second,
		JWTExpiryHours:  24,
	}

	cfg.RedisDB, _ = strconv.Atoi(os.Getenv("REDIS_DB")) // 默认 0
	if hours, err := strconv.Atoi(os.Getenv("JWT_EXPIRE_HOURS")); err == nil && hours > 0 {
		cfg.JWTExpiryHours = hours
	}

	// 默认值与必填检查
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "sc:"
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("environment variable DATABASE_URL must be set")
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("environment variable REDIS_ADDR must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("environment variable JWT_SECRET must be set")
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// App 包含应用的所有组件
type App struct {
	Config      *Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	AsynqClient *asynq.Client
	WorkerSrv   *worker.WorkerServer
	Hub         *hub.Hub
	HttpServer  *http.Server

	redisClientOpt asynq.RedisClientOpt
	scheduler      *asynq.Scheduler
}

// NewApp 创建并初始化应用的所有组件
func NewApp() (*App, error) {
	// 1. 配置
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	// 2. Logger
	log := logrus.StandardLogger()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logLevel, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)
	log.Info("Configuration loaded successfully")

	// 3. 基础设施
	db, err := setup.InitDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	log.Info("Database connected")

	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}

	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	log.Info("Redis connected")

	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisClientOpt)

	// 4. Repositories
	userRepo := gormpersistence.NewGormUserRepository(db)
	messageRepo := gormpersistence.NewGormMessageRepository(db)
	presenceRepo := redisstate.NewRedisPresenceRepository(redisClient, cfg.KeyPrefix, 10*time.Minute)

	// 5. Services
	authService, err := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiryHours)
	if err != nil {
		return nil, fmt.Errorf("failed to create AuthService: %w", err)
	}
	chatService := service.NewChatService(messageRepo)
	presenceService := service.NewPresenceService(presenceRepo)

	// 6. Hub
	hubInstance := hub.NewHub()
	hubInstance.SetPresenceTracker(presenceService)

	// 7. Handlers
	authHandler := httpHandler.NewAuthHandler(authService)
	chatHandler := httpHandler.NewChatHandler(chatService, hubInstance)
	websocketHandler := wsHandler.NewWebSocketHandler(hubInstance, chatService, authService)

	// 8. Worker
	workerServer := worker.NewWorkerServer(redisClientOpt, hubInstance, presenceService, log)

	// 9. Router
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(corsMiddleware(cfg.AllowedOrigin))
	router.Use(middleware.RateLimit(redisClient, cfg.RateLimitMax, cfg.RateLimitWindow))

	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}
	chatRoutes := router.Group("/chat").Use(middleware.Auth(authService))
	{
		chatRoutes.POST("/messages", chatHandler.CreateMessage)
		chatRoutes.GET("/messages/:roomId", chatHandler.ListMessages)
		chatRoutes.GET("/rooms/:roomId/online", chatHandler.RoomOnline)
	}
	// WebSocket 端点自行校验查询参数里的 token，不走 Auth 中间件
	router.GET("/ws/:roomId", websocketHandler.HandleConnection)
	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })

	// 10. HTTP Server
	httpServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	return &App{
		Config:         cfg,
		Log:            log,
		DB:             db,
		RedisClient:    redisClient,
		AsynqClient:    asynqClient,
		WorkerSrv:      workerServer,
		Hub:            hubInstance,
		HttpServer:     httpServer,
		redisClientOpt: redisClientOpt,
	}, nil
}

// Start 启动后台组件和 HTTP 服务器
func (a *App) Start() {
	go a.WorkerSrv.Start()
	a.registerPeriodicTasks()

	go func() {
		a.Log.Infof("HTTP server listening on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()
}

// registerPeriodicTasks 注册周期性任务并启动调度器
func (a *App) registerPeriodicTasks() {
	a.scheduler = asynq.NewScheduler(a.redisClientOpt, nil)

	payload, err := tasks.NewPresenceReconcileTask()
	if err != nil {
		a.Log.Errorf("Failed to create presence reconcile task payload: %v", err)
		return
	}
	task := asynq.NewTask(tasks.TypePresenceReconcile, payload)

	schedule := "@every 1m"
	entryID, err := a.scheduler.Register(schedule, task, asynq.Queue("default"))
	if err != nil {
		a.Log.Errorf("Could not register presence reconcile task: %v", err)
	} else {
		a.Log.Infof("Presence reconcile task registered with schedule '%s' (EntryID: %s)", schedule, entryID)
	}

	go func() {
		if err := a.scheduler.Run(); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			a.Log.Errorf("Asynq scheduler stopped with error: %v", err)
		}
	}()
}

// Shutdown 优雅关闭应用
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	if a.scheduler != nil {
		a.scheduler.Shutdown()
	}
	if a.WorkerSrv != nil {
		a.WorkerSrv.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	}

	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq client: %v", err)
		}
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}

	a.Log.Info("Application shutdown complete")
}

// corsMiddleware 设置 CORS 响应头
func corsMiddleware(allowedOrigin string) gin.HandlerFunc {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggerMiddleware 记录请求日志
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})

		if errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String(); errorMessage != "" {
			entry.Error(errorMessage)
		} else if statusCode >= 500 {
			entry.Error("Server error")
		} else if statusCode >= 400 {
			entry.Warn("Client error")
		} else {
			entry.Info("Request handled")
		}
	}
}
