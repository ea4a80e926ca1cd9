package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sudooom.im.mahjong/internal/api"
	"sudooom.im.mahjong/internal/cache"
	"sudooom.im.mahjong/internal/config"
	"sudooom.im.mahjong/internal/game"
	"sudooom.im.mahjong/internal/game/mahjong/core"
	"sudooom.im.mahjong/internal/game/mahjong/fzmahjong"
	"sudooom.im.mahjong/internal/handler"
	"sudooom.im.mahjong/internal/health"
	mjNats "sudooom.im.mahjong/internal/nats"
	"sudooom.im.mahjong/internal/repository"
	"sudooom.im.mahjong/internal/spectator"
	"sudooom.im.mahjong/internal/task"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.NewExample().Fatal("加载配置失败", zap.Error(err))
	}

	// 初始化日志
	logger, err := initLogger(cfg.App)
	if err != nil {
		zap.NewExample().Fatal("初始化日志失败", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 连接 NATS
	natsClient, err := mjNats.NewClient(cfg.NATS, logger)
	if err != nil {
		logger.Fatal("连接 NATS 失败", zap.Error(err))
	}
	defer natsClient.Close()
	logger.Info("已连接 NATS", zap.String("url", cfg.NATS.URL))

	// 连接 Redis
	redisClient := connectRedis(cfg.Redis)
	defer redisClient.Close()
	logger.Info("已连接 Redis", zap.String("addr", cfg.Redis.Addr()))

	// 连接数据库
	db, err := connectDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("连接数据库失败", zap.Error(err))
	}
	defer db.Close()
	logger.Info("已连接 PostgreSQL", zap.String("host", cfg.Database.Host))

	// 规则预设
	var presets map[string]core.Rules
	if cfg.Game.PresetsFile != "" {
		presets, err = core.LoadPresets(cfg.Game.PresetsFile)
		if err != nil {
			logger.Fatal("加载规则预设失败", zap.Error(err))
		}
	}

	// 定时任务调度器
	scheduler := task.NewScheduler(cfg.Game.WorkerCount,
		task.WithLogger(logger),
		task.WithTickInterval(cfg.Game.TickInterval))
	if err := scheduler.Start(); err != nil {
		logger.Fatal("启动调度器失败", zap.Error(err))
	}

	// 事件接收方: 快照缓存必须在观战之前, 观战连接的初始状态从缓存读取
	snapshots := cache.NewSnapshotCache(redisClient, cfg.Redis.SnapshotTTL, logger)
	publisher := mjNats.NewEventPublisher(natsClient.Conn(), logger)
	notifiers := []fzmahjong.Notifier{snapshots, publisher}

	var hub *spectator.Hub
	if cfg.Spectator.Enabled {
		hub = spectator.NewHub(snapshots, logger)
		go hub.Run(ctx)
		notifiers = append(notifiers, hub)
	}

	// 初始化服务
	gameRepo := repository.NewGameRepository(db)
	manager := game.NewGameManager(game.ManagerConfig{
		EvictInterval: cfg.Game.EvictInterval,
		EvictAfter:    cfg.Game.EvictAfter,
		IdleTimeout:   cfg.Game.IdleTimeout,
	}, gameRepo, logger)
	gameService := game.NewGameService(manager, logger,
		game.WithPresets(presets),
		game.WithDefaultPreset(cfg.Game.Preset),
		game.WithTimer(scheduler),
		game.WithNotifiers(notifiers...),
	)
	logger.Info("规则预设已加载", zap.Strings("presets", gameService.Presets()))

	// 启动订阅者
	gameHandler := handler.NewGameHandler(gameService, logger)
	subscriber := mjNats.NewRequestSubscriber(natsClient.Conn(), gameHandler, mjNats.SubscriberConfig{
		QueueGroup:  cfg.NATS.QueueGroup,
		WorkerCount: cfg.NATS.Workers,
	}, logger)
	if err := subscriber.Start(ctx); err != nil {
		logger.Fatal("启动订阅者失败", zap.Error(err))
	}

	// 健康检查与观战 HTTP 服务
	healthChecker := health.NewChecker(natsClient.Conn(), redisClient, db, manager, scheduler).WithQueue(subscriber)
	healthServer := newHealthServer(cfg.Health.Addr, healthChecker)
	go serve(healthServer, "健康检查", logger)

	var spectatorServer *http.Server
	if hub != nil {
		mux := http.NewServeMux()
		mux.Handle(spectator.SpectatePath, hub)
		spectatorServer = &http.Server{Addr: cfg.Spectator.Addr, Handler: mux}
		go serve(spectatorServer, "观战", logger)
	}

	var apiServer *http.Server
	if cfg.API.Enabled {
		queryHandler := api.NewQueryHandler(snapshots, gameRepo, gameService, logger)
		apiServer = &http.Server{Addr: cfg.API.Addr, Handler: api.SetupRouter(cfg.API.Mode, queryHandler)}
		go serve(apiServer, "查询接口", logger)
	}

	logger.Info("麻将服务已启动", zap.String("name", cfg.App.Name))

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("正在关闭...")
	subscriber.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Warn("关闭 GameManager 失败", zap.Error(err))
	}
	scheduler.Stop()
	cancel()

	if apiServer != nil {
		_ = apiServer.Shutdown(shutdownCtx)
	}
	if spectatorServer != nil {
		_ = spectatorServer.Shutdown(shutdownCtx)
	}
	_ = healthServer.Shutdown(shutdownCtx)
	logger.Info("麻将服务已停止")
}

// initLogger 根据配置创建日志
func initLogger(cfg config.AppConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.LogLevel {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.LogFormat == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", cfg.Name)), nil
}

// newHealthServer 健康检查 HTTP 服务
func newHealthServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/health", checker)
	mux.HandleFunc("/ready", checker.ReadyHandler())
	return &http.Server{Addr: addr, Handler: mux}
}

func serve(server *http.Server, name string, logger *zap.Logger) {
	logger.Info("HTTP 服务已启动", zap.String("server", name), zap.String("addr", server.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("HTTP 服务异常退出", zap.String("server", name), zap.Error(err))
	}
}

// connectRedis 连接 Redis
func connectRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// connectDatabase 连接 PostgreSQL
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = 10 * time.Minute

	return pgxpool.NewWithConfig(ctx, poolConfig)
}
