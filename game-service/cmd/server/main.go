package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/zap"

	"game-building-server/game-service/internal/broadcast"
	"game-building-server/game-service/internal/config"
	"game-building-server/game-service/internal/handler"
	"game-building-server/game-service/internal/messaging"
	"game-building-server/game-service/internal/scheduler"
	"game-building-server/game-service/internal/service"
	"game-building-server/shared/database"
	sharedLogger "game-building-server/shared/logger"
)

// completionConcurrency — число воркеров консьюмера задач завершения.
const completionConcurrency = 4

func main() {
	// Загружаем .env файл (если есть) для локальной разработки
	_ = godotenv.Load()

	log.Println("Запуск игрового сервиса...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	zapLogger, err := sharedLogger.New(sharedLogger.Config{Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("Ошибка инициализации логгера: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	// Логгер WebSocket слоя
	wsLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Миграции схемы перед открытием пула
	if err := database.RunMigrations(cfg.Database.URL, zapLogger); err != nil {
		zapLogger.Fatal("Ошибка применения миграций", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// PostgreSQL
	dbPool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		zapLogger.Fatal("Не удалось создать пул подключений PostgreSQL", zap.Error(err))
	}
	defer dbPool.Close()
	if err := dbPool.Ping(ctx); err != nil {
		zapLogger.Fatal("PostgreSQL недоступен", zap.Error(err))
	}
	zapLogger.Info("Успешное подключение к PostgreSQL")

	// RabbitMQ
	rabbitConn, err := connectRabbitMQ(cfg.RabbitMQ.URL, zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось подключиться к RabbitMQ", zap.Error(err))
	}
	defer rabbitConn.Close()
	zapLogger.Info("Успешное подключение к RabbitMQ")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("Redis недоступен", zap.Error(err))
	}
	zapLogger.Info("Успешное подключение к Redis")

	// Репозитории и транзакции
	playerRepo := database.NewPgPlayerRepository(dbPool, zapLogger)
	buildingRepo := database.NewPgBuildingRepository(dbPool, zapLogger)
	txManager := database.NewPgxTxManager(dbPool, zapLogger)

	// Планировщик отложенного завершения
	completionScheduler, err := scheduler.NewRabbitMQScheduler(
		rabbitConn,
		redisClient,
		cfg.RabbitMQ.CompletionDelayQueue,
		cfg.RabbitMQ.CompletionQueue,
		cfg.Redis.RevocationTTL,
		zapLogger,
	)
	if err != nil {
		zapLogger.Fatal("Не удалось создать планировщик завершения", zap.Error(err))
	}
	defer completionScheduler.Close()

	// Рассылка событий игрокам через Redis Pub/Sub
	broadcaster := broadcast.NewRedisBroadcaster(redisClient, zapLogger)

	// Сервисы
	authService := service.NewAuthService(playerRepo, &cfg.Auth, zapLogger)
	catalogService := service.NewCatalogService(buildingRepo, zapLogger)
	progressionService := service.NewProgressionService(
		playerRepo, buildingRepo, completionScheduler, broadcaster, txManager, zapLogger)

	// Консьюмер задач завершения
	processor := messaging.NewProcessor(progressionService, completionScheduler, zapLogger)
	consumer, err := messaging.NewConsumer(rabbitConn, zapLogger, cfg.RabbitMQ.CompletionQueue, completionConcurrency, processor)
	if err != nil {
		zapLogger.Fatal("Не удалось создать консьюмер задач завершения", zap.Error(err))
	}
	go func() {
		if err := consumer.Start(); err != nil {
			zapLogger.Error("Консьюмер задач завершения завершился с ошибкой", zap.Error(err))
		}
	}()

	// WebSocket слой
	connManager := handler.NewConnectionManager(wsLogger)
	dispatcher := handler.NewDispatcher(authService, catalogService, progressionService, connManager, wsLogger)
	wsHandler := handler.NewWebSocketHandler(connManager, dispatcher, authService, cfg.Server.AllowedOrigins, wsLogger)

	// Мост Redis Pub/Sub -> локальные соединения
	subscriber := broadcast.NewSubscriber(redisClient, connManager, zapLogger)
	go func() {
		if err := subscriber.Run(ctx); err != nil {
			zapLogger.Error("Подписка на события игроков завершилась с ошибкой", zap.Error(err))
		}
	}()

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())
	e.GET("/ws", wsHandler.ServeWS)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Ошибка запуска сервера", zap.Error(err))
		}
	}()
	zapLogger.Info("WebSocket сервер запущен", zap.String("port", cfg.Server.Port))

	// Отдельный сервер метрик Prometheus
	metricsServer := &http.Server{
		Addr:    ":" + cfg.Server.MetricsPort,
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Error("Ошибка сервера метрик", zap.Error(err))
		}
	}()
	zapLogger.Info("Сервер метрик запущен", zap.String("port", cfg.Server.MetricsPort))

	// Ожидание сигнала завершения
	<-ctx.Done()
	zapLogger.Info("Получен сигнал завершения, начинаем graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Ошибка при graceful shutdown Echo", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Ошибка при остановке сервера метрик", zap.Error(err))
	}
	consumer.Stop()

	zapLogger.Info("Игровой сервис успешно остановлен")
}

// connectRabbitMQ пытается подключиться к RabbitMQ с несколькими попытками.
func connectRabbitMQ(url string, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 5
	retryDelay := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		logger.Warn("Не удалось подключиться к RabbitMQ, повтор...",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Error(err))
		time.Sleep(retryDelay)
	}
	return nil, err
}
