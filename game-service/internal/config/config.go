package config

import (
	"fmt"
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"

	"game-building-server/shared/utils"
)

// Config содержит всю конфигурацию для игрового сервиса.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	Redis    RedisConfig
	Auth     AuthConfig
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// ServerConfig содержит настройки HTTP сервера.
type ServerConfig struct {
	Port        string `envconfig:"PORT" default:"8084"`         // Основной порт для WebSocket
	MetricsPort string `envconfig:"METRICS_PORT" default:"9094"` // Порт для Prometheus метрик
	// Разрешенные Origin для WebSocket-апгрейда (через запятую).
	// Пустой список означает "разрешить все" — только для разработки.
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL.
type DatabaseConfig struct {
	URL string `envconfig:"DATABASE_URL" required:"true"`
}

// RabbitMQConfig содержит настройки очередей планировщика завершения.
type RabbitMQConfig struct {
	URL string `envconfig:"RABBITMQ_URL" required:"true"`
	// Очередь задержки: сообщения лежат здесь до истечения per-message TTL,
	// затем через DLX попадают в очередь завершения.
	CompletionDelayQueue string `envconfig:"COMPLETION_DELAY_QUEUE" default:"building_completion_delay"`
	CompletionQueue      string `envconfig:"COMPLETION_QUEUE" default:"building_completion_tasks"`
}

// RedisConfig содержит настройки Redis (pub/sub рассылка и отзыв задач).
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	// TTL ключа отзыва должен перекрывать максимальное время строительства.
	RevocationTTL time.Duration `envconfig:"TASK_REVOCATION_TTL" default:"72h"`
}

// AuthConfig содержит настройки аутентификации.
type AuthConfig struct {
	JWTSecret      string        // Загружается из секрета
	PasswordPepper string        `envconfig:"PASSWORD_PEPPER" default:""`
	TokenTTL       time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
}

// LoadConfig загружает конфигурацию из переменных окружения и секретов.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	var loadErr error
	cfg.Auth.JWTSecret, loadErr = utils.ReadSecretWithFallback("jwt_secret", "JWT_SECRET")
	if loadErr != nil {
		return nil, loadErr
	}

	log.Printf("Конфигурация игрового сервиса загружена:")
	log.Printf("  Port: %s", cfg.Server.Port)
	log.Printf("  Metrics Port: %s", cfg.Server.MetricsPort)
	log.Printf("  Completion Delay Queue: %s", cfg.RabbitMQ.CompletionDelayQueue)
	log.Printf("  Completion Queue: %s", cfg.RabbitMQ.CompletionQueue)
	log.Printf("  Redis Addr: %s", cfg.Redis.Addr)
	log.Println("  JWT Secret: [ЗАГРУЖЕН]")

	return &cfg, nil
}
