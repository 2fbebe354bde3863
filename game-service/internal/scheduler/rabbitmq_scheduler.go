package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"game-building-server/shared/interfaces"
	"game-building-server/shared/messaging"
)

// Compile-time check to ensure RabbitMQScheduler implements CompletionScheduler
var _ interfaces.CompletionScheduler = (*RabbitMQScheduler)(nil)

// RabbitMQScheduler — бэкенд отложенного выполнения поверх RabbitMQ.
// Schedule публикует задачу в очередь задержки с per-message TTL; по
// истечении TTL сообщение через DLX попадает в очередь завершения, которую
// читает консьюмер.
//
// Ограничение RabbitMQ: TTL проверяется только у головы очереди, поэтому
// короткая задача позади длинной может прийти позже своего срока. На
// корректность это не влияет: завершение идемпотентно и сверяет хэндл.
//
// Cancel реализован как отзыв: id задачи помечается в Redis, и консьюмер
// отбрасывает помеченные сообщения. Отзыв — best-effort; настоящей защитой
// от поздних срабатываний остается идемпотентный complete.
type RabbitMQScheduler struct {
	channel         *amqp.Channel
	redisClient     *redis.Client
	delayQueue      string
	completionQueue string
	revocationTTL   time.Duration
	logger          *zap.Logger
}

// NewRabbitMQScheduler открывает канал и объявляет обе очереди.
// Параметры очередей должны совпадать с параметрами консьюмера (durable=true).
func NewRabbitMQScheduler(
	conn *amqp.Connection,
	redisClient *redis.Client,
	delayQueue, completionQueue string,
	revocationTTL time.Duration,
	logger *zap.Logger,
) (*RabbitMQScheduler, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("scheduler: не удалось открыть канал RabbitMQ: %w", err)
	}

	// Очередь завершения: сюда dead-letter'ятся истекшие задачи.
	if _, err := ch.QueueDeclare(
		completionQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		return nil, fmt.Errorf("scheduler: не удалось объявить очередь '%s': %w", completionQueue, err)
	}

	// Очередь задержки: DLX по умолчанию (""), routing key — очередь завершения.
	delayArgs := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": completionQueue,
	}
	if _, err := ch.QueueDeclare(
		delayQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		delayArgs,
	); err != nil {
		ch.Close()
		return nil, fmt.Errorf("scheduler: не удалось объявить очередь '%s': %w", delayQueue, err)
	}

	logger.Info("Очереди планировщика объявлены",
		zap.String("delayQueue", delayQueue),
		zap.String("completionQueue", completionQueue))

	return &RabbitMQScheduler{
		channel:         ch,
		redisClient:     redisClient,
		delayQueue:      delayQueue,
		completionQueue: completionQueue,
		revocationTTL:   revocationTTL,
		logger:          logger.Named("RabbitMQScheduler"),
	}, nil
}

// Schedule публикует отложенную задачу завершения и возвращает её хэндл.
func (s *RabbitMQScheduler) Schedule(ctx context.Context, delay time.Duration, task messaging.CompletionTaskPayload) (string, error) {
	task.TaskID = uuid.NewString()

	body, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("scheduler: не удалось сериализовать задачу: %w", err)
	}

	err = s.channel.PublishWithContext(ctx,
		"",           // exchange (default)
		s.delayQueue, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    task.TaskID,
			Expiration:   expirationMillis(delay),
			Body:         body,
		})
	if err != nil {
		s.logger.Error("Не удалось опубликовать отложенную задачу",
			zap.Error(err),
			zap.String("playerID", task.PlayerID.String()),
			zap.Int("buildingID", task.BuildingID))
		return "", fmt.Errorf("scheduler: не удалось опубликовать задачу: %w", err)
	}

	tasksScheduled.Inc()
	s.logger.Debug("Задача завершения запланирована",
		zap.String("taskID", task.TaskID),
		zap.Duration("delay", delay),
		zap.Int("buildingID", task.BuildingID))
	return task.TaskID, nil
}

// Cancel помечает задачу отозванной. Поздний Cancel (задача уже сработала
// или не существует) — no-op, а не ошибка.
func (s *RabbitMQScheduler) Cancel(ctx context.Context, taskID string) error {
	if taskID == "" {
		return nil
	}
	if err := s.redisClient.Set(ctx, revocationKey(taskID), "1", s.revocationTTL).Err(); err != nil {
		s.logger.Warn("Не удалось пометить задачу отозванной", zap.Error(err), zap.String("taskID", taskID))
		return fmt.Errorf("scheduler: не удалось отозвать задачу %s: %w", taskID, err)
	}
	tasksRevoked.Inc()
	s.logger.Debug("Задача отозвана", zap.String("taskID", taskID))
	return nil
}

// IsRevoked проверяет, была ли задача отозвана.
func (s *RabbitMQScheduler) IsRevoked(ctx context.Context, taskID string) (bool, error) {
	n, err := s.redisClient.Exists(ctx, revocationKey(taskID)).Result()
	if err != nil {
		return false, fmt.Errorf("scheduler: не удалось проверить отзыв задачи %s: %w", taskID, err)
	}
	return n > 0, nil
}

// Close закрывает канал RabbitMQ.
func (s *RabbitMQScheduler) Close() error {
	return s.channel.Close()
}

func revocationKey(taskID string) string {
	return fmt.Sprintf("revoked_task:%s", taskID)
}

// expirationMillis переводит задержку в строковый per-message TTL.
// Отрицательная задержка схлопывается в 0 (немедленный dead-letter).
func expirationMillis(delay time.Duration) string {
	ms := delay.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	return strconv.FormatInt(ms, 10)
}
