package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"game-building-server/shared/interfaces"
	"game-building-server/shared/messaging"
	"game-building-server/shared/models"
)

// processTimeout ограничивает обработку одной задачи завершения.
const processTimeout = 30 * time.Second

// Consumer читает очередь задач завершения построек. Сообщения попадают сюда
// из delay-очереди через dead-letter после истечения per-message TTL.
type Consumer struct {
	conn        *amqp.Connection
	logger      *zap.Logger
	queueName   string
	concurrency int
	processor   *Processor
	stopChannel chan struct{}
	cancelFunc  context.CancelFunc
	wg          sync.WaitGroup
}

// NewConsumer создает консьюмера задач завершения.
func NewConsumer(conn *amqp.Connection, logger *zap.Logger, queueName string, concurrency int, processor *Processor) (*Consumer, error) {
	c := &Consumer{
		conn:        conn,
		logger:      logger.Named("CompletionConsumer"),
		queueName:   queueName,
		concurrency: concurrency,
		processor:   processor,
		stopChannel: make(chan struct{}),
	}
	return c, nil
}

// Start блокирует до вызова Stop(). Запускать в отдельной горутине.
func (c *Consumer) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelFunc = cancel

	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("не удалось открыть канал RabbitMQ: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		c.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("не удалось объявить очередь '%s': %w", c.queueName, err)
	}
	c.logger.Info("Очередь успешно объявлена/найдена", zap.String("queue", q.Name))

	// Обработка строго по одной задаче на воркера
	if err := ch.Qos(c.concurrency, 0, false); err != nil {
		return fmt.Errorf("не удалось установить QoS: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"completion-consumer", // consumer tag
		false,                 // auto-ack = false
		false,                 // exclusive
		false,                 // no-local
		false,                 // no-wait
		nil,                   // args
	)
	if err != nil {
		return fmt.Errorf("не удалось зарегистрировать консьюмера: %w", err)
	}

	c.logger.Info("Консьюмер задач завершения запущен, ожидание сообщений...", zap.Int("concurrency", c.concurrency))

	c.wg.Add(c.concurrency)
	for i := 0; i < c.concurrency; i++ {
		go func(workerID int) {
			defer c.wg.Done()
			logger := c.logger.With(zap.Int("worker_id", workerID))
			for {
				select {
				case <-ctx.Done():
					logger.Info("Воркер останавливается из-за отмены контекста")
					return
				case <-c.stopChannel:
					logger.Info("Воркер останавливается из-за сигнала stopChannel")
					return
				case d, ok := <-msgs:
					if !ok {
						logger.Info("Канал сообщений закрыт, воркер завершает работу")
						return
					}
					c.processor.ProcessMessage(ctx, d)
				}
			}
		}(i)
	}

	<-c.stopChannel
	c.logger.Info("Получен сигнал остановки, отменяем контекст воркеров...")
	c.cancelFunc()
	c.wg.Wait()
	c.logger.Info("Все воркеры консьюмера остановлены")
	return nil
}

// Stop останавливает консьюмера и дожидается воркеров.
func (c *Consumer) Stop() {
	c.logger.Info("Инициирована остановка консьюмера...")
	close(c.stopChannel)
}

// Processor применяет одну задачу завершения. Вынесен из Consumer для
// тестируемости без живого соединения.
type Processor struct {
	progression interfaces.ProgressionService
	scheduler   interfaces.CompletionScheduler
	logger      *zap.Logger
}

// NewProcessor создает обработчик задач завершения.
func NewProcessor(progression interfaces.ProgressionService, scheduler interfaces.CompletionScheduler, logger *zap.Logger) *Processor {
	return &Processor{
		progression: progression,
		scheduler:   scheduler,
		logger:      logger.Named("CompletionProcessor"),
	}
}

// ProcessMessage десериализует задачу, проверяет отзыв и выполняет переход.
// Ack при любом штатном исходе (включая no-op и отозванные задачи). Nack без
// requeue только при неразборчивом payload: такую задачу повтор не спасет.
// Любой сбой инфраструктуры (Redis, БД, конфликт версий) — Nack с requeue,
// иначе запись навсегда останется in_progress с уже списанными ресурсами.
func (p *Processor) ProcessMessage(ctx context.Context, d amqp.Delivery) {
	var payload messaging.CompletionTaskPayload
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		p.logger.Error("Ошибка десериализации задачи завершения",
			zap.Error(err),
			zap.ByteString("body", d.Body),
			zap.Uint64("delivery_tag", d.DeliveryTag))
		if ackErr := d.Nack(false, false); ackErr != nil {
			p.logger.Error("Ошибка Nack после ошибки JSON", zap.Error(ackErr))
		}
		return
	}

	processCtx, cancel := context.WithTimeout(ctx, processTimeout)
	defer cancel()

	// Отозванные задачи (отмена при ускорении) дропаются до обращения к БД.
	revoked, err := p.scheduler.IsRevoked(processCtx, payload.TaskID)
	if err != nil {
		p.logger.Error("Не удалось проверить отзыв задачи",
			zap.Error(err),
			zap.String("taskID", payload.TaskID))
		if ackErr := d.Nack(false, true); ackErr != nil {
			p.logger.Error("Ошибка Nack после ошибки проверки отзыва", zap.Error(ackErr))
		}
		return
	}
	if revoked {
		p.logger.Info("Задача отозвана, пропускаем",
			zap.String("taskID", payload.TaskID),
			zap.Int("buildingID", payload.BuildingID))
		tasksDropped.Inc()
		p.ack(d)
		return
	}

	updated, err := p.progression.CompleteBuilding(processCtx, payload.PlayerID, payload.BuildingID, payload.TaskID)
	if err != nil {
		if errors.Is(err, models.ErrPlayerNotFound) {
			// Игрок удален между постановкой и срабатыванием: задача пустая.
			p.logger.Warn("Игрок задачи завершения не найден, дропаем",
				zap.String("playerID", payload.PlayerID.String()),
				zap.Int("buildingID", payload.BuildingID))
			tasksDropped.Inc()
			p.ack(d)
			return
		}
		// Временная ошибка: возвращаем задачу в очередь, переход обязан
		// состояться. Идемпотентность прикрывает повторную доставку.
		p.logger.Error("Ошибка выполнения задачи завершения, возвращаем в очередь",
			zap.Error(err),
			zap.String("playerID", payload.PlayerID.String()),
			zap.Int("buildingID", payload.BuildingID))
		if ackErr := d.Nack(false, true); ackErr != nil {
			p.logger.Error("Ошибка Nack после ошибки обработки", zap.Error(ackErr))
		}
		return
	}

	if updated {
		tasksCompleted.Inc()
	} else {
		// Запись уже не in_progress или хэндл не совпал: штатный no-op.
		tasksDropped.Inc()
	}
	p.ack(d)
}

func (p *Processor) ack(d amqp.Delivery) {
	if err := d.Ack(false); err != nil {
		p.logger.Error("Ошибка Ack сообщения", zap.Error(err), zap.Uint64("delivery_tag", d.DeliveryTag))
	}
}
