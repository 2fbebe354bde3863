package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"game-building-server/shared/interfaces"
)

// Compile-time check to ensure RedisBroadcaster implements GroupPublisher
var _ interfaces.GroupPublisher = (*RedisBroadcaster)(nil)

const playerChannelPrefix = "player:"

// PlayerChannel возвращает имя pub/sub канала группы игрока.
func PlayerChannel(playerID string) string {
	return playerChannelPrefix + playerID
}

// RedisBroadcaster публикует события в канал группы игрока. Каждый экземпляр
// сервиса подписан на player:* (см. Subscriber), поэтому событие доходит до
// всех соединений игрока независимо от того, к какому экземпляру они
// подключены.
type RedisBroadcaster struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisBroadcaster создает паблишер групповых событий.
func NewRedisBroadcaster(client *redis.Client, logger *zap.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{
		client: client,
		logger: logger.Named("RedisBroadcaster"),
	}
}

// PublishToPlayer отправляет событие в группу игрока (fire-and-forget).
func (b *RedisBroadcaster) PublishToPlayer(ctx context.Context, playerID uuid.UUID, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("broadcast: не удалось сериализовать событие: %w", err)
	}
	if err := b.client.Publish(ctx, PlayerChannel(playerID.String()), payload).Err(); err != nil {
		b.logger.Error("Не удалось опубликовать событие игроку",
			zap.Error(err), zap.String("playerID", playerID.String()))
		return fmt.Errorf("broadcast: не удалось опубликовать событие: %w", err)
	}
	return nil
}

// GroupSender доставляет сообщение во все локальные соединения игрока.
// Реализуется менеджером соединений.
type GroupSender interface {
	SendToPlayer(playerID string, message []byte) int
}

// Subscriber — мост из Redis Pub/Sub в локальный менеджер соединений.
type Subscriber struct {
	client *redis.Client
	sender GroupSender
	logger *zap.Logger
}

// NewSubscriber создает мост подписки.
func NewSubscriber(client *redis.Client, sender GroupSender, logger *zap.Logger) *Subscriber {
	return &Subscriber{
		client: client,
		sender: sender,
		logger: logger.Named("BroadcastSubscriber"),
	}
}

// Run подписывается на каналы всех игроков и пересылает сообщения локальным
// соединениям. Блокирует до отмены контекста; запускать в отдельной горутине.
func (s *Subscriber) Run(ctx context.Context) error {
	pubsub := s.client.PSubscribe(ctx, playerChannelPrefix+"*")
	defer pubsub.Close()

	// Убеждаемся, что подписка установлена, прежде чем сообщать о готовности.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("broadcast: не удалось установить подписку: %w", err)
	}
	s.logger.Info("Подписка на каналы игроков установлена")

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				s.logger.Info("Канал подписки закрыт")
				return nil
			}
			playerID := strings.TrimPrefix(msg.Channel, playerChannelPrefix)
			delivered := s.sender.SendToPlayer(playerID, []byte(msg.Payload))
			s.logger.Debug("Событие доставлено локальным соединениям",
				zap.String("playerID", playerID),
				zap.Int("connections", delivered))
		case <-ctx.Done():
			s.logger.Info("Остановка подписки на каналы игроков")
			return nil
		}
	}
}
