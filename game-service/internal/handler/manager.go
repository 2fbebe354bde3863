package handler

import (
	"sync"

	"github.com/rs/zerolog"
)

// ConnectionManager управляет активными WebSocket соединениями и группами
// игроков. У одного игрока может быть несколько соединений (несколько
// вкладок/устройств); все они входят в группу playerID и получают каждое
// событие игрока.
type ConnectionManager struct {
	clients    map[*Client]struct{}
	groups     map[string]map[*Client]struct{} // playerID -> соединения
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	logger     zerolog.Logger
}

// NewConnectionManager создает и запускает новый менеджер соединений.
func NewConnectionManager(logger zerolog.Logger) *ConnectionManager {
	m := &ConnectionManager{
		clients:    make(map[*Client]struct{}),
		groups:     make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With().Str("component", "ConnectionManager").Logger(),
	}
	go m.run()
	return m
}

// run запускает основной цикл менеджера для обработки регистрации/дерегистрации.
func (m *ConnectionManager) run() {
	m.logger.Info().Msg("ConnectionManager запущен")
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			m.clients[client] = struct{}{}
			m.mu.Unlock()
			m.logger.Debug().Msg("Клиент зарегистрирован")

		case client := <-m.unregister:
			m.mu.Lock()
			// Снимаем id до выхода из группы: removeFromGroupLocked его обнуляет
			playerID := client.playerID
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				m.removeFromGroupLocked(client)
				close(client.send)
			}
			m.mu.Unlock()
			m.logger.Debug().Str("playerID", playerID).Msg("Клиент дерегистрирован")
		}
	}
}

// RegisterClient регистрирует новое соединение (еще не аутентифицированное).
func (m *ConnectionManager) RegisterClient(client *Client) {
	m.register <- client
}

// UnregisterClient удаляет соединение и выводит его из группы игрока.
func (m *ConnectionManager) UnregisterClient(client *Client) {
	m.unregister <- client
}

// Bind привязывает соединение к группе игрока после успешной
// аутентификации. Повторная привязка (relogin) переносит соединение в
// новую группу.
func (m *ConnectionManager) Bind(client *Client, playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client.playerID == playerID {
		return
	}
	m.removeFromGroupLocked(client)
	client.playerID = playerID
	if m.groups[playerID] == nil {
		m.groups[playerID] = make(map[*Client]struct{})
	}
	m.groups[playerID][client] = struct{}{}
	m.logger.Info().Str("playerID", playerID).Msg("Соединение привязано к группе игрока")
}

// removeFromGroupLocked вызывается только под m.mu.
func (m *ConnectionManager) removeFromGroupLocked(client *Client) {
	if client.playerID == "" {
		return
	}
	if group, ok := m.groups[client.playerID]; ok {
		delete(group, client)
		if len(group) == 0 {
			delete(m.groups, client.playerID)
		}
	}
	client.playerID = ""
}

// BoundPlayer возвращает id игрока, к которому привязано соединение,
// или пустую строку до аутентификации.
func (m *ConnectionManager) BoundPlayer(client *Client) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return client.playerID
}

// SendToPlayer отправляет сообщение во все локальные соединения игрока.
// Возвращает количество соединений, в очередь которых сообщение попало.
func (m *ConnectionManager) SendToPlayer(playerID string, message []byte) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	delivered := 0
	for client := range m.groups[playerID] {
		select {
		case client.send <- message:
			delivered++
		default:
			// Очередь переполнена: клиент не успевает читать, не блокируемся
			m.logger.Warn().Str("playerID", playerID).Msg("Очередь отправки переполнена, сообщение пропущено")
		}
	}
	return delivered
}
