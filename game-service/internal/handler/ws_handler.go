package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"game-building-server/shared/interfaces"
)

// originChecker строит проверку Origin для апгрейда. Пустой allowlist
// разрешает все (режим разработки); запрос без Origin (не-браузерный клиент)
// пропускается всегда.
func originChecker(allowedOrigins []string, logger zerolog.Logger) func(r *http.Request) bool {
	if len(allowedOrigins) == 0 {
		return func(*http.Request) bool { return true }
	}
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := allowed[origin]; ok {
			return true
		}
		logger.Warn().Str("origin", origin).Msg("WebSocket upgrade rejected: origin not allowed")
		return false
	}
}

// WebSocketHandler обрабатывает запросы на установку WebSocket соединения.
// Токен в query-параметре опционален: без него соединение принимается
// анонимным и обязано выполнить register/login первым сообщением.
type WebSocketHandler struct {
	manager    *ConnectionManager
	dispatcher *Dispatcher
	auth       interfaces.AuthService
	upgrader   websocket.Upgrader
	logger     zerolog.Logger
}

// NewWebSocketHandler создает новый обработчик WebSocket.
func NewWebSocketHandler(manager *ConnectionManager, dispatcher *Dispatcher, auth interfaces.AuthService, allowedOrigins []string, logger zerolog.Logger) *WebSocketHandler {
	handlerLogger := logger.With().Str("component", "WebSocketHandler").Logger()
	return &WebSocketHandler{
		manager:    manager,
		dispatcher: dispatcher,
		auth:       auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins, handlerLogger),
		},
		logger: handlerLogger,
	}
}

// ServeWS обрабатывает входящий HTTP запрос для WebSocket.
func (h *WebSocketHandler) ServeWS(c echo.Context) error {
	r := c.Request()

	// Предварительная привязка по токену, если клиент его передал
	playerID := ""
	if tokenString := r.URL.Query().Get("token"); tokenString != "" {
		id, err := h.auth.ValidateToken(tokenString)
		if err != nil {
			h.logger.Warn().Err(err).Msg("Invalid token in query")
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
		playerID = id.String()
	}

	conn, err := h.upgrader.Upgrade(c.Response(), r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade connection")
		// upgrader уже записал ответ
		return nil
	}

	connectionsOpened.Inc()
	h.logger.Info().Str("playerID", playerID).Msg("WebSocket connection established")

	client := &Client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	h.manager.RegisterClient(client)
	if playerID != "" {
		h.manager.Bind(client, playerID)
	}

	connLogger := h.logger.With().Str("playerID", playerID).Logger()
	go client.writePump(connLogger)
	go client.readPump(h.manager, h.dispatcher, connLogger)
	return nil
}
