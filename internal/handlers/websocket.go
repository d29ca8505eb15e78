package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"alertmap/internal/models"
	"alertmap/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin проверяется CORS middleware на уровне REST, подписка открыта всем
		return true
	},
}

// SubscriptionMode - какой поток событий получает клиент
type SubscriptionMode string

const (
	// ModeSnapshot - полный упорядоченный список на каждое изменение
	ModeSnapshot SubscriptionMode = "snapshot"
	// ModeAdded - по одному сообщению на каждый новый алерт
	ModeAdded SubscriptionMode = "added"
)

func (m SubscriptionMode) IsValid() bool {
	return m == ModeSnapshot || m == ModeAdded
}

// Типы сообщений websocket
const (
	MessageTypeSnapshot   = services.EventSnapshot
	MessageTypeAlertAdded = services.EventAlertAdded
	MessageTypeSystem     = "system"
	MessageTypePing       = "ping"
	MessageTypePong       = "pong"
)

type WSMessage struct {
	Type    string      `json:"type"`
	Version int64       `json:"version,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type BroadcastMessage struct {
	Mode    SubscriptionMode
	Payload []byte
}

type Hub struct {
	// Зарегистрированные клиенты по режиму подписки
	clients map[SubscriptionMode]map[*Client]bool

	// Канал для отмены регистрации клиентов
	unregister chan *Client

	// Исходящие сообщения для рассылки
	broadcast chan *BroadcastMessage

	done     chan struct{}
	stopOnce sync.Once
	mutex    sync.RWMutex
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	mode SubscriptionMode
}

var _ services.Publisher = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[SubscriptionMode]map[*Client]bool),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 64),
		done:       make(chan struct{}),
	}
}

func (hub *Hub) Run() {
	for {
		select {
		case client := <-hub.unregister:
			hub.mutex.Lock()
			hub.removeClient(client)
			hub.mutex.Unlock()
			logrus.WithField("mode", client.mode).Debug("Client unregistered")

		case message := <-hub.broadcast:
			hub.mutex.Lock()
			for client := range hub.clients[message.Mode] {
				select {
				case client.send <- message.Payload:
				default:
					// Медленный клиент: отключаем, он переподпишется
					hub.removeClient(client)
				}
			}
			hub.mutex.Unlock()

		case <-hub.done:
			hub.mutex.Lock()
			for _, clients := range hub.clients {
				for client := range clients {
					hub.removeClient(client)
				}
			}
			hub.mutex.Unlock()
			return
		}
	}
}

// addClient регистрирует клиента сразу, до возврата: все рассылки после
// этого вызова до него дойдут. false, если хаб уже остановлен.
func (hub *Hub) addClient(client *Client) bool {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	select {
	case <-hub.done:
		return false
	default:
	}

	if hub.clients[client.mode] == nil {
		hub.clients[client.mode] = make(map[*Client]bool)
	}
	hub.clients[client.mode][client] = true
	logrus.WithField("mode", client.mode).Debug("Client registered")
	return true
}

// removeClient вызывается под hub.mutex
func (hub *Hub) removeClient(client *Client) {
	clients, ok := hub.clients[client.mode]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(hub.clients, client.mode)
	}
}

// Shutdown останавливает цикл Run и закрывает все соединения
func (hub *Hub) Shutdown() {
	hub.stopOnce.Do(func() {
		close(hub.done)
	})
}

func (hub *Hub) GetConnectionsCount() int {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()

	count := 0
	for _, clients := range hub.clients {
		count += len(clients)
	}
	return count
}

func (hub *Hub) enqueue(mode SubscriptionMode, msg WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logrus.WithError(err).Error("Error marshaling websocket message")
		return
	}

	select {
	case hub.broadcast <- &BroadcastMessage{Mode: mode, Payload: payload}:
	case <-hub.done:
	}
}

func (hub *Hub) PublishSnapshot(alerts []models.Alert, version int64) {
	hub.enqueue(ModeSnapshot, WSMessage{
		Type:    MessageTypeSnapshot,
		Version: version,
		Data:    alerts,
	})
}

func (hub *Hub) PublishAdded(alert models.Alert) {
	hub.enqueue(ModeAdded, WSMessage{
		Type: MessageTypeAlertAdded,
		Data: alert,
	})
}

// Broadcast отправляет системное сообщение всем подписчикам
func (hub *Hub) Broadcast(messageType string, data interface{}) {
	msg := WSMessage{Type: messageType, Data: data}
	hub.enqueue(ModeSnapshot, msg)
	hub.enqueue(ModeAdded, msg)
}

type WebSocketHandler struct {
	hub          *Hub
	alertService *services.AlertService
}

func NewWebSocketHandler(hub *Hub, alertService *services.AlertService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:          hub,
		alertService: alertService,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	mode := SubscriptionMode(c.DefaultQuery("mode", string(ModeSnapshot)))
	if !mode.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid subscription mode",
		})
		return
	}

	// Устанавливаем WebSocket соединение
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket upgrade error")
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, 256),
		mode: mode,
	}

	if !h.hub.addClient(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	if mode == ModeSnapshot {
		h.sendInitialSnapshot(client)
	}
}

// sendInitialSnapshot отправляет текущий список сразу после регистрации.
// Клиент уже в хабе, поэтому ни одно изменение не потеряется, а из двух
// снимков с одной версией клиент оставит первый.
func (h *WebSocketHandler) sendInitialSnapshot(client *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	alerts, version, err := h.alertService.Snapshot(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to load initial snapshot")
		alerts = []models.Alert{}
	}

	payload, err := json.Marshal(WSMessage{
		Type:    MessageTypeSnapshot,
		Version: version,
		Data:    alerts,
	})
	if err != nil {
		logrus.WithError(err).Error("Error marshaling snapshot")
		return
	}

	h.hub.mutex.RLock()
	defer h.hub.mutex.RUnlock()
	if !h.hub.clients[client.mode][client] {
		return
	}
	select {
	case client.send <- payload:
	default:
	}
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var wsMsg WSMessage
		err := c.conn.ReadJSON(&wsMsg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).Debug("WebSocket read error")
			}
			break
		}

		// Подписка только на чтение, клиент может лишь пинговать
		if wsMsg.Type == MessageTypePing {
			pong, _ := json.Marshal(WSMessage{Type: MessageTypePong})
			c.hub.mutex.RLock()
			if c.hub.clients[c.mode][c] {
				select {
				case c.send <- pong:
				default:
				}
			}
			c.hub.mutex.RUnlock()
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Каждое сообщение - отдельный фрейм, клиент читает их по одному JSON
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
