package ws

import (
	"net/http"
	"time"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/domain/lifecycle"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/logging"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/monitoring"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// eventQueue bounds the per-connection backlog. The event bus
	// drops for a connection that cannot drain this many.
	eventQueue = 64

	maxMessageSize = 4096
)

// Handler streams lifecycle events to shell connections
type Handler struct {
	orch     *lifecycle.Orchestrator
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	upgrader websocket.Upgrader
}

// NewHandler creates a WebSocket handler. origins mirrors the HTTP
// CORS policy; a single "*" admits any origin.
func NewHandler(orch *lifecycle.Orchestrator, logger *logging.Logger, metrics *monitoring.Metrics, origins []string) *Handler {
	allowAll := len(origins) == 1 && origins[0] == "*"
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return &Handler{
		orch:    orch,
		logger:  logger.Component("ws"),
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin]
			},
		},
	}
}

// HandleConnection upgrades the request and streams lifecycle events
// until the peer goes away. Each connection holds its own bus
// subscription, so a stalled peer only loses its own events.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	events, cancel := h.orch.Events().Subscribe(eventQueue)
	defer cancel()

	h.sendHello(conn)

	// Client frames only carry control messages. A second goroutine
	// drains them so the read deadline stays fresh while writePump
	// owns the connection for writing.
	replies := make(chan []byte, 4)
	done := make(chan struct{})
	go h.readPump(conn, replies, done)

	h.writePump(conn, events, replies, done)
}

// sendHello pushes the current instance snapshot so a reconnecting
// shell can rebuild its task bar before any event arrives.
func (h *Handler) sendHello(conn *websocket.Conn) {
	data, err := sonic.Marshal(map[string]interface{}{
		"type":      "hello",
		"instances": h.orch.ListRunning(),
		"timestamp": time.Now().Unix(),
	})
	if err != nil {
		return
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err == nil {
		h.metrics.RecordWSMessage("out", "hello")
	}
}

func (h *Handler) readPump(conn *websocket.Conn, replies chan<- []byte, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("WebSocket read failed", zap.Error(err))
			}
			return
		}

		var msg struct {
			Type string `json:"type"`
		}
		if err := sonic.Unmarshal(raw, &msg); err != nil {
			continue
		}
		h.metrics.RecordWSMessage("in", msg.Type)

		switch msg.Type {
		case "ping":
			conn.SetReadDeadline(time.Now().Add(pongWait))
			data, err := sonic.Marshal(map[string]interface{}{
				"type":      "pong",
				"timestamp": time.Now().Unix(),
			})
			if err != nil {
				continue
			}
			select {
			case replies <- data:
			default:
			}
		}
	}
}

func (h *Handler) writePump(conn *websocket.Conn, events <-chan lifecycle.Event, replies <-chan []byte, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				// Bus closed, daemon is shutting down
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}

			data, err := sonic.Marshal(evt)
			if err != nil {
				h.logger.Error("Event marshal failed", zap.Error(err), zap.String("type", string(evt.Type)))
				continue
			}

			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
			h.metrics.RecordWSMessage("out", string(evt.Type))

		case data := <-replies:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
			h.metrics.RecordWSMessage("out", "pong")

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}
