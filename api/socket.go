package api

import (
	"chat-link/auth"
	"chat-link/contract"
	"chat-link/domain"
	"chat-link/errors"
	"chat-link/sink"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

const (
	EventCreateConnection = "createConnection"
	EventChatMessage      = "chatMessage"
	EventReceivedMessage  = "receivedMessage"
	EventError            = "error"

	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameBytes  = 64 << 10
	controlBacklog = 8
)

// Envelope is the frame format in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type createConnection struct {
	UserID string `json:"userId" validate:"required"`
}

// SocketHandler owns the live channel of each client. Frames of one socket are handled
// one after the other, so two messages from the same client reach the coordinator in order.
// It expects RequireSocketToken in front: a socket only registers and sends as its own user.
type SocketHandler struct {
	log          *slog.Logger
	registry     contract.IRegistry
	coordinator  contract.IDeliveryCoordinator
	upgrader     websocket.Upgrader
	bufferSize   int
	writeTimeout time.Duration
}

func NewSocketHandler(
	log *slog.Logger,
	registry contract.IRegistry,
	coordinator contract.IDeliveryCoordinator,
	allowedOrigins []string,
	bufferSize int,
	writeTimeout time.Duration) *SocketHandler {
	return &SocketHandler{
		log:          log,
		registry:     registry,
		coordinator:  coordinator,
		bufferSize:   bufferSize,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

// checkOrigin accepts any origin when none is configured.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return lo.Contains(allowed, u.Scheme+"://"+u.Host)
	}
}

func (s *SocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeMessage(s.log, w, http.StatusUnauthorized, errors.ErrTokenInvalid.Error())
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		s.log.Warn("Websocket upgrade failed", "error", err)
		return
	}

	conn := sink.NewConnection(s.bufferSize)
	control := make(chan outbound, controlBacklog)
	ctx, cancel := context.WithCancel(context.Background())
	registered := make(map[string]struct{})
	s.log.Info("Client connected", "connection_id", conn.ID(), "user_id", caller, "remote", r.RemoteAddr)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(ws, conn, control)
		// Unblocks the read loop when the client stopped reading
		_ = ws.Close()
	}()

	defer func() {
		cancel()
		for userID := range registered {
			s.registry.Unregister(userID, conn)
		}
		conn.Close()
		<-writerDone
		_ = ws.Close()
		s.log.Info("Client disconnected", "connection_id", conn.ID(), "users", len(registered))
	}()

	ws.SetReadLimit(maxFrameBytes)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame Envelope
		if err := ws.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("Websocket read failed", "connection_id", conn.ID(), "error", err)
			}
			return
		}
		if userID, ok := s.handleFrame(ctx, caller, conn, frame, control); ok {
			registered[userID] = struct{}{}
		}
	}
}

// handleFrame returns the user id when the frame registered one.
func (s *SocketHandler) handleFrame(
	ctx context.Context,
	caller string,
	conn *sink.Connection,
	frame Envelope,
	control chan<- outbound) (string, bool) {
	switch frame.Event {
	case EventCreateConnection:
		var payload createConnection
		if err := decodeFrame(frame.Data, &payload); err != nil {
			s.reject(conn, control, err)
			return "", false
		}
		if payload.UserID != caller {
			s.reject(conn, control, fmt.Errorf("%w: %s", errors.ErrNotCaller, payload.UserID))
			return "", false
		}
		s.registry.Register(payload.UserID, conn)
		s.log.Info("Session registered", "user_id", payload.UserID, "connection_id", conn.ID())
		return payload.UserID, true

	case EventChatMessage:
		var payload domain.InboundMessage
		if err := decodeFrame(frame.Data, &payload); err != nil {
			s.reject(conn, control, err)
			return "", false
		}
		if payload.SenderID != caller {
			s.reject(conn, control, fmt.Errorf("%w: %s", errors.ErrNotCaller, payload.SenderID))
			return "", false
		}
		s.coordinator.Deliver(ctx, payload)
		return "", false

	default:
		s.reject(conn, control, fmt.Errorf("%w: unknown event %q", errors.ErrInvalidRequest, frame.Event))
		return "", false
	}
}

func (s *SocketHandler) reject(conn *sink.Connection, control chan<- outbound, err error) {
	s.log.Debug("Rejected frame", "connection_id", conn.ID(), "error", err)
	select {
	case control <- outbound{Event: EventError, Data: messageBody{Message: err.Error()}}:
	default:
		s.log.Warn("Error frame dropped, client is not reading", "connection_id", conn.ID())
	}
}

// writeLoop is the only goroutine writing to ws.
func (s *SocketHandler) writeLoop(ws *websocket.Conn, conn *sink.Connection, control <-chan outbound) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-conn.Done():
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(s.writeTimeout))
			return
		case msg := <-conn.Events():
			if !s.write(ws, conn, outbound{Event: EventReceivedMessage, Data: msg}) {
				return
			}
		case frame := <-control:
			if !s.write(ws, conn, frame) {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Debug("Ping failed", "connection_id", conn.ID(), "error", err)
				return
			}
		}
	}
}

func (s *SocketHandler) write(ws *websocket.Conn, conn *sink.Connection, frame outbound) bool {
	_ = ws.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err := ws.WriteJSON(frame); err != nil {
		s.log.Error("Failed to push event to socket",
			"connection_id", conn.ID(),
			"event", frame.Event,
			"error", err)
		return false
	}
	return true
}

func decodeFrame(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", errors.ErrInvalidRequest)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err)
	}
	return auth.Validate(v)
}
