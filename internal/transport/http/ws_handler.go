package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"prime-quiz-bot/internal/domain"
)

var (
	// ErrRecipientOffline is returned when a notification targets a user without an open socket.
	ErrRecipientOffline = errors.New("recipient not connected")
	// ErrRecipientBacklog is returned when a user's outbound queue is full.
	ErrRecipientBacklog = errors.New("recipient outbound queue full")
)

// ActorPrefix namespaces websocket users so they never share an id with
// Telegram users or the administrator.
const ActorPrefix = "ws:"

// ActorID maps a websocket user id to the actor id seen by the handler.
func ActorID(userID string) string {
	return ActorPrefix + userID
}

// Handler receives the conversational inputs of one user at a time.
type Handler interface {
	Start(ctx context.Context, actorID string)
	Action(ctx context.Context, actorID, action string)
	Text(ctx context.Context, actorID, text string)
}

// WSHandler is a chat front-end over websockets. It also implements
// app.Notifier for users with an open connection, addressed by ActorID.
// Connections must present the shared token; with no token every
// connection is refused.
type WSHandler struct {
	handler  Handler
	token    string
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]chan outboundMessage[any]
}

func NewWSHandler(token string) *WSHandler {
	return &WSHandler{
		token: token,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[string]chan outboundMessage[any]),
	}
}

// Bind sets the handler inbound messages are routed to. It must be called
// before serving.
func (h *WSHandler) Bind(handler Handler) {
	h.handler = handler
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type textPayload struct {
	Text string `json:"text"`
}

type actionPayload struct {
	Action string `json:"action"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func (h *WSHandler) SendText(_ context.Context, to string, msg domain.Message) error {
	return h.enqueue(to, outboundMessage[any]{Type: "message", Payload: msg})
}

func (h *WSHandler) SendDocument(_ context.Context, to string, doc domain.Document) error {
	return h.enqueue(to, outboundMessage[any]{Type: "document", Payload: doc})
}

func (h *WSHandler) enqueue(to string, msg outboundMessage[any]) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	send, ok := h.conns[to]
	if !ok {
		return ErrRecipientOffline
	}
	select {
	case send <- msg:
		return nil
	default:
		return ErrRecipientBacklog
	}
}

// attach registers the user's outbound queue, replacing an older connection.
func (h *WSHandler) attach(actorID string) chan outboundMessage[any] {
	send := make(chan outboundMessage[any], 32)
	h.mu.Lock()
	if old, ok := h.conns[actorID]; ok {
		close(old)
	}
	h.conns[actorID] = send
	h.mu.Unlock()
	return send
}

// detach drops the queue unless a newer connection already replaced it.
func (h *WSHandler) detach(actorID string, send chan outboundMessage[any]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.conns[actorID]; ok && cur == send {
		delete(h.conns, actorID)
		close(send)
	}
}

// ServeWS upgrades HTTP requests to websockets and feeds each inbound message
// to the handler as ActorID(userId). The token is read from a bearer
// Authorization header or the token query parameter.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}
	actorID := ActorID(userID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	send := h.attach(actorID)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				slog.Error("ws write error", "actor", actorID, "err", err)
				return
			}
		}
	}()

	ctx := r.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			h.handler.Start(ctx, actorID)
		case "text":
			var payload textPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.replyError(actorID, "invalid text payload")
				continue
			}
			h.handler.Text(ctx, actorID, payload.Text)
		case "action":
			var payload actionPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.replyError(actorID, "invalid action payload")
				continue
			}
			h.handler.Action(ctx, actorID, payload.Action)
		default:
			h.replyError(actorID, "unsupported message type")
		}
	}

	h.detach(actorID, send)
	<-writerDone
}

func (h *WSHandler) authorized(r *http.Request) bool {
	if h.token == "" {
		return false
	}
	presented := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if presented == "" {
		presented = r.URL.Query().Get("token")
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(h.token)) == 1
}

func (h *WSHandler) replyError(userID, message string) {
	if err := h.enqueue(userID, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}); err != nil {
		slog.Error("ws error reply", "user", userID, "err", err)
	}
}
