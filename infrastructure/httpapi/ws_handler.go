package httpapi

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"dm-relay/auth"
	"dm-relay/contract"
	"dm-relay/errors"
	"dm-relay/sink"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const maxIntentSize = 64 * 1024

// WSHandler upgrades authenticated requests to WebSocket connections
// and bridges them to the dispatcher: the read pump turns wire intents
// into dispatcher calls, the write pump drains the connection's sink.
type WSHandler struct {
	log          *slog.Logger
	dispatcher   contract.IDispatcher
	upgrader     websocket.Upgrader
	bufferSize   int
	writeTimeout time.Duration
	pongTimeout  time.Duration
}

func NewWSHandler(log *slog.Logger, dispatcher contract.IDispatcher,
	bufferSize int, writeTimeout, pongTimeout time.Duration) *WSHandler {
	return &WSHandler{
		log:        log,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Auth is cookie/token based; same-origin policy is the
				// deployment's concern, not this relay's.
				return true
			},
		},
		bufferSize:   bufferSize,
		writeTimeout: writeTimeout,
		pongTimeout:  pongTimeout,
	}
}

// HandleWebSocket runs for the lifetime of one connection. The connect
// event fires after a successful upgrade; the matching disconnect is
// deferred so every exit path (peer close, read error, shutdown)
// releases the registry entry.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFrom(r.Context())
	if !ok {
		http.Error(w, errors.ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	// The request context dies with the handler; the connection outlives
	// neither. A dedicated context lets the write pump stop when the
	// read side ends.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connSink := sink.NewConnSink(h.bufferSize)
	h.dispatcher.Connect(ctx, userID, connSink)
	defer h.dispatcher.Disconnect(context.Background(), connSink)

	go h.writePump(ctx, conn, connSink)
	h.readPump(ctx, conn, userID)
}

// readPump decodes client intents until the connection drops. Malformed
// frames are logged and skipped; a single client's garbage must never
// take the relay down.
func (h *WSHandler) readPump(ctx context.Context, conn *websocket.Conn, userID uuid.UUID) {
	defer conn.Close()

	conn.SetReadLimit(maxIntentSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("websocket read failed", "user_id", userID, "error", err)
			}
			return
		}

		var intent clientIntent
		if err := json.Unmarshal(data, &intent); err != nil {
			h.log.Warn("malformed intent", "user_id", userID, "error", err)
			continue
		}

		receiverID, err := uuid.Parse(intent.ReceiverID)
		if err != nil {
			h.log.Warn("intent with invalid receiver", "user_id", userID, "type", intent.Type)
			continue
		}

		switch intent.Type {
		case intentSendMessage:
			if err := h.dispatcher.SendMessage(ctx, userID, receiverID, intent.Body); err != nil {
				// Empty sends are dropped without a trace; persistence
				// failures already reached the sender as an event.
				if !stderrors.Is(err, errors.ErrEmptyMessage) {
					h.log.Error("send failed", "user_id", userID, "error", err)
				}
			}
		case intentTyping:
			h.dispatcher.Typing(ctx, userID, receiverID)
		case intentStopTyping:
			h.dispatcher.StopTyping(ctx, userID, receiverID)
		default:
			h.log.Warn("unknown intent type", "user_id", userID, "type", intent.Type)
		}
	}
}

// writePump serializes routed events onto the socket and keeps the
// connection alive with pings. It owns all writes; gorilla connections
// allow only one writer.
func (h *WSHandler) writePump(ctx context.Context, conn *websocket.Conn, connSink *sink.ConnSink) {
	pingInterval := h.pongTimeout * 9 / 10
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(h.writeTimeout))
			return
		case evt := <-connSink.Events:
			wired, ok := toWireEvent(evt)
			if !ok {
				continue
			}
			data, err := json.Marshal(wired)
			if err != nil {
				h.log.Error("failed to encode event", "event", evt.EventType(), "error", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
