package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"

	"examtrack-sync/internal/domain"
	"examtrack-sync/internal/service"
	"examtrack-sync/internal/websocket"
	"examtrack-sync/pkg/response"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

// WebSocketHandler upgrades authenticated requests; the auth middleware has
// already checked the token.
type WebSocketHandler struct {
	manager  *websocket.Manager
	upgrader ws.Upgrader
	logger   *log.Logger
}

func NewWebSocketHandler(manager *websocket.Manager, readBuffer, writeBuffer int, logger *log.Logger) *WebSocketHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &WebSocketHandler{
		manager: manager,
		upgrader: ws.Upgrader{
			ReadBufferSize:  readBuffer,
			WriteBufferSize: writeBuffer,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	if h.manager.Full() {
		response.ServiceUnavailable(w, websocket.ErrTooManyConnections.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("failed to upgrade connection: %v", err)
		return
	}

	client := websocket.NewClient(uuid.New().String(), conn, h.manager)
	if err := h.manager.Register(client); err != nil {
		h.logger.Printf("rejecting connection: %v", err)
		conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.ClosePolicyViolation, err.Error()))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// WebSocketMessageHandler answers client messages.
type WebSocketMessageHandler struct {
	manager     *websocket.Manager
	syncService *service.SyncService
	logger      *log.Logger
}

func NewWebSocketMessageHandler(manager *websocket.Manager, syncService *service.SyncService, logger *log.Logger) *WebSocketMessageHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &WebSocketMessageHandler{
		manager:     manager,
		syncService: syncService,
		logger:      logger,
	}
}

func (h *WebSocketMessageHandler) HandleWebSocketMessage(client *websocket.Client, msg *websocket.Message) error {
	switch msg.Type {
	case websocket.TypeSyncRequest:
		return h.handleSyncRequest(client, msg)

	case websocket.TypePing:
		return h.reply(client, websocket.TypePong, nil)

	default:
		h.logger.Printf("unknown message type: %s", msg.Type)
	}

	return nil
}

// handleSyncRequest acknowledges at once and syncs in the background; the
// outcome reaches every client as a sync_status broadcast.
func (h *WebSocketMessageHandler) handleSyncRequest(client *websocket.Client, msg *websocket.Message) error {
	var payload websocket.SyncRequestPayload
	if err := msg.UnmarshalPayload(&payload); err != nil {
		return h.reply(client, websocket.TypeAck, &websocket.AckPayload{MessageID: msg.ID, Error: err.Error()})
	}

	if err := h.reply(client, websocket.TypeAck, &websocket.AckPayload{MessageID: msg.ID, Success: true}); err != nil {
		return err
	}

	go func() {
		err := h.syncService.SyncData(context.Background(), service.SyncOptions{Foreground: payload.Foreground})
		if err != nil && !errors.Is(err, service.ErrSyncInProgress) {
			h.logger.Printf("requested sync failed: %v", err)
		}
	}()
	return nil
}

func (h *WebSocketMessageHandler) reply(client *websocket.Client, msgType websocket.MessageType, payload interface{}) error {
	msg, err := websocket.NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	return h.manager.SendToClient(client.ID, msg)
}

// EventBroadcaster forwards store and sync events to every websocket client.
type EventBroadcaster struct {
	manager *websocket.Manager
	logger  *log.Logger
	stop    []func()

	mu           sync.Mutex
	lastConflict *domain.SyncConflict
}

func NewEventBroadcaster(manager *websocket.Manager, store *service.StateStore, syncService *service.SyncService, logger *log.Logger) *EventBroadcaster {
	if logger == nil {
		logger = log.Default()
	}
	b := &EventBroadcaster{manager: manager, logger: logger}

	b.stop = append(b.stop,
		store.Subscribe(func(event domain.StateEvent) {
			b.send(websocket.TypeStateChanged, &websocket.StateChangedPayload{Event: event})
		}),
		syncService.OnStatus(func(status domain.SyncStatus) {
			b.send(websocket.TypeSyncStatus, &websocket.SyncStatusPayload{Status: status})
			if b.newConflict(status.Conflict) {
				b.send(websocket.TypeConflict, &websocket.ConflictPayload{Conflict: status.Conflict})
			}
		}),
	)
	return b
}

// newConflict reports whether conflict has not been announced yet.
func (b *EventBroadcaster) newConflict(conflict *domain.SyncConflict) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	fresh := conflict != nil && conflict != b.lastConflict
	b.lastConflict = conflict
	return fresh
}

func (b *EventBroadcaster) send(msgType websocket.MessageType, payload interface{}) {
	msg, err := websocket.NewMessage(msgType, payload)
	if err != nil {
		b.logger.Printf("failed to build %s message: %v", msgType, err)
		return
	}
	if err := b.manager.Broadcast(msg); err != nil {
		b.logger.Printf("failed to broadcast %s: %v", msgType, err)
	}
}

func (b *EventBroadcaster) Close() {
	for _, stop := range b.stop {
		stop()
	}
}

var _ websocket.MessageHandler = (*WebSocketMessageHandler)(nil)
