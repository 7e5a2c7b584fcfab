package websocket

import (
	"encoding/json"
	"time"

	"examtrack-sync/internal/domain"
)

type MessageType string

const (
	// Server to client.
	TypeSyncStatus   MessageType = "sync_status"
	TypeStateChanged MessageType = "state_changed"
	TypeConflict     MessageType = "conflict"
	TypeAck          MessageType = "ack"
	TypePong         MessageType = "pong"

	// Client to server.
	TypeSyncRequest MessageType = "sync_request"
	TypePing        MessageType = "ping"
)

type Message struct {
	ID        string          `json:"id,omitempty"`
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type SyncRequestPayload struct {
	Foreground bool `json:"foreground"`
}

type SyncStatusPayload struct {
	Status domain.SyncStatus `json:"status"`
}

type StateChangedPayload struct {
	Event domain.StateEvent `json:"event"`
}

type ConflictPayload struct {
	Conflict *domain.SyncConflict `json:"conflict"`
}

type AckPayload struct {
	MessageID string `json:"message_id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}, nil
}

func (m *Message) UnmarshalPayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
