package websocket

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"
)

var ErrTooManyConnections = errors.New("too many websocket connections")

type ClientMessage struct {
	Client  *Client
	Message []byte
}

type Options struct {
	MaxConnections int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
}

// Manager fans daemon events out to every connected UI and feeds client
// messages to a single handler goroutine.
type Manager struct {
	mu             sync.RWMutex
	clients        map[string]*Client
	incoming       chan *ClientMessage
	done           chan struct{}
	stopOnce       sync.Once
	maxConnections int
	maxMessageSize int64
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	messageHandler MessageHandler
	logger         *log.Logger
}

type MessageHandler interface {
	HandleWebSocketMessage(client *Client, msg *Message) error
}

func NewManager(opts Options, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		clients:        make(map[string]*Client),
		incoming:       make(chan *ClientMessage, 16),
		done:           make(chan struct{}),
		maxConnections: opts.MaxConnections,
		maxMessageSize: opts.MaxMessageSize,
		writeWait:      opts.WriteWait,
		pongWait:       opts.PongWait,
		pingPeriod:     opts.PingPeriod,
		logger:         logger,
	}
}

func (m *Manager) SetMessageHandler(handler MessageHandler) {
	m.messageHandler = handler
}

// Run dispatches client messages until Stop is called.
func (m *Manager) Run() {
	for {
		select {
		case clientMsg := <-m.incoming:
			m.processMessage(clientMsg)
		case <-m.done:
			return
		}
	}
}

// Stop ends Run and closes every client connection.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)

		m.mu.Lock()
		defer m.mu.Unlock()
		for id, client := range m.clients {
			delete(m.clients, id)
			close(client.Send)
		}
	})
}

func (m *Manager) Register(client *Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxConnections > 0 && len(m.clients) >= m.maxConnections {
		return ErrTooManyConnections
	}

	m.clients[client.ID] = client
	m.logger.Printf("client registered: %s (%d connected)", client.ID, len(m.clients))
	return nil
}

func (m *Manager) unregister(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		delete(m.clients, client.ID)
		close(client.Send)
		m.logger.Printf("client unregistered: %s", client.ID)
	}
}

func (m *Manager) processMessage(clientMsg *ClientMessage) {
	var msg Message
	if err := json.Unmarshal(clientMsg.Message, &msg); err != nil {
		m.logger.Printf("error unmarshaling message from %s: %v", clientMsg.Client.ID, err)
		return
	}

	if m.messageHandler != nil {
		if err := m.messageHandler.HandleWebSocketMessage(clientMsg.Client, &msg); err != nil {
			m.logger.Printf("error handling %s message: %v", msg.Type, err)
		}
	}
}

// Broadcast queues message for every client. Slow clients whose buffer is
// full are dropped rather than stalling the caller.
func (m *Manager) Broadcast(message *Message) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, client := range m.clients {
		select {
		case client.Send <- messageBytes:
		default:
			m.logger.Printf("client %s send buffer full, closing connection", id)
			delete(m.clients, id)
			close(client.Send)
		}
	}
	return nil
}

func (m *Manager) SendToClient(clientID string, message *Message) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	client, exists := m.clients[clientID]
	if !exists {
		return nil
	}

	select {
	case client.Send <- messageBytes:
	default:
		m.logger.Printf("client %s send buffer full", clientID)
	}
	return nil
}

func (m *Manager) Connections() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

func (m *Manager) Full() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxConnections > 0 && len(m.clients) >= m.maxConnections
}
