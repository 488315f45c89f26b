// Package realtime pushes the current note list to connected WebSocket
// clients.
//
// Every message carries the full list rather than a diff, so a client that
// misses messages only needs the next one to be current. The same property
// lets the hub drop queued messages when it falls behind: the newest list
// replaces the oldest queued one.
package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/notetugas/tugas/internal/note"
)

// MessageType defines the type of realtime message
type MessageType string

const (
	// MessageTypeNotesUpdated carries the full note list
	MessageTypeNotesUpdated MessageType = "notes_updated"
)

// Message is one realtime broadcast.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Notes     []note.Note `json:"notes"`
}

// SnapshotFunc returns the current note list for newly connected clients.
// It is called with the broadcast queue locked and must not publish.
type SnapshotFunc func(ctx context.Context) ([]note.Note, error)

// outgoing is a queued message. A nil to means every client.
type outgoing struct {
	msg Message
	to  *websocket.Conn
}

// Config holds hub configuration
type Config struct {
	// BufferSize is the broadcast queue length (default: 16)
	BufferSize int

	// WriteTimeout bounds each client write (default: 5s)
	WriteTimeout time.Duration

	// Snapshot provides the list sent on connect. Optional.
	Snapshot SnapshotFunc

	// OriginPatterns are the allowed browser origins (default: all)
	OriginPatterns []string

	// Logger for hub activity (default: stderr logger)
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		BufferSize:     16,
		WriteTimeout:   5 * time.Second,
		OriginPatterns: []string{"*"},
		Logger:         log.New(os.Stderr, "[realtime] ", log.LstdFlags),
	}
}

// Hub manages WebSocket clients and broadcasts note lists to them.
type Hub struct {
	config *Config

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan outgoing
	// sendMu makes the drop-oldest-then-enqueue step atomic. It is also
	// held across a new client's snapshot read so no list published
	// meanwhile can be queued ahead of it.
	sendMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub creates a hub. Call Start to begin broadcasting.
func NewHub(config *Config) *Hub {
	defaults := DefaultConfig()
	if config == nil {
		config = defaults
	}
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.OriginPatterns == nil {
		config.OriginPatterns = defaults.OriginPatterns
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		config:    config,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan outgoing, config.BufferSize),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins the broadcast loop.
func (h *Hub) Start() {
	h.wg.Add(1)
	go h.broadcastLoop()
}

// Stop closes every client and waits for the broadcast loop to exit.
func (h *Hub) Stop() {
	h.config.Logger.Println("Stopping realtime hub")
	h.cancel()

	h.clientsMu.Lock()
	for conn := range h.clients {
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(h.clients, conn)
	}
	h.clientsMu.Unlock()

	h.wg.Wait()
}

// NotesChanged queues the list for broadcast. It never blocks: if the
// queue is full the oldest queued list is discarded.
func (h *Hub) NotesChanged(notes []note.Note) {
	h.Broadcast(Message{
		Type:      MessageTypeNotesUpdated,
		Timestamp: time.Now(),
		Notes:     notes,
	})
}

// Broadcast queues a message for every connected client.
func (h *Hub) Broadcast(msg Message) {
	if h.ctx.Err() != nil {
		return
	}
	if msg.Notes == nil {
		msg.Notes = []note.Note{}
	}

	h.sendMu.Lock()
	defer h.sendMu.Unlock()
	h.enqueue(outgoing{msg: msg})
}

// enqueue adds o to the queue, discarding the oldest entry when full.
// Caller must hold sendMu.
func (h *Hub) enqueue(o outgoing) {
	for {
		select {
		case h.broadcast <- o:
			return
		default:
		}

		select {
		case <-h.broadcast:
			h.config.Logger.Println("Broadcast queue full, dropping oldest list")
		default:
		}
	}
}

// broadcastLoop handles message broadcasting to all clients
func (h *Hub) broadcastLoop() {
	defer h.wg.Done()

	for {
		select {
		case <-h.ctx.Done():
			return

		case o := <-h.broadcast:
			data, err := json.Marshal(o.msg)
			if err != nil {
				h.config.Logger.Printf("Failed to marshal message: %v", err)
				continue
			}

			h.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(h.clients))
			for conn := range h.clients {
				if o.to == nil || o.to == conn {
					clients = append(clients, conn)
				}
			}
			h.clientsMu.RUnlock()

			for _, conn := range clients {
				if err := h.write(conn, data); err != nil {
					h.config.Logger.Printf("Failed to send to client: %v", err)
					h.removeClient(conn)
				}
			}
		}
	}
}

func (h *Hub) write(conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(h.ctx, h.config.WriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

// HandleWebSocket upgrades the request, registers the client, queues the
// current list for it and keeps it registered until it disconnects.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.config.OriginPatterns,
	})
	if err != nil {
		h.config.Logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.clientsMu.Lock()
	h.clients[conn] = true
	clientCount := len(h.clients)
	h.clientsMu.Unlock()

	h.config.Logger.Printf("Client connected (total: %d)", clientCount)

	if h.config.Snapshot != nil {
		h.queueSnapshot(r.Context(), conn)
	}

	// The handler must not return before the connection is done.
	h.readLoop(conn)
}

// queueSnapshot queues the current list for conn alone. Lists published
// before the read are already queued ahead of it; later ones follow it.
func (h *Hub) queueSnapshot(ctx context.Context, conn *websocket.Conn) {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	notes, err := h.config.Snapshot(ctx)
	if err != nil {
		h.config.Logger.Printf("Failed to load snapshot: %v", err)
		return
	}
	if notes == nil {
		notes = []note.Note{}
	}
	h.enqueue(outgoing{
		msg: Message{
			Type:      MessageTypeNotesUpdated,
			Timestamp: time.Now(),
			Notes:     notes,
		},
		to: conn,
	})
}

// readLoop keeps the connection alive and detects client disconnects
func (h *Hub) readLoop(conn *websocket.Conn) {
	defer h.removeClient(conn)

	for {
		if _, _, err := conn.Read(h.ctx); err != nil {
			return
		}
	}
}

// removeClient safely removes a client connection
func (h *Hub) removeClient(conn *websocket.Conn) {
	h.clientsMu.Lock()
	if _, exists := h.clients[conn]; exists {
		delete(h.clients, conn)
		clientCount := len(h.clients)
		h.clientsMu.Unlock()

		_ = conn.Close(websocket.StatusNormalClosure, "")
		h.config.Logger.Printf("Client disconnected (total: %d)", clientCount)
	} else {
		h.clientsMu.Unlock()
	}
}

// ClientCount returns the current number of connected clients
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}
