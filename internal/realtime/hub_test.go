package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/notetugas/tugas/internal/note"
)

func testNotes(ids ...string) []note.Note {
	notes := make([]note.Note, len(ids))
	for i, id := range ids {
		notes[i] = note.Note{
			ID:       id,
			Subject:  "Subject " + id,
			Deadline: note.NewDeadline(time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC)),
			Status:   note.StatusPending,
		}
	}
	return notes
}

// setupHub starts a hub behind an httptest server.
func setupHub(t *testing.T, config *Config) (*Hub, string) {
	t.Helper()

	if config.Logger == nil {
		config.Logger = log.New(io.Discard, "", 0)
	}
	hub := NewHub(config)
	hub.Start()

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		hub.Stop()
		server.Close()
	})

	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	return msg
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", hub.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_SnapshotOnConnect(t *testing.T) {
	_, url := setupHub(t, &Config{
		Snapshot: func(ctx context.Context) ([]note.Note, error) {
			return testNotes("a", "b"), nil
		},
	})

	conn := dial(t, url)
	msg := readMessage(t, conn)

	if msg.Type != MessageTypeNotesUpdated {
		t.Errorf("Type = %s, want notes_updated", msg.Type)
	}
	if len(msg.Notes) != 2 || msg.Notes[0].ID != "a" {
		t.Errorf("Notes = %v, want [a b]", msg.Notes)
	}
}

// TestHub_RefreshDuringSnapshot publishes a newer list while a new client's
// snapshot is being read. The client must end up with the newer list.
func TestHub_RefreshDuringSnapshot(t *testing.T) {
	var (
		mu      sync.Mutex
		current = testNotes("a")
	)
	var hub *Hub
	refreshed := make(chan struct{})
	refresh := func() {
		mu.Lock()
		current = testNotes("a", "b")
		notes, h := current, hub
		mu.Unlock()
		h.NotesChanged(notes)
		close(refreshed)
	}

	h, url := setupHub(t, &Config{
		Snapshot: func(ctx context.Context) ([]note.Note, error) {
			mu.Lock()
			notes := current
			mu.Unlock()

			go refresh()
			select {
			case <-refreshed:
			case <-time.After(50 * time.Millisecond):
			}
			return notes, nil
		},
	})
	mu.Lock()
	hub = h
	mu.Unlock()

	conn := dial(t, url)

	first := readMessage(t, conn)
	if len(first.Notes) != 1 {
		t.Fatalf("first message has %d notes, want the 1-note snapshot", len(first.Notes))
	}
	second := readMessage(t, conn)
	if len(second.Notes) != 2 {
		t.Errorf("second message has %d notes, want the refreshed list of 2", len(second.Notes))
	}
}

func TestHub_SnapshotErrorStillConnects(t *testing.T) {
	hub, url := setupHub(t, &Config{
		Snapshot: func(ctx context.Context) ([]note.Note, error) {
			return nil, errors.New("cache closed")
		},
	})

	conn := dial(t, url)
	waitForClients(t, hub, 1)

	hub.NotesChanged(testNotes("x"))
	msg := readMessage(t, conn)
	if len(msg.Notes) != 1 || msg.Notes[0].ID != "x" {
		t.Errorf("Notes = %v, want [x]", msg.Notes)
	}
}

func TestHub_BroadcastFullList(t *testing.T) {
	hub, url := setupHub(t, &Config{})

	first := dial(t, url)
	second := dial(t, url)
	waitForClients(t, hub, 2)

	hub.NotesChanged(testNotes("a", "b", "c"))

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		if msg.Type != MessageTypeNotesUpdated {
			t.Errorf("Type = %s, want notes_updated", msg.Type)
		}
		if len(msg.Notes) != 3 {
			t.Errorf("got %d notes, want 3", len(msg.Notes))
		}
		if msg.Timestamp.IsZero() {
			t.Error("Timestamp not set")
		}
	}
}

func TestHub_EmptyListEncodesAsArray(t *testing.T) {
	hub, url := setupHub(t, &Config{})
	conn := dial(t, url)
	waitForClients(t, hub, 1)

	hub.NotesChanged(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if !strings.Contains(string(data), `"notes":[]`) {
		t.Errorf("message %s does not carry an empty notes array", data)
	}
}

func TestHub_ClientDisconnect(t *testing.T) {
	hub, url := setupHub(t, &Config{})

	conn := dial(t, url)
	waitForClients(t, hub, 1)

	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	waitForClients(t, hub, 0)
}

func TestHub_DropsOldestWhenFull(t *testing.T) {
	// Not started, so nothing drains the queue.
	hub := NewHub(&Config{BufferSize: 2, Logger: log.New(io.Discard, "", 0)})
	defer hub.Stop()

	hub.NotesChanged(testNotes("1"))
	hub.NotesChanged(testNotes("2"))
	hub.NotesChanged(testNotes("3"))

	if got := len(hub.broadcast); got != 2 {
		t.Fatalf("queue length = %d, want 2", got)
	}
	first := <-hub.broadcast
	second := <-hub.broadcast
	if first.msg.Notes[0].ID != "2" || second.msg.Notes[0].ID != "3" {
		t.Errorf("queued lists = [%s %s], want [2 3]", first.msg.Notes[0].ID, second.msg.Notes[0].ID)
	}
}

func TestHub_BroadcastAfterStopIsNoop(t *testing.T) {
	hub := NewHub(&Config{Logger: log.New(io.Discard, "", 0)})
	hub.Start()
	hub.Stop()

	done := make(chan struct{})
	go func() {
		hub.NotesChanged(testNotes("a"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("NotesChanged() blocked after Stop()")
	}
}
