package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/exitguard/exitguard/internal/session"
)

func testHub() *Hub {
	return NewHub(slog.Default())
}

// ---------------------------------------------------------------------------
// shouldSend tests
// ---------------------------------------------------------------------------

func TestShouldSend_AllEvents(t *testing.T) {
	h := testHub()
	client := &Client{sub: Subscription{AllEvents: true}}

	event := &Event{Type: EventSessionUpdate, Timestamp: time.Now()}
	if !h.shouldSend(client, event) {
		t.Error("AllEvents client should receive all events")
	}
}

func TestShouldSend_EventTypeFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		EventTypes: []EventType{EventIntervention, EventConversion},
	}}

	ivEvent := &Event{Type: EventIntervention}
	convEvent := &Event{Type: EventConversion}
	updateEvent := &Event{Type: EventSessionUpdate}

	if !h.shouldSend(client, ivEvent) {
		t.Error("Should receive intervention events")
	}
	if !h.shouldSend(client, convEvent) {
		t.Error("Should receive conversion events")
	}
	if h.shouldSend(client, updateEvent) {
		t.Error("Should NOT receive session_update events")
	}
}

func TestShouldSend_SessionFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		SessionIDs: []string{"sess_1"},
	}}

	matching := &Event{
		Type: EventSessionUpdate,
		Data: map[string]interface{}{"session_id": "sess_1"},
	}
	notMatching := &Event{
		Type: EventSessionUpdate,
		Data: map[string]interface{}{"session_id": "sess_2"},
	}

	if !h.shouldSend(client, matching) {
		t.Error("Should match on session id")
	}
	if h.shouldSend(client, notMatching) {
		t.Error("Should NOT match unrelated sessions")
	}
}

func TestShouldSend_ZoneFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		Zones: []string{"red"},
	}}

	red := &Event{
		Type: EventSessionUpdate,
		Data: map[string]interface{}{"risk_zone": "red"},
	}
	green := &Event{
		Type: EventSessionUpdate,
		Data: map[string]interface{}{"risk_zone": "green"},
	}

	if !h.shouldSend(client, red) {
		t.Error("Should receive red-zone updates")
	}
	if h.shouldSend(client, green) {
		t.Error("Should NOT receive green-zone updates")
	}
}

func TestShouldSend_MinRiskScoreFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		MinRiskScore: 50,
	}}

	high := &Event{
		Type: EventSessionUpdate,
		Data: map[string]interface{}{"risk_score": 75.0},
	}
	low := &Event{
		Type: EventSessionUpdate,
		Data: map[string]interface{}{"risk_score": 20.0},
	}

	if !h.shouldSend(client, high) {
		t.Error("Should receive high-risk updates")
	}
	if h.shouldSend(client, low) {
		t.Error("Should NOT receive low-risk updates")
	}
}

func TestShouldSend_EmptySubscription(t *testing.T) {
	h := testHub()

	// No filters, not AllEvents
	client := &Client{sub: Subscription{}}

	event := &Event{Type: EventSessionUpdate}
	if !h.shouldSend(client, event) {
		t.Error("Empty subscription (no filters) should receive events")
	}
}

func TestShouldSend_NonMapData(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		MinRiskScore: 50,
	}}

	// Event with non-map data should not crash
	event := &Event{
		Type: EventSessionUpdate,
		Data: "string data not a map",
	}

	// Score filter skips non-map data (can't extract the score), so event passes through
	if !h.shouldSend(client, event) {
		t.Error("Non-map data should pass through when score filter can't extract a score")
	}
}

// ---------------------------------------------------------------------------
// Hub lifecycle tests
// ---------------------------------------------------------------------------

func TestHub_Stats_Initial(t *testing.T) {
	h := testHub()

	stats := h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients, got %v", stats["connectedClients"])
	}
	if stats["totalEvents"].(int64) != 0 {
		t.Errorf("Expected 0 total events, got %v", stats["totalEvents"])
	}
}

func TestHub_BroadcastAndStats(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Broadcast an event
	h.Broadcast(&Event{Type: EventSessionUpdate, Timestamp: time.Now()})
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["totalEvents"].(int64) != 1 {
		t.Errorf("Expected 1 total event, got %v", stats["totalEvents"])
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["connectedClients"].(int) != 1 {
		t.Errorf("Expected 1 connected client, got %v", stats["connectedClients"])
	}
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak 1, got %v", stats["peakClients"])
	}

	h.unregister <- client
	time.Sleep(50 * time.Millisecond)

	stats = h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients after unregister, got %v", stats["connectedClients"])
	}
	// Peak should still be 1
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak still 1, got %v", stats["peakClients"])
	}
}

func TestHub_BroadcastToClient(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	h.PublishSessionUpdate(&session.Session{
		ID:        "sess_1",
		Mood:      "frustrated",
		RiskScore: 72,
		Zone:      "red",
	})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for broadcast")
	}
}

func TestHub_ContextCancellation(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
		// Hub stopped
	case <-time.After(2 * time.Second):
		t.Error("Hub did not stop after context cancellation")
	}
}

func TestHub_ClientDisconnectAfterShutdown(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.HandleWebSocket(w, r)
	}))
	defer srv.Close()

	baseline := runtime.NumGoroutine()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	// Stop the hub while the client is still connected, then disconnect.
	// The client's pump goroutines must exit even though nobody receives
	// on the unregister channel anymore.
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Hub did not stop after context cancellation")
	}
	_ = conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= baseline {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("goroutines did not drain after shutdown: baseline %d, now %d",
		baseline, runtime.NumGoroutine())
}

func TestHub_FilteredBroadcast(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Client only wants interventions
	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{EventTypes: []EventType{EventIntervention}},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	// Send a session update (should be filtered out)
	h.Broadcast(&Event{Type: EventSessionUpdate, Timestamp: time.Now()})
	time.Sleep(100 * time.Millisecond)

	select {
	case <-client.send:
		t.Error("Client should NOT receive session_update event")
	default:
		// Good - filtered out
	}

	// Send an intervention event (should be received)
	h.Broadcast(&Event{Type: EventIntervention, Timestamp: time.Now()})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Client should receive intervention event")
	}
}
