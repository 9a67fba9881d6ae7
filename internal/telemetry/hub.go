package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/radio-control/rfkd/internal/config"
)

// Event is one telemetry event.
type Event struct {
	ID    int64                  `json:"id,omitempty"`
	Type  string                 `json:"type"`
	Data  map[string]interface{} `json:"data"`
	Topic string                 `json:"topic,omitempty"`
}

// SnapshotFunc returns the state sent to a client when it connects.
type SnapshotFunc func(ctx context.Context) (map[string]interface{}, error)

// Client is one connected event stream.
type Client struct {
	ID     string
	Topic  string
	Events chan Event

	w      http.ResponseWriter
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex // guards w and last
	last   int64
}

func (c *Client) wants(ev Event) bool {
	return c.Topic == "" || ev.Topic == "" || ev.Topic == c.Topic
}

// Hub fans events out to every client.
//
// Lock order: h.mu, then EventBuffer.mu. Client writes happen without h.mu.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	nextID   int64
	buffer   *EventBuffer
	snapshot SnapshotFunc
	cfg      config.TelemetryConfig

	heartbeat *time.Ticker
	stopBeat  chan struct{}

	done chan struct{}
	wg   sync.WaitGroup
}

// NewHub creates a hub.
func NewHub(cfg config.TelemetryConfig) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		buffer:  NewEventBuffer(cfg.EventBufferSize),
		cfg:     cfg,
		done:    make(chan struct{}),
	}
}

// SetSnapshot sets the source of the ready event sent on connect.
func (h *Hub) SetSnapshot(fn SnapshotFunc) {
	h.mu.Lock()
	h.snapshot = fn
	h.mu.Unlock()
}

// Subscribe streams events to w until the request or ctx ends. The "type"
// query parameter restricts the stream to one radio type.
func (h *Hub) Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	lastID := int64(0)
	if s := r.Header.Get("Last-Event-ID"); s != "" {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			lastID = id
		}
	}

	clientCtx, cancel := context.WithCancel(ctx)
	client := &Client{
		ID:     fmt.Sprintf("client_%d", time.Now().UnixNano()),
		Topic:  r.URL.Query().Get("type"),
		Events: make(chan Event, 100),
		w:      w,
		ctx:    clientCtx,
		cancel: cancel,
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	if h.heartbeat == nil {
		h.startHeartbeat()
	}
	h.mu.Unlock()
	defer h.unregister(client.ID)

	if err := h.sendReady(client); err != nil {
		return fmt.Errorf("failed to send ready event: %w", err)
	}
	if lastID > 0 {
		for _, ev := range h.buffer.EventsAfter(lastID) {
			if !client.wants(ev) {
				continue
			}
			if err := client.send(ev); err != nil {
				return fmt.Errorf("failed to replay events: %w", err)
			}
		}
	}

	h.serve(client)
	return nil
}

// Publish assigns the next ID to ev, buffers it and queues it for every
// client. It never blocks. Fan-out happens under h.mu so every client sees
// IDs in order.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	ev.ID = h.nextID
	if ev.Type != "heartbeat" {
		h.buffer.Add(ev)
	}

	for _, c := range h.clients {
		if !c.wants(ev) {
			continue
		}
		select {
		case c.Events <- ev:
		default:
			log.Printf("warning: telemetry: dropping %s event %d for slow client %s", ev.Type, ev.ID, c.ID)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Buffer returns the replay buffer.
func (h *Hub) Buffer() *EventBuffer {
	return h.buffer
}

func (h *Hub) sendReady(c *Client) error {
	h.mu.RLock()
	snapshot := h.snapshot
	h.mu.RUnlock()

	data := map[string]interface{}{}
	if snapshot != nil {
		snap, err := snapshot(c.ctx)
		if err != nil {
			return err
		}
		data["snapshot"] = snap
	}
	return c.send(Event{Type: "ready", Data: data})
}

func (c *Client) send(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ev.ID > 0 {
		// Events queued while a replay was running may already be sent.
		if ev.ID <= c.last {
			return nil
		}
		if _, err := fmt.Fprintf(c.w, "id: %d\n", ev.ID); err != nil {
			return fmt.Errorf("failed to write event ID: %w", err)
		}
		c.last = ev.ID
	}
	if _, err := fmt.Fprintf(c.w, "event: %s\n", ev.Type); err != nil {
		return fmt.Errorf("failed to write event type: %w", err)
	}
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	if _, err := fmt.Fprintf(c.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write event data: %w", err)
	}
	if f, ok := c.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

func (h *Hub) serve(c *Client) {
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-h.done:
			return
		case ev := <-c.Events:
			if err := c.send(ev); err != nil {
				return
			}
		}
	}
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[id]
	if !ok {
		return
	}
	c.cancel()
	delete(h.clients, id)

	if len(h.clients) == 0 && h.heartbeat != nil {
		h.heartbeat.Stop()
		h.heartbeat = nil
		close(h.stopBeat)
		h.stopBeat = nil
	}
}

// startHeartbeat must be called with h.mu held.
func (h *Hub) startHeartbeat() {
	interval := h.cfg.HeartbeatInterval
	if interval <= 0 {
		return
	}
	if j := h.cfg.HeartbeatJitter; j > 0 {
		interval += time.Duration(rand.Int63n(int64(j)))
	}

	ticker := time.NewTicker(interval)
	stop := make(chan struct{})
	h.heartbeat = ticker
	h.stopBeat = stop

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for {
			select {
			case <-ticker.C:
				h.Publish(Event{
					Type: "heartbeat",
					Data: map[string]interface{}{"ts": time.Now().UTC().Format(time.RFC3339)},
				})
			case <-stop:
				return
			case <-h.done:
				return
			}
		}
	}()
}

// Stop disconnects every client and waits for the heartbeat to end.
func (h *Hub) Stop() {
	h.mu.Lock()
	select {
	case <-h.done:
		h.mu.Unlock()
		return
	default:
	}
	close(h.done)
	for _, c := range h.clients {
		c.cancel()
	}
	if h.heartbeat != nil {
		h.heartbeat.Stop()
		h.heartbeat = nil
	}
	h.mu.Unlock()

	h.wg.Wait()
}

// EventBuffer keeps the most recent events for replay.
type EventBuffer struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
}

// NewEventBuffer returns a buffer holding up to capacity events.
func NewEventBuffer(capacity int) *EventBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &EventBuffer{
		events:   make([]Event, 0, capacity),
		capacity: capacity,
	}
}

// Add appends ev, evicting the oldest event when full.
func (b *EventBuffer) Add(ev Event) {
	if b.capacity == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.events) == b.capacity {
		copy(b.events, b.events[1:])
		b.events = b.events[:len(b.events)-1]
	}
	b.events = append(b.events, ev)
}

// EventsAfter returns the buffered events with an ID above lastID.
func (b *EventBuffer) EventsAfter(lastID int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Event
	for _, ev := range b.events {
		if ev.ID > lastID {
			out = append(out, ev)
		}
	}
	return out
}

// Capacity returns the buffer capacity.
func (b *EventBuffer) Capacity() int {
	return b.capacity
}

// Len returns the number of buffered events.
func (b *EventBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.events)
}
