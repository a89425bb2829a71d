package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// ringSize is the number of recent events kept for Last-Event-ID replay.
	ringSize = 256

	streamKeepalive = 15 * time.Second
)

type streamEvent struct {
	ID    uint64
	Topic string
	Data  []byte
}

// eventHub fans run events out to connected stream clients and keeps a
// ring of recent events for reconnecting clients.
type eventHub struct {
	mu      sync.RWMutex
	clients map[*streamClient]struct{}
	nextID  atomic.Uint64

	ringMu  sync.RWMutex
	ring    [ringSize]streamEvent
	ringPos int
	ringLen int
}

type streamClient struct {
	topics []string // NATS-style patterns; empty matches everything
	ch     chan *streamEvent
}

func newEventHub() *eventHub {
	return &eventHub{clients: make(map[*streamClient]struct{})}
}

func (h *eventHub) broadcast(topic string, payload []byte) {
	evt := &streamEvent{ID: h.nextID.Add(1), Topic: topic, Data: payload}

	h.ringMu.Lock()
	h.ring[h.ringPos] = *evt
	h.ringPos = (h.ringPos + 1) % ringSize
	if h.ringLen < ringSize {
		h.ringLen++
	}
	h.ringMu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.matches(topic) {
			continue
		}
		select {
		case c.ch <- evt:
		default:
			// Slow clients lose events rather than stall a run.
		}
	}
}

func (h *eventHub) subscribe(topics []string) *streamClient {
	c := &streamClient{topics: topics, ch: make(chan *streamEvent, 64)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *eventHub) unsubscribe(c *streamClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// since returns buffered events newer than lastID, oldest first.
func (h *eventHub) since(lastID uint64) []*streamEvent {
	h.ringMu.RLock()
	defer h.ringMu.RUnlock()

	var out []*streamEvent
	start := (h.ringPos - h.ringLen + ringSize) % ringSize
	for i := range h.ringLen {
		evt := h.ring[(start+i)%ringSize]
		if evt.ID > lastID {
			out = append(out, &evt)
		}
	}
	return out
}

func (c *streamClient) matches(topic string) bool {
	if len(c.topics) == 0 {
		return true
	}
	for _, p := range c.topics {
		if matchSubject(p, topic) {
			return true
		}
	}
	return false
}

// matchSubject matches a dot-separated subject against a pattern where "*"
// is one token and a trailing ">" is one or more tokens.
func matchSubject(pattern, subject string) bool {
	if pattern == subject {
		return true
	}
	pat := strings.Split(pattern, ".")
	sub := strings.Split(subject, ".")
	for i, p := range pat {
		if p == ">" {
			return i < len(sub)
		}
		if i >= len(sub) || (p != "*" && p != sub[i]) {
			return false
		}
	}
	return len(pat) == len(sub)
}

// handleEventStream handles GET /v1/events/stream.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var topics []string
	for _, t := range strings.Split(r.URL.Query().Get("topics"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}

	client := s.hub.subscribe(topics)
	defer s.hub.unsubscribe(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if v := r.Header.Get("Last-Event-ID"); v != "" {
		if lastID, err := strconv.ParseUint(v, 10, 64); err == nil {
			for _, evt := range s.hub.since(lastID) {
				if client.matches(evt.Topic) {
					writeStreamEvent(w, evt)
				}
			}
			flusher.Flush()
		}
	}

	keepalive := time.NewTicker(streamKeepalive)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-client.ch:
			writeStreamEvent(w, evt)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeStreamEvent(w http.ResponseWriter, evt *streamEvent) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", evt.ID, evt.Topic, evt.Data)
}
