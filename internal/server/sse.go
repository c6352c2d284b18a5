package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/geotify/internal/coordinator"
	"github.com/alfredjeanlab/geotify/internal/events"
	"github.com/alfredjeanlab/geotify/internal/model"
)

const (
	// replayLimit is how many recent events a reconnecting client can
	// resume from with Last-Event-ID.
	replayLimit = 1000

	streamClientBuffer = 64

	keepaliveInterval = 15 * time.Second
)

type streamEvent struct {
	seq   uint64
	topic string
	data  []byte
}

type streamClient struct {
	filters []string
	out     chan streamEvent
	dropped int // guarded by EventHub.mu
}

func (c *streamClient) wants(topic string) bool {
	if len(c.filters) == 0 {
		return true
	}
	for _, f := range c.filters {
		if topicMatches(f, topic) {
			return true
		}
	}
	return false
}

// EventHub streams coordinator notifications to SSE clients on
// GET /v1/events/stream. It is a coordinator.Observer and
// coordinator.Reporter; register it with the coordinator and pass it to the
// server with WithEventHub.
type EventHub struct {
	logger *slog.Logger

	mu      sync.Mutex
	seq     uint64
	backlog []streamEvent // oldest first, at most replayLimit
	clients map[*streamClient]struct{}
}

var (
	_ coordinator.Observer = (*EventHub)(nil)
	_ coordinator.Reporter = (*EventHub)(nil)
)

func NewEventHub(logger *slog.Logger) *EventHub {
	return &EventHub{logger: logger, clients: make(map[*streamClient]struct{})}
}

func (h *EventHub) GeotificationAdded(g model.Geotification) {
	h.publishEvent(events.TopicGeotificationAdded, events.GeotificationAdded{Geotification: g})
}

func (h *EventHub) GeotificationRemoved(g model.Geotification) {
	h.publishEvent(events.TopicGeotificationRemoved, events.GeotificationRemoved{Geotification: g})
}

func (h *EventHub) Report(r coordinator.Report) {
	h.publishEvent(events.TopicForReport(r.Kind), events.NewMonitoringReport(r))
}

func (h *EventHub) publishEvent(topic string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("sse: marshal event", "topic", topic, "err", err)
		return
	}
	h.publish(topic, payload)
}

// publish assigns the next sequence number to payload, records it for
// replay and hands it to every interested client. A client whose buffer is
// full misses the event.
func (h *EventHub) publish(topic string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	evt := streamEvent{seq: h.seq, topic: topic, data: payload}
	h.backlog = append(h.backlog, evt)
	if n := len(h.backlog) - replayLimit; n > 0 {
		h.backlog = h.backlog[n:]
	}

	for c := range h.clients {
		if !c.wants(topic) {
			continue
		}
		select {
		case c.out <- evt:
		default:
			c.dropped++
		}
	}
}

// attach registers a client. When resume is set, it also returns the
// buffered events after lastSeq that the client wants, so nothing published
// between replay and live delivery is lost.
func (h *EventHub) attach(filters []string, lastSeq uint64, resume bool) (*streamClient, []streamEvent) {
	c := &streamClient{filters: filters, out: make(chan streamEvent, streamClientBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	if !resume {
		return c, nil
	}
	var replay []streamEvent
	for _, evt := range h.backlog {
		if evt.seq > lastSeq && c.wants(evt.topic) {
			replay = append(replay, evt)
		}
	}
	return c, replay
}

// detach unregisters c and returns how many events it missed.
func (h *EventHub) detach(c *streamClient) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	return c.dropped
}

// topicMatches reports whether a dot-separated topic matches pattern, where
// "*" matches one segment and a trailing ">" matches one or more.
func topicMatches(pattern, topic string) bool {
	pat := strings.Split(pattern, ".")
	top := strings.Split(topic, ".")
	for i, p := range pat {
		if p == ">" {
			return i == len(pat)-1 && i < len(top)
		}
		if i >= len(top) || (p != "*" && p != top[i]) {
			return false
		}
	}
	return len(pat) == len(top)
}

func parseTopicFilters(q string) []string {
	var filters []string
	for _, f := range strings.Split(q, ",") {
		if f = strings.TrimSpace(f); f != "" {
			filters = append(filters, f)
		}
	}
	return filters
}

// handleEventStream serves GET /v1/events/stream. The optional topics query
// parameter is a comma-separated list of patterns; Last-Event-ID resumes
// from the replay buffer.
func (s *GeotifyServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	lastSeq, err := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)
	client, replay := s.hub.attach(parseTopicFilters(r.URL.Query().Get("topics")), lastSeq, err == nil)
	defer func() {
		if dropped := s.hub.detach(client); dropped > 0 {
			s.logger.Warn("sse: slow client missed events", "dropped", dropped, "remote", r.RemoteAddr)
		}
	}()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	for _, evt := range replay {
		writeStreamEvent(w, evt)
	}
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-client.out:
			writeStreamEvent(w, evt)
		case <-keepalive.C:
			io.WriteString(w, ":keepalive\n\n")
		}
		flusher.Flush()
	}
}

func writeStreamEvent(w io.Writer, evt streamEvent) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", evt.seq, evt.topic, evt.data)
}
