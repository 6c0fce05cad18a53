package devserver

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
)

// Event names sent to live-reload clients.
const (
	EventChange = "change"
	EventError  = "error"
)

// hub fans build notifications out to connected event-stream clients.
type hub struct {
	mu      sync.Mutex
	clients map[chan string]struct{}
	logger  zerolog.Logger
}

func newHub(logger zerolog.Logger) *hub {
	return &hub{clients: make(map[chan string]struct{}), logger: logger}
}

func (h *hub) subscribe() chan string {
	ch := make(chan string, 4)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *hub) unsubscribe(ch chan string) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// broadcast never blocks; slow clients miss events.
func (h *hub) broadcast(event string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()
	h.logger.Debug().Msg("Live-reload client connected")

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug().Msg("Live-reload client disconnected")
			return
		case event := <-ch:
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
