package web

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	football "football-live-tracker"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// Hub pushes the rendered board of each watched competition to its websocket
// clients, re-reading the dashboard every interval and only sending when the
// fragment changed.
type Hub struct {
	reader   DashboardReader
	interval time.Duration
	loc      *time.Location
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[string]map[*websocket.Conn]struct{}
	last    map[string][]byte
}

func NewHub(reader DashboardReader, interval time.Duration, loc *time.Location, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Hub{
		reader:   reader,
		interval: interval,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
		clients:  make(map[string]map[*websocket.Conn]struct{}),
		last:     make(map[string][]byte),
	}
}

// Run refreshes every watched competition until ctx is done, then closes all clients.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case <-ticker.C:
			for _, competition := range h.watched() {
				h.refresh(ctx, competition)
			}
		}
	}
}

// ServeWS upgrades the request and keeps the client subscribed until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, competition string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}

	// New clients get the current board straight away; only the first one
	// for a competition has to read it
	h.mu.Lock()
	current := h.last[competition]
	h.mu.Unlock()
	if current == nil {
		if fragment, err := h.fragment(r.Context(), competition); err == nil {
			current = fragment
		} else {
			h.logger.Warn("Dashboard unavailable for new client", "competition", competition, "error", err)
		}
	}
	h.register(competition, conn, current)
	h.logger.Info("Websocket client connected", "competition", competition, "clients", h.count(competition))

	// Clients only listen; reading is how a disconnect is noticed
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(competition, conn)
}

// register subscribes conn and sends it the board under one lock, so a
// refresh either reaches it afterwards or has already stored a newer board
// that is sent instead.
func (h *Hub) register(competition string, conn *websocket.Conn, fragment []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[competition] == nil {
		h.clients[competition] = make(map[*websocket.Conn]struct{})
	}
	h.clients[competition][conn] = struct{}{}

	if last := h.last[competition]; last != nil {
		fragment = last
	} else if fragment != nil {
		h.last[competition] = fragment
	}
	if fragment != nil {
		h.write(competition, conn, fragment)
	}
}

func (h *Hub) refresh(ctx context.Context, competition string) {
	fragment, err := h.fragment(ctx, competition)
	if err != nil {
		h.logger.Warn("Failed to refresh dashboard", "competition", competition, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if bytes.Equal(h.last[competition], fragment) {
		return
	}
	h.last[competition] = fragment
	for conn := range h.clients[competition] {
		h.write(competition, conn, fragment)
	}
}

func (h *Hub) fragment(ctx context.Context, competition string) ([]byte, error) {
	state, err := h.reader.Dashboard(ctx, competition)
	if err != nil {
		return nil, err
	}
	return renderBoard(football.BuildBoard(state, h.now(), h.loc))
}

// write must be called with h.mu held; gorilla connections allow one writer at a time.
func (h *Hub) write(competition string, conn *websocket.Conn, msg []byte) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		h.logger.Warn("Websocket write failed", "competition", competition, "error", err)
		conn.Close()
		delete(h.clients[competition], conn)
	}
}

func (h *Hub) remove(competition string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn.Close()
	delete(h.clients[competition], conn)
	if len(h.clients[competition]) == 0 {
		delete(h.clients, competition)
		delete(h.last, competition)
	}
}

func (h *Hub) watched() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	competitions := make([]string, 0, len(h.clients))
	for c := range h.clients {
		competitions = append(competitions, c)
	}
	return competitions
}

func (h *Hub) count(competition string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[competition])
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for competition, conns := range h.clients {
		for conn := range conns {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			conn.Close()
		}
		delete(h.clients, competition)
	}
}
