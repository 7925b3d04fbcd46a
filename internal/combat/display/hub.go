package display

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"slices"
	"sort"
	"sync"

	"github.com/gorilla/mux"
	"golang.org/x/net/websocket"
)

// DefaultBacklog is how many notifications a battle room replays to a
// spectator who joins late.
const DefaultBacklog = 256

// Hub is a Display that streams notifications to websocket spectators,
// one room per battle.
type Hub struct {
	backlog int
	logger  *log.Logger

	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	events      []Event
	subscribers map[*peer]struct{}
}

type peer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func (p *peer) write(evt Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(evt)
}

// NewHub returns a hub keeping backlog notifications per battle. A nil
// logger discards connection errors.
func NewHub(backlog int, logger *log.Logger) *Hub {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Hub{backlog: backlog, logger: logger, rooms: map[string]*room{}}
}

func (h *Hub) room(battleID string) *room {
	r, ok := h.rooms[battleID]
	if !ok {
		r = &room{subscribers: map[*peer]struct{}{}}
		h.rooms[battleID] = r
	}
	return r
}

// Notify implements Display. Spectators whose connection fails are dropped.
func (h *Hub) Notify(_ context.Context, evt Event) {
	h.mu.Lock()
	r := h.room(evt.BattleID)
	r.events = append(r.events, evt)
	if over := len(r.events) - h.backlog; over > 0 {
		r.events = slices.Delete(r.events, 0, over)
	}
	peers := make([]*peer, 0, len(r.subscribers))
	for p := range r.subscribers {
		peers = append(peers, p)
	}
	h.mu.Unlock()

	for _, p := range peers {
		if err := p.write(evt); err != nil {
			h.logger.Printf("display: drop spectator of battle %s: %v", evt.BattleID, err)
			h.leave(evt.BattleID, p)
		}
	}
}

// join subscribes p and returns the backlog to send first.
func (h *Hub) join(battleID string, p *peer) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.room(battleID)
	r.subscribers[p] = struct{}{}
	return slices.Clone(r.events)
}

func (h *Hub) leave(battleID string, p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[battleID]; ok {
		delete(r.subscribers, p)
	}
}

// Spectators returns the number of connected spectators of a battle.
func (h *Hub) Spectators(battleID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[battleID]; ok {
		return len(r.subscribers)
	}
	return 0
}

// Battles returns the ids of battles that have sent notifications.
func (h *Hub) Battles() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.rooms))
	for id, r := range h.rooms {
		if len(r.events) > 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Backlog returns the retained notifications of a battle.
func (h *Hub) Backlog(battleID string) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[battleID]; ok {
		return slices.Clone(r.events)
	}
	return nil
}

// Handler serves the spectator routes:
//
//	GET /up                     liveness
//	GET /battles                ids of known battles
//	GET /battles/{id}/events    retained notifications
//	GET /battles/{id}/ws        websocket stream, backlog first
func (h *Hub) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/up", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	router.HandleFunc("/battles", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, h.Battles())
	}).Methods(http.MethodGet)
	router.HandleFunc("/battles/{id}/events", func(w http.ResponseWriter, r *http.Request) {
		events := h.Backlog(mux.Vars(r)["id"])
		if events == nil {
			http.Error(w, "battle not found", http.StatusNotFound)
			return
		}
		writeJSON(w, events)
	}).Methods(http.MethodGet)
	router.Handle("/battles/{id}/ws", websocket.Handler(h.serveSpectator)).Methods(http.MethodGet)
	return router
}

func (h *Hub) serveSpectator(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()
	battleID := mux.Vars(conn.Request())["id"]
	p := &peer{encoder: json.NewEncoder(conn)}
	backlog := h.join(battleID, p)
	defer h.leave(battleID, p)

	for _, evt := range backlog {
		if err := p.write(evt); err != nil {
			h.logger.Printf("display: send backlog of battle %s: %v", battleID, err)
			return
		}
	}
	// Spectators only listen; reading detects the close.
	for {
		var discard string
		if err := websocket.Message.Receive(conn, &discard); err != nil {
			if !errors.Is(err, io.EOF) {
				h.logger.Printf("display: spectator of battle %s: %v", battleID, err)
			}
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
