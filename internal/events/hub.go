package events

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"niftacore/internal/mint"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

type subscriber struct {
	conn         *websocket.Conn
	send         chan []byte
	collectionID string
}

// Hub streams mint events to websocket subscribers, optionally filtered by
// collection. Slow subscribers are dropped rather than blocking a mint.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	subs     map[*subscriber]struct{}
}

// NewHub accepts upgrades from allowedOrigins; an empty list accepts any origin.
func NewHub(allowedOrigins []string) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
		subs: make(map[*subscriber]struct{}),
	}
}

// ServeWS upgrades the request and streams events until the peer goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warnf("Websocket upgrade failed: %v", err)
		return
	}

	sub := &subscriber{
		conn:         conn,
		send:         make(chan []byte, sendBufferSize),
		collectionID: r.URL.Query().Get("collection_id"),
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(sub)
	h.readLoop(sub)
}

// readLoop discards client messages and detects disconnects.
func (h *Hub) readLoop(sub *subscriber) {
	defer h.remove(sub)
	sub.conn.SetReadLimit(512)
	sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.send)
	}
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// PublishReceipt broadcasts r to matching subscribers without blocking.
func (h *Hub) PublishReceipt(_ context.Context, r *mint.Receipt) error {
	msg, err := json.Marshal(MintEvent{Type: TypeMintCommitted, Receipt: r})
	if err != nil {
		return err
	}

	var slow []*subscriber
	h.mu.RLock()
	for sub := range h.subs {
		if sub.collectionID != "" && sub.collectionID != r.CollectionID {
			continue
		}
		select {
		case sub.send <- msg:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		logrus.Warnf("Dropping slow websocket subscriber %s", sub.conn.RemoteAddr())
		h.remove(sub)
	}
	return nil
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.send)
	}
}
