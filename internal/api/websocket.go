package api

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"gridlock/internal/game"
	"gridlock/internal/logging"
	"gridlock/internal/protocol"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	maxIDLength    = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// stateFrame is one committed snapshot, serialized once by the hub and
// shared by every client's mailbox. It copies everything it needs out of
// the snapshot up front: the engine's pool recycles snapshot slots, so no
// pointer into one may sit in a mailbox across ticks.
type stateFrame struct {
	data []byte
	tick uint64
	ids  []string
}

func newStateFrame(snap *game.WorldSnapshot) (*stateFrame, error) {
	data, err := protocol.EncodeState(snap)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(snap.Players))
	for i := range snap.Players {
		ids[i] = snap.Players[i].ID
	}
	return &stateFrame{data: data, tick: snap.Tick, ids: ids}, nil
}

// Hub is the connection manager and state broadcaster. It owns the client
// set on its own goroutine; the engine hands it committed snapshots through
// a capacity-1 notify channel, so a busy hub can never stall the tick loop.
type Hub struct {
	engine *game.Engine

	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	notify     chan struct{}

	stopChan chan struct{}
	stopOnce sync.Once

	connCount   atomic.Int32
	maxConns    int
	connLimiter *ConnLimiter
}

// NewHub creates a hub. Run must be called before clients connect.
func NewHub(engine *game.Engine, maxConns, connsPerIP int) *Hub {
	return &Hub{
		engine:      engine,
		clients:     make(map[*client]struct{}),
		register:    make(chan *client),
		unregister:  make(chan *client),
		notify:      make(chan struct{}, 1),
		stopChan:    make(chan struct{}),
		maxConns:    maxConns,
		connLimiter: NewConnLimiter(connsPerIP),
	}
}

// Publish signals that a new snapshot was committed. Called on the engine
// goroutine; never blocks. A pending signal already covers the newer
// snapshot, since the hub always reads the latest one.
func (h *Hub) Publish(snap *game.WorldSnapshot) {
	UpdatePlayerCounts(snap.PlayerCount, snap.AliveCount)
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// Run processes registrations and snapshot fan-out until Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.stopChan:
			for c := range h.clients {
				c.close()
			}
			clear(h.clients)
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.connCount.Store(int32(len(h.clients)))
			UpdateWSConnections(len(h.clients))
			logging.Log.Infof("client connected: id=%s ip=%s (%d total)", c.id, c.ip, len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.close()
			}
			h.connCount.Store(int32(len(h.clients)))
			UpdateWSConnections(len(h.clients))
			logging.Log.Infof("client disconnected: id=%s (%d remaining)", c.id, len(h.clients))

		case <-h.notify:
			frame, err := newStateFrame(h.engine.Snapshot())
			if err != nil {
				continue
			}
			for c := range h.clients {
				c.offer(frame)
			}
		}
	}
}

// Stop closes every connection and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.connCount.Load())
}

func (h *Hub) drop(c *client) {
	select {
	case h.unregister <- c:
	case <-h.stopChan:
	}
}

// HandleWS is the websocket handshake: /ws?id=<proposed-id>. The id is
// validated and registered with the engine before the upgrade, so a
// malformed handshake or a duplicate id is refused with no side effects.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if !validPlayerID(id) {
		RecordConnectionRejected("handshake")
		http.Error(w, "missing or malformed id", http.StatusBadRequest)
		return
	}

	if h.ClientCount() >= h.maxConns {
		RecordConnectionRejected("full")
		http.Error(w, "server full", http.StatusServiceUnavailable)
		return
	}

	ip := GetClientIP(r)
	if !h.connLimiter.Allow(ip) {
		RecordConnectionRejected("rate_limit")
		http.Error(w, "too many connections from your address", http.StatusTooManyRequests)
		return
	}

	player, err := h.engine.Join(r.Context(), id)
	if err != nil {
		h.connLimiter.Release(ip)
		switch {
		case errors.Is(err, game.ErrIDInUse):
			RecordConnectionRejected("dup_id")
			http.Error(w, "id already in use", http.StatusConflict)
		case errors.Is(err, game.ErrServerFull):
			RecordConnectionRejected("full")
			http.Error(w, "server full", http.StatusServiceUnavailable)
		default:
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		}
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Log.Warnf("upgrade failed for %s: %v", id, err)
		h.engine.Leave(id)
		h.connLimiter.Release(ip)
		return
	}

	welcome, err := protocol.EncodeWelcome(id, h.engine.Config())
	if err != nil {
		conn.Close()
		h.engine.Leave(id)
		h.connLimiter.Release(ip)
		return
	}

	c := &client{
		id:      id,
		ip:      ip,
		hub:     h,
		conn:    conn,
		mailbox: make(chan *stateFrame, 1),
		welcome: welcome,
		done:    make(chan struct{}),
	}

	select {
	case h.register <- c:
	case <-h.stopChan:
		conn.Close()
		h.engine.Leave(id)
		h.connLimiter.Release(ip)
		return
	}

	logging.Log.Infof("player %s spawned at (%d,%d)", id, player.X, player.Y)

	go c.writePump()
	go c.readPump()
}

func validPlayerID(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		ch := id[i]
		switch {
		case ch >= 'a' && ch <= 'z':
		case ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9':
		case ch == '_' || ch == '-':
		default:
			return false
		}
	}
	return true
}

// client is one connected websocket session: a read pump feeding the input
// buffer and a write pump draining a capacity-1 snapshot mailbox.
type client struct {
	id   string
	ip   string
	hub  *Hub
	conn *websocket.Conn

	// mailbox holds at most the single newest undelivered snapshot. A slow
	// consumer drops its own stale snapshot, never a tick.
	mailbox chan *stateFrame
	welcome []byte

	closeOnce sync.Once
	done      chan struct{}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// offer places the frame in the mailbox, replacing an undelivered older one.
func (c *client) offer(f *stateFrame) {
	for {
		select {
		case c.mailbox <- f:
			return
		default:
			select {
			case <-c.mailbox:
				RecordSnapshotDropped()
			default:
			}
		}
	}
}

// writePump delivers the welcome, then snapshots as they arrive. Join and
// leave notifications are derived per client by diffing against the last
// snapshot this client actually received, so membership changes survive
// dropped snapshots.
func (c *client) writePump() {
	defer c.conn.Close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := c.write(websocket.TextMessage, c.welcome); err != nil {
		c.hub.drop(c)
		return
	}

	known := make(map[string]struct{})

	for {
		select {
		case <-c.done:
			return

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.hub.drop(c)
				return
			}

		case frame := <-c.mailbox:
			current := make(map[string]struct{}, len(frame.ids))
			for _, id := range frame.ids {
				current[id] = struct{}{}
			}

			for id := range current {
				if _, ok := known[id]; !ok {
					if err := c.writeMembership(protocol.MsgJoin, id); err != nil {
						c.hub.drop(c)
						return
					}
				}
			}
			for id := range known {
				if _, ok := current[id]; !ok {
					if err := c.writeMembership(protocol.MsgLeave, id); err != nil {
						c.hub.drop(c)
						return
					}
				}
			}
			known = current

			if err := c.write(websocket.TextMessage, frame.data); err != nil {
				c.hub.drop(c)
				return
			}
		}
	}
}

func (c *client) write(messageType int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

func (c *client) writeMembership(msgType, id string) error {
	data, err := protocol.EncodeMembership(msgType, id)
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, data)
}

// readPump feeds validated move intents into the engine. Malformed or
// unrecognized frames are dropped; the connection stays open. The pump
// exiting, for any reason, queues the player's removal.
func (c *client) readPump() {
	defer func() {
		c.hub.drop(c)
		c.hub.engine.Leave(c.id)
		c.hub.connLimiter.Release(c.ip)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		m, err := protocol.DecodeMove(payload)
		if err != nil {
			RecordMalformedMessage()
			continue
		}
		c.hub.engine.OfferInput(c.id, m.Direction)
	}
}
