package server

import (
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/five82/arenaview/internal/logging"
	"github.com/five82/arenaview/internal/state"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// clientSeq orders clients for broadcast.
var clientSeq atomic.Uint64

// Client pumps messages between one WebSocket connection and the hub.
type Client struct {
	id     string
	seq    uint64
	hub    *Hub
	conn   *websocket.Conn
	send   chan Message
	handle func(Command) Message
}

func newClient(hub *Hub, conn *websocket.Conn, handle func(Command) Message) *Client {
	return &Client{
		id:     uuid.NewString(),
		seq:    clientSeq.Add(1),
		hub:    hub,
		conn:   conn,
		send:   make(chan Message, sendBuffer),
		handle: handle,
	}
}

// ID returns the connection's unique identifier.
func (c *Client) ID() string { return c.id }

func (c *Client) start() {
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Str("client", c.id).Msg("unexpected websocket close")
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.hub.sendTo(c, Message{Type: TypeError, Data: ErrorData{Message: "malformed command"}})
			continue
		}
		if cmd.Type == TypePing {
			c.hub.sendTo(c, Message{Type: TypePong})
			continue
		}
		c.hub.sendTo(c, c.handle(cmd))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	// Snapshots can reach the buffer out of order around join; only newer
	// ones are written.
	var (
		lastUpdate uint64
		wroteSnap  bool
	)

	for {
		select {
		case msg, ok := <-c.send:
			if snap, isSnap := msg.Data.(state.Snapshot); ok && isSnap {
				if wroteSnap && snap.UpdateID <= lastUpdate {
					continue
				}
				lastUpdate, wroteSnap = snap.UpdateID, true
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logging.Error().Err(err).Str("type", msg.Type).Msg("failed to encode websocket message")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
