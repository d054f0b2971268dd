package notify

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// Buffer size for the send channel
	sendBufferSize = 256
)

// hub is the subset of Hub the client needs, kept as an interface so client
// tests don't need a running hub.
type hub interface {
	Register(Subscriber)
	Unregister(Subscriber)
}

// Client is a websocket subscriber on the document event feed. The feed is
// one-way: inbound frames other than control messages are discarded.
type Client struct {
	hub hub

	// The websocket connection
	conn *websocket.Conn

	// Buffered channel of outbound events
	send chan []byte

	// Subscription scope
	id      string
	ownerID string
	scoped  bool

	// Logger
	logger *slog.Logger
}

// NewClient creates a subscriber for the given owner scope. ownerID empty
// with scoped=false subscribes to the legacy, ownerless feed.
func NewClient(h hub, conn *websocket.Conn, ownerID string, scoped bool, logger *slog.Logger) *Client {
	return &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		id:      generateID(),
		ownerID: ownerID,
		scoped:  scoped,
		logger:  logger,
	}
}

// readPump drains the connection so control frames are processed and the
// connection's close is observed. Data frames from the peer are ignored.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket read error",
					slog.String("subscriberID", c.id),
					slog.String("error", err.Error()))
			}
			return
		}
	}
}

// writePump pumps events from the hub to the WebSocket connection
//
// A goroutine running writePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, event); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start registers the client and begins its read and write pumps
func (c *Client) Start() {
	c.hub.Register(c)
	go c.writePump()
	go c.readPump()
}

// Send queues an event to be sent to the client
// Implements the Subscriber interface
func (c *Client) Send(data []byte) {
	select {
	case c.send <- data:
	default:
		// Channel is full, log and skip
		c.logger.Warn("subscriber send buffer full, dropping event",
			slog.String("subscriberID", c.id))
	}
}

// Close closes the client's send channel
// Implements the Subscriber interface
func (c *Client) Close() {
	close(c.send)
}

// ID returns the client's unique identifier
// Implements the Subscriber interface
func (c *Client) ID() string {
	return c.id
}

// Owner returns the subscription scope
// Implements the Subscriber interface
func (c *Client) Owner() (string, bool) {
	return c.ownerID, c.scoped
}

// generateID generates a unique subscriber ID
func generateID() string {
	return fmt.Sprintf("subscriber-%d", time.Now().UnixNano())
}
