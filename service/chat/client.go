package chat

import (
	"sync"
	"time"

	"github.com/Anuragsahu418/EDUCHAT/logger"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handle is the registry's non-owning reference to one live connection.
// Send must never block; it reports false when the frame was dropped.
type Handle interface {
	ID() string
	Send(frame []byte) bool
}

// Client represents one websocket connection of a user. A user may hold
// several (tabs/devices), each with its own outbound queue consumed by a
// single writer goroutine, so frames reach a connection in push order.
type Client struct {
	ConnID string
	UserID string
	WS     *websocket.Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a new client connection object.
func NewClient(connID, userID string, ws *websocket.Conn, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 256
	}
	return &Client{
		ConnID: connID,
		UserID: userID,
		WS:     ws,
		send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.ConnID }

// Send enqueues a frame; a closed or full connection drops it.
func (c *Client) Send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	case <-c.done:
		return false
	default:
		logger.Debug("send queue full, drop frame", zap.String("conn", c.ConnID), zap.String("user", c.UserID))
		return false
	}
}

// Close stops the writer; safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) Done() <-chan struct{} { return c.done }

// writePump 唯一写协程：业务帧 + 定时 ping；退出时发 Close 并关闭底层连接
func (c *Client) writePump(pingEvery, writeWait time.Duration) {
	ticker := time.NewTicker(pingEvery)
	defer func() {
		ticker.Stop()
		_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.WS.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = c.WS.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Debug("write frame failed", zap.String("conn", c.ConnID), zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.WS.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				logger.Debug("ping failed", zap.String("conn", c.ConnID), zap.Error(err))
				c.Close()
				return
			}
		}
	}
}
