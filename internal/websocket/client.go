package websocket

import (
	"errors"
	"time"

	"chat-broker/internal/models"
	"chat-broker/pkg/logger"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Client is one websocket connection. Its send queue is written only by the
// hub and drained only by writePump.
type Client struct {
	id      models.ConnID
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
	remote  string
}

func (c *Client) ID() models.ConnID {
	return c.id
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			switch {
			case errors.Is(err, websocket.ErrReadLimit):
				logger.Warn("frame exceeded read limit", "conn_id", c.id, "limit", c.hub.cfg.MaxMessageSize)
			case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure):
				logger.Error("websocket read error", "conn_id", c.id, "error", err)
			}
			return
		}

		if !c.limiter.Allow() {
			c.hub.counters.RateLimited()
			logger.Warn("rate limit exceeded, dropping frame", "conn_id", c.id)
			continue
		}

		frame, err := decodeInbound(raw)
		select {
		case c.hub.inbound <- inboundFrame{client: c, frame: frame, err: err}:
		case <-c.hub.done:
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.writeBatch(msg); err != nil {
				logger.Debug("websocket write error", "conn_id", c.id, "error", err)
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

// writeBatch writes msg and whatever else is already queued as one text
// message, one JSON frame per line.
func (c *Client) writeBatch(msg []byte) error {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}

	n := len(c.send)
	for i := 0; i < n; i++ {
		next, ok := <-c.send
		if !ok {
			break
		}
		if _, err := w.Write([]byte{'\n'}); err != nil {
			return err
		}
		if _, err := w.Write(next); err != nil {
			return err
		}
	}
	return w.Close()
}
