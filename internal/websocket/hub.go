package websocket

import (
	"context"
	"errors"

	"chat-broker/internal/config"
	"chat-broker/internal/models"
	"chat-broker/internal/services"
	"chat-broker/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

var ErrHubClosed = errors.New("hub is closed")

// Dispatcher is the broker core the hub feeds. It is only ever called from
// the hub's dispatch goroutine.
type Dispatcher interface {
	Handle(conn models.ConnID, cmd services.Command) error
	Disconnect(conn models.ConnID)
}

// Counters receives transport-level events worth counting.
type Counters interface {
	FrameDropped()
	RateLimited()
}

type nopCounters struct{}

func (nopCounters) FrameDropped() {}
func (nopCounters) RateLimited()  {}

type inboundFrame struct {
	client *Client
	frame  Inbound
	err    error
}

// Hub owns every connection and room. All of its state is confined to the
// goroutine running Run, which is also where the dispatcher executes, so the
// broker core needs no locks.
type Hub struct {
	clients map[models.ConnID]*Client
	rooms   map[string]map[models.ConnID]struct{}
	slow    map[models.ConnID]struct{}

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundFrame
	tasks      chan func()
	done       chan struct{}

	dispatcher Dispatcher
	counters   Counters
	cfg        config.BrokerConfig
}

func NewHub(cfg config.BrokerConfig, counters Counters) *Hub {
	if counters == nil {
		counters = nopCounters{}
	}
	return &Hub{
		clients:    make(map[models.ConnID]*Client),
		rooms:      make(map[string]map[models.ConnID]struct{}),
		slow:       make(map[models.ConnID]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundFrame),
		tasks:      make(chan func()),
		done:       make(chan struct{}),
		counters:   counters,
		cfg:        cfg,
	}
}

// Run is the dispatch loop. It returns once ctx is cancelled, after closing
// every client's send queue.
func (h *Hub) Run(ctx context.Context, d Dispatcher) {
	h.dispatcher = d
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for id, client := range h.clients {
				close(client.send)
				delete(h.clients, id)
			}
			logger.Info("hub stopped")
			return

		case client := <-h.register:
			h.clients[client.id] = client
			logger.Debug("client registered", "conn_id", client.id, "remote", client.remote, "clients", len(h.clients))

		case client := <-h.unregister:
			h.remove(client.id)

		case in := <-h.inbound:
			if _, ok := h.clients[in.client.id]; ok {
				h.dispatch(in)
			}

		case task := <-h.tasks:
			task()
		}
		h.evictSlow()
	}
}

// Done is closed when Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Do runs fn on the dispatch goroutine and waits for it to finish.
func (h *Hub) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	task := func() {
		fn()
		close(finished)
	}

	select {
	case h.tasks <- task:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubClosed
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Serve takes ownership of an upgraded connection and starts its pumps.
func (h *Hub) Serve(conn *websocket.Conn, remote string) (models.ConnID, error) {
	client := &Client{
		id:      models.ConnID(uuid.NewString()),
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, h.cfg.SendBuffer),
		limiter: rate.NewLimiter(rate.Limit(h.cfg.RateLimitPerSecond), h.cfg.RateLimitBurst),
		remote:  remote,
	}
	conn.SetReadLimit(h.cfg.MaxMessageSize)

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return "", ErrHubClosed
	}

	go client.writePump()
	go client.readPump()
	return client.id, nil
}

func (h *Hub) dispatch(in inboundFrame) {
	conn := in.client.id
	if in.err != nil {
		h.reply(conn, in.frame.Ack, in.err)
		return
	}

	cmd, err := services.DecodeCommand(in.frame.Event, in.frame.Data)
	if err != nil {
		logger.Debug("rejected frame", "conn_id", conn, "event", in.frame.Event, "error", err)
		h.reply(conn, in.frame.Ack, err)
		return
	}

	err = h.dispatcher.Handle(conn, cmd)
	if !services.WantsAck(cmd) {
		return
	}
	if in.frame.Ack != nil {
		h.sendAck(conn, *in.frame.Ack, err)
	} else if err != nil {
		h.EmitTo(conn, models.EventError, models.ErrorPayload{Message: err.Error()})
	}
}

// reply reports a frame-level failure as an ack when the client asked for
// one, otherwise as an error event.
func (h *Hub) reply(conn models.ConnID, ack *int64, err error) {
	if ack != nil {
		h.sendAck(conn, *ack, err)
		return
	}
	h.EmitTo(conn, models.EventError, models.ErrorPayload{Message: err.Error()})
}

func (h *Hub) sendAck(conn models.ConnID, id int64, err error) {
	frame, encErr := encodeAck(id, err)
	if encErr != nil {
		logger.Error("failed to encode ack", "conn_id", conn, "error", encErr)
		return
	}
	if client, ok := h.clients[conn]; ok {
		h.enqueue(client, frame)
	}
}

// remove drops a connection, runs the broker's disconnect handling and
// clears any room it was still listed in.
func (h *Hub) remove(id models.ConnID) {
	client, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	delete(h.slow, id)
	close(client.send)

	h.dispatcher.Disconnect(id)
	for name, room := range h.rooms {
		delete(room, id)
		if len(room) == 0 {
			delete(h.rooms, name)
		}
	}
	logger.Debug("client unregistered", "conn_id", id, "clients", len(h.clients))
}

// evictSlow disconnects clients whose send queue overflowed. Disconnecting
// one can overflow another, so it loops until nothing is pending.
func (h *Hub) evictSlow() {
	for len(h.slow) > 0 {
		for id := range h.slow {
			delete(h.slow, id)
			logger.Warn("evicting slow client", "conn_id", id)
			h.remove(id)
		}
	}
}

func (h *Hub) enqueue(client *Client, frame []byte) {
	if _, pending := h.slow[client.id]; pending {
		return
	}
	select {
	case client.send <- frame:
	default:
		h.slow[client.id] = struct{}{}
		h.counters.FrameDropped()
	}
}

func (h *Hub) encode(event string, payload any) ([]byte, bool) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		logger.Error("failed to encode frame", "event", event, "error", err)
		return nil, false
	}
	return frame, true
}

func (h *Hub) EmitTo(conn models.ConnID, event string, payload any) {
	client, ok := h.clients[conn]
	if !ok {
		return
	}
	if frame, ok := h.encode(event, payload); ok {
		h.enqueue(client, frame)
	}
}

func (h *Hub) BroadcastToChannel(channel, event string, payload any, exclude models.ConnID) {
	room := h.rooms[channel]
	if len(room) == 0 {
		return
	}
	frame, ok := h.encode(event, payload)
	if !ok {
		return
	}
	for id := range room {
		if id == exclude {
			continue
		}
		if client, ok := h.clients[id]; ok {
			h.enqueue(client, frame)
		}
	}
}

func (h *Hub) BroadcastGlobal(event string, payload any) {
	frame, ok := h.encode(event, payload)
	if !ok {
		return
	}
	for _, client := range h.clients {
		h.enqueue(client, frame)
	}
}

func (h *Hub) JoinRoom(conn models.ConnID, channel string) {
	if _, ok := h.clients[conn]; !ok {
		return
	}
	room, ok := h.rooms[channel]
	if !ok {
		room = make(map[models.ConnID]struct{})
		h.rooms[channel] = room
	}
	room[conn] = struct{}{}
}

func (h *Hub) LeaveRoom(conn models.ConnID, channel string) {
	room, ok := h.rooms[channel]
	if !ok {
		return
	}
	delete(room, conn)
	if len(room) == 0 {
		delete(h.rooms, channel)
	}
}

// IsLive reports whether conn still has an open socket.
func (h *Hub) IsLive(conn models.ConnID) bool {
	_, ok := h.clients[conn]
	return ok
}

// ConnectionCount must be called on the dispatch goroutine, e.g. inside Do.
func (h *Hub) ConnectionCount() int {
	return len(h.clients)
}
