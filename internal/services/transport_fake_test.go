package services

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"chat-broker/internal/models"
)

type frame struct {
	Event   string
	Payload any
}

// recordingTransport keeps rooms like a real transport and records every
// frame each connection would have received.
type recordingTransport struct {
	rooms  map[string][]models.ConnID
	inbox  map[models.ConnID][]frame
	dead   map[models.ConnID]bool
	global []frame
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{
		rooms: make(map[string][]models.ConnID),
		inbox: make(map[models.ConnID][]frame),
		dead:  make(map[models.ConnID]bool),
	}
}

func (t *recordingTransport) EmitTo(conn models.ConnID, event string, payload any) {
	t.inbox[conn] = append(t.inbox[conn], frame{event, payload})
}

func (t *recordingTransport) BroadcastToChannel(channel, event string, payload any, exclude models.ConnID) {
	for _, conn := range t.rooms[channel] {
		if conn != exclude {
			t.EmitTo(conn, event, payload)
		}
	}
}

func (t *recordingTransport) BroadcastGlobal(event string, payload any) {
	t.global = append(t.global, frame{event, payload})
}

func (t *recordingTransport) JoinRoom(conn models.ConnID, channel string) {
	if !slices.Contains(t.rooms[channel], conn) {
		t.rooms[channel] = append(t.rooms[channel], conn)
	}
}

func (t *recordingTransport) LeaveRoom(conn models.ConnID, channel string) {
	room := t.rooms[channel]
	if i := slices.Index(room, conn); i >= 0 {
		t.rooms[channel] = slices.Delete(room, i, i+1)
	}
	if len(t.rooms[channel]) == 0 {
		delete(t.rooms, channel)
	}
}

func (t *recordingTransport) IsLive(conn models.ConnID) bool {
	return !t.dead[conn]
}

// drain returns and forgets everything conn received so far.
func (t *recordingTransport) drain(conn models.ConnID) []frame {
	frames := t.inbox[conn]
	delete(t.inbox, conn)
	return frames
}

func (t *recordingTransport) reset() {
	t.inbox = make(map[models.ConnID][]frame)
	t.global = nil
}

func framesNamed(frames []frame, event string) []frame {
	var out []frame
	for _, f := range frames {
		if f.Event == event {
			out = append(out, f)
		}
	}
	return out
}

func eventNames(frames []frame) []string {
	names := make([]string, len(frames))
	for i, f := range frames {
		names[i] = f.Event
	}
	return names
}

type recordingObserver struct {
	activities []Activity
}

func (o *recordingObserver) Observe(a Activity) {
	o.activities = append(o.activities, a)
}

// steppingClock advances one millisecond per reading.
func steppingClock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}
}

func usernames(members []models.Member) []string {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Username
	}
	return names
}

func newTestCoordinator(t *testing.T, opts ...Option) (*Coordinator, *recordingTransport) {
	t.Helper()
	transport := newRecordingTransport()
	opts = append([]Option{WithClock(steppingClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)))}, opts...)
	return NewCoordinator(transport, opts...), transport
}

func connID(i int) models.ConnID {
	return models.ConnID(fmt.Sprintf("conn-%d", i))
}
