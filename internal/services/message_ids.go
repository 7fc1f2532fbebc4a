package services

import (
	"fmt"
	"time"

	"chat-broker/internal/models"
)

// messageIDs mints message ids from the author's connection and a strictly
// increasing millisecond reading, so two sends in the same millisecond still
// get distinct ids.
type messageIDs struct {
	now  func() time.Time
	last int64
}

func (g *messageIDs) next(conn models.ConnID) (string, time.Time) {
	at := g.now()
	ms := at.UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return fmt.Sprintf("%s-%d", conn, ms), at
}
