package database

import (
	"context"
	"fmt"
	"time"

	"chat-broker/internal/services"
	"chat-broker/pkg/logger"
)

const writeTimeout = 5 * time.Second

const (
	insertSession     = `INSERT INTO broker_sessions (conn_id, username, connected_at) VALUES ($1, $2, $3) ON CONFLICT (conn_id) DO UPDATE SET username = EXCLUDED.username`
	closeSession      = `UPDATE broker_sessions SET disconnected_at = $2 WHERE conn_id = $1 AND disconnected_at IS NULL`
	insertMessage     = `INSERT INTO broker_messages (id, channel, username, body, sent_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`
	updateMessageBody = `UPDATE broker_messages SET body = $2, edited_at = $3 WHERE id = $1`
	markMessageGone   = `UPDATE broker_messages SET deleted_at = $2 WHERE id = $1`
)

// Journal appends successful session and message activity to Postgres. It
// never blocks the dispatch goroutine: entries that do not fit in the queue
// are dropped and reported through onDrop.
type Journal struct {
	db     Execer
	queue  chan services.Activity
	done   chan struct{}
	onDrop func()
}

func NewJournal(db Execer, buffer int, onDrop func()) *Journal {
	if onDrop == nil {
		onDrop = func() {}
	}
	j := &Journal{
		db:     db,
		queue:  make(chan services.Activity, buffer),
		done:   make(chan struct{}),
		onDrop: onDrop,
	}
	go j.run()
	return j
}

func (j *Journal) Observe(a services.Activity) {
	if a.Err != nil || !journaled(a.Event) {
		return
	}
	select {
	case j.queue <- a:
	default:
		j.onDrop()
		logger.Warn("journal queue full, dropping entry", "event", a.Event, "conn_id", a.ConnID)
	}
}

func journaled(event string) bool {
	switch event {
	case "connect", "disconnect", "send_message", "edit_message", "delete_message":
		return true
	}
	return false
}

// Close stops accepting entries and waits for the queue to drain. Observe
// must not be called after Close.
func (j *Journal) Close(ctx context.Context) error {
	close(j.queue)
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("journal drain: %w", ctx.Err())
	}
}

func (j *Journal) run() {
	defer close(j.done)
	for a := range j.queue {
		if err := j.write(a); err != nil {
			logger.Error("journal write failed", "event", a.Event, "conn_id", a.ConnID, "error", err)
		}
	}
}

func (j *Journal) write(a services.Activity) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var err error
	switch a.Event {
	case "connect":
		_, err = j.db.Exec(ctx, insertSession, string(a.ConnID), a.Username, a.At)
	case "disconnect":
		_, err = j.db.Exec(ctx, closeSession, string(a.ConnID), a.At)
	case "send_message":
		_, err = j.db.Exec(ctx, insertMessage, a.MessageID, a.Channel, a.Username, a.Text, a.At)
	case "edit_message":
		_, err = j.db.Exec(ctx, updateMessageBody, a.MessageID, a.Text, a.At)
	case "delete_message":
		_, err = j.db.Exec(ctx, markMessageGone, a.MessageID, a.At)
	}
	return err
}
