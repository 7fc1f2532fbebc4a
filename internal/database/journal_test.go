package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chat-broker/internal/services"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

type fakeExecer struct {
	mu    sync.Mutex
	calls []execCall
	err   error
	gate  chan struct{}
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func (f *fakeExecer) recorded() []execCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]execCall(nil), f.calls...)
}

func TestJournal_WritesActivity(t *testing.T) {
	db := &fakeExecer{}
	j := NewJournal(db, 16, nil)
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

	j.Observe(services.Activity{Event: "connect", ConnID: "c1", Username: "alice", At: at})
	j.Observe(services.Activity{Event: "join_channel", ConnID: "c1", Username: "alice", Channel: "general", At: at})
	j.Observe(services.Activity{Event: "send_message", ConnID: "c1", Username: "alice", Channel: "general", MessageID: "c1-1", Text: "hi", At: at})
	j.Observe(services.Activity{Event: "edit_message", ConnID: "c1", MessageID: "c1-1", Text: "hey", At: at})
	j.Observe(services.Activity{Event: "delete_message", ConnID: "c1", MessageID: "c1-1", Err: errors.New("denied"), At: at})
	j.Observe(services.Activity{Event: "delete_message", ConnID: "c1", MessageID: "c1-1", At: at})
	j.Observe(services.Activity{Event: "disconnect", ConnID: "c1", Username: "alice", At: at})

	require.NoError(t, j.Close(context.Background()))

	calls := db.recorded()
	require.Len(t, calls, 5)
	assert.Equal(t, insertSession, calls[0].sql)
	assert.Equal(t, []any{"c1", "alice", at}, calls[0].args)
	assert.Equal(t, insertMessage, calls[1].sql)
	assert.Equal(t, []any{"c1-1", "general", "alice", "hi", at}, calls[1].args)
	assert.Equal(t, updateMessageBody, calls[2].sql)
	assert.Equal(t, []any{"c1-1", "hey", at}, calls[2].args)
	assert.Equal(t, markMessageGone, calls[3].sql)
	assert.Equal(t, closeSession, calls[4].sql)
}

func TestJournal_DropsWhenQueueFull(t *testing.T) {
	db := &fakeExecer{gate: make(chan struct{})}
	var dropped int
	j := NewJournal(db, 1, func() { dropped++ })

	// the worker takes the first entry and blocks on the gate
	j.Observe(services.Activity{Event: "connect", ConnID: "c1"})
	require.Eventually(t, func() bool { return len(j.queue) == 0 }, time.Second, time.Millisecond)

	j.Observe(services.Activity{Event: "connect", ConnID: "c2"})
	j.Observe(services.Activity{Event: "connect", ConnID: "c3"})
	assert.Equal(t, 1, dropped)

	close(db.gate)
	require.NoError(t, j.Close(context.Background()))
	assert.Len(t, db.recorded(), 2)
}

func TestJournal_WriteErrorsAreNotFatal(t *testing.T) {
	db := &fakeExecer{err: errors.New("connection refused")}
	j := NewJournal(db, 4, nil)

	j.Observe(services.Activity{Event: "connect", ConnID: "c1"})
	j.Observe(services.Activity{Event: "disconnect", ConnID: "c1"})

	require.NoError(t, j.Close(context.Background()))
	assert.Len(t, db.recorded(), 2)
}

func TestJournal_CloseHonoursContext(t *testing.T) {
	db := &fakeExecer{gate: make(chan struct{})}
	defer close(db.gate)
	j := NewJournal(db, 1, nil)
	j.Observe(services.Activity{Event: "connect", ConnID: "c1"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, j.Close(ctx), context.DeadlineExceeded)
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeExecer{}
	require.NoError(t, EnsureSchema(context.Background(), db))
	require.Len(t, db.recorded(), 1)
	assert.Contains(t, db.recorded()[0].sql, "broker_messages")

	failing := &fakeExecer{err: errors.New("boom")}
	assert.Error(t, EnsureSchema(context.Background(), failing))
}
