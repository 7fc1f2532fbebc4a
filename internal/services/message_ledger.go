package services

import (
	"fmt"
	"time"

	"chat-broker/internal/models"
)

// HistoryLimit is the number of messages a channel keeps.
const HistoryLimit = 20

// Ledger is a channel's bounded, ordered message history. Oldest entries are
// evicted first.
type Ledger struct {
	messages []models.Message
}

// Append adds msg at the tail and evicts from the head past HistoryLimit.
func (l *Ledger) Append(msg models.Message) {
	l.messages = append(l.messages, msg)
	if over := len(l.messages) - HistoryLimit; over > 0 {
		// copy down so the backing array does not grow without bound
		n := copy(l.messages, l.messages[over:])
		clear(l.messages[n:])
		l.messages = l.messages[:n]
	}
}

func (l *Ledger) FindByID(id string) (int, bool) {
	for i := range l.messages {
		if l.messages[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// EditAt replaces the text of the message at index i. Only its author may
// edit it, and the new text must not be empty.
func (l *Ledger) EditAt(i int, newText, requester string, at time.Time) error {
	if i < 0 || i >= len(l.messages) {
		return ErrMessageNotFound
	}
	msg := &l.messages[i]
	if msg.Username != requester {
		return fmt.Errorf("%w: cannot edit others' messages", ErrPermissionDenied)
	}
	if newText == "" {
		return ErrMissingFields
	}
	msg.Text = newText
	msg.Edited = true
	msg.EditedAt = &at
	return nil
}

// DeleteAt removes the message at index i, keeping the order of the rest.
// Only its author may delete it.
func (l *Ledger) DeleteAt(i int, requester string) error {
	if i < 0 || i >= len(l.messages) {
		return ErrMessageNotFound
	}
	if l.messages[i].Username != requester {
		return fmt.Errorf("%w: cannot delete others' messages", ErrPermissionDenied)
	}
	l.messages = append(l.messages[:i], l.messages[i+1:]...)
	return nil
}

func (l *Ledger) Len() int {
	return len(l.messages)
}

// Messages returns a copy of the history, oldest first.
func (l *Ledger) Messages() []models.Message {
	out := make([]models.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

func (l *Ledger) clone() Ledger {
	return Ledger{messages: l.Messages()}
}
