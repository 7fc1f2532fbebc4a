package services

import (
	"regexp"
	"slices"
	"strings"

	"chat-broker/internal/models"
)

// Channel is a named group of member connections with a bounded history.
type Channel struct {
	Name    string
	History Ledger

	members []models.ConnID
}

func (c *Channel) AddMember(conn models.ConnID) bool {
	if c.HasMember(conn) {
		return false
	}
	c.members = append(c.members, conn)
	return true
}

func (c *Channel) RemoveMember(conn models.ConnID) bool {
	i := slices.Index(c.members, conn)
	if i < 0 {
		return false
	}
	c.members = slices.Delete(c.members, i, i+1)
	return true
}

func (c *Channel) HasMember(conn models.ConnID) bool {
	return slices.Contains(c.members, conn)
}

// Members returns the member connections in join order.
func (c *Channel) Members() []models.ConnID {
	return slices.Clone(c.members)
}

// ChannelStore owns every channel, keyed by exact name and listed in
// creation order.
type ChannelStore struct {
	channels map[string]*Channel
	order    []string
}

func NewChannelStore() *ChannelStore {
	return &ChannelStore{channels: make(map[string]*Channel)}
}

// Ensure returns the named channel, creating an empty one if needed.
func (s *ChannelStore) Ensure(name string) *Channel {
	if ch, ok := s.channels[name]; ok {
		return ch
	}
	ch := &Channel{Name: name}
	s.channels[name] = ch
	s.order = append(s.order, name)
	return ch
}

func (s *ChannelStore) Get(name string) (*Channel, bool) {
	ch, ok := s.channels[name]
	return ch, ok
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeChannelName produces the canonical form of a rename target:
// trimmed, lower-cased, whitespace runs replaced by a hyphen.
func NormalizeChannelName(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// Rename moves a channel to a new normalized name, carrying its members and a
// copy of its history. The renamed channel goes to the end of the listing.
// Callers must re-point the members' users and transport rooms before any
// other event is processed.
func (s *ChannelStore) Rename(oldName, newName string) (*Channel, error) {
	oldName = strings.TrimSpace(oldName)
	if oldName == "" || strings.TrimSpace(newName) == "" || oldName == strings.TrimSpace(newName) {
		return nil, ErrInvalidNames
	}
	target := NormalizeChannelName(newName)

	old, ok := s.channels[oldName]
	if !ok {
		return nil, ErrChannelNotFound
	}
	if _, taken := s.channels[target]; taken {
		return nil, ErrNameTaken
	}

	renamed := &Channel{
		Name:    target,
		History: old.History.clone(),
		members: old.Members(),
	}
	s.channels[target] = renamed
	s.order = append(s.order, target)
	s.delete(oldName)
	return renamed, nil
}

// Remove deletes the channel and returns its former members.
func (s *ChannelStore) Remove(name string) ([]models.ConnID, error) {
	ch, ok := s.channels[name]
	if !ok {
		return nil, ErrChannelNotFound
	}
	s.delete(name)
	return ch.Members(), nil
}

func (s *ChannelStore) delete(name string) {
	delete(s.channels, name)
	if i := slices.Index(s.order, name); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
}

// Names lists channel names in creation order.
func (s *ChannelStore) Names() []string {
	return append([]string{}, s.order...)
}

func (s *ChannelStore) Len() int {
	return len(s.channels)
}

// Summaries projects every channel for introspection.
func (s *ChannelStore) Summaries() []models.ChannelSummary {
	out := make([]models.ChannelSummary, 0, len(s.order))
	for _, name := range s.order {
		ch := s.channels[name]
		out = append(out, models.ChannelSummary{
			Name:         name,
			UserCount:    len(ch.members),
			MessageCount: ch.History.Len(),
		})
	}
	return out
}
