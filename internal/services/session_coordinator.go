package services

import (
	"fmt"
	"strings"
	"time"

	"chat-broker/internal/models"
	"chat-broker/pkg/logger"
)

// Coordinator validates and sequences every client event against the
// identity registry and channel store, then tells the transport who to
// notify. It is not safe for concurrent use: the transport must call it from
// a single dispatch goroutine, which is what makes multi-step operations such
// as rename appear atomic.
type Coordinator struct {
	transport  Transport
	identities *IdentityRegistry
	channels   *ChannelStore
	presence   *Presence
	ids        messageIDs
	now        func() time.Time
	observers  []Observer
}

type Option func(*Coordinator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
		c.ids.now = now
	}
}

func WithObservers(observers ...Observer) Option {
	return func(c *Coordinator) {
		c.observers = append(c.observers, observers...)
	}
}

// WithChannels pre-creates channels at startup.
func WithChannels(names ...string) Option {
	return func(c *Coordinator) {
		for _, name := range names {
			if name = strings.TrimSpace(name); name != "" {
				c.channels.Ensure(name)
			}
		}
	}
}

func NewCoordinator(transport Transport, opts ...Option) *Coordinator {
	identities := NewIdentityRegistry()
	channels := NewChannelStore()
	c := &Coordinator{
		transport:  transport,
		identities: identities,
		channels:   channels,
		presence:   NewPresence(identities, channels),
		ids:        messageIDs{now: time.Now},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle runs a decoded command for conn. For acknowledged commands the
// returned error is the acknowledgement; for the rest it has already been
// reported to conn as an error event.
func (c *Coordinator) Handle(conn models.ConnID, cmd Command) error {
	switch cmd := cmd.(type) {
	case ConnectRequest:
		return c.Connect(conn, cmd.Username)
	case JoinChannel:
		return c.JoinChannel(conn, cmd.ChannelName)
	case LeaveChannel:
		c.LeaveChannel(conn, cmd.ChannelName)
		return nil
	case SendMessage:
		return c.SendMessage(conn, cmd.ChannelName, cmd.Message)
	case EditMessage:
		return c.EditMessage(conn, cmd.ChannelName, cmd.MessageID, cmd.NewText)
	case DeleteMessage:
		return c.DeleteMessage(conn, cmd.ChannelName, cmd.MessageID)
	case RenameChannel:
		return c.RenameChannel(conn, cmd.OldName, cmd.NewName)
	case DeleteChannel:
		return c.DeleteChannel(conn, cmd.ChannelName)
	case GetChannels:
		c.GetChannels(conn)
		return nil
	case VoiceSignal:
		c.RelayVoice(conn, cmd)
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnknownEvent, cmd)
	}
}

// Connect binds a username to conn and sends it the channel list. A
// connection registering again leaves its channel first, under its old name.
func (c *Coordinator) Connect(conn models.ConnID, rawUsername string) error {
	previous, registered := c.identities.Lookup(conn)
	user, err := c.identities.Register(conn, rawUsername)
	if err != nil {
		c.fail(conn, "connect", err)
		return err
	}
	if registered && previous.Channel != "" {
		c.detach(previous, previous.Channel)
	}

	c.transport.EmitTo(conn, models.EventUserConnected, models.UserConnectedPayload{
		Username:          user.Username,
		AvailableChannels: c.channels.Names(),
	})
	logger.Info("user connected", "username", user.Username, "conn_id", conn)
	c.observe(Activity{Event: "connect", ConnID: conn, Username: user.Username})
	return nil
}

// JoinChannel moves the user into channelName, creating it if needed and
// leaving whatever channel they were in before.
func (c *Coordinator) JoinChannel(conn models.ConnID, channelName string) error {
	user, ok := c.identities.Lookup(conn)
	if !ok {
		c.fail(conn, "join_channel", ErrNotAuthenticated)
		return ErrNotAuthenticated
	}
	name := strings.TrimSpace(channelName)
	if name == "" {
		c.fail(conn, "join_channel", ErrMissingChannelName)
		return ErrMissingChannelName
	}

	ch := c.channels.Ensure(name)
	rejoin := user.Channel == name && ch.HasMember(conn)
	if user.Channel != "" && user.Channel != name {
		c.detach(user, user.Channel)
	}

	user.Channel = name
	ch.AddMember(conn)
	c.transport.JoinRoom(conn, name)

	members := c.presence.MembersOf(name)
	c.transport.EmitTo(conn, models.EventChannelHistory, models.ChannelHistoryPayload{
		ChannelName: name,
		Messages:    ch.History.Messages(),
	})
	if !rejoin {
		c.transport.BroadcastToChannel(name, models.EventUserJoined, models.UserPresencePayload{
			Username:    user.Username,
			ChannelName: name,
		}, conn)
	}
	c.transport.BroadcastToChannel(name, models.EventChannelUsersUpdate, models.ChannelUsersPayload{
		ChannelName: name,
		Users:       members,
	}, "")
	c.transport.EmitTo(conn, models.EventChannelJoined, models.ChannelUsersPayload{
		ChannelName: name,
		Users:       members,
	})

	logger.Info("user joined channel", "username", user.Username, "channel", name)
	c.observe(Activity{Event: "join_channel", ConnID: conn, Username: user.Username, Channel: name})
	return nil
}

// LeaveChannel takes the user out of channelName if, and only if, that is
// the channel they are in. Anything else is silently ignored.
func (c *Coordinator) LeaveChannel(conn models.ConnID, channelName string) {
	user, ok := c.identities.Lookup(conn)
	if !ok {
		return
	}
	name := strings.TrimSpace(channelName)
	if name == "" || user.Channel != name {
		return
	}

	c.detach(user, name)
	logger.Info("user left channel", "username", user.Username, "channel", name)
	c.observe(Activity{Event: "leave_channel", ConnID: conn, Username: user.Username, Channel: name})
}

// SendMessage appends a message to the user's current channel and delivers
// it to every member, sender included.
func (c *Coordinator) SendMessage(conn models.ConnID, channelName, text string) error {
	user, ok := c.identities.Lookup(conn)
	if !ok {
		c.fail(conn, "send_message", ErrNotAuthenticated)
		return ErrNotAuthenticated
	}
	name := strings.TrimSpace(channelName)
	body := strings.TrimSpace(text)
	if name == "" || body == "" {
		c.fail(conn, "send_message", ErrMissingFields)
		return ErrMissingFields
	}
	ch, exists := c.channels.Get(name)
	if user.Channel != name || !exists {
		c.fail(conn, "send_message", ErrNotInChannel)
		return ErrNotInChannel
	}

	id, at := c.ids.next(conn)
	msg := models.Message{
		ID:          id,
		Username:    user.Username,
		Text:        body,
		ChannelName: name,
		Timestamp:   at,
	}
	ch.History.Append(msg)
	c.transport.BroadcastToChannel(name, models.EventMessage, msg, "")

	logger.Debug("message sent", "username", user.Username, "channel", name, "message_id", id)
	c.observe(Activity{Event: "send_message", ConnID: conn, Username: user.Username, Channel: name, MessageID: id, Text: body, At: at})
	return nil
}

// EditMessage replaces the text of one of the requester's own messages.
func (c *Coordinator) EditMessage(conn models.ConnID, channelName, messageID, newText string) error {
	user, ch, idx, err := c.locateMessage(conn, channelName, messageID)
	newText = strings.TrimSpace(newText)
	at := c.now()
	if err == nil {
		err = ch.History.EditAt(idx, newText, user.Username, at)
	}
	if err != nil {
		c.observe(Activity{Event: "edit_message", ConnID: conn, Channel: channelName, MessageID: messageID, Err: err})
		return err
	}

	c.transport.BroadcastToChannel(ch.Name, models.EventMessageEdited, models.MessageEditedPayload{
		MessageID:   messageID,
		NewText:     newText,
		ChannelName: ch.Name,
		EditedAt:    at,
	}, "")
	c.observe(Activity{Event: "edit_message", ConnID: conn, Username: user.Username, Channel: ch.Name, MessageID: messageID, Text: newText, At: at})
	return nil
}

// DeleteMessage removes one of the requester's own messages.
func (c *Coordinator) DeleteMessage(conn models.ConnID, channelName, messageID string) error {
	user, ch, idx, err := c.locateMessage(conn, channelName, messageID)
	if err == nil {
		err = ch.History.DeleteAt(idx, user.Username)
	}
	if err != nil {
		c.observe(Activity{Event: "delete_message", ConnID: conn, Channel: channelName, MessageID: messageID, Err: err})
		return err
	}

	c.transport.BroadcastToChannel(ch.Name, models.EventMessageDeleted, models.MessageDeletedPayload{
		MessageID:   messageID,
		ChannelName: ch.Name,
	}, "")
	c.observe(Activity{Event: "delete_message", ConnID: conn, Username: user.Username, Channel: ch.Name, MessageID: messageID})
	return nil
}

func (c *Coordinator) locateMessage(conn models.ConnID, channelName, messageID string) (*models.User, *Channel, int, error) {
	user, ok := c.identities.Lookup(conn)
	if !ok {
		return nil, nil, -1, ErrNotAuthenticated
	}
	ch, ok := c.channels.Get(strings.TrimSpace(channelName))
	if !ok {
		return nil, nil, -1, ErrChannelNotFound
	}
	idx, ok := ch.History.FindByID(messageID)
	if !ok {
		return nil, nil, -1, ErrMessageNotFound
	}
	return user, ch, idx, nil
}

// RenameChannel renames a channel and migrates every member to the new name
// within this single step.
func (c *Coordinator) RenameChannel(conn models.ConnID, oldName, newName string) error {
	oldName = strings.TrimSpace(oldName)
	ch, err := c.channels.Rename(oldName, newName)
	if err != nil {
		c.observe(Activity{Event: "rename_channel", ConnID: conn, Channel: oldName, Err: err})
		return err
	}

	for _, user := range c.identities.Users() {
		if user.Channel != oldName {
			continue
		}
		user.Channel = ch.Name
		if c.transport.IsLive(user.ConnID) {
			c.transport.LeaveRoom(user.ConnID, oldName)
			c.transport.JoinRoom(user.ConnID, ch.Name)
		}
	}

	c.transport.BroadcastToChannel(ch.Name, models.EventChannelUsersUpdate, models.ChannelUsersPayload{
		ChannelName: ch.Name,
		Users:       c.presence.MembersOf(ch.Name),
	}, "")
	c.broadcastChannelList()

	logger.Info("channel renamed", "from", oldName, "to", ch.Name, "members", len(ch.members))
	c.observe(Activity{Event: "rename_channel", ConnID: conn, Channel: ch.Name, Text: oldName})
	return nil
}

// DeleteChannel removes a channel, detaching and notifying its members.
func (c *Coordinator) DeleteChannel(conn models.ConnID, channelName string) error {
	name := strings.TrimSpace(channelName)
	members, err := c.channels.Remove(name)
	if err != nil {
		c.observe(Activity{Event: "delete_channel", ConnID: conn, Channel: name, Err: err})
		return err
	}

	for _, member := range members {
		if user, ok := c.identities.Lookup(member); ok && user.Channel == name {
			user.Channel = ""
		}
		if c.transport.IsLive(member) {
			c.transport.LeaveRoom(member, name)
			c.transport.EmitTo(member, models.EventChannelDeleted, models.ChannelDeletedPayload{ChannelName: name})
		}
	}
	c.broadcastChannelList()

	logger.Info("channel deleted", "channel", name, "members", len(members))
	c.observe(Activity{Event: "delete_channel", ConnID: conn, Channel: name})
	return nil
}

// GetChannels sends the current channel list to conn.
func (c *Coordinator) GetChannels(conn models.ConnID) {
	c.transport.EmitTo(conn, models.EventChannelsList, models.ChannelsListPayload{Channels: c.channels.Names()})
}

// RelayVoice forwards a voice-signaling frame to the rest of the channel. It
// touches no broker state.
func (c *Coordinator) RelayVoice(conn models.ConnID, sig VoiceSignal) {
	channel := strings.TrimSpace(sig.Channel)
	if channel == "" {
		return
	}
	switch sig.Kind {
	case voiceOffer:
		c.transport.BroadcastToChannel(channel, models.EventReceiveVoiceOffer, map[string]any{
			"from": sig.From, "offer": sig.Offer,
		}, conn)
	case voiceAnswer:
		c.transport.BroadcastToChannel(channel, models.EventReceiveVoiceAnswer, map[string]any{
			"from": sig.From, "answer": sig.Answer,
		}, conn)
	}
}

// Disconnect tears down everything bound to conn. Unknown connections are
// ignored.
func (c *Coordinator) Disconnect(conn models.ConnID) {
	user, ok := c.identities.Lookup(conn)
	if !ok {
		return
	}
	channel := user.Channel
	if channel != "" {
		c.detach(user, channel)
	}
	c.identities.Unregister(conn)

	logger.Info("user disconnected", "username", user.Username, "conn_id", conn)
	c.observe(Activity{Event: "disconnect", ConnID: conn, Username: user.Username, Channel: channel})
}

// detach removes user from channel and tells the remaining members.
func (c *Coordinator) detach(user *models.User, channel string) {
	user.Channel = ""
	c.transport.LeaveRoom(user.ConnID, channel)

	ch, ok := c.channels.Get(channel)
	if !ok {
		return
	}
	ch.RemoveMember(user.ConnID)
	c.transport.BroadcastToChannel(channel, models.EventUserLeft, models.UserPresencePayload{
		Username:    user.Username,
		ChannelName: channel,
	}, user.ConnID)
	c.transport.BroadcastToChannel(channel, models.EventChannelUsersUpdate, models.ChannelUsersPayload{
		ChannelName: channel,
		Users:       c.presence.MembersOf(channel),
	}, user.ConnID)
}

func (c *Coordinator) broadcastChannelList() {
	c.transport.BroadcastGlobal(models.EventChannelsList, models.ChannelsListPayload{Channels: c.channels.Names()})
}

// fail reports a validation error to the originating connection only.
func (c *Coordinator) fail(conn models.ConnID, event string, err error) {
	c.transport.EmitTo(conn, models.EventError, models.ErrorPayload{Message: err.Error()})
	logger.Debug("request rejected", "event", event, "conn_id", conn, "error", err)
	c.observe(Activity{Event: event, ConnID: conn, Err: err})
}

func (c *Coordinator) observe(a Activity) {
	if len(c.observers) == 0 {
		return
	}
	if a.At.IsZero() {
		a.At = c.now()
	}
	a.ConnectedUsers = c.identities.Count()
	a.Channels = c.channels.Len()
	for _, o := range c.observers {
		o.Observe(a)
	}
}

// Lookup returns a copy of the user bound to conn.
func (c *Coordinator) Lookup(conn models.ConnID) (models.User, bool) {
	user, ok := c.identities.Lookup(conn)
	if !ok {
		return models.User{}, false
	}
	return *user, true
}

// Channel returns the channel's members and history.
func (c *Coordinator) Channel(name string) ([]models.Member, []models.Message, bool) {
	ch, ok := c.channels.Get(name)
	if !ok {
		return nil, nil, false
	}
	return c.presence.MembersOf(name), ch.History.Messages(), true
}

func (c *Coordinator) ChannelNames() []string {
	return c.channels.Names()
}

// ChannelSummaries is the introspection snapshot of the channel store.
func (c *Coordinator) ChannelSummaries() []models.ChannelSummary {
	return c.channels.Summaries()
}

func (c *Coordinator) ConnectedUsers() int {
	return c.identities.Count()
}
