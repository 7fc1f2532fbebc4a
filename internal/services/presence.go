package services

import "chat-broker/internal/models"

// UnknownUsername stands in for a member whose identity is gone.
const UnknownUsername = "Unknown"

// Presence computes the observable member list of a channel.
type Presence struct {
	identities *IdentityRegistry
	channels   *ChannelStore
}

func NewPresence(identities *IdentityRegistry, channels *ChannelStore) *Presence {
	return &Presence{identities: identities, channels: channels}
}

// MembersOf lists the channel's members in join order. A missing channel
// yields an empty list.
func (p *Presence) MembersOf(channel string) []models.Member {
	ch, ok := p.channels.Get(channel)
	if !ok {
		return []models.Member{}
	}

	members := make([]models.Member, 0, len(ch.members))
	for _, conn := range ch.members {
		name := UnknownUsername
		if user, ok := p.identities.Lookup(conn); ok {
			name = user.Username
		}
		members = append(members, models.Member{ConnID: conn, Username: name})
	}
	return members
}
