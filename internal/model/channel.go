package model

import "strings"

type Channel string

const (
	ChannelSMS       Channel = "sms"
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelEmail     Channel = "email"
	ChannelInstagram Channel = "instagram"
)

func (c Channel) String() string { return string(c) }

func (c Channel) Valid() bool {
	switch c {
	case ChannelSMS, ChannelWhatsApp, ChannelEmail, ChannelInstagram:
		return true
	default:
		return false
	}
}

// ParseChannel normalizes input. Returns (value, true) if valid.
func ParseChannel(s string) (Channel, bool) {
	c := Channel(strings.ToLower(strings.TrimSpace(s)))
	return c, c.Valid()
}
