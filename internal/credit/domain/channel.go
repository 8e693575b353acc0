package domain

import "strings"

// Channel is one of the separately metered communication media.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelVoice    Channel = "voice"
)

// Channels lists the closed set in a stable order.
var Channels = []Channel{ChannelSMS, ChannelEmail, ChannelWhatsApp, ChannelVoice}

func ParseChannel(raw string) (Channel, error) {
	channel := Channel(strings.ToLower(strings.TrimSpace(raw)))
	if !channel.Valid() {
		return "", ErrInvalidChannel
	}
	return channel, nil
}

func (c Channel) Valid() bool {
	switch c {
	case ChannelSMS, ChannelEmail, ChannelWhatsApp, ChannelVoice:
		return true
	default:
		return false
	}
}

func (c Channel) String() string { return string(c) }

// SentColumn is the usage_periods counter column for the channel.
// Only valid channels may reach SQL, so the name is always one of four literals.
func (c Channel) SentColumn() string {
	switch c {
	case ChannelSMS:
		return "sms_sent"
	case ChannelEmail:
		return "email_sent"
	case ChannelWhatsApp:
		return "whatsapp_sent"
	case ChannelVoice:
		return "voice_sent"
	default:
		return ""
	}
}
