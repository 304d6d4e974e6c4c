package models

import "time"

// Channel is a customer notification channel.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
)

// AttemptOutcome is the result of a single channel attempt.
type AttemptOutcome string

const (
	OutcomeSkipped AttemptOutcome = "skipped"
	OutcomeSent    AttemptOutcome = "sent"
	OutcomeFailed  AttemptOutcome = "failed"
)

// NotificationAttempt describes one best-effort delivery attempt. It is
// produced per status change for logs and metrics and never persisted.
type NotificationAttempt struct {
	Channel   Channel        `json:"channel"`
	Provider  string         `json:"provider,omitempty"`
	Outcome   AttemptOutcome `json:"outcome"`
	Error     string         `json:"error,omitempty"`
	MessageID string         `json:"message_id,omitempty"`
	Duration  time.Duration  `json:"duration"`
}

// Skipped builds an attempt for a channel that was not configured or had no recipient.
func Skipped(channel Channel, provider, reason string) NotificationAttempt {
	return NotificationAttempt{Channel: channel, Provider: provider, Outcome: OutcomeSkipped, Error: reason}
}
