package sender

import (
	"context"
	"time"
)

type SendResult struct {
	MessageID string
	SentAt    time.Time
}

type EmailMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type EmailSender interface {
	Provider() string
	SendEmail(ctx context.Context, msg EmailMessage) (SendResult, error)
}

type WhatsAppSender interface {
	Provider() string
	SendWhatsApp(ctx context.Context, to, body string) (SendResult, error)
}

type SMSSender interface {
	Provider() string
	SendSMS(ctx context.Context, to, msg string) (SendResult, error)
}
