package services

import (
	"context"
	"fmt"
	"order-status-service/metrics"
	"order-status-service/models"
	"order-status-service/sender"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultChannelTimeout = 10 * time.Second

// NotificationConfig is built once at startup. A nil sender disables its channel.
type NotificationConfig struct {
	Email             sender.EmailSender
	WhatsAppPrimary   sender.WhatsAppSender
	WhatsAppSecondary sender.WhatsAppSender
	SMS               sender.SMSSender

	SiteBaseURL    string
	SMSTestPhone   string
	SMSCountryCode string
	ChannelTimeout time.Duration
}

// Dispatcher fans a status change out to customer channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, order *models.Order) []models.NotificationAttempt
}

type NotificationDispatcher struct {
	email    sender.EmailSender
	whatsapp sender.WhatsAppSender
	sms      sender.SMSSender

	siteBaseURL    string
	smsTestPhone   string
	smsCountryCode string
	timeout        time.Duration
	logger         *zap.Logger
}

// NewNotificationDispatcher picks the WhatsApp provider once: the primary when
// configured, otherwise the secondary. A failed primary call is never retried
// on the secondary.
func NewNotificationDispatcher(cfg NotificationConfig, logger *zap.Logger) *NotificationDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	wa := cfg.WhatsAppPrimary
	if wa == nil {
		wa = cfg.WhatsAppSecondary
	}
	timeout := cfg.ChannelTimeout
	if timeout <= 0 {
		timeout = defaultChannelTimeout
	}
	cc := cfg.SMSCountryCode
	if cc == "" {
		cc = sender.DefaultCountryCode
	}
	return &NotificationDispatcher{
		email:          cfg.Email,
		whatsapp:       wa,
		sms:            cfg.SMS,
		siteBaseURL:    strings.TrimSuffix(cfg.SiteBaseURL, "/"),
		smsTestPhone:   cfg.SMSTestPhone,
		smsCountryCode: cc,
		timeout:        timeout,
		logger:         logger,
	}
}

// Dispatch runs every channel concurrently and returns one attempt per
// channel in the order email, whatsapp, sms. It never fails.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, order *models.Order) []models.NotificationAttempt {
	channels := []struct {
		channel  models.Channel
		provider string
		send     func(ctx context.Context) models.NotificationAttempt
	}{
		{models.ChannelEmail, providerName(d.email), func(ctx context.Context) models.NotificationAttempt { return d.sendEmail(ctx, order) }},
		{models.ChannelWhatsApp, providerName(d.whatsapp), func(ctx context.Context) models.NotificationAttempt { return d.sendWhatsApp(ctx, order) }},
		{models.ChannelSMS, providerName(d.sms), func(ctx context.Context) models.NotificationAttempt { return d.sendSMS(ctx, order) }},
	}

	attempts := make([]models.NotificationAttempt, len(channels))
	var wg sync.WaitGroup
	for i, ch := range channels {
		wg.Add(1)
		go func(i int, channel models.Channel, provider string, send func(context.Context) models.NotificationAttempt) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					attempts[i] = models.NotificationAttempt{
						Channel:  channel,
						Provider: provider,
						Outcome:  models.OutcomeFailed,
						Error:    fmt.Sprintf("panic: %v", r),
					}
				}
			}()

			chCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()
			start := time.Now()
			a := send(chCtx)
			a.Duration = time.Since(start)
			attempts[i] = a
		}(i, ch.channel, ch.provider, ch.send)
	}
	wg.Wait()

	for _, a := range attempts {
		d.record(order, a)
	}
	return attempts
}

func (d *NotificationDispatcher) record(order *models.Order, a models.NotificationAttempt) {
	metrics.NotificationAttemptsTotal.WithLabelValues(string(a.Channel), a.Provider, string(a.Outcome)).Inc()
	if a.Outcome != models.OutcomeSkipped {
		metrics.NotificationAttemptDuration.WithLabelValues(string(a.Channel)).Observe(a.Duration.Seconds())
	}

	fields := []zap.Field{
		zap.String("order_id", order.ID.String()),
		zap.String("channel", string(a.Channel)),
		zap.String("provider", a.Provider),
		zap.String("outcome", string(a.Outcome)),
	}
	switch a.Outcome {
	case models.OutcomeFailed:
		d.logger.Warn("Notification failed", append(fields, zap.String("error", a.Error), zap.Duration("duration", a.Duration))...)
	case models.OutcomeSent:
		d.logger.Info("Notification sent", append(fields, zap.String("message_id", a.MessageID), zap.Duration("duration", a.Duration))...)
	default:
		d.logger.Debug("Notification skipped", append(fields, zap.String("reason", a.Error))...)
	}
}

func (d *NotificationDispatcher) sendEmail(ctx context.Context, order *models.Order) models.NotificationAttempt {
	if d.email == nil {
		return models.Skipped(models.ChannelEmail, "", "email provider not configured")
	}
	to := order.ContactEmail()
	if to == "" {
		return models.Skipped(models.ChannelEmail, d.email.Provider(), "order has no email")
	}

	subject, text, html := d.emailContent(order)
	res, err := d.email.SendEmail(ctx, sender.EmailMessage{To: to, Subject: subject, Text: text, HTML: html})
	return outcome(models.ChannelEmail, d.email.Provider(), res, err)
}

func (d *NotificationDispatcher) sendWhatsApp(ctx context.Context, order *models.Order) models.NotificationAttempt {
	if d.whatsapp == nil {
		return models.Skipped(models.ChannelWhatsApp, "", "whatsapp provider not configured")
	}
	phone := order.ContactPhone()
	if phone == "" {
		return models.Skipped(models.ChannelWhatsApp, d.whatsapp.Provider(), "order has no phone")
	}
	res, err := d.whatsapp.SendWhatsApp(ctx, phone, d.shortMessage(order))
	return outcome(models.ChannelWhatsApp, d.whatsapp.Provider(), res, err)
}

func (d *NotificationDispatcher) sendSMS(ctx context.Context, order *models.Order) models.NotificationAttempt {
	if d.sms == nil {
		return models.Skipped(models.ChannelSMS, "", "sms gateway not configured")
	}
	phone := d.smsTestPhone
	if phone == "" {
		phone = order.ContactPhone()
	}
	if phone == "" {
		return models.Skipped(models.ChannelSMS, d.sms.Provider(), "order has no phone")
	}
	to := sender.NormalizeSMSPhone(phone, d.smsCountryCode)
	res, err := d.sms.SendSMS(ctx, to, d.shortMessage(order))
	return outcome(models.ChannelSMS, d.sms.Provider(), res, err)
}

// TrackingURL returns {base}/orders/{token}, or "" when either part is missing.
func (d *NotificationDispatcher) TrackingURL(order *models.Order) string {
	token := order.Token()
	if d.siteBaseURL == "" || token == "" {
		return ""
	}
	return d.siteBaseURL + "/orders/" + token
}

func (d *NotificationDispatcher) emailContent(order *models.Order) (subject, text, html string) {
	status := statusLabel(order.Status)
	subject = fmt.Sprintf("Order #%s is now %s", order.ShortID(), status)

	var tb, hb strings.Builder
	fmt.Fprintf(&tb, "Your order #%s is now %s.", order.ShortID(), status)
	fmt.Fprintf(&hb, "<p>Your order <strong>#%s</strong> is now <strong>%s</strong>.</p>", order.ShortID(), status)
	if link := d.TrackingURL(order); link != "" {
		fmt.Fprintf(&tb, "\nTrack it here: %s", link)
		fmt.Fprintf(&hb, `<p><a href="%s">Track your order</a></p>`, link)
	}
	return subject, tb.String(), hb.String()
}

func (d *NotificationDispatcher) shortMessage(order *models.Order) string {
	msg := fmt.Sprintf("Your order #%s is now %s.", order.ShortID(), statusLabel(order.Status))
	if link := d.TrackingURL(order); link != "" {
		msg += " Track: " + link
	}
	return msg
}

func statusLabel(s models.OrderStatus) string {
	return strings.ReplaceAll(string(s), "_", " ")
}

func outcome(channel models.Channel, provider string, res sender.SendResult, err error) models.NotificationAttempt {
	if err != nil {
		return models.NotificationAttempt{Channel: channel, Provider: provider, Outcome: models.OutcomeFailed, Error: err.Error()}
	}
	return models.NotificationAttempt{Channel: channel, Provider: provider, Outcome: models.OutcomeSent, MessageID: res.MessageID}
}

func providerName(p interface{ Provider() string }) string {
	if p == nil {
		return ""
	}
	return p.Provider()
}
