package main

import (
	"order-status-service/sender"
	"order-status-service/services"

	"go.uber.org/zap"
)

// buildNotificationConfig constructs the configured providers. A channel
// whose credentials are absent or invalid is left nil and skipped at
// dispatch time.
func buildNotificationConfig(cfg *Config, logger *zap.Logger) services.NotificationConfig {
	nc := services.NotificationConfig{
		SiteBaseURL:    cfg.SiteBaseURL,
		SMSTestPhone:   cfg.SMSTestPhone,
		SMSCountryCode: cfg.SMSCountryCode,
		ChannelTimeout: cfg.NotifyChannelTimeout,
	}

	if cfg.EmailAPIKey != "" {
		if s, err := sender.NewHTTPEmailSender(cfg.EmailAPIKey, cfg.EmailFrom, cfg.EmailAPIURL); err != nil {
			logger.Warn("Email channel disabled", zap.Error(err))
		} else {
			nc.Email = s
		}
	}

	// Any primary credential counts as configured. A broken primary leaves
	// WhatsApp disabled rather than falling through to the secondary.
	if cfg.WhatsAppCloudToken != "" || cfg.WhatsAppCloudPhoneID != "" {
		if s, err := sender.NewWhatsAppCloudSender(cfg.WhatsAppCloudToken, cfg.WhatsAppCloudPhoneID, cfg.WhatsAppCloudAPIURL, cfg.SMSCountryCode); err != nil {
			logger.Error("WhatsApp primary provider misconfigured, WhatsApp disabled", zap.Error(err))
		} else {
			nc.WhatsAppPrimary = s
		}
	} else if cfg.TwilioAccountSID != "" {
		if s, err := sender.NewTwilioWhatsAppSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom, cfg.TwilioAPIURL, cfg.SMSCountryCode); err != nil {
			logger.Warn("WhatsApp secondary provider disabled", zap.Error(err))
		} else {
			nc.WhatsAppSecondary = s
		}
	}

	if cfg.SMSAPIKey != "" {
		if s, err := sender.NewSMSGatewaySender(cfg.SMSAPIKey, cfg.SMSAPIURL, cfg.SMSSenderID); err != nil {
			logger.Warn("SMS channel disabled", zap.Error(err))
		} else {
			nc.SMS = s
		}
	}

	logger.Info("Notification channels configured",
		zap.Bool("email", nc.Email != nil),
		zap.Bool("whatsapp_primary", nc.WhatsAppPrimary != nil),
		zap.Bool("whatsapp_secondary", nc.WhatsAppSecondary != nil),
		zap.Bool("sms", nc.SMS != nil),
	)
	return nc
}
