package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func setPostgresEnv(t *testing.T) {
	t.Setenv("ORDER_STORE", "")
	t.Setenv("POSTGRES_USER", "orders")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "orders")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("AWS_USE_SECRETS", "")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setPostgresEnv(t)
	t.Setenv("PORT", "")
	t.Setenv("SMS_COUNTRY_CODE", "")
	t.Setenv("NOTIFY_CHANNEL_TIMEOUT", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8093", cfg.Port)
	assert.Equal(t, StorePostgres, cfg.OrderStore)
	assert.Equal(t, "92", cfg.SMSCountryCode)
	assert.Equal(t, 10*time.Second, cfg.NotifyChannelTimeout)
	assert.Equal(t, time.Second, cfg.RealtimeReleaseDelay)
	assert.Empty(t, cfg.KafkaBrokers)

	pg := cfg.Postgres()
	assert.Equal(t, "db", pg.Host)
	assert.Contains(t, pg.DSN(), "dbname=orders")
}

func TestLoadConfig_Overrides(t *testing.T) {
	setPostgresEnv(t)
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("SIDE_EFFECT_TIMEOUT", "3s")
	t.Setenv("TRACK_RATE_BURST", "5")
	t.Setenv("NOTIFY_CHANNEL_TIMEOUT", "not-a-duration")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3*time.Second, cfg.SideEffectTimeout)
	assert.Equal(t, 5, cfg.TrackRateBurst)
	assert.Equal(t, 10*time.Second, cfg.NotifyChannelTimeout)
}

func TestLoadConfig_Validation(t *testing.T) {
	t.Run("incomplete postgres", func(t *testing.T) {
		setPostgresEnv(t)
		t.Setenv("POSTGRES_PASSWORD", "")

		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("dynamodb needs no postgres", func(t *testing.T) {
		setPostgresEnv(t)
		t.Setenv("POSTGRES_USER", "")
		t.Setenv("ORDER_STORE", "DynamoDB")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, StoreDynamoDB, cfg.OrderStore)
	})

	t.Run("unknown store", func(t *testing.T) {
		setPostgresEnv(t)
		t.Setenv("ORDER_STORE", "mongo")

		_, err := LoadConfig()
		assert.ErrorContains(t, err, "unknown ORDER_STORE")
	})
}

type fakeSecrets map[string]map[string]string

func (f fakeSecrets) GetSecretMap(_ context.Context, name string) (map[string]string, error) {
	if m, ok := f[name]; ok {
		return m, nil
	}
	return nil, errors.New("secret not found")
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{PostgresUser: "env-user", PostgresHost: "env-host", SMSAPIKey: "env-sms"}

	applySecrets(context.Background(), cfg, fakeSecrets{
		"order-status/DB_CREDENTIALS": {
			"POSTGRES_USER":     "secret-user",
			"POSTGRES_PASSWORD": "secret-pass",
			"POSTGRES_HOST":     "",
		},
		"order-status/PROVIDER_KEYS": {
			"EMAIL_API_KEY": "re_123",
		},
	})

	assert.Equal(t, "secret-user", cfg.PostgresUser)
	assert.Equal(t, "secret-pass", cfg.PostgresPassword)
	assert.Equal(t, "env-host", cfg.PostgresHost, "empty secret values keep the env value")
	assert.Equal(t, "re_123", cfg.EmailAPIKey)
	assert.Equal(t, "env-sms", cfg.SMSAPIKey)
}

func TestApplySecrets_MissingSecretsKeepEnv(t *testing.T) {
	cfg := &Config{PostgresUser: "env-user"}
	applySecrets(context.Background(), cfg, fakeSecrets{})
	assert.Equal(t, "env-user", cfg.PostgresUser)
}

func TestBuildNotificationConfig(t *testing.T) {
	cfg := &Config{
		EmailAPIKey:          "re_123",
		EmailFrom:            "orders@example.com",
		TwilioAccountSID:     "AC1",
		TwilioAuthToken:      "tok",
		TwilioWhatsAppFrom:   "+14155238886",
		SMSAPIKey:            "sms-key",
		SMSCountryCode:       "92",
		NotifyChannelTimeout: 2 * time.Second,
	}

	nc := buildNotificationConfig(cfg, zap.NewNop())

	assert.NotNil(t, nc.Email)
	assert.Nil(t, nc.WhatsAppPrimary)
	assert.NotNil(t, nc.WhatsAppSecondary)
	assert.Nil(t, nc.SMS, "SMS without an endpoint is disabled")
	assert.Equal(t, 2*time.Second, nc.ChannelTimeout)
}

func TestBuildNotificationConfig_PartialPrimaryDisablesWhatsApp(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cfg := &Config{
		WhatsAppCloudToken: "meta-token",
		TwilioAccountSID:   "AC1",
		TwilioAuthToken:    "tok",
		TwilioWhatsAppFrom: "+14155238886",
		SMSCountryCode:     "92",
	}

	nc := buildNotificationConfig(cfg, zap.New(core))

	assert.Nil(t, nc.WhatsAppPrimary)
	assert.Nil(t, nc.WhatsAppSecondary, "secondary is only used when the primary is entirely unconfigured")
	require.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestBuildNotificationConfig_PrimaryWins(t *testing.T) {
	cfg := &Config{
		WhatsAppCloudToken:   "meta-token",
		WhatsAppCloudPhoneID: "1234",
		TwilioAccountSID:     "AC1",
		TwilioAuthToken:      "tok",
		TwilioWhatsAppFrom:   "+14155238886",
	}

	nc := buildNotificationConfig(cfg, zap.NewNop())

	assert.NotNil(t, nc.WhatsAppPrimary)
	assert.Nil(t, nc.WhatsAppSecondary)
}
