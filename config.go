package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"order-status-service/database"
	aws_pkg "order-status-service/pkg/aws"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreDynamoDB = "dynamodb"
)

// Config holds all configuration for the order status service.
type Config struct {
	Port   string
	AppEnv string

	OrderStore          string
	PostgresUser        string
	PostgresPassword    string
	PostgresDB          string
	PostgresHost        string
	PostgresPort        string
	PostgresSSLMode     string
	PostgresTimeZone    string
	DynamoDBOrdersTable string

	RedisURL             string
	RealtimeTopicPrefix  string
	RealtimeReleaseDelay time.Duration

	// Notification providers. An empty key disables the channel.
	EmailAPIKey          string
	EmailAPIURL          string
	EmailFrom            string
	WhatsAppCloudToken   string
	WhatsAppCloudPhoneID string
	WhatsAppCloudAPIURL  string
	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioWhatsAppFrom   string
	TwilioAPIURL         string
	SMSAPIKey            string
	SMSAPIURL            string
	SMSSenderID          string
	SMSTestPhone         string
	SMSCountryCode       string
	SiteBaseURL          string

	NotifyChannelTimeout time.Duration
	SideEffectTimeout    time.Duration

	OrderSNSTopicARN string
	KafkaBrokers     []string
	OrderStatusTopic string

	CloudWatchEnabled   bool
	CloudWatchNamespace string
	CloudWatchLogGroup  string
	AllowedOrigins      string
	TrackRateLimit      float64
	TrackRateBurst      int
}

func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:     c.PostgresHost,
		Port:     c.PostgresPort,
		User:     c.PostgresUser,
		Password: c.PostgresPassword,
		DBName:   c.PostgresDB,
		SSLMode:  c.PostgresSSLMode,
		TimeZone: c.PostgresTimeZone,
	}
}

// secretGetter is satisfied by *aws_pkg.SecretsClient.
type secretGetter interface {
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

// LoadConfig reads configuration from the environment (and .env when
// present) with an optional Secrets Manager override.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:   getEnv("PORT", "8093"),
		AppEnv: getEnv("APP_ENV", "development"),

		OrderStore:          strings.ToLower(getEnv("ORDER_STORE", StorePostgres)),
		PostgresUser:        os.Getenv("POSTGRES_USER"),
		PostgresPassword:    os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:          os.Getenv("POSTGRES_DB"),
		PostgresHost:        getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:        getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:     getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone:    getEnv("POSTGRES_TIMEZONE", "UTC"),
		DynamoDBOrdersTable: getEnv("DYNAMODB_ORDERS_TABLE", "orders"),

		RedisURL:             os.Getenv("REDIS_URL"),
		RealtimeTopicPrefix:  getEnv("REALTIME_TOPIC_PREFIX", "order-status:"),
		RealtimeReleaseDelay: getDuration("REALTIME_RELEASE_DELAY", time.Second),

		EmailAPIKey:          os.Getenv("EMAIL_API_KEY"),
		EmailAPIURL:          os.Getenv("EMAIL_API_URL"),
		EmailFrom:            os.Getenv("EMAIL_FROM"),
		WhatsAppCloudToken:   os.Getenv("WHATSAPP_CLOUD_TOKEN"),
		WhatsAppCloudPhoneID: os.Getenv("WHATSAPP_CLOUD_PHONE_ID"),
		WhatsAppCloudAPIURL:  os.Getenv("WHATSAPP_CLOUD_API_URL"),
		TwilioAccountSID:     os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppFrom:   os.Getenv("TWILIO_WHATSAPP_FROM"),
		TwilioAPIURL:         os.Getenv("TWILIO_API_URL"),
		SMSAPIKey:            os.Getenv("SMS_API_KEY"),
		SMSAPIURL:            os.Getenv("SMS_API_URL"),
		SMSSenderID:          os.Getenv("SMS_SENDER_ID"),
		SMSTestPhone:         os.Getenv("SMS_TEST_PHONE"),
		SMSCountryCode:       getEnv("SMS_COUNTRY_CODE", "92"),
		SiteBaseURL:          os.Getenv("SITE_BASE_URL"),

		NotifyChannelTimeout: getDuration("NOTIFY_CHANNEL_TIMEOUT", 10*time.Second),
		SideEffectTimeout:    getDuration("SIDE_EFFECT_TIMEOUT", 15*time.Second),

		OrderSNSTopicARN: os.Getenv("ORDER_SNS_TOPIC_ARN"),
		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),
		OrderStatusTopic: getEnv("ORDER_STATUS_TOPIC", "order.status_changed"),

		CloudWatchEnabled:   os.Getenv("CLOUDWATCH_ENABLED") == "true",
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", aws_pkg.DefaultMetricsNamespace),
		CloudWatchLogGroup:  getEnv("CLOUDWATCH_LOG_GROUP", aws_pkg.DefaultLogGroup),
		AllowedOrigins:      getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		TrackRateLimit:      getFloat("TRACK_RATE_LIMIT", 2),
		TrackRateBurst:      getInt("TRACK_RATE_BURST", 20),
	}

	// Override credentials from Secrets Manager when running on AWS
	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if awsCfg, err := aws_pkg.LoadAWSConfig(context.Background()); err == nil {
			applySecrets(context.Background(), cfg, aws_pkg.NewSecretsClient(awsCfg))
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applySecrets overlays non-empty values from the DB credentials and
// provider key secrets onto cfg. Missing secrets are ignored.
func applySecrets(ctx context.Context, cfg *Config, sm secretGetter) {
	if m, err := sm.GetSecretMap(ctx, "order-status/DB_CREDENTIALS"); err == nil {
		overlay(m, map[string]*string{
			"POSTGRES_USER":     &cfg.PostgresUser,
			"POSTGRES_PASSWORD": &cfg.PostgresPassword,
			"POSTGRES_DB":       &cfg.PostgresDB,
			"POSTGRES_HOST":     &cfg.PostgresHost,
			"POSTGRES_PORT":     &cfg.PostgresPort,
		})
	}
	if m, err := sm.GetSecretMap(ctx, "order-status/PROVIDER_KEYS"); err == nil {
		overlay(m, map[string]*string{
			"EMAIL_API_KEY":        &cfg.EmailAPIKey,
			"WHATSAPP_CLOUD_TOKEN": &cfg.WhatsAppCloudToken,
			"TWILIO_AUTH_TOKEN":    &cfg.TwilioAuthToken,
			"SMS_API_KEY":          &cfg.SMSAPIKey,
		})
	}
}

func overlay(values map[string]string, targets map[string]*string) {
	for k, dst := range targets {
		if v, ok := values[k]; ok && v != "" {
			*dst = v
		}
	}
}

func (c *Config) validate() error {
	switch c.OrderStore {
	case StorePostgres:
		if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" || c.PostgresHost == "" {
			return fmt.Errorf("database config incomplete")
		}
	case StoreDynamoDB:
		if c.DynamoDBOrdersTable == "" {
			return fmt.Errorf("DYNAMODB_ORDERS_TABLE not set")
		}
	default:
		return fmt.Errorf("unknown ORDER_STORE %q", c.OrderStore)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && f > 0 {
		return f
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
