package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/GuildPay/internal/pkg/env"
	"github.com/ManuelReschke/GuildPay/internal/pkg/money"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type App struct {
	Host     string
	Port     string
	Env      string
	URL      string
	SiteName string
}

type Database struct {
	User        string
	Password    string
	Host        string
	Port        string
	Name        string
	AutoMigrate bool
}

type Cache struct {
	Host         string
	Port         string
	Password     string
	LeaseEnabled bool
}

// Provider holds the payment provider (MaxelPay) settings used for invoices and payouts.
type Provider struct {
	APIBase         string
	APIKey          string
	APISecret       string
	Env             string
	Mock            bool
	ForwardMetadata bool
	WebhookURL      string
}

type Webhook struct {
	Secret        string
	SkipSignature bool
	Tolerance     time.Duration
}

// PayoutPayload selects field names and amount encoding for payout submissions.
type PayoutPayload struct {
	AmountField    string `validate:"oneof=amount_minor amount"`
	AmountEncoding string `validate:"oneof=string number"`
	AmountUnit     string `validate:"oneof=minor decimal"`
	AmountDecimals int32  `validate:"gte=0,lte=36"`
	AddressField   string `validate:"oneof=to address destination"`
	NetworkField   string `validate:"oneof=chain network"`
}

type Worker struct {
	BatchSize      int           `validate:"gte=1,lte=1000"`
	PayoutInterval time.Duration `validate:"gt=0"`
	RoleInterval   time.Duration `validate:"gt=0"`
	MaxAttempts    int           `validate:"gte=1"`
	RequestTimeout time.Duration `validate:"gt=0"`
	PayoutFailFast bool
	TrackSent      bool
}

type Discord struct {
	BotToken string
	APIBase  string
	Mock     bool
}

// Admin guards the inspection API; an empty hash disables it.
type Admin struct {
	APIKeyHash string
}

type Alerts struct {
	Brokers []string
	Topic   string
}

type Archive struct {
	Enabled         bool
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string
}

// Config is resolved once at startup and passed explicitly to every component.
type Config struct {
	App      App
	Database Database
	Cache    Cache
	Provider Provider
	Webhook  Webhook
	FeeBPS   int64 `validate:"gte=0,lte=10000"`
	Payload  PayoutPayload
	Worker   Worker
	Discord  Discord
	Admin    Admin
	Alerts   Alerts
	Archive  Archive
}

// Load reads every setting from env (see env.SetupEnvFile) and validates the result.
func Load() (*Config, error) {
	var errs []error
	intVar := func(key string, def int) int {
		v, err := env.GetInt(key, def)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return v
	}
	durationVar := func(key string, def time.Duration) time.Duration {
		v, err := env.GetDuration(key, def)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return v
	}

	appURL := strings.TrimRight(strings.TrimSpace(env.GetEnv("NEXT_PUBLIC_APP_URL", "http://localhost:4000")), "/")
	providerSecret := strings.TrimSpace(env.GetEnv("MAXELPAY_API_SECRET", ""))
	providerMock := env.GetBool("MAXELPAY_MOCK", false)

	cfg := &Config{
		App: App{
			Host:     env.GetEnv("APP_HOST", "localhost"),
			Port:     env.GetEnv("APP_PORT", "4000"),
			Env:      env.GetEnv("APP_ENV", "prod"),
			URL:      appURL,
			SiteName: env.GetEnv("SITE_NAME", "GuildPay"),
		},
		Database: Database{
			User:        env.GetEnv("DB_USER", ""),
			Password:    env.GetEnv("DB_PASSWORD", ""),
			Host:        env.GetEnv("DB_HOST", "127.0.0.1"),
			Port:        env.GetEnv("DB_PORT", "3306"),
			Name:        env.GetEnv("DB_NAME", ""),
			AutoMigrate: env.GetBool("DB_AUTO_MIGRATE", false),
		},
		Cache: Cache{
			Host:         env.GetEnv("CACHE_HOST", "localhost"),
			Port:         env.GetEnv("CACHE_PORT", "6379"),
			Password:     env.GetEnv("CACHE_PASSWORD", ""),
			LeaseEnabled: env.GetBool("WORKER_LEASE_ENABLED", false),
		},
		Provider: Provider{
			APIBase:         strings.TrimRight(strings.TrimSpace(env.GetEnv("MAXELPAY_API_BASE", "")), "/"),
			APIKey:          strings.TrimSpace(env.GetEnv("MAXELPAY_API_KEY", "")),
			APISecret:       providerSecret,
			Env:             strings.TrimSpace(env.GetEnv("MAXELPAY_ENV", "stg")),
			Mock:            providerMock,
			ForwardMetadata: env.GetBool("MAXELPAY_FORWARD_METADATA", false),
			WebhookURL:      strings.TrimSpace(env.GetEnv("MAXELPAY_WEBHOOK_URL", appURL+"/api/webhooks/maxelpay")),
		},
		Webhook: Webhook{
			Secret:        strings.TrimSpace(env.GetEnv("MAXELPAY_WEBHOOK_SECRET", providerSecret)),
			SkipSignature: env.GetBool("WEBHOOK_SKIP_SIGNATURE", false),
			Tolerance:     durationVar("WEBHOOK_TOLERANCE", 0),
		},
		FeeBPS: int64(intVar("PLATFORM_FEE_BPS", money.DefaultFeeBPS)),
		Payload: PayoutPayload{
			AmountField:    env.GetEnv("PAYOUT_AMOUNT_FIELD", "amount_minor"),
			AmountEncoding: env.GetEnv("PAYOUT_AMOUNT_ENCODING", "string"),
			AmountUnit:     env.GetEnv("PAYOUT_AMOUNT_UNIT", "minor"),
			AmountDecimals: int32(intVar("PAYOUT_AMOUNT_DECIMALS", 6)),
			AddressField:   env.GetEnv("PAYOUT_ADDRESS_FIELD", "to"),
			NetworkField:   env.GetEnv("PAYOUT_NETWORK_FIELD", "chain"),
		},
		Worker: Worker{
			BatchSize:      intVar("WORKER_BATCH_SIZE", 25),
			PayoutInterval: durationVar("PAYOUT_WORKER_INTERVAL", 20*time.Second),
			RoleInterval:   durationVar("ROLE_WORKER_INTERVAL", 20*time.Second),
			MaxAttempts:    intVar("WORKER_MAX_ATTEMPTS", 5),
			RequestTimeout: durationVar("WORKER_REQUEST_TIMEOUT", 15*time.Second),
			PayoutFailFast: env.GetBool("PAYOUT_FAIL_FAST", false),
			TrackSent:      env.GetBool("PAYOUT_TRACK_SENT", false),
		},
		Discord: Discord{
			BotToken: strings.TrimSpace(env.GetEnv("DISCORD_BOT_TOKEN", "")),
			APIBase:  strings.TrimRight(env.GetEnv("DISCORD_API_BASE", "https://discord.com/api/v10"), "/"),
			Mock:     env.GetBool("DISCORD_MOCK", providerMock),
		},
		Alerts: Alerts{
			Brokers: splitList(env.GetEnv("KAFKA_BROKERS", "")),
			Topic:   env.GetEnv("KAFKA_ALERT_TOPIC", "guildpay.alerts"),
		},
		Archive: Archive{
			Enabled:         env.GetBool("S3_ARCHIVE_ENABLED", false),
			AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
			Region:          env.GetEnv("S3_REGION", "us-east-1"),
			BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
			EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		},
	}
	cfg.Admin.APIKeyHash = strings.TrimSpace(env.GetEnv("ADMIN_API_KEY_HASH", ""))

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Archive.Enabled {
		if c.Archive.AccessKeyID == "" || c.Archive.SecretAccessKey == "" || c.Archive.BucketName == "" {
			return fmt.Errorf("%w: S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY and S3_BUCKET_NAME are required when S3_ARCHIVE_ENABLED", ErrInvalidConfig)
		}
	}
	return nil
}

// DSN builds the go-sql-driver/mysql data source name.
func (d Database) DSN() string {
	// clientFoundRows makes conditional UPDATEs report matched rows, not changed rows.
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC&clientFoundRows=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// MigrateURL is the golang-migrate form of the same connection.
func (d Database) MigrateURL() string {
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

func (c Cache) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
