package config

import (
	"fmt"
	"math"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Service       Service       `envconfig:"SERVICE"`
	MySQL         MySQL         `envconfig:"MYSQL"`
	Valkey        Valkey        `envconfig:"VALKEY"`
	SQS           SQS           `envconfig:"SQS"`
	ClickHouse    ClickHouse    `envconfig:"CLICKHOUSE"`
	Kafka         Kafka         `envconfig:"KAFKA"`
	Consumer      Consumer      `envconfig:"CONSUMER"`
	ConversionAPI ConversionAPI `envconfig:"CONVERSION_API"`
	Attribution   Attribution   `envconfig:"ATTRIBUTION"`
	Ledger        Ledger        `envconfig:"LEDGER"`
}

type Service struct {
	Environment  string `envconfig:"ENVIRONMENT" required:"true"`
	LogLevel     string `envconfig:"LOG_LEVEL"`
	APIPort      string `envconfig:"API_PORT" default:"8080"`
	Host         string `envconfig:"HOST" default:"localhost:8080"`
	WebhookToken string `envconfig:"WEBHOOK_TOKEN"`
}

type MySQL struct {
	Host            string `envconfig:"HOST"`
	Port            string `envconfig:"PORT" default:"3306"`
	Database        string `envconfig:"DATABASE"`
	User            string `envconfig:"USER"`
	Password        string `envconfig:"PASSWORD"`
	MaxOpenConns    int    `envconfig:"MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int    `envconfig:"MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime int    `envconfig:"CONN_MAX_LIFETIME_SEC" default:"3600"`
}

type Valkey struct {
	Host     string `envconfig:"HOST"`
	Port     string `envconfig:"PORT" default:"6379"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0"`
}

type SQS struct {
	Endpoint string `envconfig:"ENDPOINT"`
	QueueURL string `envconfig:"QUEUE_URL" required:"true"`
	Region   string `envconfig:"REGION" required:"true"`
}

type ClickHouse struct {
	Host            string `envconfig:"HOST" required:"true"`
	Port            string `envconfig:"PORT" required:"true"`
	Database        string `envconfig:"DB" required:"true"`
	User            string `envconfig:"USER" default:""`
	Password        string `envconfig:"PASSWORD" default:""`
	UseTLS          bool   `envconfig:"USE_TLS" default:"false"`
	MaxOpenConns    int    `envconfig:"MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int    `envconfig:"MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime int    `envconfig:"CONN_MAX_LIFETIME_SEC" default:"3600"`
}

type Kafka struct {
	Brokers      []string `envconfig:"BROKERS"`
	OutcomeTopic string   `envconfig:"OUTCOME_TOPIC" default:"conversion-outcomes"`
}

type Consumer struct {
	BatchSizeMax    int    `envconfig:"BATCH_SIZE_MAX" default:"100"`
	BatchTimeoutSec int    `envconfig:"BATCH_TIMEOUT_SEC" default:"5"`
	Workers         int    `envconfig:"WORKERS" default:"4"`
	RetryDelaySec   int    `envconfig:"RETRY_DELAY_SEC" default:"30"`
	HealthCheckPort string `envconfig:"HEALTH_CHECK_PORT" default:"8081"`
}

type ConversionAPI struct {
	BaseURL        string        `envconfig:"BASE_URL" default:"https://graph.facebook.com"`
	Version        string        `envconfig:"VERSION" default:"v19.0"`
	AccountID      string        `envconfig:"ACCOUNT_ID"`
	AccessToken    string        `envconfig:"ACCESS_TOKEN"`
	TestEventCode  string        `envconfig:"TEST_CODE"`
	Timeout        time.Duration `envconfig:"TIMEOUT" default:"10s"`
	MaxAttempts    int           `envconfig:"MAX_ATTEMPTS" default:"3"`
	InitialBackoff time.Duration `envconfig:"INITIAL_BACKOFF" default:"1s"`
}

type Attribution struct {
	StoreTimeout       time.Duration `envconfig:"STORE_TIMEOUT" default:"5s"`
	FallbackSource     string        `envconfig:"FALLBACK_SOURCE" default:"lost_attribution_sentinel"`
	FallbackMedium     string        `envconfig:"FALLBACK_MEDIUM" default:"payment"`
	FallbackCampaign   string        `envconfig:"FALLBACK_CAMPAIGN" default:"direct_purchase"`
	DefaultCountryCode string        `envconfig:"DEFAULT_COUNTRY_CODE" default:"55"`
	DefaultCurrency    string        `envconfig:"DEFAULT_CURRENCY" default:"BRL"`
}

type Ledger struct {
	Backend       string        `envconfig:"BACKEND" default:"valkey"`
	Retention     time.Duration `envconfig:"RETENTION" default:"48h"`
	ClaimTTL      time.Duration `envconfig:"CLAIM_TTL" default:"2m"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"10m"`
	KeyPrefix     string        `envconfig:"KEY_PREFIX" default:"conversion:ledger:"`
}

// MaxAttempts bounds CONVERSION_API_MAX_ATTEMPTS to what the conversion log stores.
const MaxAttempts = 255

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.MySQL.Host == "" || c.MySQL.Database == "" {
		return fmt.Errorf("MYSQL_HOST and MYSQL_DATABASE are required")
	}

	switch c.Ledger.Backend {
	case "valkey":
		if c.Valkey.Host == "" {
			return fmt.Errorf("VALKEY_HOST is required when LEDGER_BACKEND=valkey")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported LEDGER_BACKEND: %s (supported: valkey, memory)", c.Ledger.Backend)
	}

	if c.ConversionAPI.MaxAttempts < 1 || c.ConversionAPI.MaxAttempts > MaxAttempts {
		return fmt.Errorf("CONVERSION_API_MAX_ATTEMPTS must be between 1 and %d", MaxAttempts)
	}

	// A claim that lapses mid-send lets a redelivered job send the same event again.
	if budget := c.ConversionAPI.SendBudget(); c.Ledger.ClaimTTL <= budget {
		return fmt.Errorf("LEDGER_CLAIM_TTL (%s) must exceed the worst-case send time %s", c.Ledger.ClaimTTL, budget)
	}

	if c.Consumer.Workers < 1 {
		return fmt.Errorf("CONSUMER_WORKERS must be at least 1")
	}

	return nil
}

// Validate checks the settings only the consumer needs to reach the conversion API.
func (c ConversionAPI) Validate() error {
	if c.AccountID == "" || c.AccessToken == "" {
		return fmt.Errorf("CONVERSION_API_ACCOUNT_ID and CONVERSION_API_ACCESS_TOKEN are required")
	}
	return nil
}

// SendBudget is the longest one dispatch can spend on the API: every attempt
// timing out plus the doubling backoff between them. It saturates instead of
// overflowing.
func (c ConversionAPI) SendBudget() time.Duration {
	var total time.Duration
	add := func(d time.Duration) {
		if d < 0 || total > math.MaxInt64-d {
			total = math.MaxInt64
			return
		}
		total += d
	}

	delay := c.InitialBackoff
	for i := 0; i < c.MaxAttempts; i++ {
		add(c.Timeout)
		if i > 0 {
			add(delay)
			if delay > math.MaxInt64/2 {
				delay = math.MaxInt64
			} else {
				delay *= 2
			}
		}
	}
	return total
}
