package config

import (
	"log/slog"
	"time"
)

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN"`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" envDefault:"30m"`
}

type ServerConfig struct {
	Port            uint16        `env:"APP_PORT" envDefault:"8080"`
	AppEnv          string        `env:"APP_ENV" envDefault:"PROD"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" envDefault:"INFO"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// IsDev reports whether internal error details may be exposed to clients.
func (s ServerConfig) IsDev() bool { return s.AppEnv == "DEV" }

type LedgerConfig struct {
	TxMaxAttempts  int           `env:"LEDGER_TX_MAX_ATTEMPTS" envDefault:"3"`
	TxRetryBackoff time.Duration `env:"LEDGER_TX_RETRY_BACKOFF" envDefault:"20ms"`
	MinP2PAmount   int64         `env:"LEDGER_MIN_P2P_AMOUNT" envDefault:"100"`
}

type FeesConfig struct {
	File           string `env:"FEES_FILE" envDefault:""`
	PlatformFeeBps int64  `env:"FEES_PLATFORM_BPS" envDefault:"500"`
	TransferFeeBps int64  `env:"FEES_TRANSFER_BPS" envDefault:"0"`
}

type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET"`
	Issuer    string `env:"AUTH_JWT_ISSUER" envDefault:""`
}

type RedisConfig struct {
	URL        string        `env:"REDIS_URL" envDefault:""`
	RateLimit  int64         `env:"RATE_LIMIT_MAX" envDefault:"30"`
	RateWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

type KafkaConfig struct {
	Brokers     []string `env:"KAFKA_BROKERS" envDefault:""`
	TopicPrefix string   `env:"KAFKA_TOPIC_PREFIX" envDefault:"ledger."`
}

type CheckoutConfig struct {
	BaseURL       string        `env:"CHECKOUT_BASE_URL" envDefault:"https://api.whop.com/api/v1"`
	APIKey        string        `env:"CHECKOUT_API_KEY" envDefault:""`
	CompanyID     string        `env:"CHECKOUT_COMPANY_ID" envDefault:""`
	WebhookSecret string        `env:"CHECKOUT_WEBHOOK_SECRET" envDefault:""`
	Timeout       time.Duration `env:"CHECKOUT_TIMEOUT" envDefault:"10s"`
}

type OutboxConfig struct {
	PollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"2s"`
	BatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
}
