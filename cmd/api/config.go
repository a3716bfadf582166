package main

import (
	"github.com/fastprodman/creatorledger/internal/config"
)

type apiConfig struct {
	config.ServerConfig
	Postgres config.PostgresConfig
	Ledger   config.LedgerConfig
	Fees     config.FeesConfig
	Auth     config.AuthConfig
	Redis    config.RedisConfig
	Kafka    config.KafkaConfig
	Checkout config.CheckoutConfig
	Outbox   config.OutboxConfig
}
