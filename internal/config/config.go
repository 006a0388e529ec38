package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreDynamoDB = "dynamodb"
	StorePostgres = "postgres"
)

type Config struct {
	OrderSvcAddr string `envconfig:"ORDER_SERVICE_ADDR" default:":8082"`
	GRPCAddr     string `envconfig:"ORDER_GRPC_ADDR" default:":50052"`

	Store       string `envconfig:"ORDER_STORE" default:"file"`
	DataDir     string `envconfig:"ORDER_DATA_DIR" default:"./data"`
	StoreKey    string `envconfig:"ORDER_STORE_KEY" default:"orders"`
	FileBackup  bool   `envconfig:"ORDER_FILE_BACKUP" default:"false"`
	PostgresDSN string `envconfig:"POSTGRES_DSN"`

	AWSRegion        string `envconfig:"AWS_REGION"`
	DynamoDBTable    string `envconfig:"DYNAMODB_TABLE"`
	DynamoDBEndpoint string `envconfig:"DYNAMODB_ENDPOINT"` // DynamoDB Local

	KafkaBrokers     string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic       string `envconfig:"KAFKA_TOPIC" default:"order-events"`
	RabbitMQURL      string `envconfig:"RABBITMQ_URL"`
	RabbitMQExchange string `envconfig:"RABBITMQ_EXCHANGE" default:"orders_topic"`
	NotifyBuffer     int    `envconfig:"NOTIFY_BUFFER" default:"256"`

	RestaurantSvcBaseURL string `envconfig:"RESTAURANT_SERVICE_BASEURL"`
	AdminTokenHash       string `envconfig:"ADMIN_TOKEN_HASH"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	StatsTopItems         int  `envconfig:"STATS_TOP_ITEMS" default:"5"`
	StatsExcludeCancelled bool `envconfig:"STATS_EXCLUDE_CANCELLED" default:"false"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load() // load .env if it exists

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	switch c.Store {
	case StoreMemory, StoreFile:
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("config: ORDER_STORE=postgres requires POSTGRES_DSN")
		}
	case StoreDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("config: ORDER_STORE=dynamodb requires DYNAMODB_TABLE")
		}
	default:
		return fmt.Errorf("config: unknown ORDER_STORE %q", c.Store)
	}
	if c.NotifyBuffer <= 0 {
		return fmt.Errorf("config: NOTIFY_BUFFER must be positive, got %d", c.NotifyBuffer)
	}
	return nil
}
