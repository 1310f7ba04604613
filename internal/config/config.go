package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App       App       `yaml:"app"`
	HTTP      HTTP      `yaml:"http"`
	Log       Log       `yaml:"log"`
	Postgres  Postgres  `yaml:"postgres"`
	Redis     Redis     `yaml:"redis"`
	Kafka     Kafka     `yaml:"kafka"`
	Promotion Promotion `yaml:"promotion"`
	Dispatch  Dispatch  `yaml:"dispatch"`
	Retry     Retry     `yaml:"retry"`
	Calendar  Calendar  `yaml:"calendar"`
	Decision  Decision  `yaml:"decision"`
	Engine    Engine    `yaml:"engine"`
}

type App struct {
	Name    string `yaml:"name" env:"APP_NAME" env-default:"case-event-handler"`
	Version string `yaml:"version" env:"APP_VERSION" env-default:"1.0.0"`
}

type HTTP struct {
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-default:"user"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-default:"password"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB" env-default:"case_event_handler"`
}

type Redis struct {
	Addr string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
}

type Kafka struct {
	Brokers         []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	EventsTopic     string   `yaml:"events_topic" env:"KAFKA_EVENTS_TOPIC" env-default:"case-events"`
	DeadLetterTopic string   `yaml:"dead_letter_topic" env:"KAFKA_DEAD_LETTER_TOPIC" env-default:"case-events-dlq"`
	CommandsTopic   string   `yaml:"commands_topic" env:"KAFKA_COMMANDS_TOPIC" env-default:"task-commands"`
	GroupID         string   `yaml:"group_id" env:"KAFKA_GROUP_ID" env-default:"case-event-handler"`
}

type Promotion struct {
	Interval    time.Duration `yaml:"interval" env:"PROMOTION_INTERVAL" env-default:"30s"`
	FeatureFlag string        `yaml:"feature_flag" env:"PROMOTION_FEATURE_FLAG" env-default:"dlq-db-process"`
}

type Dispatch struct {
	Interval  time.Duration `yaml:"interval" env:"DISPATCH_INTERVAL" env-default:"5s"`
	BatchSize int           `yaml:"batch_size" env:"DISPATCH_BATCH_SIZE" env-default:"10"`
	Lease     time.Duration `yaml:"lease" env:"DISPATCH_LEASE" env-default:"60s"`
}

type Retry struct {
	InitialBackoff time.Duration `yaml:"initial_backoff" env:"RETRY_INITIAL_BACKOFF" env-default:"30s"`
	MaxBackoff     time.Duration `yaml:"max_backoff" env:"RETRY_MAX_BACKOFF" env-default:"1h"`
	// MaxAttempts 0 means the classifier always allows another retry.
	MaxAttempts int `yaml:"max_attempts" env:"RETRY_MAX_ATTEMPTS" env-default:"0"`
}

type Calendar struct {
	Jurisdiction string   `yaml:"jurisdiction" env:"CALENDAR_JURISDICTION" env-default:"england"`
	Holidays     []string `yaml:"holidays" env:"CALENDAR_HOLIDAYS"`
}

type Decision struct {
	BaseURL string        `yaml:"base_url" env:"DECISION_BASE_URL" env-default:"http://localhost:8081"`
	Timeout time.Duration `yaml:"timeout" env:"DECISION_TIMEOUT" env-default:"10s"`
}

type Engine struct {
	BaseURL string        `yaml:"base_url" env:"ENGINE_BASE_URL" env-default:"http://localhost:8082"`
	Timeout time.Duration `yaml:"timeout" env:"ENGINE_TIMEOUT" env-default:"10s"`
}

func New() (*Config, error) {
	cfg := &Config{}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		// fallback to env vars if file not found
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	} else {
		// Allow env vars to override config file
		cleanenv.ReadEnv(cfg)
	}

	return cfg, nil
}
