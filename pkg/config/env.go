package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// AppConfig is the process configuration read from the environment.
type AppConfig struct {
	Port           string   `env:"PORT" envDefault:"8080"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// StoreDriver selects the ledger backend: "postgres" or "memory".
	StoreDriver   string `env:"STORE_DRIVER" envDefault:"postgres"`
	DBHost        string `env:"DB_HOST" envDefault:"localhost"`
	DBUser        string `env:"DB_USER"`
	DBPassword    string `env:"DB_PASSWORD"`
	DBName        string `env:"DB_NAME"`
	DBPort        string `env:"DB_PORT" envDefault:"5432"`
	DBTimeZone    string `env:"DB_TIMEZONE" envDefault:"UTC"`
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"false"`

	RabbitMQHost     string `env:"RABBITMQ_HOST"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUser     string `env:"RABBITMQ_USER" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	MintEventsQueue  string `env:"MINT_EVENTS_QUEUE" envDefault:"nifta_mint_events"`

	PlatformTreasury string `env:"PLATFORM_TREASURY,required,notEmpty"`
	DefaultPriceWei  string `env:"DEFAULT_PRICE_WEI" envDefault:"100000000000000"`
	DefaultTrigger   uint64 `env:"DEFAULT_TRIGGER" envDefault:"1000"`

	SweepSpec string `env:"SWEEP_SPEC" envDefault:"*/30 * * * * *"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses AppConfig from the environment.
func Load() (*AppConfig, error) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// PostgresDSN builds the gorm postgres DSN.
func (c *AppConfig) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBTimeZone)
}

// RabbitMQURL builds the AMQP URL, empty when RabbitMQ is not configured.
func (c *AppConfig) RabbitMQURL() string {
	if c.RabbitMQHost == "" {
		return ""
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.RabbitMQUser, c.RabbitMQPassword, c.RabbitMQHost, c.RabbitMQPort)
}
