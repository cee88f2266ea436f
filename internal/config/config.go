package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// HTTP settings shared by both services.
type HTTP struct {
	Port         string  `env:"PORT"`
	CORSOrigin   string  `env:"CORS_ORIGIN" envDefault:"*"`
	RateLimitRPS float64 `env:"RATE_LIMIT_RPS" envDefault:"0"`
	RateBurst    int     `env:"RATE_LIMIT_BURST" envDefault:"20"`
	LogLevel     string  `env:"LOG_LEVEL" envDefault:"info"`
}

type Trading struct {
	HTTP
	StocksPath         string        `env:"STOCKS_PATH" envDefault:"stocks.json"`
	StoreBackend       string        `env:"STORE_BACKEND" envDefault:"file"`
	DatabaseURL        string        `env:"DATABASE_URL"`
	KafkaBrokers       []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaEventsTopic   string        `env:"KAFKA_EVENTS_TOPIC" envDefault:"trade-events"`
	KafkaRequestsTopic string        `env:"KAFKA_REQUESTS_TOPIC"`
	KafkaGroupID       string        `env:"KAFKA_GROUP_ID" envDefault:"trading-service"`
	CacheTTL           time.Duration `env:"CACHE_TTL" envDefault:"60s"`
}

type User struct {
	HTTP
	UsersPath string `env:"USERS_PATH" envDefault:"user.json"`
}

type Producer struct {
	KafkaBrokers []string      `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"kafka:9092"`
	Topic        string        `env:"KAFKA_REQUESTS_TOPIC" envDefault:"transfer-requests"`
	Rate         int           `env:"TRANSFERS_PER_SEC" envDefault:"1"`
	StayAlive    bool          `env:"PRODUCER_STAY_ALIVE" envDefault:"false"`
	TTL          time.Duration `env:"PRODUCER_TTL" envDefault:"2m"`
	EnsureTopic  bool          `env:"PRODUCER_ENSURE_TOPIC" envDefault:"true"`
	SeedCount    int           `env:"SEED_COUNT" envDefault:"1000"`
	SeedOutput   string        `env:"SEED_OUTPUT" envDefault:"stocks.json"`
	Users        int           `env:"SEED_USERS" envDefault:"10"`
}

// Load reads an optional .env file and then fills cfg from the process
// environment. Variables already set win over the file.
func Load(cfg any) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return parse(cfg, env.Options{})
}

// LoadFrom fills cfg from environ only; it does not look at the process
// environment or any .env file.
func LoadFrom(cfg any, environ map[string]string) error {
	return parse(cfg, env.Options{Environment: environ})
}

func parse(cfg any, opts env.Options) error {
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func LoadTrading() (Trading, error) {
	var cfg Trading
	if err := Load(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.normalize()
}

func LoadUser() (User, error) {
	var cfg User
	if err := Load(&cfg); err != nil {
		return cfg, err
	}
	cfg.HTTP.withDefaultPort("3000")
	return cfg, nil
}

func LoadProducer() (Producer, error) {
	var cfg Producer
	if err := Load(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.normalize()
}

func (h *HTTP) withDefaultPort(port string) {
	if strings.TrimSpace(h.Port) == "" {
		h.Port = port
	}
}

func (c *Trading) normalize() error {
	c.HTTP.withDefaultPort("3001")
	c.KafkaBrokers = compact(c.KafkaBrokers)
	if c.KafkaRequestsTopic != "" && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_REQUESTS_TOPIC requires KAFKA_BROKERS")
	}
	return nil
}

func (c *Producer) normalize() error {
	c.KafkaBrokers = compact(c.KafkaBrokers)
	if len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is empty")
	}
	if c.Rate <= 0 || c.Rate > 50 {
		c.Rate = 1
	}
	return nil
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
