package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Postgres Postgres
	Auth     Auth `ignored:"true"`

	Port               string        `envconfig:"PORT" default:"8080"`
	VotingPower        string        `envconfig:"VOTING_POWER" default:"100"`
	WhitelistedOrigins []string      `envconfig:"WHITELISTED_ORIGINS" default:"*"`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	CookieDomain       string        `envconfig:"COOKIE_DOMAIN"`
	CookieSecure       bool          `envconfig:"COOKIE_SECURE" default:"true"`
}

// Auth is only decoded for the API server.
type Auth struct {
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
}

type Postgres struct {
	Host         string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port         string `envconfig:"POSTGRES_PORT" default:"5432"`
	User         string `envconfig:"POSTGRES_USER"`
	Password     string `envconfig:"POSTGRES_PASSWORD"`
	DB           string `envconfig:"POSTGRES_DB"`
	SSLMode      string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
	MaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns int    `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
}

// Load reads an optional .env file and decodes the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to load .env file")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process environment")
	}
	if _, err := cfg.VotingPowerDecimal(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadServer is Load plus the settings only the API server needs.
func LoadServer() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := envconfig.Process("", &cfg.Auth); err != nil {
		return nil, errors.Wrap(err, "failed to process auth environment")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must not be empty")
	}
	return cfg, nil
}

func (c *Config) VotingPowerDecimal() (decimal.Decimal, error) {
	power, err := decimal.NewFromString(c.VotingPower)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "invalid VOTING_POWER %q", c.VotingPower)
	}
	if !power.IsPositive() {
		return decimal.Zero, fmt.Errorf("VOTING_POWER must be positive, got %s", power)
	}
	return power, nil
}

func (p Postgres) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     p.Host + ":" + p.Port,
		Path:     p.DB,
		RawQuery: "sslmode=" + url.QueryEscape(p.SSLMode),
	}
	return u.String()
}

// NewLogger builds the process logger. Unknown levels fall back to info.
func NewLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.Out = os.Stdout
	log.Formatter = &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	log.Level = lvl
	return log
}
