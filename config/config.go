package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	Env            string `env:"ENVIRONMENT" envDefault:"development"`
	ServerPort     int    `env:"PORT" envDefault:"8080"`
	BasicAuthCreds string `env:"BASIC_AUTH_CREDS"`
	DatabasePath   string `env:"DATABASE_PATH" envDefault:"isitup.sqlite"`
	TrackFeature   bool   `env:"IS_IT_UP_TRACK" envDefault:"true"`

	Sweep struct {
		Interval      time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
		Concurrency   int           `env:"SWEEP_CONCURRENCY" envDefault:"5"`
		VerifyTimeout time.Duration `env:"VERIFY_TIMEOUT" envDefault:"10s"`
	}

	Senders []string `env:"NOTIFY_SENDERS" envSeparator:"," envDefault:"log"`
	Webhook struct {
		URL     string        `env:"WEBHOOK_URL"`
		Timeout time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"10s"`
	}
	Redis struct {
		Address  string `env:"REDIS_ADDRESS"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
		Channel  string `env:"REDIS_CHANNEL" envDefault:"isitup:notifications"`
	}
	Mailgun struct {
		Domain    string        `env:"MAILGUN_DOMAIN"`
		APIKey    string        `env:"MAILGUN_API_KEY"`
		APIBase   string        `env:"MAILGUN_API_BASE"`
		From      string        `env:"MAILGUN_FROM"`
		Recipient string        `env:"MAILGUN_RECIPIENT"`
		Timeout   time.Duration `env:"MAILGUN_TIMEOUT" envDefault:"10s"`
	}

	log   *zap.Logger
	creds map[string]string
}

func NewConfig(lc fx.Lifecycle, log *zap.Logger) (*Config, error) {
	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	cfg.log = log

	creds, err := cfg.parseCreds()
	if err != nil {
		if cfg.Env == "development" {
			cfg.log.Sugar().Infof("%s (auth is disabled in development env)", err)
		} else {
			return nil, err
		}
	}
	cfg.creds = creds

	return cfg, nil
}

// Parse reads the configuration from the environment and validates it.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	for i, s := range cfg.Senders {
		cfg.Senders[i] = strings.ToLower(strings.TrimSpace(s))
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	var errs []error
	if cfg.Sweep.Interval <= 0 {
		errs = append(errs, fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", cfg.Sweep.Interval))
	}
	if cfg.Sweep.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("SWEEP_CONCURRENCY must be at least 1, got %d", cfg.Sweep.Concurrency))
	}
	if cfg.Sweep.VerifyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("VERIFY_TIMEOUT must be positive, got %s", cfg.Sweep.VerifyTimeout))
	}
	if cfg.SenderEnabled("webhook") && cfg.Webhook.URL == "" {
		errs = append(errs, errors.New("WEBHOOK_URL is required when the webhook sender is enabled"))
	}
	if cfg.SenderEnabled("redis") && cfg.Redis.Address == "" {
		errs = append(errs, errors.New("REDIS_ADDRESS is required when the redis sender is enabled"))
	}
	if cfg.SenderEnabled("email") {
		for _, required := range []struct{ name, value string }{
			{"MAILGUN_DOMAIN", cfg.Mailgun.Domain},
			{"MAILGUN_API_KEY", cfg.Mailgun.APIKey},
			{"MAILGUN_FROM", cfg.Mailgun.From},
			{"MAILGUN_RECIPIENT", cfg.Mailgun.Recipient},
		} {
			if required.value == "" {
				errs = append(errs, fmt.Errorf("%s is required when the email sender is enabled", required.name))
			}
		}
	}
	return errors.Join(errs...)
}

func (cfg *Config) SenderEnabled(name string) bool {
	return slices.Contains(cfg.Senders, name)
}

func (cfg *Config) GetCreds() map[string]string {
	return cfg.creds
}

func (cfg *Config) parseCreds() (map[string]string, error) {
	if cfg.BasicAuthCreds == "" {
		return nil, errors.New("BASIC_AUTH_CREDS envvar must be populated")
	}

	creds := strings.Split(cfg.BasicAuthCreds, ",")
	result := make(map[string]string)
	for _, cred := range creds {
		userPass := strings.Split(cred, ":")
		if len(userPass) != 2 {
			return nil, fmt.Errorf("failed to parse '%s', each credential should be delimited by a colon -- user1:pass1,user2:pass2", cred)
		}

		user, pass := userPass[0], userPass[1]
		result[strings.Trim(user, " ")] = strings.Trim(pass, " ")
	}

	return result, nil
}
