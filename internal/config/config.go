package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

type Config struct {
	Primary   Primary         `koanf:"primary" validate:"required"`
	Server    ServerConfig    `koanf:"server" validate:"required"`
	Auth      AuthConfig      `koanf:"auth" validate:"required"`
	RateLimit RateLimitConfig `koanf:"rate_limit" validate:"required"`
	Worker    WorkerConfig    `koanf:"worker" validate:"required"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`
	// BodyLimit is the hard request-body ceiling enforced by the HTTP
	// layer (echo syntax, e.g. "1M"). Oversized messages under this
	// ceiling are a worker concern, not a request-time rejection.
	BodyLimit string `koanf:"body_limit" validate:"required"`
}

type AuthConfig struct {
	Secret string `koanf:"secret" validate:"required"`
	// TokenTTL is deliberately short by default so expiry is testable;
	// production deployments should raise it.
	TokenTTL time.Duration `koanf:"token_ttl" validate:"required"`
	Subject  string        `koanf:"subject" validate:"required"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests" validate:"required,gt=0"`
	Window   time.Duration `koanf:"window" validate:"required"`
}

type WorkerConfig struct {
	Interval        time.Duration `koanf:"interval" validate:"required"`
	FailureRate     float64       `koanf:"failure_rate" validate:"gte=0,lte=1"`
	MaxMessageChars int           `koanf:"max_message_chars" validate:"required,gt=0"`
}

// defaults mirror the reference deployment: 5s demo tokens, 100 requests
// per minute per client, one worker pass per second, 500-character payload
// ceiling, 30% injected failure.
func defaults() map[string]any {
	return map[string]any{
		"primary.env":                 "development",
		"server.port":                 "3000",
		"server.read_timeout":         10,
		"server.write_timeout":        10,
		"server.idle_timeout":         60,
		"server.cors_allowed_origins": []string{"*"},
		"server.body_limit":           "1M",
		"auth.secret":                 "qa-secret",
		"auth.token_ttl":              "5s",
		"auth.subject":                "qa",
		"rate_limit.requests":         100,
		"rate_limit.window":           "60s",
		"worker.interval":             "1s",
		"worker.failure_rate":         0.3,
		"worker.max_message_chars":    500,
	}
}

// LoadConfig loads the configuration from defaults overlaid with
// LOGPIPE_-prefixed environment variables using koanf. A double underscore
// separates nesting levels (LOGPIPE_AUTH__SECRET -> auth.secret).
func LoadConfig() (mainConfig *Config, err error) {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	k := koanf.New(".")
	err = k.Load(confmap.Provider(defaults(), "."), nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not load default configuration")
	}

	err = k.Load(env.Provider("LOGPIPE_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "LOGPIPE_")), "__", ".")
	}), nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not load env variables")
	}

	mainConfig = &Config{}
	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not unmarshal config")
	}

	validate := validator.New()
	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not validate config")
	}

	return
}
