package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

type Config struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT,default=3000"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	// Empty keeps the name index in memory, it is rebuilt from badger at startup anyway
	BlugeFilepath string `env:"BLUGE_FILEPATH"`

	JwtSecret                    string        `env:"JWT_SECRET,required=true"`
	RefSecret                    string        `env:"REF_SECRET,required=true"`
	AccessTokenDuration          time.Duration `env:"ACCESS_TOKEN_DURATION,default=30000s"`
	RefreshTokenDuration         time.Duration `env:"REFRESH_TOKEN_DURATION,default=30000s"`
	RefreshedAccessTokenDuration time.Duration `env:"REFRESHED_ACCESS_TOKEN_DURATION,default=6000s"`
	PasswordHashIterations       int           `env:"PASSWORD_HASH_ITERATIONS,default=1"`
	PasswordHashMemoryKB         int           `env:"PASSWORD_HASH_MEMORY_KB,default=16384"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=32"`
	DeliveryTimeout      time.Duration `env:"DELIVERY_TIMEOUT,default=2s"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	GCInterval           time.Duration `env:"GC_INTERVAL,default=5m"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	AllowedOrigins       string        `env:"ALLOWED_ORIGINS"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=15s"`

	// Empty disables moderation
	CensoredWords        string `env:"CENSORED_WORDS"`
	CharacterReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`
}

// LoadConfig reads an optional .env file, then the environment.
// Variables already set in the environment win over the file.
func LoadConfig(files ...string) (Config, error) {
	_ = godotenv.Load(files...)

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if _, err := CharacterRune(c.CharacterReplacement); err != nil {
		return err
	}
	if c.JwtSecret == c.RefSecret {
		return fmt.Errorf("JWT_SECRET and REF_SECRET must differ")
	}
	if c.Port <= 0 {
		return fmt.Errorf("PORT must be positive, got %d", c.Port)
	}
	if c.PasswordHashIterations <= 0 || c.PasswordHashMemoryKB <= 0 {
		return fmt.Errorf("password hash settings must be positive")
	}
	if c.ConnectionBufferSize <= 0 {
		return fmt.Errorf("CONNECTION_BUFFER_SIZE must be positive, got %d", c.ConnectionBufferSize)
	}
	durations := map[string]time.Duration{
		"ACCESS_TOKEN_DURATION":           c.AccessTokenDuration,
		"REFRESH_TOKEN_DURATION":          c.RefreshTokenDuration,
		"REFRESHED_ACCESS_TOKEN_DURATION": c.RefreshedAccessTokenDuration,
		"DELIVERY_TIMEOUT":                c.DeliveryTimeout,
		"WRITE_TIMEOUT":                   c.WriteTimeout,
		"SHUTDOWN_TIMEOUT":                c.ShutdownTimeout,
		"GC_INTERVAL":                     c.GCInterval,
		"RESTART_INTERVAL":                c.RestartInterval,
		"METRIC_INTERVAL":                 c.MetricInterval,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Origins returns the allowed websocket origins, empty means any.
func (c Config) Origins() []string {
	return splitList(c.AllowedOrigins)
}

func (c Config) CensoredWordList() []string {
	return splitList(c.CensoredWords)
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}

func splitList(value string) []string {
	return lo.FilterMap(strings.Split(value, "|"), func(item string, _ int) (string, bool) {
		item = strings.TrimSpace(item)
		return item, item != ""
	})
}
