package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment overrides. Nested keys use a double
// underscore: STUDYDECK_SESSION__MINUTES=10.
const EnvPrefix = "STUDYDECK_"

// DefaultFile is read when no config file is given and it exists.
const DefaultFile = "studydeck.yaml"

// Config is the application configuration.
type Config struct {
	Env      string        `koanf:"env" validate:"oneof=local production"`
	DecksDir string        `koanf:"decks_dir" validate:"required"`
	ReposDir string        `koanf:"repos_dir" validate:"required"`
	Sources  []string      `koanf:"sources" validate:"dive,required"`
	Session  SessionConfig `koanf:"session"`
	Storage  StorageConfig `koanf:"storage"`
	User     UserConfig    `koanf:"user"`
	HTTP     HTTPConfig    `koanf:"http"`
}

// SessionConfig controls study sessions.
type SessionConfig struct {
	Minutes         int           `koanf:"minutes" validate:"oneof=5 10 15"`
	TransitionDelay time.Duration `koanf:"transition_delay" validate:"min=0"`
	PersistAttempts int           `koanf:"persist_attempts" validate:"min=1,max=5"`
}

// StorageConfig selects and tunes the progress store.
type StorageConfig struct {
	Driver          string        `koanf:"driver" validate:"oneof=sqlite postgres"`
	DSN             string        `koanf:"dsn" validate:"required"`
	MaxConns        int           `koanf:"max_conns" validate:"min=1"`
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime" validate:"min=0"`
	ResetSchedule   string        `koanf:"reset_schedule" validate:"required"`
}

// UserConfig identifies the local user. An empty ID studies signed out.
type UserConfig struct {
	ID string `koanf:"id"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr string `koanf:"addr" validate:"required"`
}

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"env":               "env",
	"decks-dir":         "decks_dir",
	"repos-dir":         "repos_dir",
	"source":            "sources",
	"minutes":           "session.minutes",
	"transition-delay":  "session.transition_delay",
	"persist-attempts":  "session.persist_attempts",
	"driver":            "storage.driver",
	"dsn":               "storage.dsn",
	"max-conns":         "storage.max_conns",
	"max-conn-lifetime": "storage.max_conn_lifetime",
	"reset-schedule":    "storage.reset_schedule",
	"user":              "user.id",
	"addr":              "http.addr",
}

// RegisterFlags adds every configuration flag, with its default, to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file (default "+DefaultFile+" if present)")
	fs.String("env", "local", "environment: local or production")
	fs.String("decks-dir", "decks", "directory of markdown decks")
	fs.String("repos-dir", "repos", "directory git sources are cloned into")
	fs.StringSlice("source", nil, "git URL of a deck repository (repeatable)")
	fs.Int("minutes", 5, "session length in minutes: 5, 10 or 15")
	fs.Duration("transition-delay", 300*time.Millisecond, "pause between a rating and the next card")
	fs.Int("persist-attempts", 1, "attempts to save each review")
	fs.String("driver", "sqlite", "storage driver: sqlite or postgres")
	fs.String("dsn", "studydeck.db", "storage data source name")
	fs.Int("max-conns", 10, "maximum storage connections")
	fs.Duration("max-conn-lifetime", 30*time.Minute, "maximum lifetime of a storage connection")
	fs.String("reset-schedule", "5 0 * * *", "cron schedule of the daily XP reset")
	fs.String("user", "", "user id progress is saved under; empty studies signed out")
	fs.String("addr", ":8080", "HTTP listen address")
}

// Load builds the configuration from flag defaults, the config file,
// STUDYDECK_ environment variables and explicitly set flags, in increasing
// order of precedence. A .env file in the working directory is loaded into
// the environment first.
func Load(flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")

	// Unchanged flags only fill keys nothing else has set, so the same
	// provider serves as the defaults layer first and the override layer last.
	if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey(flags)), nil); err != nil {
		return nil, fmt.Errorf("failed to load flag defaults: %w", err)
	}

	path, _ := flags.GetString("config")
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey(flags)), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg and returns the translated violations.
func Validate(cfg *Config) error {
	validate, trans, err := newValidator()
	if err != nil {
		return fmt.Errorf("failed to create new validator: %w", err)
	}

	err = validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, e.Translate(trans))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, ", "))
}

func flagKey(flags *pflag.FlagSet) func(f *pflag.Flag) (string, interface{}) {
	return func(f *pflag.Flag) (string, interface{}) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(flags, f)
	}
}

// envKey turns STUDYDECK_SESSION__MINUTES into session.minutes.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}
