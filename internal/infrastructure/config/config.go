package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

var ErrInvalidConfig = errors.New("invalid config")

const (
	StoreRedis  = "redis"
	StoreMemory = "memory"

	PersistInline = "inline"
	PersistQueue  = "queue"
)

// Duration reads "2s" style strings from TOML and the environment.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("time.ParseDuration: %w", err)
	}

	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Config struct {
	Server ServerConfig `toml:"server"`
	Redis  RedisConfig  `toml:"redis"`
	Store  StoreConfig  `toml:"store"`
	Live   LiveConfig   `toml:"live"`
	Log    LogConfig    `toml:"log"`
}

type ServerConfig struct {
	HTTPAddr        string   `toml:"http_addr"`
	GRPCAddr        string   `toml:"grpc_addr"`
	AllowedOrigins  []string `toml:"allowed_origins"`
	EventsPerSecond float64  `toml:"events_per_second"`
	EventBurst      int      `toml:"event_burst"`
	SendBuffer      int      `toml:"send_buffer"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type StoreConfig struct {
	Backend     string `toml:"backend"`
	Persistence string `toml:"persistence"`
}

type LiveConfig struct {
	DebounceWindow    Duration `toml:"debounce_window"`
	SyncRetryInterval Duration `toml:"sync_retry_interval"`
	SyncMaxAttempts   int      `toml:"sync_max_attempts"`
	StaleGrace        Duration `toml:"stale_grace"`
	SweepInterval     Duration `toml:"sweep_interval"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the settings of the embedded example file.
func Default() *Config {
	var cfg Config
	if err := toml.Unmarshal(exampleConf, &cfg); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}

	return &cfg
}

// Load layers the defaults, the TOML file at path (when path is not empty)
// and the environment, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("os.ReadFile: %w", err)
		}

		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("toml.Unmarshal: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("cfg.applyEnv: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	env := func(key, fallback string) string {
		if value, ok := lookup(key); ok {
			return value
		}

		return fallback
	}

	c.Server.HTTPAddr = env("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = env("GRPC_ADDR", c.Server.GRPCAddr)
	if v, ok := lookup("CORS_ALLOWED_ORIGINS"); ok {
		c.Server.AllowedOrigins = splitCSV(v)
	}

	c.Redis.Addr = env("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = env("REDIS_PASSWORD", c.Redis.Password)
	c.Store.Backend = env("STORE_BACKEND", c.Store.Backend)
	c.Store.Persistence = env("PERSISTENCE", c.Store.Persistence)
	c.Log.Level = env("LOG_LEVEL", c.Log.Level)
	c.Log.Format = env("LOG_FORMAT", c.Log.Format)

	ints := map[string]*int{
		"REDIS_DB":          &c.Redis.DB,
		"SYNC_MAX_ATTEMPTS": &c.Live.SyncMaxAttempts,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok {
			continue
		}

		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w: %w", key, ErrInvalidConfig, err)
		}
		*dst = n
	}

	durations := map[string]*Duration{
		"DEBOUNCE_WINDOW":     &c.Live.DebounceWindow,
		"SYNC_RETRY_INTERVAL": &c.Live.SyncRetryInterval,
		"STALE_GRACE":         &c.Live.StaleGrace,
		"SWEEP_INTERVAL":      &c.Live.SweepInterval,
	}
	for key, dst := range durations {
		v, ok := lookup(key)
		if !ok {
			continue
		}

		if err := dst.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%s: %w: %w", key, ErrInvalidConfig, err)
		}
	}

	return nil
}

func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("store.backend %q: %w", c.Store.Backend, ErrInvalidConfig)
	}

	switch c.Store.Persistence {
	case PersistInline, PersistQueue:
	default:
		return fmt.Errorf("store.persistence %q: %w", c.Store.Persistence, ErrInvalidConfig)
	}

	if c.Store.Persistence == PersistQueue && c.Store.Backend != StoreRedis {
		return fmt.Errorf("queued persistence needs the redis store: %w", ErrInvalidConfig)
	}

	if c.Live.SweepInterval.Duration <= 0 {
		return fmt.Errorf("live.sweep_interval must be positive: %w", ErrInvalidConfig)
	}

	return nil
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
