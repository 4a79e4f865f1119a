package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ARENAVIEW_"

// Config holds the runtime settings.
type Config struct {
	LogPath         string        `env:"LOG_PATH" validate:"required"`
	CacheDir        string        `env:"CACHE_DIR" validate:"required"`
	ScryfallURL     string        `env:"SCRYFALL_URL" validate:"required,url"`
	RequestInterval time.Duration `env:"REQUEST_INTERVAL" validate:"gte=0"`
	MaxInflight     int           `env:"MAX_INFLIGHT" validate:"min=1,max=64"`
	// ListenAddr is empty when the HTTP feed is disabled.
	ListenAddr   string        `env:"LISTEN_ADDR" validate:"omitempty,hostname_port"`
	StatsPath    string        `env:"STATS_PATH"`
	LogLevel     string        `env:"LOG_LEVEL" validate:"oneof=trace debug info warn error disabled"`
	LogFormat    string        `env:"LOG_FORMAT" validate:"oneof=console json"`
	LogFile      string        `env:"LOG_FILE"`
	EmitInterval time.Duration `env:"EMIT_INTERVAL" validate:"gte=0"`
}

// fileConfig is the TOML shape. Durations are strings such as "100ms".
type fileConfig struct {
	LogPath         *string `toml:"log_path"`
	CacheDir        *string `toml:"cache_dir"`
	ScryfallURL     *string `toml:"scryfall_url"`
	RequestInterval *string `toml:"request_interval"`
	MaxInflight     *int    `toml:"max_inflight"`
	ListenAddr      *string `toml:"listen_addr"`
	StatsPath       *string `toml:"stats_path"`
	LogLevel        *string `toml:"log_level"`
	LogFormat       *string `toml:"log_format"`
	LogFile         *string `toml:"log_file"`
	EmitInterval    *string `toml:"emit_interval"`
}

const (
	defaultConfigPath      = "~/.config/arenaview/config.toml"
	defaultCacheDir        = "~/.cache/arenaview"
	defaultLogFile         = "~/.local/state/arenaview/arenaview.log"
	defaultScryfallURL     = "https://api.scryfall.com"
	defaultListenAddr      = "127.0.0.1:7777"
	defaultRequestInterval = 100 * time.Millisecond
	defaultEmitInterval    = 100 * time.Millisecond
	defaultMaxInflight     = 8
)

// DefaultLogPath returns the client log location for the current platform.
func DefaultLogPath() string {
	if runtime.GOOS == "darwin" {
		return "~/Library/Logs/Wizards Of The Coast/MTGA/Player.log"
	}
	return "~/AppData/LocalLow/Wizards Of The Coast/MTGA/Player.log"
}

// Default returns the built-in settings with paths expanded.
func Default() Config {
	cfg := Config{
		LogPath:         DefaultLogPath(),
		CacheDir:        defaultCacheDir,
		ScryfallURL:     defaultScryfallURL,
		RequestInterval: defaultRequestInterval,
		MaxInflight:     defaultMaxInflight,
		ListenAddr:      defaultListenAddr,
		LogLevel:        "info",
		LogFormat:       "console",
		LogFile:         defaultLogFile,
		EmitInterval:    defaultEmitInterval,
	}
	cfg.expand()
	return cfg
}

// Load reads the TOML file at path (the default location when empty), then
// applies ARENAVIEW_* environment overrides and validates the result. A
// missing file is not an error.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	data, err := readFile(resolved)
	if err != nil {
		return Config{}, err
	}
	if data != nil {
		var raw fileConfig
		if err := toml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		if err := raw.apply(&cfg); err != nil {
			return Config{}, err
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.normalize()
	cfg.expand()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fieldMessage(fe))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// HTTPEnabled reports whether the HTTP feed should run.
func (c Config) HTTPEnabled() bool { return c.ListenAddr != "" }

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", fe.Field(), fe.Param(), fe.Value())
	case "url":
		return fmt.Sprintf("%s must be a URL, got %v", fe.Field(), fe.Value())
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port, got %v", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
	}
}

func (raw fileConfig) apply(cfg *Config) error {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setDuration := func(name string, dst *time.Duration, src *string) error {
		if src == nil || strings.TrimSpace(*src) == "" {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(*src))
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		*dst = d
		return nil
	}

	setString(&cfg.LogPath, raw.LogPath)
	setString(&cfg.CacheDir, raw.CacheDir)
	setString(&cfg.ScryfallURL, raw.ScryfallURL)
	setString(&cfg.ListenAddr, raw.ListenAddr)
	setString(&cfg.StatsPath, raw.StatsPath)
	setString(&cfg.LogLevel, raw.LogLevel)
	setString(&cfg.LogFormat, raw.LogFormat)
	setString(&cfg.LogFile, raw.LogFile)
	if raw.MaxInflight != nil {
		cfg.MaxInflight = *raw.MaxInflight
	}
	if err := setDuration("request_interval", &cfg.RequestInterval, raw.RequestInterval); err != nil {
		return err
	}
	return setDuration("emit_interval", &cfg.EmitInterval, raw.EmitInterval)
}

// normalize fills blanked required fields back in and lowercases enums.
func (c *Config) normalize() {
	if strings.TrimSpace(c.LogPath) == "" {
		c.LogPath = DefaultLogPath()
	}
	if strings.TrimSpace(c.CacheDir) == "" {
		c.CacheDir = defaultCacheDir
	}
	if strings.TrimSpace(c.ScryfallURL) == "" {
		c.ScryfallURL = defaultScryfallURL
	}
	c.ScryfallURL = strings.TrimRight(strings.TrimSpace(c.ScryfallURL), "/")
	c.ListenAddr = strings.TrimSpace(c.ListenAddr)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
}

func (c *Config) expand() {
	c.LogPath = mustExpand(c.LogPath)
	c.CacheDir = mustExpand(c.CacheDir)
	c.StatsPath = mustExpand(c.StatsPath)
	c.LogFile = mustExpand(c.LogFile)
}

func readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return data, nil
}

// Path returns the config file location Load would read for path.
func Path(path string) (string, error) {
	return resolvePath(path)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
