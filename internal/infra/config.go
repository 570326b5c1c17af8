package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"pairs_go/internal/analytics"
	"pairs_go/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override, e.g. PAIRS_BINANCE_SYMBOL_A.
const EnvPrefix = "PAIRS"

// Config holds all application settings.
// Values are resolved as defaults, then the YAML file, then the environment.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Binance struct {
		WSURL            string        `yaml:"ws_url" split_words:"true" validate:"required"`
		RestURL          string        `yaml:"rest_url" split_words:"true" validate:"required,url"`
		SymbolA          string        `yaml:"symbol_a" split_words:"true" validate:"required,alphanum"`
		SymbolB          string        `yaml:"symbol_b" split_words:"true" validate:"required,alphanum,nefield=SymbolA"`
		BufferSize       int           `yaml:"buffer_size" split_words:"true" validate:"min=1"`
		BackfillLimit    int           `yaml:"backfill_limit" split_words:"true" validate:"min=0,max=1000"`
		HandshakeTimeout time.Duration `yaml:"handshake_timeout" split_words:"true" validate:"gt=0"`
		ReadTimeout      time.Duration `yaml:"read_timeout" split_words:"true" validate:"gt=0"`
		MaxBackoff       time.Duration `yaml:"max_backoff" split_words:"true" validate:"gt=0"`
	} `yaml:"binance"`

	Pipeline struct {
		IntervalMS        int64         `yaml:"interval_ms" split_words:"true" validate:"gt=0"`
		Window            int           `yaml:"window" validate:"gt=0"`
		ZWindow           int           `yaml:"z_window" split_words:"true" validate:"gte=0"`
		Method            string        `yaml:"method" validate:"required"`
		MinLiquidity      float64       `yaml:"min_liquidity" split_words:"true" validate:"gte=0"`
		EntryThreshold    float64       `yaml:"entry_threshold" split_words:"true"`
		ExitThreshold     float64       `yaml:"exit_threshold" split_words:"true"`
		RecomputeInterval time.Duration `yaml:"recompute_interval" split_words:"true" validate:"gt=0"`
	} `yaml:"pipeline"`

	Alerts struct {
		Capacity    int           `yaml:"capacity" validate:"min=1"`
		DedupWindow time.Duration `yaml:"dedup_window" split_words:"true" validate:"gt=0"`
	} `yaml:"alerts"`

	Server struct {
		Addr           string   `yaml:"addr" validate:"required"`
		MetricsAddr    string   `yaml:"metrics_addr" split_words:"true"`
		PprofAddr      string   `yaml:"pprof_addr" split_words:"true"`
		AllowedOrigins []string `yaml:"allowed_origins" split_words:"true"`
	} `yaml:"server"`

	Storage struct {
		Path    string `yaml:"path"` // empty = user config dir
		IconDir string `yaml:"icon_dir" split_words:"true"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level" validate:"oneof=debug info warn error"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

// DefaultConfig returns a config that works against Binance USD-M futures.
func DefaultConfig() *Config {
	var c Config
	c.App.Name = "pairs-monitor"
	c.App.Version = "dev"

	c.Binance.WSURL = "wss://fstream.binance.com/stream"
	c.Binance.RestURL = "https://fapi.binance.com"
	c.Binance.SymbolA = "btcusdt"
	c.Binance.SymbolB = "ethusdt"
	c.Binance.BufferSize = 10_000
	c.Binance.BackfillLimit = 500
	c.Binance.HandshakeTimeout = 10 * time.Second
	c.Binance.ReadTimeout = 60 * time.Second
	c.Binance.MaxBackoff = 60 * time.Second

	p := analytics.DefaultParams()
	c.Pipeline.IntervalMS = p.IntervalMS
	c.Pipeline.Window = p.Window
	c.Pipeline.Method = string(p.Method)
	c.Pipeline.EntryThreshold = p.EntryThreshold
	c.Pipeline.ExitThreshold = p.ExitThreshold
	c.Pipeline.RecomputeInterval = time.Second

	c.Alerts.Capacity = domain.DefaultAlertCapacity
	c.Alerts.DedupWindow = domain.DefaultAlertDedupWindow

	c.Server.Addr = ":8080"
	c.Server.MetricsAddr = ":9090"
	c.Server.AllowedOrigins = []string{"*"}

	c.Storage.IconDir = "assets/icons"

	c.Logging.Level = "info"
	c.Logging.File = "logs/app.log"
	return &c
}

// LoadConfig reads the YAML file at path on top of DefaultConfig, then
// applies .env files (default ".env", missing files are ignored) and
// PAIRS_* environment overrides, then validates.
func LoadConfig(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigLoadError{Path: f, Err: err}
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &ConfigLoadError{Path: path, Err: err}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, &domain.ConfigError{Field: "env", Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ConfigLoadError reports an unreadable config or env file.
type ConfigLoadError struct {
	Path string
	Err  error
}

func (e *ConfigLoadError) Error() string {
	return "load " + e.Path + ": " + e.Err.Error()
}

func (e *ConfigLoadError) Unwrap() error {
	return e.Err
}

var validate = validator.New()

// Validate checks configuration validity
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &domain.ConfigError{
				Field: fe.Namespace(),
				Err:   fmt.Errorf("failed %q (value %v)", fe.Tag(), fe.Value()),
			}
		}
		return &domain.ConfigError{Field: "config", Err: err}
	}

	if !hasPrefix(c.Binance.WSURL, "ws://") && !hasPrefix(c.Binance.WSURL, "wss://") {
		return &domain.ConfigError{Field: "binance.ws_url", Err: fmt.Errorf("invalid Binance WS URL: %s", c.Binance.WSURL)}
	}

	if _, err := c.PipelineParams(); err != nil {
		return &domain.ConfigError{Field: "pipeline", Err: err}
	}
	return nil
}

// PipelineParams converts the pipeline section to analytics parameters.
func (c *Config) PipelineParams() (analytics.Params, error) {
	method, err := domain.ParseMethod(c.Pipeline.Method)
	if err != nil {
		return analytics.Params{}, err
	}
	p := analytics.Params{
		IntervalMS:     c.Pipeline.IntervalMS,
		Window:         c.Pipeline.Window,
		ZWindow:        c.Pipeline.ZWindow,
		Method:         method,
		MinLiquidity:   c.Pipeline.MinLiquidity,
		EntryThreshold: c.Pipeline.EntryThreshold,
		ExitThreshold:  c.Pipeline.ExitThreshold,
	}
	return p, p.Validate()
}

// Symbols returns the normalized pair.
func (c *Config) Symbols() (string, string) {
	return domain.NormalizeSymbol(c.Binance.SymbolA), domain.NormalizeSymbol(c.Binance.SymbolB)
}

func hasPrefix(s, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(s), prefix)
}
