package server

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/iwvelando/icms-educacional/internal/config"
	"github.com/iwvelando/icms-educacional/pkg/constants"
	"gopkg.in/yaml.v3"
)

// Config is the server-config.yaml document read by `icms-educacional -serve`.
type Config struct {
	Address         string               `yaml:"address"`
	MaxUploadSize   string               `yaml:"maxUploadSize"`   // simulation request body limit, e.g. "256K"
	RequestTimeout  string               `yaml:"requestTimeout"`  // per-request deadline, e.g. "30s"
	ShutdownTimeout string               `yaml:"shutdownTimeout"` // drain period on SIGTERM
	AllowedOrigins  []string             `yaml:"allowedOrigins"`
	Logging         config.LoggingConfig `yaml:"logging"`

	uploadSizeBytes int64
	requestTimeout  time.Duration
	shutdownTimeout time.Duration
}

// DefaultConfig returns the settings used when no server config file exists.
func DefaultConfig() *Config {
	cfg := &Config{}
	_ = cfg.normalize()
	return cfg
}

// LoadConfig reads the server configuration at path. A missing file or an
// empty path yields DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read server config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse server config %s: %w", path, err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, fmt.Errorf("invalid server config %s: %w", path, err)
	}
	return cfg, nil
}

// UploadSizeBytes is the largest accepted simulation request body.
func (c *Config) UploadSizeBytes() int64 {
	return c.uploadSizeBytes
}

// SetUploadSizeBytes overrides the body limit. Non-positive sizes are ignored.
func (c *Config) SetUploadSizeBytes(size int64) {
	if size > 0 {
		c.uploadSizeBytes = size
		c.MaxUploadSize = strconv.FormatInt(size, 10)
	}
}

// RequestTimeoutDuration is the deadline applied to every API request.
func (c *Config) RequestTimeoutDuration() time.Duration {
	return c.requestTimeout
}

// ShutdownTimeoutDuration bounds the graceful shutdown.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return c.shutdownTimeout
}

func (c *Config) normalize() error {
	c.Address = strings.TrimSpace(c.Address)
	if c.Address == "" {
		c.Address = constants.DefaultServerAddress
	}

	origins := c.AllowedOrigins[:0]
	for _, o := range c.AllowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c.AllowedOrigins = origins

	size, err := ParseSize(c.MaxUploadSize)
	if err != nil {
		return err
	}
	if size <= 0 {
		size = constants.DefaultMaxUploadSizeBytes
	}
	c.SetUploadSizeBytes(size)

	if c.requestTimeout, err = parseTimeout("requestTimeout", c.RequestTimeout, constants.DefaultRequestTimeout); err != nil {
		return err
	}
	if c.shutdownTimeout, err = parseTimeout("shutdownTimeout", c.ShutdownTimeout, constants.DefaultShutdownTimeout); err != nil {
		return err
	}
	return nil
}

func parseTimeout(field, value string, fallback time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", field, value)
	}
	return d, nil
}

var sizeUnits = map[string]int64{
	"":   1,
	"B":  1,
	"K":  1 << 10,
	"KB": 1 << 10,
	"M":  1 << 20,
	"MB": 1 << 20,
	"G":  1 << 30,
	"GB": 1 << 30,
}

// ParseSize converts a byte count with an optional binary unit suffix
// ("512", "256K", "2MB") into bytes. An empty value is the default limit.
func ParseSize(value string) (int64, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return constants.DefaultMaxUploadSizeBytes, nil
	}

	digits := strings.TrimRightFunc(trimmed, func(r rune) bool { return !unicode.IsDigit(r) })
	if digits == "" {
		return 0, fmt.Errorf("invalid size: %s", value)
	}
	unit := strings.TrimSpace(trimmed[len(digits):])
	multiplier, ok := sizeUnits[unit]
	if !ok {
		return 0, fmt.Errorf("unsupported size unit %q", unit)
	}

	n, err := strconv.ParseInt(strings.TrimSpace(digits), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", value, err)
	}
	if n > math.MaxInt64/multiplier {
		return 0, fmt.Errorf("size overflow for value %s", value)
	}
	return n * multiplier, nil
}
