package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/erilali/marketrelay/internal/logger"
	"github.com/nats-io/nats.go"
	"gopkg.in/yaml.v3"
)

// Source modes. Exactly one event source runs per relay.
const (
	ModeNone     = "none"
	ModeSimulate = "simulate"
	ModeNATS     = "nats"
)

const DefaultSubject = "market.btc-usd.trades"

type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Source    SourceConfig     `yaml:"source"`
	NATS      NATSConfig       `yaml:"nats"`
	Logging   logger.LogConfig `yaml:"logging"`
	Profiling ProfilingConfig  `yaml:"profiling"`
}

type ServerConfig struct {
	Address         string        `yaml:"address"`
	StaticDir       string        `yaml:"static_dir"`
	SendBuffer      int           `yaml:"send_buffer"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	PongWait        time.Duration `yaml:"pong_wait"`
	PingPeriod      time.Duration `yaml:"ping_period"`
	MaxMessageSize  int64         `yaml:"max_message_size"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type SourceConfig struct {
	Mode         string        `yaml:"mode"`
	Subject      string        `yaml:"subject"`
	Interval     time.Duration `yaml:"interval"`
	InitialPrice float64       `yaml:"initial_price"`
	PriceJitter  float64       `yaml:"price_jitter"`
	Volatility   float64       `yaml:"volatility"` // percent per tick
	Exchange     string        `yaml:"exchange"`
	Pair         string        `yaml:"pair"`
}

type NATSConfig struct {
	URL           string        `yaml:"url"`
	Subject       string        `yaml:"subject"`
	Name          string        `yaml:"name"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
	MaxReconnects int           `yaml:"max_reconnects"`
	Stream        string        `yaml:"stream"` // publisher only; empty means core NATS
	StreamMaxAge  time.Duration `yaml:"stream_max_age"`
}

type ProfilingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ServerAddress string `yaml:"server_address"`
	AppName       string `yaml:"app_name"`
}

// DefaultConfig returns the settings used when no file or env overrides them.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":3030",
			SendBuffer:      256,
			WriteTimeout:    10 * time.Second,
			PongWait:        60 * time.Second,
			PingPeriod:      54 * time.Second,
			MaxMessageSize:  64 * 1024,
			ShutdownTimeout: 5 * time.Second,
		},
		Source: SourceConfig{
			Mode:         ModeNone,
			Subject:      DefaultSubject,
			Interval:     time.Second,
			InitialPrice: 30000,
			PriceJitter:  2000,
			Volatility:   0.5,
			Exchange:     "nex",
			Pair:         "BTC-USD",
		},
		NATS: NATSConfig{
			URL:           nats.DefaultURL,
			Subject:       "market.>",
			Name:          "marketrelay",
			ReconnectWait: 2 * time.Second,
			MaxReconnects: -1,
			StreamMaxAge:  30 * time.Minute,
		},
		Logging: logger.DefaultLogConfig(),
		Profiling: ProfilingConfig{
			AppName: "marketrelay",
		},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	config := DefaultConfig()
	if path != "" {
		if err := loadFromFile(path, config); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}
	applyEnvOverrides(config)
	return config, nil
}

func loadFromFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, config)
}

func applyEnvOverrides(config *Config) {
	if addr := os.Getenv("RELAY_ADDR"); addr != "" {
		config.Server.Address = addr
	}
	if mode := os.Getenv("RELAY_SOURCE"); mode != "" {
		config.Source.Mode = strings.ToLower(mode)
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		config.NATS.URL = url
	}
	if subject := os.Getenv("NATS_SUBJECT"); subject != "" {
		config.NATS.Subject = subject
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		config.Logging.LogToJSON = strings.EqualFold(format, "json")
	}
	if buf := os.Getenv("RELAY_SEND_BUFFER"); buf != "" {
		if val, err := strconv.Atoi(buf); err == nil {
			config.Server.SendBuffer = val
		}
	}
	if addr := os.Getenv("PYROSCOPE_SERVER"); addr != "" {
		config.Profiling.Enabled = true
		config.Profiling.ServerAddress = addr
	}
}

func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if c.Server.SendBuffer < 1 {
		return fmt.Errorf("send buffer must be at least 1, got %d", c.Server.SendBuffer)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.PongWait <= 0 {
		return fmt.Errorf("pong wait must be positive, got %s", c.Server.PongWait)
	}
	if c.Server.PingPeriod <= 0 {
		return fmt.Errorf("ping period must be positive, got %s", c.Server.PingPeriod)
	}
	if c.Server.PingPeriod >= c.Server.PongWait {
		return fmt.Errorf("ping period (%s) must be shorter than pong wait (%s)", c.Server.PingPeriod, c.Server.PongWait)
	}
	switch c.Source.Mode {
	case ModeNone:
	case ModeSimulate:
		if err := c.Source.validateWalk(); err != nil {
			return err
		}
	case ModeNATS:
		if c.NATS.URL == "" {
			return fmt.Errorf("nats source selected but no nats url configured")
		}
		if c.NATS.Subject == "" {
			return fmt.Errorf("nats source selected but no subject configured")
		}
	default:
		return fmt.Errorf("unknown source mode %q (want %s, %s or %s)", c.Source.Mode, ModeNone, ModeSimulate, ModeNATS)
	}
	if !isValidLogLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Profiling.Enabled && c.Profiling.ServerAddress == "" {
		return fmt.Errorf("profiling enabled but no server address configured")
	}
	return nil
}

// ValidatePublisher checks the subset of settings the publish command uses.
func (c *Config) ValidatePublisher() error {
	if c.NATS.URL == "" {
		return fmt.Errorf("nats url cannot be empty")
	}
	if c.Source.Subject == "" {
		return fmt.Errorf("subject cannot be empty")
	}
	return c.Source.validateWalk()
}

func (s SourceConfig) validateWalk() error {
	if s.Interval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", s.Interval)
	}
	if s.InitialPrice <= 0 {
		return fmt.Errorf("initial price must be positive, got %v", s.InitialPrice)
	}
	if s.PriceJitter < 0 {
		return fmt.Errorf("price jitter cannot be negative, got %v", s.PriceJitter)
	}
	if s.Volatility < 0 || s.Volatility >= 100 {
		return fmt.Errorf("volatility must be within [0, 100), got %v", s.Volatility)
	}
	if s.Subject == "" {
		return fmt.Errorf("subject cannot be empty")
	}
	return nil
}

func isValidLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{Address: %s, Source: %s, Subject: %s, NATS: %s, LogLevel: %s}",
		c.Server.Address, c.Source.Mode, c.Source.Subject, c.NATS.URL, c.Logging.Level)
}
