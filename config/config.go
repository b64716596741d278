package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the static configuration supplied at startup. No dynamic
// reconfiguration is supported; restart to change limits or timing.
type Config struct {
	Portfolio PortfolioConfig `json:"portfolio" yaml:"portfolio"`
	Router    RouterConfig    `json:"router" yaml:"router"`
	Task      TaskConfig      `json:"task" yaml:"task"`
	Sentiment SentimentConfig `json:"sentiment" yaml:"sentiment"`
	Journal   JournalConfig   `json:"journal" yaml:"journal"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	Demo      DemoConfig      `json:"demo" yaml:"demo"`
}

// PortfolioConfig sets starting cash, exposure limits, and sector
// membership.
type PortfolioConfig struct {
	InitialCash        float64           `json:"initial_cash" yaml:"initial_cash"`
	PerInstrumentLimit float64           `json:"per_instrument_limit" yaml:"per_instrument_limit"`
	PerSectorLimit     float64           `json:"per_sector_limit" yaml:"per_sector_limit"`
	RiskBudget         float64           `json:"risk_budget" yaml:"risk_budget"`
	Sectors            map[string]string `json:"sectors,omitempty" yaml:"sectors,omitempty"`
}

// RouterConfig sets delivery policy.
type RouterConfig struct {
	MaxRetries     int    `json:"max_retries" yaml:"max_retries"`
	BackoffBase    string `json:"backoff_base" yaml:"backoff_base"`
	RequestTimeout string `json:"request_timeout" yaml:"request_timeout"`
}

// TaskConfig sets lifecycle timing.
type TaskConfig struct {
	TTL           string `json:"ttl" yaml:"ttl"`
	SweepInterval string `json:"sweep_interval" yaml:"sweep_interval"`
}

// SentimentConfig sets how long a sentiment score stays fresh enough
// to enrich new signals.
type SentimentConfig struct {
	Freshness string `json:"freshness" yaml:"freshness"`
}

// JournalConfig selects the audit-trail backend.
type JournalConfig struct {
	Type         string `json:"type" yaml:"type"` // "sqlite", "csv", or "none"
	DBPath       string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	MessagesFile string `json:"messages_file,omitempty" yaml:"messages_file,omitempty"`
	TasksFile    string `json:"tasks_file,omitempty" yaml:"tasks_file,omitempty"`
}

// LoggingConfig sets the slog level: debug, info, warn, or error.
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
}

// DemoConfig drives the CLI demo workflow: seed prices, optional
// sentiment scores, and the signals to push through the pipeline.
type DemoConfig struct {
	Prices     map[string]float64 `json:"prices,omitempty" yaml:"prices,omitempty"`
	Sentiments []DemoSentiment    `json:"sentiments,omitempty" yaml:"sentiments,omitempty"`
	Signals    []DemoSignal       `json:"signals,omitempty" yaml:"signals,omitempty"`
}

// DemoSentiment seeds a sentiment score before signals are submitted.
type DemoSentiment struct {
	Instrument string  `json:"instrument" yaml:"instrument"`
	Score      float64 `json:"score" yaml:"score"`
	Source     string  `json:"source,omitempty" yaml:"source,omitempty"`
}

// DemoSignal is one trade idea for the demo run.
type DemoSignal struct {
	Instrument    string  `json:"instrument" yaml:"instrument"`
	Side          string  `json:"side" yaml:"side"`
	SuggestedSize float64 `json:"suggested_size" yaml:"suggested_size"`
	Confidence    float64 `json:"confidence" yaml:"confidence"`
	Rationale     string  `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// Default returns a runnable configuration: $100k cash, generous
// limits, standard retry policy, 30s task TTL.
func Default() *Config {
	return &Config{
		Portfolio: PortfolioConfig{
			InitialCash:        100000,
			PerInstrumentLimit: 10000,
			PerSectorLimit:     30000,
			RiskBudget:         50000,
		},
		Router: RouterConfig{
			MaxRetries:     3,
			BackoffBase:    "100ms",
			RequestTimeout: "5s",
		},
		Task: TaskConfig{
			TTL:           "30s",
			SweepInterval: "1s",
		},
		Sentiment: SentimentConfig{
			Freshness: "10m",
		},
		Journal: JournalConfig{
			Type: "none",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Demo: DemoConfig{
			Prices: map[string]float64{
				"AAPL": 189.50,
				"MSFT": 411.20,
				"TSLA": 248.70,
			},
			Sentiments: []DemoSentiment{
				{Instrument: "AAPL", Score: 0.4, Source: "newswire"},
			},
			Signals: []DemoSignal{
				{Instrument: "AAPL", Side: "buy", SuggestedSize: 10, Confidence: 0.8, Rationale: "momentum breakout"},
				{Instrument: "MSFT", Side: "buy", SuggestedSize: 5, Confidence: 0.6, Rationale: "earnings drift"},
			},
		},
	}
}

// LoadFromFile loads configuration from a file (JSON or YAML based on content)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if (len(path) > 5 && path[len(path)-5:] == ".yaml") || (len(path) > 4 && path[len(path)-4:] == ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

func parseDuration(name, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}
	return d, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Portfolio.InitialCash <= 0 {
		return fmt.Errorf("portfolio.initial_cash must be positive")
	}
	if c.Portfolio.PerInstrumentLimit < 0 {
		return fmt.Errorf("portfolio.per_instrument_limit must not be negative")
	}
	if c.Portfolio.PerSectorLimit < 0 {
		return fmt.Errorf("portfolio.per_sector_limit must not be negative")
	}
	if c.Portfolio.RiskBudget < 0 {
		return fmt.Errorf("portfolio.risk_budget must not be negative")
	}
	if c.Router.MaxRetries < 0 {
		return fmt.Errorf("router.max_retries must not be negative")
	}
	for _, d := range []struct{ name, value string }{
		{"router.backoff_base", c.Router.BackoffBase},
		{"router.request_timeout", c.Router.RequestTimeout},
		{"task.ttl", c.Task.TTL},
		{"task.sweep_interval", c.Task.SweepInterval},
		{"sentiment.freshness", c.Sentiment.Freshness},
	} {
		if _, err := parseDuration(d.name, d.value); err != nil {
			return err
		}
	}
	switch c.Journal.Type {
	case "", "none":
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path is required for sqlite journal")
		}
	case "csv":
		if c.Journal.MessagesFile == "" || c.Journal.TasksFile == "" {
			return fmt.Errorf("journal.messages_file and journal.tasks_file are required for csv journal")
		}
	default:
		return fmt.Errorf("journal.type must be sqlite, csv, or none")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error")
	}
	for i, sig := range c.Demo.Signals {
		if sig.Instrument == "" {
			return fmt.Errorf("demo.signals[%d]: instrument is required", i)
		}
		if sig.Side != "buy" && sig.Side != "sell" {
			return fmt.Errorf("demo.signals[%d]: side must be buy or sell", i)
		}
		if sig.SuggestedSize <= 0 {
			return fmt.Errorf("demo.signals[%d]: suggested_size must be positive", i)
		}
	}
	return nil
}

// BackoffBaseDuration returns the parsed router backoff base.
func (c *Config) BackoffBaseDuration() time.Duration {
	d, _ := parseDuration("", c.Router.BackoffBase)
	return d
}

// RequestTimeoutDuration returns the parsed router request timeout.
func (c *Config) RequestTimeoutDuration() time.Duration {
	d, _ := parseDuration("", c.Router.RequestTimeout)
	return d
}

// TaskTTLDuration returns the parsed task TTL.
func (c *Config) TaskTTLDuration() time.Duration {
	d, _ := parseDuration("", c.Task.TTL)
	return d
}

// SweepIntervalDuration returns the parsed sweep interval.
func (c *Config) SweepIntervalDuration() time.Duration {
	d, _ := parseDuration("", c.Task.SweepInterval)
	return d
}

// SentimentFreshnessDuration returns the parsed sentiment freshness window.
func (c *Config) SentimentFreshnessDuration() time.Duration {
	d, _ := parseDuration("", c.Sentiment.Freshness)
	return d
}

// SlogLevel maps the configured logging level onto slog's levels.
func (c *Config) SlogLevel() slog.Level {
	switch c.Logging.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
