package configloader

import (
	"fmt"
	"os"
	"time"

	"chain_reader/internal/domain/entity"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds server-specific configurations.
type ServerConfig struct {
	Port                string `yaml:"port"`
	ReadTimeoutSeconds  int    `yaml:"readTimeoutSeconds"`
	WriteTimeoutSeconds int    `yaml:"writeTimeoutSeconds"`
	ShutdownSeconds     int    `yaml:"shutdownSeconds"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// CoinGeckoConfig holds CoinGecko API specific configurations.
type CoinGeckoConfig struct {
	APIKey               string `yaml:"apiKey"`
	BaseURL              string `yaml:"baseURL"`
	ClientTimeoutSeconds int    `yaml:"clientTimeoutSeconds"`
	// AssetPlatformMapping maps network identifiers to CoinGecko platform ids. An empty value unmaps the network.
	AssetPlatformMapping map[string]string `yaml:"assetPlatformMapping"`
}

// PerformanceConfig holds performance-related configurations.
type PerformanceConfig struct {
	MaxConcurrentRoutines int `yaml:"max_concurrent_routines"`
	RPCCallTimeoutSeconds int `yaml:"rpc_call_timeout_seconds"`
}

// AggregatorConfig controls how batches reach the aggregator contract.
type AggregatorConfig struct {
	MaxCallsPerBatch int `yaml:"maxCallsPerBatch"`
	// MaxRetries is the number of retries after a failed eth_call. Unset means 3; 0 disables retries.
	MaxRetries               *int `yaml:"maxRetries"`
	RetryDelayMs             int  `yaml:"retryDelayMs"`
	ConnectionTimeoutSeconds int  `yaml:"connectionTimeoutSeconds"`
	VerifyChainID            bool `yaml:"verifyChainId"`
}

// MetadataQueueConfig controls the metadata enrichment queue.
type MetadataQueueConfig struct {
	Disabled           bool `yaml:"disabled"`
	RequestIntervalMs  int  `yaml:"requestIntervalMs"`
	RateLimitBackoffMs int  `yaml:"rateLimitBackoffMs"`
	MaxBackoffMs       int  `yaml:"maxBackoffMs"`
	FetchTimeoutMs     int  `yaml:"fetchTimeoutMs"`
	// NegativeCacheTTLSeconds expires failed lookups. Zero keeps them for the process lifetime.
	NegativeCacheTTLSeconds int `yaml:"negativeCacheTTLSeconds"`
}

// FilesConfig points at holder and token list files used by the scan command.
type FilesConfig struct {
	Wallets   string `yaml:"wallets"`
	TokensDir string `yaml:"tokensDir"`
}

// NetworksConfig selects and overrides network definitions.
type NetworksConfig struct {
	// Active lists the enabled network identifiers. Empty enables every known network.
	Active    []string                            `yaml:"active"`
	Overrides map[string]entity.NetworkDefinition `yaml:"overrides"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Logging       LoggingConfig       `yaml:"logging"`
	CoinGecko     CoinGeckoConfig     `yaml:"coingecko"`
	Performance   PerformanceConfig   `yaml:"performance"`
	Aggregator    AggregatorConfig    `yaml:"aggregator"`
	MetadataQueue MetadataQueueConfig `yaml:"metadataQueue"`
	Files         FilesConfig         `yaml:"files"`
	Networks      NetworksConfig      `yaml:"networks"`
}

// Load reads the configuration from the given path and fills defaults.
// An empty path yields the defaults alone.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		logrus.Infof("Loading configuration from path: %s", path)
		data, err := os.ReadFile(path)
		if err != nil {
			logrus.Errorf("Failed to read config file %s: %v", path, err)
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			logrus.Errorf("Failed to unmarshal config data from %s: %v", path, err)
			return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
		}
	} else {
		logrus.Info("No config file given, using defaults")
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 30
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 120
	}
	if cfg.Server.ShutdownSeconds == 0 {
		cfg.Server.ShutdownSeconds = 10
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.CoinGecko.BaseURL == "" {
		cfg.CoinGecko.BaseURL = "https://api.coingecko.com/api/v3"
		logrus.Infof("CoinGecko.BaseURL not set, defaulting to %s", cfg.CoinGecko.BaseURL)
	}
	if cfg.CoinGecko.ClientTimeoutSeconds == 0 {
		cfg.CoinGecko.ClientTimeoutSeconds = 15
	}

	if cfg.Performance.MaxConcurrentRoutines <= 0 {
		cfg.Performance.MaxConcurrentRoutines = 4
		logrus.Infof("MaxConcurrentRoutines not set, defaulting to %d", cfg.Performance.MaxConcurrentRoutines)
	}
	if cfg.Performance.RPCCallTimeoutSeconds == 0 {
		cfg.Performance.RPCCallTimeoutSeconds = 15
	}

	if cfg.Aggregator.MaxCallsPerBatch <= 0 {
		cfg.Aggregator.MaxCallsPerBatch = 500
		logrus.Infof("Aggregator.MaxCallsPerBatch not set, defaulting to %d", cfg.Aggregator.MaxCallsPerBatch)
	}
	if cfg.Aggregator.MaxRetries == nil {
		retries := 3
		cfg.Aggregator.MaxRetries = &retries
	}
	if cfg.Aggregator.RetryDelayMs == 0 {
		cfg.Aggregator.RetryDelayMs = 500
	}
	if cfg.Aggregator.ConnectionTimeoutSeconds == 0 {
		cfg.Aggregator.ConnectionTimeoutSeconds = 10
	}

	if cfg.MetadataQueue.RequestIntervalMs == 0 {
		cfg.MetadataQueue.RequestIntervalMs = 2000
		logrus.Infof("MetadataQueue.RequestIntervalMs not set, defaulting to %d ms", cfg.MetadataQueue.RequestIntervalMs)
	}
	if cfg.MetadataQueue.RateLimitBackoffMs == 0 {
		cfg.MetadataQueue.RateLimitBackoffMs = 30000
	}
	if cfg.MetadataQueue.MaxBackoffMs == 0 {
		cfg.MetadataQueue.MaxBackoffMs = cfg.MetadataQueue.RateLimitBackoffMs
	}
	if cfg.MetadataQueue.MaxBackoffMs < cfg.MetadataQueue.RateLimitBackoffMs {
		logrus.Warnf("MetadataQueue.MaxBackoffMs (%d) below RateLimitBackoffMs (%d), raising it",
			cfg.MetadataQueue.MaxBackoffMs, cfg.MetadataQueue.RateLimitBackoffMs)
		cfg.MetadataQueue.MaxBackoffMs = cfg.MetadataQueue.RateLimitBackoffMs
	}
	if cfg.MetadataQueue.FetchTimeoutMs == 0 {
		cfg.MetadataQueue.FetchTimeoutMs = cfg.CoinGecko.ClientTimeoutSeconds * 1000
	}

	if cfg.Files.Wallets == "" {
		cfg.Files.Wallets = "data/wallets.txt"
	}
	if cfg.Files.TokensDir == "" {
		cfg.Files.TokensDir = "data/tokens"
	}
}

// Validate rejects values the defaults cannot repair.
func (c *Config) Validate() error {
	if c.MetadataQueue.RequestIntervalMs < 0 || c.MetadataQueue.RateLimitBackoffMs < 0 || c.MetadataQueue.NegativeCacheTTLSeconds < 0 {
		return fmt.Errorf("metadataQueue durations must not be negative")
	}
	if c.Aggregator.MaxRetries != nil && *c.Aggregator.MaxRetries < 0 {
		return fmt.Errorf("aggregator.maxRetries must not be negative, got %d", *c.Aggregator.MaxRetries)
	}
	for name, def := range c.Networks.Overrides {
		if def.LimiterPeriod == "" {
			continue
		}
		if _, err := time.ParseDuration(def.LimiterPeriod); err != nil {
			return fmt.Errorf("network %s: invalid limiterPeriod %q: %w", name, def.LimiterPeriod, err)
		}
	}
	return nil
}

// RegisterFlags adds the overridable settings to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("port", "", "HTTP listen port")
	fs.StringSlice("networks", nil, "active network identifiers (default: all known)")
	fs.String("coingecko-api-key", "", "CoinGecko pro API key")
	fs.Duration("metadata-interval", 0, "minimum interval between metadata requests")
	fs.Bool("no-metadata", false, "disable metadata enrichment")
	fs.Int("max-calls-per-batch", 0, "maximum calls per aggregator round trip")
	fs.Int("max-retries", 3, "retries after a failed aggregator call (0 disables retries)")
	fs.Int("concurrency", 0, "maximum networks read concurrently")
	fs.String("wallets", "", "holder addresses file")
	fs.String("tokens-dir", "", "directory of per-network token lists")
}

// ApplyFlags overrides cfg with every flag the user set explicitly.
func ApplyFlags(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	str := func(name string, dst *string) {
		if err != nil || !fs.Changed(name) {
			return
		}
		*dst, err = fs.GetString(name)
	}
	num := func(name string, dst *int) {
		if err != nil || !fs.Changed(name) {
			return
		}
		*dst, err = fs.GetInt(name)
	}

	str("log-level", &cfg.Logging.Level)
	str("port", &cfg.Server.Port)
	str("coingecko-api-key", &cfg.CoinGecko.APIKey)
	str("wallets", &cfg.Files.Wallets)
	str("tokens-dir", &cfg.Files.TokensDir)
	num("max-calls-per-batch", &cfg.Aggregator.MaxCallsPerBatch)
	num("concurrency", &cfg.Performance.MaxConcurrentRoutines)
	if err == nil && fs.Changed("max-retries") {
		var retries int
		if retries, err = fs.GetInt("max-retries"); err == nil {
			cfg.Aggregator.MaxRetries = &retries
		}
	}
	if err == nil && fs.Changed("networks") {
		cfg.Networks.Active, err = fs.GetStringSlice("networks")
	}
	if err == nil && fs.Changed("metadata-interval") {
		var d time.Duration
		if d, err = fs.GetDuration("metadata-interval"); err == nil {
			cfg.MetadataQueue.RequestIntervalMs = int(d / time.Millisecond)
		}
	}
	if err == nil && fs.Changed("no-metadata") {
		cfg.MetadataQueue.Disabled, err = fs.GetBool("no-metadata")
	}
	if err != nil {
		return fmt.Errorf("failed to apply flags: %w", err)
	}
	return cfg.Validate()
}

// Millis converts a millisecond setting into a duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Retries returns the configured retry count, 0 when unset.
func (a AggregatorConfig) Retries() int {
	if a.MaxRetries == nil {
		return 0
	}
	return *a.MaxRetries
}

// Seconds converts a second setting into a duration.
func Seconds(s int) time.Duration {
	return time.Duration(s) * time.Second
}
