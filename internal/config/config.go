package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the matchbot configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Reference ReferenceConfig `yaml:"reference"`
	Redis     RedisConfig     `yaml:"redis"`
	Weights   WeightsConfig   `yaml:"weights"`
	Matching  MatchingConfig  `yaml:"matching"`
	Xtract    XtractConfig    `yaml:"xtract"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// ReferenceConfig names the core banking extract files, one per entity type.
// Source selects where datasets come from: "file" reads the extracts
// directly, "redis" loads the copy a previous sync stored.
type ReferenceConfig struct {
	Source          string `yaml:"source"` // file, redis (default: file)
	IndividualPath  string `yaml:"individual_path"`
	InstitutionPath string `yaml:"institution_path"`
	AccountPath     string `yaml:"account_path"`
	SyncToRedis     bool   `yaml:"sync_to_redis"`
}

// RedisConfig holds connection settings for the shared reference store.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// WeightsConfig holds the weight-distribution source settings.
type WeightsConfig struct {
	Path string `yaml:"path"`
}

// MatchingConfig holds engine settings.
type MatchingConfig struct {
	Threshold float64 `yaml:"threshold"`
}

// XtractConfig holds ticket API settings. Disabled when base_url is empty.
type XtractConfig struct {
	BaseURL        string `yaml:"base_url"`
	Email          string `yaml:"email"`
	Password       string `yaml:"password"`
	TimeoutSec     int    `yaml:"timeout_sec"`
	PollIntervalHr int    `yaml:"poll_interval_hours"`
	WindowDays     int    `yaml:"window_days"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Reference.Source == "" {
		c.Reference.Source = "file"
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "matchbot:ref"
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Matching.Threshold == 0 {
		c.Matching.Threshold = 0.85
	}
	if c.Xtract.TimeoutSec <= 0 {
		c.Xtract.TimeoutSec = 30
	}
	if c.Xtract.PollIntervalHr <= 0 {
		c.Xtract.PollIntervalHr = 24
	}
	if c.Xtract.WindowDays <= 0 {
		c.Xtract.WindowDays = 7
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Reference.Source {
	case "file":
		if c.Reference.IndividualPath == "" && c.Reference.InstitutionPath == "" && c.Reference.AccountPath == "" {
			return fmt.Errorf("reference: at least one extract path is required when source is \"file\"")
		}
	case "redis":
		if len(c.Redis.Addrs) == 0 {
			return fmt.Errorf("redis.addrs is required when reference.source is \"redis\"")
		}
	default:
		return fmt.Errorf("reference.source must be \"file\" or \"redis\", got %q", c.Reference.Source)
	}
	if c.Reference.SyncToRedis && len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("redis.addrs is required when reference.sync_to_redis is set")
	}
	if c.Matching.Threshold <= 0 || c.Matching.Threshold > 1 {
		return fmt.Errorf("matching.threshold must be in (0, 1], got %v", c.Matching.Threshold)
	}
	if c.Xtract.BaseURL != "" && (c.Xtract.Email == "" || c.Xtract.Password == "") {
		return fmt.Errorf("xtract.email and xtract.password are required when xtract.base_url is set")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
