package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the well-known location checked when no --config flag
// is given. It replaces the shell variable file the cluster bootstrap used to
// drop on every node.
const DefaultConfigPath = "/etc/eggo/mapper.yaml"

// Config represents the application configuration
type Config struct {
	Storage  StorageConfig `yaml:"storage"`
	Mapper   MapperConfig  `yaml:"mapper"`
	LogLevel string        `yaml:"log_level"`
}

// StorageConfig represents S3-compatible storage configuration
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
	Region    string `yaml:"region"`
}

// MapperConfig represents mapper-specific configuration
type MapperConfig struct {
	// ScratchRoot roots the per-task scratch directory. Empty means the
	// system temp dir.
	ScratchRoot string `yaml:"scratch_root"`
	// UseRecordMount roots the scratch directory at the ephemeral mount
	// named by the input record instead of ScratchRoot.
	UseRecordMount bool `yaml:"use_record_mount"`
	// FetchTimeoutSeconds bounds the source download. Zero means no limit;
	// the invoking framework enforces its own task timeout.
	FetchTimeoutSeconds int    `yaml:"fetch_timeout_seconds"`
	Journal             string `yaml:"journal"`
	PushGateway         string `yaml:"push_gateway"`
}

// Load loads configuration from file, command line flags, and the
// environment. The result is never mutated after load.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	cfg := &Config{
		LogLevel: "info",
		Storage: StorageConfig{
			Endpoint: "s3.amazonaws.com",
			Secure:   true,
		},
	}

	// Fall back to the well-known path if present
	if configFile == "" {
		if _, err := os.Stat(DefaultConfigPath); err == nil {
			configFile = DefaultConfigPath
		}
	}

	if configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Override with command line flags
	if err := loadFromFlags(cfg, flags); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	// Credentials and region fall back to the usual AWS environment
	loadFromEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func loadFromFlags(cfg *Config, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}

	if flags.Changed("endpoint") {
		cfg.Storage.Endpoint, _ = flags.GetString("endpoint")
	}
	if flags.Changed("access-key") {
		cfg.Storage.AccessKey, _ = flags.GetString("access-key")
	}
	if flags.Changed("secret-key") {
		cfg.Storage.SecretKey, _ = flags.GetString("secret-key")
	}
	if flags.Changed("secure") {
		cfg.Storage.Secure, _ = flags.GetBool("secure")
	}
	if flags.Changed("region") {
		cfg.Storage.Region, _ = flags.GetString("region")
	}

	if flags.Changed("scratch-root") {
		cfg.Mapper.ScratchRoot, _ = flags.GetString("scratch-root")
	}
	if flags.Changed("use-record-mount") {
		cfg.Mapper.UseRecordMount, _ = flags.GetBool("use-record-mount")
	}
	if flags.Changed("fetch-timeout") {
		cfg.Mapper.FetchTimeoutSeconds, _ = flags.GetInt("fetch-timeout")
	}
	if flags.Changed("journal") {
		cfg.Mapper.Journal, _ = flags.GetString("journal")
	}
	if flags.Changed("push-gateway") {
		cfg.Mapper.PushGateway, _ = flags.GetString("push-gateway")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	return nil
}

func loadFromEnv(cfg *Config) {
	if cfg.Storage.AccessKey == "" {
		cfg.Storage.AccessKey = os.Getenv("AWS_ACCESS_KEY_ID")
	}
	if cfg.Storage.SecretKey == "" {
		cfg.Storage.SecretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = os.Getenv("AWS_REGION")
	}
	if v := os.Getenv("EGGO_S3_ENDPOINT"); v != "" && cfg.Storage.Endpoint == "s3.amazonaws.com" {
		cfg.Storage.Endpoint = v
	}
	if cfg.Mapper.ScratchRoot == "" {
		cfg.Mapper.ScratchRoot = os.Getenv("EPHEMERAL_MOUNT")
	}
}

func (c *Config) validate() error {
	if c.Storage.Endpoint == "" {
		return fmt.Errorf("storage endpoint is required")
	}

	if c.Mapper.FetchTimeoutSeconds < 0 {
		return fmt.Errorf("fetch timeout must not be negative")
	}

	return nil
}
