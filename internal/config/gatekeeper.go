package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/apigovern/gatekeeper/domain"
)

// ConfigFileName is the dedicated configuration file searched for from the
// working directory upward.
const ConfigFileName = ".gatekeeper.toml"

// GatekeeperConfig is the top-level configuration of the gatekeeper process.
type GatekeeperConfig struct {
	Database   DatabaseConfig   `toml:"database"`
	Kafka      KafkaConfig      `toml:"kafka"`
	Similarity SimilarityConfig `toml:"similarity"`
	Ruleset    RulesetRef       `toml:"ruleset"`
	Log        LogConfig        `toml:"log"`
}

// DatabaseConfig selects the signature store backend.
type DatabaseConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// KafkaConfig configures the API event listener.
type KafkaConfig struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
	GroupID string   `toml:"group_id"`
}

// SimilarityConfig sizes the MinHash generator and the LSH index.
type SimilarityConfig struct {
	Threshold        float64 `toml:"threshold"`
	NumHashFunctions int     `toml:"num_hash_functions"`
	NumBands         int     `toml:"num_bands"`
}

// RulesetRef points at an optional ruleset document on disk.
type RulesetRef struct {
	Path string `toml:"path"`
}

// LogConfig controls process logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// DefaultGatekeeperConfig returns the configuration used when no file is
// found. The embedded sqlite database keeps a single-node deployment
// self-contained.
func DefaultGatekeeperConfig() *GatekeeperConfig {
	return &GatekeeperConfig{
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "gatekeeper.db",
		},
		Kafka: KafkaConfig{
			Topic:   "api-events",
			GroupID: "gatekeeper",
		},
		Similarity: SimilarityConfig{
			Threshold:        domain.DefaultSimilarityThreshold,
			NumHashFunctions: domain.DefaultNumHashFunctions,
			NumBands:         domain.DefaultNumBands,
		},
		Log: LogConfig{Level: "info"},
	}
}

// GatekeeperConfigLoader loads .gatekeeper.toml with directory walk-up.
type GatekeeperConfigLoader struct{}

// NewGatekeeperConfigLoader creates a configuration loader.
func NewGatekeeperConfigLoader() *GatekeeperConfigLoader {
	return &GatekeeperConfigLoader{}
}

// LoadConfig searches startDir and its ancestors for .gatekeeper.toml and
// merges it over the defaults. A missing file is not an error.
func (l *GatekeeperConfigLoader) LoadConfig(startDir string) (*GatekeeperConfig, error) {
	path, err := l.findConfigFile(startDir)
	if err != nil {
		return DefaultGatekeeperConfig(), nil
	}
	return l.LoadFile(path)
}

// LoadFile reads a specific configuration file and merges it over the
// defaults.
func (l *GatekeeperConfigLoader) LoadFile(path string) (*GatekeeperConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewConfigError("failed to read config file: "+path, err)
	}

	var fileCfg GatekeeperConfig
	if err := toml.Unmarshal(data, &fileCfg); err != nil {
		return nil, domain.NewConfigError("failed to parse config file: "+path, err)
	}

	cfg := DefaultGatekeeperConfig()
	mergeConfig(cfg, &fileCfg)
	return cfg, nil
}

func (l *GatekeeperConfigLoader) findConfigFile(startDir string) (string, error) {
	dir := startDir
	for {
		path := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func mergeConfig(defaults, file *GatekeeperConfig) {
	if file.Database.Driver != "" {
		defaults.Database.Driver = file.Database.Driver
	}
	if file.Database.DSN != "" {
		defaults.Database.DSN = file.Database.DSN
	}

	if len(file.Kafka.Brokers) > 0 {
		defaults.Kafka.Brokers = file.Kafka.Brokers
	}
	if file.Kafka.Topic != "" {
		defaults.Kafka.Topic = file.Kafka.Topic
	}
	if file.Kafka.GroupID != "" {
		defaults.Kafka.GroupID = file.Kafka.GroupID
	}

	if file.Similarity.Threshold > 0 {
		defaults.Similarity.Threshold = file.Similarity.Threshold
	}
	if file.Similarity.NumHashFunctions > 0 {
		defaults.Similarity.NumHashFunctions = file.Similarity.NumHashFunctions
	}
	if file.Similarity.NumBands > 0 {
		defaults.Similarity.NumBands = file.Similarity.NumBands
	}

	if file.Ruleset.Path != "" {
		defaults.Ruleset.Path = file.Ruleset.Path
	}

	if file.Log.Level != "" {
		defaults.Log.Level = file.Log.Level
	}
}
