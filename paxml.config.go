package paxml

import (
	"maps"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Log levels accepted by EngineConfigFile.LogLevel
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
	LogLevelOff   = "off"
)

// EngineConfigFile is the YAML form of an engine setup:
//
//	storage:
//	  driver: filesystem
//	  dsn: ./entities
//	  cache: true
//	mutex_timeout_ms: 5000
//	log_level: info
//	property_files:
//	  - props.yaml
//	documents:
//	  - scripts/main.yaml
type EngineConfigFile struct {
	Storage        StorageConfig `yaml:"storage,omitempty"`
	MutexTimeoutMs int           `yaml:"mutex_timeout_ms,omitempty"`
	LogLevel       string        `yaml:"log_level,omitempty"`
	PropertyFiles  []string      `yaml:"property_files,omitempty"`
	Documents      []string      `yaml:"documents,omitempty"`
}

// StorageConfig selects the entity storage. An empty driver means no
// storage.
type StorageConfig struct {
	Driver string `yaml:"driver,omitempty"`
	DSN    string `yaml:"dsn,omitempty"`
	Cache  bool   `yaml:"cache,omitempty"`
}

// LoadConfig reads an EngineConfigFile
func LoadConfig(path string) (*EngineConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewConfigError(path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, NewConfigError(path, err)
	}
	return cfg, nil
}

// ParseConfig decodes an EngineConfigFile
func ParseConfig(data []byte) (*EngineConfigFile, error) {
	var cfg EngineConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MutexTimeout returns the configured default, zero if unset
func (c *EngineConfigFile) MutexTimeout() time.Duration {
	return time.Duration(c.MutexTimeoutMs) * time.Millisecond
}

// Logger builds a production zap logger at the configured level. An empty
// or "off" level yields a no-op logger.
func (c *EngineConfigFile) Logger() (*zap.Logger, error) {
	if c.LogLevel == "" || c.LogLevel == LogLevelOff {
		return zap.NewNop(), nil
	}
	level, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, NewConfigError(c.LogLevel, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = level
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

// OpenStorage opens the configured storage, nil when no driver is set
func (c *EngineConfigFile) OpenStorage(logger *zap.Logger) (EntityStorage, error) {
	if c.Storage.Driver == "" {
		return nil, nil
	}
	storage, err := OpenStorage(c.Storage.Driver, c.Storage.DSN)
	if err != nil {
		return nil, err
	}
	if c.Storage.Cache {
		storage = NewCachedStorage(storage, DefaultCacheConfig(), logger)
	}
	return storage, nil
}

// Options translates the file into engine options. The returned storage,
// if any, is owned by the caller.
func (c *EngineConfigFile) Options(logger *zap.Logger) ([]Option, EntityStorage, error) {
	opts := []Option{WithLogger(logger)}
	if d := c.MutexTimeout(); d > 0 {
		opts = append(opts, WithMutexTimeout(d))
	}
	storage, err := c.OpenStorage(logger)
	if err != nil {
		return nil, nil, err
	}
	if storage != nil {
		opts = append(opts, WithStorage(storage))
	}
	return opts, storage, nil
}

// LoadProperties merges the property files in order; later files win.
// Each file is a YAML (or JSON) mapping.
func (c *EngineConfigFile) LoadProperties() (map[string]any, error) {
	props := make(map[string]any)
	for _, path := range c.PropertyFiles {
		p, err := LoadPropertyFile(path)
		if err != nil {
			return nil, err
		}
		maps.Copy(props, p)
	}
	return props, nil
}

// LoadPropertyFile reads one YAML mapping of root properties
func LoadPropertyFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewConfigError(path, err)
	}
	props := make(map[string]any)
	if err := yaml.Unmarshal(data, &props); err != nil {
		return nil, NewConfigError(path, err)
	}
	return props, nil
}
