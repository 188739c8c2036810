package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/satchel/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	schemaDirName  = "schemas"

	cfgKeyBackend     = "backend"
	cfgKeyDataDir     = "data_dir"
	cfgKeySchemaDir   = "schema_dir"
	cfgKeyOnCycle     = "on_cycle"
	cfgKeyDedupShared = "dedup_shared"
	cfgKeyRedisAddr   = "redis_addr"
	cfgKeyMongoURI    = "mongo_uri"
	cfgKeyMongoDB     = "mongo_db"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# Satchel configuration

# Backend selection: memory, sqlite, redis, or mongo
backend: sqlite

# Data directory for file-based backends (optional; --data-dir overrides)
# data_dir:

# Directory of schema files (.yaml/.yml/.toml); default: <config-dir>/schemas
# schema_dir:

# Cycle policy for serialization: mark (emit back-references) or error
on_cycle: mark

# Serialize shared subgraphs once and back-reference later occurrences
dedup_shared: false

# Backend endpoints
# redis_addr: localhost:6379
# mongo_uri: mongodb://localhost:27017
# mongo_db: satchel
`

// loadConfig reads config.yaml from the config directory using Viper,
// creating the directory and a default file on first run. A missing
// config.yaml is not an error.
func loadConfig(configDir string) (types.Config, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return types.Config{}, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return types.Config{}, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyOnCycle, types.CycleMark)
	v.SetDefault(cfgKeySchemaDir, filepath.Join(configDir, schemaDirName))
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := types.Config{
		Backend:     v.GetString(cfgKeyBackend),
		DataDir:     v.GetString(cfgKeyDataDir),
		SchemaDir:   v.GetString(cfgKeySchemaDir),
		OnCycle:     v.GetString(cfgKeyOnCycle),
		DedupShared: v.GetBool(cfgKeyDedupShared),
		RedisAddr:   v.GetString(cfgKeyRedisAddr),
		MongoURI:    v.GetString(cfgKeyMongoURI),
		MongoDB:     v.GetString(cfgKeyMongoDB),
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file does
// not exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
