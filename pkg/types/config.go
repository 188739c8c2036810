package types

import "errors"

// Config holds backend selection and codec policy for Store.Attach.
type Config struct {
	Backend     string `json:"backend" yaml:"backend"`
	DataDir     string `json:"data_dir" yaml:"data_dir"`
	SchemaDir   string `json:"schema_dir" yaml:"schema_dir"`
	OnCycle     string `json:"on_cycle" yaml:"on_cycle"`
	DedupShared bool   `json:"dedup_shared" yaml:"dedup_shared"`
	RedisAddr   string `json:"redis_addr" yaml:"redis_addr"`
	MongoURI    string `json:"mongo_uri" yaml:"mongo_uri"`
	MongoDB     string `json:"mongo_db" yaml:"mongo_db"`
}

// Supported backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Cycle policies: emit a back-reference marker, or fail the encode.
const (
	CycleMark  = "mark"
	CycleError = "error"
)

// Config validation errors.
var (
	ErrBackendEmpty       = errors.New("backend must not be empty")
	ErrBackendUnknown     = errors.New("unknown backend")
	ErrCyclePolicyUnknown = errors.New("unknown cycle policy")
	ErrRedisAddrEmpty     = errors.New("redis backend needs redis_addr")
	ErrMongoURIEmpty      = errors.New("mongo backend needs mongo_uri")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendMemory: true,
	BackendSQLite: true,
	BackendRedis:  true,
	BackendMongo:  true,
}

// Validate checks that the Config is well-formed, returning a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	switch c.OnCycle {
	case "", CycleMark, CycleError:
	default:
		return ErrCyclePolicyUnknown
	}
	if c.Backend == BackendRedis && c.RedisAddr == "" {
		return ErrRedisAddrEmpty
	}
	if c.Backend == BackendMongo && c.MongoURI == "" {
		return ErrMongoURIEmpty
	}
	return nil
}
