package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Storage backends for the extrema cache
const (
	BackendFile   = "file"
	BackendDynamo = "dynamo"
	BackendS3     = "s3"
)

// StorageConfig holds where the extrema cache and fetch counter are kept
type StorageConfig struct {
	Backend string

	// Device storage
	CacheFile string
	BadgerDir string

	// DynamoDB settings
	ExtremaTable string
	CounterTable string
	CacheKey     string

	// S3 settings
	Bucket    string
	ObjectKey string

	CurveLRUSize int
}

const (
	// Default values
	defaultCacheFile    = "/var/lib/tideclock/tides.json"
	defaultBadgerDir    = "/var/lib/tideclock/gate"
	defaultExtremaTable = "tide-extrema"
	defaultCounterTable = "tide-fetch-gate"
	defaultCacheKey     = "default"
	defaultObjectKey    = "tides/extremes.json"
	defaultCurveLRUSize = 16
)

// GetStorageConfig returns the storage configuration from environment variables or defaults
func GetStorageConfig() *StorageConfig {
	config := &StorageConfig{
		Backend:      getEnvString("TIDE_CACHE_BACKEND", BackendFile),
		CacheFile:    getEnvString("TIDE_CACHE_FILE", defaultCacheFile),
		BadgerDir:    getEnvString("TIDE_GATE_DIR", defaultBadgerDir),
		ExtremaTable: getEnvString("TIDE_EXTREMA_TABLE", defaultExtremaTable),
		CounterTable: getEnvString("TIDE_COUNTER_TABLE", defaultCounterTable),
		CacheKey:     getEnvString("TIDE_CACHE_KEY", defaultCacheKey),
		Bucket:       getEnvString("TIDE_CACHE_BUCKET", ""),
		ObjectKey:    getEnvString("TIDE_CACHE_OBJECT_KEY", defaultObjectKey),
		CurveLRUSize: getEnvInt("CACHE_CURVE_LRU_SIZE", defaultCurveLRUSize),
	}

	log.Debug().
		Str("Backend", config.Backend).
		Str("CacheFile", config.CacheFile).
		Str("BadgerDir", config.BadgerDir).
		Str("ExtremaTable", config.ExtremaTable).
		Str("CounterTable", config.CounterTable).
		Str("CacheKey", config.CacheKey).
		Str("Bucket", config.Bucket).
		Str("ObjectKey", config.ObjectKey).
		Int("CurveLRUSize", config.CurveLRUSize).
		Msg("Storage configuration loaded")

	return config
}

// Validate checks that the selected backend has what it needs
func (c *StorageConfig) Validate() error {
	switch c.Backend {
	case BackendFile:
		if c.CacheFile == "" {
			return fmt.Errorf("file backend needs a cache file path")
		}
	case BackendDynamo:
		if c.ExtremaTable == "" {
			return fmt.Errorf("dynamo backend needs a table name")
		}
	case BackendS3:
		if c.Bucket == "" {
			return fmt.Errorf("s3 backend needs a bucket")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Backend)
	}
	if c.CurveLRUSize <= 0 {
		return fmt.Errorf("curve LRU size must be positive, got %d", c.CurveLRUSize)
	}
	return nil
}

// Helper functions to get environment variables with defaults
func getEnvString(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
		log.Warn().Str("key", key).Msg("Invalid integer value in environment variable, using default")
	}
	return defaultVal
}
