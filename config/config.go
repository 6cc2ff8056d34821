/*
 * Copyright (c) 2024. Shuojiang Liu.
 * Licensed under the MIT License (the "License");
 * you may not use this file except in compliance with the License.
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads redisdbd's YAML configuration, layering environment
// variable overrides and defaults on top, and validates the result before
// any other package touches it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig controls the RESP listener and its dispatch worker pool.
type ServerConfig struct {
	Address        string `yaml:"address"`
	WorkerPoolSize int    `yaml:"worker_pool_size"`
	ScanChunkSize  int    `yaml:"scan_chunk_size"`
}

// EngineConfig controls the embedded storage engine redisdb.Options maps to.
type EngineConfig struct {
	DataDirectory string  `yaml:"data_directory"`
	DataFileSize  int64   `yaml:"data_file_size"`
	SyncWrites    bool    `yaml:"sync_writes"`
	IndexType     string  `yaml:"index_type"`
	MMapAtStartup bool    `yaml:"mmap_at_startup"`
	MergeRatio    float32 `yaml:"merge_ratio"`
}

// SweeperConfig controls the background expiry sweep of expiry.Sweeper.
type SweeperConfig struct {
	IntervalSeconds        int `yaml:"interval_seconds"`
	BatchSize              int `yaml:"batch_size"`
	StaleVersionSampleSize int `yaml:"stale_version_sample_size"`
}

// TxnConfig controls the RMW retry budget of txn.Run.
type TxnConfig struct {
	RetryLimit int `yaml:"retry_limit"`
}

// MetricsConfig controls the Prometheus HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LoggingConfig controls the root logger built by the logging package.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Config is the fully-resolved configuration for redisdbd: environment
// overrides, then the YAML file, then defaults, in that priority order.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Engine  EngineConfig  `yaml:"engine"`
	Sweeper SweeperConfig `yaml:"sweeper"`
	Txn     TxnConfig     `yaml:"txn"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// SweepInterval is Sweeper.IntervalSeconds as a time.Duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Sweeper.IntervalSeconds) * time.Second
}

// Default returns the configuration spec.md §6 calls for when no file or
// environment override is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Address:        "127.0.0.1:6380",
			WorkerPoolSize: 32,
			ScanChunkSize:  256,
		},
		Engine: EngineConfig{
			DataDirectory: os.TempDir(),
			DataFileSize:  256 * 1024 * 1024,
			SyncWrites:    false,
			IndexType:     "btree",
			MMapAtStartup: true,
			MergeRatio:    0.5,
		},
		Sweeper: SweeperConfig{
			IntervalSeconds:        1,
			BatchSize:              200,
			StaleVersionSampleSize: 200,
		},
		Txn: TxnConfig{RetryLimit: 3},
		Metrics: MetricsConfig{
			Enabled: true,
			Address: "127.0.0.1:9121",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads path (a YAML file; skipped entirely if path is empty), applies
// REDISDB_*-prefixed environment overrides, fills in any field still at its
// zero value from Default, and validates the result. Unknown YAML keys are a
// load error, matching spec.md §6's "validated config" requirement.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: opening %s: %w", path, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		decoder.KnownFields(true)
		var fromFile Config
		if err := decoder.Decode(&fromFile); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
		mergeNonZero(&cfg, &fromFile)
	}

	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeNonZero overlays every non-zero field of src onto dst. Config is
// small enough that an explicit field list is clearer than reflection.
func mergeNonZero(dst, src *Config) {
	if src.Server.Address != "" {
		dst.Server.Address = src.Server.Address
	}
	if src.Server.WorkerPoolSize != 0 {
		dst.Server.WorkerPoolSize = src.Server.WorkerPoolSize
	}
	if src.Server.ScanChunkSize != 0 {
		dst.Server.ScanChunkSize = src.Server.ScanChunkSize
	}
	if src.Engine.DataDirectory != "" {
		dst.Engine.DataDirectory = src.Engine.DataDirectory
	}
	if src.Engine.DataFileSize != 0 {
		dst.Engine.DataFileSize = src.Engine.DataFileSize
	}
	dst.Engine.SyncWrites = dst.Engine.SyncWrites || src.Engine.SyncWrites
	if src.Engine.IndexType != "" {
		dst.Engine.IndexType = src.Engine.IndexType
	}
	if src.Engine.MergeRatio != 0 {
		dst.Engine.MergeRatio = src.Engine.MergeRatio
	}
	dst.Engine.MMapAtStartup = src.Engine.MMapAtStartup || dst.Engine.MMapAtStartup
	if src.Sweeper.IntervalSeconds != 0 {
		dst.Sweeper.IntervalSeconds = src.Sweeper.IntervalSeconds
	}
	if src.Sweeper.BatchSize != 0 {
		dst.Sweeper.BatchSize = src.Sweeper.BatchSize
	}
	if src.Sweeper.StaleVersionSampleSize != 0 {
		dst.Sweeper.StaleVersionSampleSize = src.Sweeper.StaleVersionSampleSize
	}
	if src.Txn.RetryLimit != 0 {
		dst.Txn.RetryLimit = src.Txn.RetryLimit
	}
	dst.Metrics.Enabled = dst.Metrics.Enabled || src.Metrics.Enabled
	if src.Metrics.Address != "" {
		dst.Metrics.Address = src.Metrics.Address
	}
	if src.Logging.Level != "" {
		dst.Logging.Level = src.Logging.Level
	}
	dst.Logging.Pretty = src.Logging.Pretty || dst.Logging.Pretty
}

// envString and envInt apply a REDISDB_<NAME> override when the variable is
// set; int parse failures are silently ignored, leaving the prior value.
func envString(name string, dst *string) {
	if v, ok := os.LookupEnv("REDISDB_" + name); ok {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	if v, ok := os.LookupEnv("REDISDB_" + name); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(name string, dst *bool) {
	if v, ok := os.LookupEnv("REDISDB_" + name); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func applyEnvOverrides(cfg *Config) {
	envString("SERVER_ADDRESS", &cfg.Server.Address)
	envInt("SERVER_WORKER_POOL_SIZE", &cfg.Server.WorkerPoolSize)
	envInt("SERVER_SCAN_CHUNK_SIZE", &cfg.Server.ScanChunkSize)
	envString("ENGINE_DATA_DIRECTORY", &cfg.Engine.DataDirectory)
	envBool("ENGINE_SYNC_WRITES", &cfg.Engine.SyncWrites)
	envString("ENGINE_INDEX_TYPE", &cfg.Engine.IndexType)
	envInt("SWEEPER_INTERVAL_SECONDS", &cfg.Sweeper.IntervalSeconds)
	envInt("SWEEPER_BATCH_SIZE", &cfg.Sweeper.BatchSize)
	envInt("TXN_RETRY_LIMIT", &cfg.Txn.RetryLimit)
	envBool("METRICS_ENABLED", &cfg.Metrics.Enabled)
	envString("METRICS_ADDRESS", &cfg.Metrics.Address)
	envString("LOGGING_LEVEL", &cfg.Logging.Level)
}

func validate(cfg *Config) error {
	if cfg.Server.Address == "" {
		return fmt.Errorf("config: server.address must not be empty")
	}
	if cfg.Server.WorkerPoolSize <= 0 {
		return fmt.Errorf("config: server.worker_pool_size must be positive, got %d", cfg.Server.WorkerPoolSize)
	}
	if cfg.Server.ScanChunkSize <= 0 {
		return fmt.Errorf("config: server.scan_chunk_size must be positive, got %d", cfg.Server.ScanChunkSize)
	}
	if cfg.Engine.DataDirectory == "" {
		return fmt.Errorf("config: engine.data_directory must not be empty")
	}
	switch cfg.Engine.IndexType {
	case "btree", "art", "bptree":
	default:
		return fmt.Errorf("config: engine.index_type must be one of btree, art, bptree, got %q", cfg.Engine.IndexType)
	}
	if cfg.Sweeper.IntervalSeconds <= 0 {
		return fmt.Errorf("config: sweeper.interval_seconds must be positive, got %d", cfg.Sweeper.IntervalSeconds)
	}
	if cfg.Sweeper.BatchSize <= 0 {
		return fmt.Errorf("config: sweeper.batch_size must be positive, got %d", cfg.Sweeper.BatchSize)
	}
	if cfg.Txn.RetryLimit < 0 {
		return fmt.Errorf("config: txn.retry_limit must not be negative, got %d", cfg.Txn.RetryLimit)
	}
	return nil
}
