// Copyright 2024 The DBSP-Go Authors
// This file is part of dbsp-go.
//
// dbsp-go is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// dbsp-go is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with dbsp-go. If not, see <http://www.gnu.org/licenses/>.

// Package config holds the YAML-loadable surface from spec.md §6: runtime,
// storage, and adaptive-backend knobs, each with a DefaultXConfig
// constructor so zero-value structs are never handed to business logic.
package config

import (
	"os"
	"time"

	"github.com/c2h5oh/datasize"
	"gopkg.in/yaml.v3"
)

// StorageMode selects the kv backend a circuit's state is held in.
type StorageMode string

const (
	StorageInMemory StorageMode = "InMemory"
	StorageLSM      StorageMode = "LSM"
	StorageHybrid   StorageMode = "Hybrid"
)

// AdaptiveConfig mirrors zset.Config's tunables (adaptive.*), kept as a
// separate serializable struct so the zset package has no YAML dependency.
type AdaptiveConfig struct {
	// S: combined memtable+small size that triggers a flush.
	S int `yaml:"s"`
	// TMs: elapsed-time threshold for flush, in milliseconds.
	TMs int `yaml:"t_ms"`
	// R: maximum number of batches before compaction.
	R int `yaml:"r"`
	// N: small-vector threshold.
	N int `yaml:"n"`
	// CompactBudgetMs: time budget per compaction pass, in milliseconds.
	CompactBudgetMs int `yaml:"compact_budget_ms"`
}

// DefaultAdaptiveConfig returns the spec.md §6 defaults.
func DefaultAdaptiveConfig() AdaptiveConfig {
	return AdaptiveConfig{S: 65536, TMs: 20, R: 4, N: 512, CompactBudgetMs: 2}
}

func (a AdaptiveConfig) FlushInterval() time.Duration {
	return time.Duration(a.TMs) * time.Millisecond
}

func (a AdaptiveConfig) CompactBudget() time.Duration {
	return time.Duration(a.CompactBudgetMs) * time.Millisecond
}

// RuntimeConfig mirrors runtime.Config's knobs, serializable via YAML.
type RuntimeConfig struct {
	WorkerThreads       int               `yaml:"worker_threads"`
	StepIntervalMs      int               `yaml:"step_interval_ms"`
	MaxBufferSize       int               `yaml:"max_buffer_size"`
	EnableCheckpointing bool              `yaml:"enable_checkpointing"`
	StepTimeoutMs       int               `yaml:"step_timeout_ms"`
	MaintenanceEvery    int               `yaml:"maintenance_every"`
}

// DefaultRuntimeConfig returns the spec.md §6 defaults.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		WorkerThreads:       1,
		StepIntervalMs:      0,
		MaxBufferSize:       1000,
		EnableCheckpointing: false,
		StepTimeoutMs:       30_000,
		MaintenanceEvery:    100,
	}
}

func (r RuntimeConfig) StepInterval() time.Duration {
	return time.Duration(r.StepIntervalMs) * time.Millisecond
}

func (r RuntimeConfig) StepTimeout() time.Duration {
	return time.Duration(r.StepTimeoutMs) * time.Millisecond
}

// StorageConfig mirrors the kv package's tunables, serializable via YAML,
// with byte-size fields expressed as human-readable strings (e.g. "64KB")
// through datasize.ByteSize.
type StorageConfig struct {
	DataPath             string             `yaml:"data_path"`
	CompactionThreshold  int                `yaml:"compaction_threshold"`
	WriteBufferSize      datasize.ByteSize  `yaml:"write_buffer_size"`
	BlockCacheSize       datasize.ByteSize  `yaml:"block_cache_size"`
	SpillThreshold       float64            `yaml:"spill_threshold"`
	Mode                 StorageMode        `yaml:"mode"`
}

// DefaultStorageConfig returns the spec.md §6 defaults.
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		DataPath:            "./data",
		CompactionThreshold: 4096,
		WriteBufferSize:     64 * datasize.KB,
		BlockCacheSize:      16 * datasize.MB,
		SpillThreshold:      0.8,
		Mode:                StorageInMemory,
	}
}

// KeyCacheSize and ValueCacheSize heuristically split BlockCacheSize in
// half, matching kv.DefaultLSMConfig's ratio of equal key/value budgets.
func (s StorageConfig) KeyCacheSize() int {
	return int(s.BlockCacheSize.Bytes() / 2)
}

func (s StorageConfig) ValueCacheSize() int {
	return int(s.BlockCacheSize.Bytes() / 2)
}

// Config is the top-level document loaded from a YAML file.
type Config struct {
	Backend  string         `yaml:"backend"`
	Adaptive AdaptiveConfig `yaml:"adaptive"`
	Runtime  RuntimeConfig  `yaml:"runtime"`
	Storage  StorageConfig  `yaml:"storage"`
}

// Default returns a Config with every section's defaults and backend Hash.
func Default() Config {
	return Config{
		Backend:  "Hash",
		Adaptive: DefaultAdaptiveConfig(),
		Runtime:  DefaultRuntimeConfig(),
		Storage:  DefaultStorageConfig(),
	}
}

// Load reads and parses a YAML config file, starting from Default() so
// any field the file omits keeps its default rather than zeroing out.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
