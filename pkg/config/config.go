/*
Copyright 2025 The KGCL Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads the engine's tunable configuration:
// a YAML document merged over the three environment variables, with an
// optional file watch for the tunables that are safe to change between
// orchestrator lifetimes.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"

	kgclerrors "github.com/kgcl-io/kgcl-core/pkg/errors"
)

// Cache describes the on-disk cache directory tunable
// (KGCL_CACHE_DIR).
type Cache struct {
	Dir string `yaml:"dir"`
}

// Reasoner describes the warm reasoner pool tunable (KGCL_EYE_PATH).
type Reasoner struct {
	EyePath  string `yaml:"eye_path"`
	PoolSize int    `yaml:"pool_size"`
}

// Logging describes the logging tunable.
type Logging struct {
	Level string `yaml:"level"`
}

// Tick describes per-tick timeout tunables, safe to change between
// orchestrator lifetimes.
type Tick struct {
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	MaxTicks       uint64        `yaml:"max_ticks"`
}

// UnmarshalYAML accepts "45s"-style duration strings, which yaml.v3
// does not decode into time.Duration on its own. Absent fields keep
// whatever value t already holds, so defaults survive partial files.
func (t *Tick) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		DefaultTimeout string `yaml:"default_timeout"`
		MaxTicks       uint64 `yaml:"max_ticks"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.DefaultTimeout != "" {
		d, err := time.ParseDuration(raw.DefaultTimeout)
		if err != nil {
			return fmt.Errorf("config: parsing tick.default_timeout: %w", err)
		}
		t.DefaultTimeout = d
	}
	if raw.MaxTicks != 0 {
		t.MaxTicks = raw.MaxTicks
	}
	return nil
}

// Temporal describes the tiered event store's size tunables.
type Temporal struct {
	MaxHotEvents            int `yaml:"max_hot_events"`
	MaxWarmEvents           int `yaml:"max_warm_events"`
	SnapshotIntervalEvents  int `yaml:"snapshot_interval_events"`
	SnapshotIntervalSeconds int `yaml:"snapshot_interval_seconds"`
}

// Config is the top-level tunable document. The physics ontology
// is never part of this struct: it is loaded exactly once
// per orchestrator lifetime and is never a hot-reloadable tunable.
type Config struct {
	Cache    Cache    `yaml:"cache"`
	Reasoner Reasoner `yaml:"reasoner"`
	Logging  Logging  `yaml:"logging"`
	Tick     Tick     `yaml:"tick"`
	Temporal Temporal `yaml:"temporal"`
}

// Default returns the configuration a freshly installed orchestrator
// starts with before any file or environment override is applied.
func Default() *Config {
	return &Config{
		Cache:    Cache{Dir: ".kgc/cache"},
		Reasoner: Reasoner{PoolSize: 4},
		Logging:  Logging{Level: "info"},
		Tick:     Tick{DefaultTimeout: 30 * time.Second, MaxTicks: 1000},
		Temporal: Temporal{
			MaxHotEvents:            10000,
			MaxWarmEvents:           1000000,
			SnapshotIntervalEvents:  100000,
			SnapshotIntervalSeconds: 3600,
		},
	}
}

// Load reads path as YAML into Default()'s base, then applies the
// environment variable overrides (KGCL_CACHE_DIR,
// KGCL_EYE_PATH, KGCL_LOG_LEVEL). path == "" skips the file and only
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, kgclerrors.Wrap(kgclerrors.StoreError, err, fmt.Sprintf("config: reading %s", path))
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, kgclerrors.Wrap(kgclerrors.StoreError, err, fmt.Sprintf("config: parsing %s", path))
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("KGCL_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv("KGCL_EYE_PATH"); v != "" {
		cfg.Reasoner.EyePath = v
	}
	if v := os.Getenv("KGCL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Watcher reloads the underlying YAML file whenever it changes on
// disk, invoking onChange with the freshly parsed Config. It never
// reloads the physics ontology: callers that need the
// updated tick timeout or temporal tier sizes read Config fields;
// nothing here re-dispatches the SemanticDriver.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	log     logr.Logger
	done    chan struct{}
}

// Watch starts watching path for writes, calling onChange on every
// change that parses successfully; parse errors are logged and
// ignored so a bad in-flight edit never crashes the watcher.
func Watch(path string, log logr.Logger, onChange func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, kgclerrors.Wrap(kgclerrors.StoreError, err, "config: starting fsnotify watcher")
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, kgclerrors.Wrap(kgclerrors.StoreError, err, fmt.Sprintf("config: watching %s", path))
	}

	w := &Watcher{path: path, watcher: fw, log: log, done: make(chan struct{})}
	go w.loop(onChange)
	return w, nil
}

func (w *Watcher) loop(onChange func(*Config)) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				w.log.Error(err, "config: reload failed, keeping previous config", "path", w.path)
				continue
			}
			onChange(cfg)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error(err, "config: watcher error", "path", w.path)
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
