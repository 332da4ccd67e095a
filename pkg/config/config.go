// Package config loads the ambient VM configuration `cmd/serilang`
// hands to `vm.New` — GC tuning, logging, the module cache size, and
// import search paths — the way `kube-state-metrics` and `erigon`
// load their own service config through viper (spec.md §9's "ambient
// concerns carried regardless of Non-goals").
package config

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/kanon/serilang/pkg/gc"
	"github.com/kanon/serilang/pkg/vm"
)

// Config is the embedder-facing knob set for a VM (spec §6.2: "optionally
// given a garbage collector ... and a scheduler poller").
type Config struct {
	// LogLevel is a zerolog level name: "debug", "info", "warn", "error".
	LogLevel string `mapstructure:"log_level"`

	// GCInitialThreshold overrides gc.DefaultInitialThreshold, in bytes.
	// Zero means "use the collector's own default".
	GCInitialThreshold uint64 `mapstructure:"gc_initial_threshold"`

	// ModuleCacheSize bounds vm.VM's LRU module cache, which is keyed by
	// import name.
	ModuleCacheSize int `mapstructure:"module_cache_size"`

	// ImportPaths are directories searched, in order, for precompiled
	// `<name>.src` chunk files when the CLI's importer resolves import(name).
	ImportPaths []string `mapstructure:"import_paths"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		LogLevel:        "info",
		ModuleCacheSize: 32,
		ImportPaths:     []string{"."},
	}
}

// Load reads a YAML config file at path, if non-empty, layering it
// over Default(); an empty path returns Default() unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("module_cache_size", cfg.ModuleCacheSize)
	v.SetDefault("import_paths", cfg.ImportPaths)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Logger builds the zerolog.Logger this Config describes.
func (c *Config) Logger() (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return zerolog.New(zerolog.NewConsoleWriter()).Level(level).With().Timestamp().Logger(), nil
}

// Options turns this Config into vm.Options, ready for vm.New(...).
// GC threshold is applied after construction since vm.New builds its
// own gc.Collector internally and has no constructor-time threshold
// hook; callers should call ApplyGC(m.GC) right after vm.New returns.
func (c *Config) Options(fs afero.Fs) ([]vm.Option, error) {
	logger, err := c.Logger()
	if err != nil {
		return nil, err
	}
	opts := []vm.Option{
		vm.WithLogger(logger),
		vm.WithModuleCacheSize(c.ModuleCacheSize),
	}
	if fs != nil {
		opts = append(opts, vm.WithFilesystem(fs))
	}
	return opts, nil
}

// ApplyGC installs this Config's GC tuning onto an already-constructed
// collector (see Options' doc comment for why this is a second step).
func (c *Config) ApplyGC(collector *gc.Collector) {
	if c.GCInitialThreshold > 0 {
		collector.SetThreshold(uintptr(c.GCInitialThreshold))
	}
}
