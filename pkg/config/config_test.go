package config

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/kanon/serilang/pkg/gc"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 32, cfg.ModuleCacheSize)
	require.Equal(t, []string{"."}, cfg.ImportPaths)
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadLayersFileOverDefault(t *testing.T) {
	fs := afero.NewMemMapFs()
	const path = "/etc/serilang/config.yaml"
	require.NoError(t, afero.WriteFile(fs, path, []byte(`
log_level: debug
module_cache_size: 64
import_paths:
  - ./lib
  - ./vendor
`), 0o644))

	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg := Default()
	require.NoError(t, v.Unmarshal(cfg))
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 64, cfg.ModuleCacheSize)
	require.Equal(t, []string{"./lib", "./vendor"}, cfg.ImportPaths)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	require.Error(t, err)
}

func TestLoggerParsesLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "warn"
	logger, err := cfg.Logger()
	require.NoError(t, err)
	require.Equal(t, "warn", logger.GetLevel().String())
}

func TestLoggerRejectsInvalidLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "not-a-level"
	_, err := cfg.Logger()
	require.Error(t, err)
}

func TestOptionsBuildsVMOptions(t *testing.T) {
	cfg := Default()
	opts, err := cfg.Options(afero.NewMemMapFs())
	require.NoError(t, err)
	require.Len(t, opts, 3)
}

func TestOptionsWithNilFilesystemOmitsFilesystemOption(t *testing.T) {
	cfg := Default()
	opts, err := cfg.Options(nil)
	require.NoError(t, err)
	require.Len(t, opts, 2)
}

func TestApplyGCOverridesThreshold(t *testing.T) {
	cfg := Default()
	cfg.GCInitialThreshold = 4096
	collector := gc.New(zerolog.Nop())
	cfg.ApplyGC(collector)
	require.Equal(t, uintptr(4096), collector.Threshold())
}

func TestApplyGCLeavesDefaultWhenUnset(t *testing.T) {
	cfg := Default()
	collector := gc.New(zerolog.Nop())
	before := collector.Threshold()
	cfg.ApplyGC(collector)
	require.Equal(t, before, collector.Threshold())
}
