package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envVars = []string{
	EnvDBPath, EnvHTTPAddr, EnvWorkers, EnvRulesFile,
	EnvStrictParse, EnvImportChunks, EnvCacheSize, EnvLogLevel, EnvLogFormat,
}

// isolateEnv clears every treechunk variable for the test and runs it from an
// empty directory so no .env file is picked up
func isolateEnv(t *testing.T) string {
	t.Helper()
	for _, key := range envVars {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".treechunk", "treechunk.db"), cfg.DBPath)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, "", cfg.RulesFile)
	assert.False(t, cfg.StrictParse)
	assert.False(t, cfg.ImportChunks)
	assert.Equal(t, 1024, cfg.CacheSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		wantErr     bool
		checkConfig func(*testing.T, *Config)
	}{
		{
			name: "all values set",
			env: map[string]string{
				EnvDBPath:       "/var/lib/treechunk/index.db",
				EnvHTTPAddr:     "127.0.0.1:9000",
				EnvWorkers:      "3",
				EnvRulesFile:    "/etc/treechunk/rules.yaml",
				EnvStrictParse:  "true",
				EnvImportChunks: "1",
				EnvCacheSize:    "64",
				EnvLogLevel:     "debug",
				EnvLogFormat:    "json",
			},
			checkConfig: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/var/lib/treechunk/index.db", cfg.DBPath)
				assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
				assert.Equal(t, 3, cfg.Workers)
				assert.Equal(t, "/etc/treechunk/rules.yaml", cfg.RulesFile)
				assert.True(t, cfg.StrictParse)
				assert.True(t, cfg.ImportChunks)
				assert.Equal(t, 64, cfg.CacheSize)
				assert.Equal(t, "debug", cfg.LogLevel)
				assert.Equal(t, "json", cfg.LogFormat)
			},
		},
		{
			name:    "invalid workers",
			env:     map[string]string{EnvWorkers: "many"},
			wantErr: true,
		},
		{
			name:    "zero workers",
			env:     map[string]string{EnvWorkers: "0"},
			wantErr: true,
		},
		{
			name:    "negative cache size",
			env:     map[string]string{EnvCacheSize: "-1"},
			wantErr: true,
		},
		{
			name:    "invalid strict flag",
			env:     map[string]string{EnvStrictParse: "maybe"},
			wantErr: true,
		},
		{
			name: "in-memory database",
			env:  map[string]string{EnvDBPath: ":memory:"},
			checkConfig: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ":memory:", cfg.DBPath)
				assert.NoError(t, cfg.EnsureDBDir())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.checkConfig != nil {
				tt.checkConfig(t, cfg)
			}
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolateEnv(t)
	// godotenv does not override variables that are already set, even to ""
	require.NoError(t, os.Unsetenv(EnvHTTPAddr))
	require.NoError(t, os.Unsetenv(EnvCacheSize))
	t.Cleanup(func() {
		_ = os.Unsetenv(EnvHTTPAddr)
		_ = os.Unsetenv(EnvCacheSize)
	})

	env := "TREECHUNK_HTTP_ADDR=:7777\nTREECHUNK_CACHE_SIZE=16\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0644))

	// Load from a nested directory to exercise the upward search
	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	t.Chdir(nested)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.HTTPAddr)
	assert.Equal(t, 16, cfg.CacheSize)
}

func TestEnsureDBDir(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{DBPath: filepath.Join(dir, "nested", "index.db")}

	require.NoError(t, cfg.EnsureDBDir())
	info, err := os.Stat(filepath.Join(dir, "nested"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandHome("~/x/y.db")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x", "y.db"), got)

	got, err = expandHome("/abs/y.db")
	require.NoError(t, err)
	assert.Equal(t, "/abs/y.db", got)

	got, err = expandHome("~other/y.db")
	require.NoError(t, err)
	assert.Equal(t, "~other/y.db", got)
}
