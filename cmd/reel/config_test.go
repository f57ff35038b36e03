// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("REEL_DATA_DIR", dir)
	viper.Reset()

	config, err := LoadConfig("")
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, dir, config.DataDir)
	assert.Equal(t, filepath.Join(dir, "media"), config.Store.Dir)
	assert.False(t, config.Store.InMemory)
	assert.True(t, config.Store.Watch)
	assert.Equal(t, 500, config.Store.WatchDebounceMs)

	assert.Equal(t, 50, config.Cache.Capacity)
	assert.Equal(t, 3, config.Cache.MaxAttempts)
	assert.Equal(t, 500, config.Cache.BaseDelayMs)
	assert.Equal(t, 2000, config.Cache.MaxDelayMs)
	assert.True(t, config.Cache.RetainReleased)

	assert.Equal(t, "127.0.0.1:7450", config.Server.Addr)
	assert.Equal(t, 300, config.Server.LeaseTTLSeconds)
	assert.Equal(t, int64(512), config.Server.MaxUploadMB)
	assert.True(t, config.Server.CORS.Enabled)
	assert.Equal(t, []string{"*"}, config.Server.CORS.AllowedOrigins)

	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "text", config.Logging.Format)
}

func TestLoadConfig_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("REEL_DATA_DIR", dir)
	viper.Reset()

	cfgPath := filepath.Join(dir, "reel.yaml")
	cfgYAML := `store:
  dir: /srv/reel-media
cache:
  capacity: 8
  retain_released: false
server:
  addr: 0.0.0.0:9100
  lease_ttl_seconds: 60
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgYAML), 0600))

	config, err := LoadConfig(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "/srv/reel-media", config.Store.Dir)
	assert.Equal(t, 8, config.Cache.Capacity)
	assert.False(t, config.Cache.RetainReleased)
	assert.Equal(t, "0.0.0.0:9100", config.Server.Addr)
	assert.Equal(t, 60, config.Server.LeaseTTLSeconds)
	assert.Equal(t, "debug", config.Logging.Level)

	// Values absent from the file keep their defaults
	assert.Equal(t, 3, config.Cache.MaxAttempts)
	assert.Equal(t, "text", config.Logging.Format)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Setenv("REEL_DATA_DIR", t.TempDir())
	viper.Reset()

	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestExampleConfigLoads(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("REEL_DATA_DIR", dir)
	viper.Reset()

	assert.Contains(t, exampleConfig, "store:")
	assert.Contains(t, exampleConfig, "cache:")
	assert.Contains(t, exampleConfig, "server:")
	assert.Contains(t, exampleConfig, "logging:")

	cfgPath := filepath.Join(dir, "reel.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(exampleConfig), 0600))

	config, err := LoadConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 50, config.Cache.Capacity)
	assert.True(t, config.Cache.RetainReleased)
	assert.Equal(t, "127.0.0.1:7450", config.Server.Addr)
}

func TestConfigValidate(t *testing.T) {
	valid := func(t *testing.T) *Config {
		t.Helper()
		t.Setenv("REEL_DATA_DIR", t.TempDir())
		viper.Reset()
		config, err := LoadConfig("")
		require.NoError(t, err)
		return config
	}

	t.Run("defaults pass", func(t *testing.T) {
		assert.NoError(t, valid(t).Validate())
	})

	t.Run("zero capacity", func(t *testing.T) {
		c := valid(t)
		c.Cache.Capacity = 0
		assert.Error(t, c.Validate())
	})

	t.Run("zero attempts", func(t *testing.T) {
		c := valid(t)
		c.Cache.MaxAttempts = 0
		assert.Error(t, c.Validate())
	})

	t.Run("empty addr", func(t *testing.T) {
		c := valid(t)
		c.Server.Addr = ""
		assert.Error(t, c.Validate())
	})

	t.Run("zero lease ttl", func(t *testing.T) {
		c := valid(t)
		c.Server.LeaseTTLSeconds = 0
		assert.Error(t, c.Validate())
	})

	t.Run("bad level", func(t *testing.T) {
		c := valid(t)
		c.Logging.Level = "verbose"
		assert.Error(t, c.Validate())
	})

	t.Run("bad format", func(t *testing.T) {
		c := valid(t)
		c.Logging.Format = "xml"
		assert.Error(t, c.Validate())
	})
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "reel-data"), expandPath("~/reel-data"))

	abs, err := filepath.Abs("relative/dir")
	require.NoError(t, err)
	assert.Equal(t, abs, expandPath("relative/dir"))
}
