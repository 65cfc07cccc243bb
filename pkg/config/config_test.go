/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
)

var errMissingAddr = errors.New("listen_addr is required")

type testNested struct {
	URL     string `json:"url" yaml:"url"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

type testConfig struct {
	ListenAddr string            `json:"listen_addr" yaml:"listen_addr"`
	Window     models.Duration   `json:"window" yaml:"window"`
	Timeout    time.Duration     `json:"timeout" yaml:"timeout"`
	MaxBatch   int               `json:"max_batch" yaml:"max_batch"`
	Origins    []string          `json:"origins" yaml:"origins"`
	Labels     map[string]string `json:"labels" yaml:"labels"`
	NATS       testNested        `json:"nats" yaml:"nats"`
	Optional   *testNested       `json:"optional,omitempty" yaml:"optional,omitempty"`
	Secret     string            `json:"secret" yaml:"secret" sensitive:"true"`
}

func (c *testConfig) Validate() error {
	if c.ListenAddr == "" {
		return errMissingAddr
	}

	return nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadAndValidate_JSONFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := writeFile(t, "registry.json", `{
		"listen_addr": ":8080",
		"window": "20s",
		"max_batch": 50,
		"nats": {"url": "nats://localhost:4222", "enabled": true}
	}`)

	cfg := testConfig{MaxBatch: 100}
	require.NoError(t, NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 20*time.Second, cfg.Window.Std())
	assert.Equal(t, 50, cfg.MaxBatch)
	assert.True(t, cfg.NATS.Enabled)
}

func TestLoadAndValidate_YAMLFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "file")

	path := writeFile(t, "agent.yaml", `
listen_addr: ":9090"
window: 5s
origins:
  - http://localhost:3000
`)

	var cfg testConfig
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, 5*time.Second, cfg.Window.Std())
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Origins)
}

func TestLoadAndValidate_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("validation failure", func(t *testing.T) {
		t.Setenv("CONFIG_SOURCE", "")
		path := writeFile(t, "c.json", `{"max_batch": 3}`)

		var cfg testConfig
		err := NewConfig(nil).LoadAndValidate(ctx, path, &cfg)
		require.ErrorIs(t, err, errMissingAddr)
	})

	t.Run("unknown field", func(t *testing.T) {
		t.Setenv("CONFIG_SOURCE", "")
		path := writeFile(t, "c.json", `{"listen_addr": ":1", "listen_adr": ":2"}`)

		var cfg testConfig
		require.Error(t, NewConfig(nil).LoadAndValidate(ctx, path, &cfg))
	})

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("CONFIG_SOURCE", "")

		var cfg testConfig
		require.Error(t, NewConfig(nil).LoadAndValidate(ctx, filepath.Join(t.TempDir(), "nope.json"), &cfg))
	})

	t.Run("bad source", func(t *testing.T) {
		t.Setenv("CONFIG_SOURCE", "consul")

		var cfg testConfig
		err := NewConfig(nil).LoadAndValidate(ctx, "", &cfg)
		require.ErrorIs(t, err, errInvalidConfigSource)
	})
}

func TestEnvConfigLoader(t *testing.T) {
	t.Setenv("TEST_LISTEN_ADDR", ":7070")
	t.Setenv("TEST_WINDOW", "45s")
	t.Setenv("TEST_TIMEOUT", "2m")
	t.Setenv("TEST_MAX_BATCH", "25")
	t.Setenv("TEST_ORIGINS", "http://a, http://b")
	t.Setenv("TEST_LABELS", `{"site":"lab-3"}`)
	t.Setenv("TEST_NATS_URL", "nats://bus:4222")
	t.Setenv("TEST_NATS_ENABLED", "true")

	var cfg testConfig
	require.NoError(t, NewEnvConfigLoader(logger.NewTestLogger(), "TEST_").Load(context.Background(), "", &cfg))

	assert.Equal(t, ":7070", cfg.ListenAddr)
	assert.Equal(t, 45*time.Second, cfg.Window.Std())
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.Equal(t, 25, cfg.MaxBatch)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Origins)
	assert.Equal(t, map[string]string{"site": "lab-3"}, cfg.Labels)
	assert.Equal(t, "nats://bus:4222", cfg.NATS.URL)
	assert.True(t, cfg.NATS.Enabled)
	assert.Nil(t, cfg.Optional, "pointer structs stay nil without matching variables")
}

func TestEnvConfigLoader_PointerStruct(t *testing.T) {
	t.Setenv("PTR_OPTIONAL_URL", "nats://x")

	var cfg testConfig
	require.NoError(t, NewEnvConfigLoader(nil, "PTR_").Load(context.Background(), "", &cfg))

	require.NotNil(t, cfg.Optional)
	assert.Equal(t, "nats://x", cfg.Optional.URL)
}

func TestEnvConfigLoader_ConfigJSON(t *testing.T) {
	t.Setenv("CJ_CONFIG_JSON", `{"listen_addr":":6060","window":"3s"}`)
	t.Setenv("CJ_LISTEN_ADDR", ":1111")

	var cfg testConfig
	require.NoError(t, NewEnvConfigLoader(nil, "CJ_").Load(context.Background(), "", &cfg))

	assert.Equal(t, ":6060", cfg.ListenAddr)
	assert.Equal(t, 3*time.Second, cfg.Window.Std())
}

func TestEnvConfigLoader_InvalidValue(t *testing.T) {
	t.Setenv("BAD_MAX_BATCH", "lots")

	var cfg testConfig
	err := NewEnvConfigLoader(nil, "BAD_").Load(context.Background(), "", &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BAD_MAX_BATCH")
}

func TestEnvConfigLoader_RejectsNonPointer(t *testing.T) {
	loader := NewEnvConfigLoader(nil, "X_")

	require.ErrorIs(t, loader.Load(context.Background(), "", testConfig{}), ErrDstMustBeNonNilPointer)

	s := "str"
	require.ErrorIs(t, loader.Load(context.Background(), "", &s), ErrDstMustBePointerToStruct)
}

func TestLoadAndValidate_EnvSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("CONFIG_ENV_PREFIX", "")
	t.Setenv("FLEETRADAR_LISTEN_ADDR", ":5050")

	var cfg testConfig
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), "ignored.json", &cfg))
	assert.Equal(t, ":5050", cfg.ListenAddr)
}

func TestSanitize(t *testing.T) {
	cfg := testConfig{
		ListenAddr: ":8080",
		Window:     models.Duration(20 * time.Second),
		Secret:     "hunter2",
	}

	out, err := Sanitize(&cfg)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &decoded))

	assert.Equal(t, redacted, decoded["secret"])
	assert.Equal(t, ":8080", decoded["listen_addr"])
	assert.Equal(t, "20s", decoded["window"])
	assert.NotContains(t, string(out), "hunter2")
	assert.NotContains(t, decoded, "optional")
}
