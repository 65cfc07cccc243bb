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

package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	config := &Config{
		Level:  "debug",
		Debug:  true,
		Output: "stdout",
	}

	err := Init(config)
	require.NoError(t, err)

	logger := GetLogger()
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	err := Init(&Config{Level: "chatty"})
	require.Error(t, err)
}

func TestSetDebug(t *testing.T) {
	SetDebug(true)

	logger := GetLogger()
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())

	SetDebug(false)

	logger = GetLogger()
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestWithComponent(t *testing.T) {
	componentLogger := WithComponent("test-component")

	assert.NotEqual(t, zerolog.Disabled, componentLogger.GetLevel())
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_HEADERS", "x-token=abc, tenant = fleet")

	config := DefaultConfig()

	assert.Equal(t, "warn", config.Level)
	assert.Equal(t, "stdout", config.Output)
	assert.Equal(t, map[string]string{"x-token": "abc", "tenant": "fleet"}, config.OTel.Headers)
	assert.Equal(t, "fleetradar", config.OTel.ServiceName)
}

func TestZerologLevel(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   zerolog.Level
	}{
		{name: "empty defaults to info", config: Config{}, want: zerolog.InfoLevel},
		{name: "explicit level", config: Config{Level: "error"}, want: zerolog.ErrorLevel},
		{name: "debug overrides level", config: Config{Level: "error", Debug: true}, want: zerolog.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.config.ZerologLevel()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInitializeMetricsDisabled(t *testing.T) {
	_, err := InitializeMetrics(context.Background(), MetricsConfig{OTel: &OTelConfig{Enabled: false}})
	assert.True(t, errors.Is(err, ErrOTelMetricsDisabled))

	_, err = InitializeMetrics(context.Background(), MetricsConfig{})
	assert.True(t, errors.Is(err, ErrOTelMetricsDisabled))
}

func TestShutdownWithoutMetrics(t *testing.T) {
	require.NoError(t, Shutdown())
}
