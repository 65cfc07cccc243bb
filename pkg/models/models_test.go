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

package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDurationUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "string", input: `"5s"`, want: 5 * time.Second},
		{name: "nanoseconds", input: `20000000000`, want: 20 * time.Second},
		{name: "garbage string", input: `"soon"`, wantErr: true},
		{name: "bool", input: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration

			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Std())
		})
	}
}

func TestDurationUnmarshalYAML(t *testing.T) {
	var cfg struct {
		Interval Duration `yaml:"interval"`
	}

	require.NoError(t, yaml.Unmarshal([]byte("interval: 250ms\n"), &cfg))
	assert.Equal(t, 250*time.Millisecond, cfg.Interval.Std())
}

func TestDeviceViewOmitsNothingRequired(t *testing.T) {
	raw, err := json.Marshal(DeviceView{ID: "abc", Status: DeviceStatusOffline})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	for _, key := range []string{"id", "hostname", "os_version", "agent_version", "last_seen", "last_ip", "status"} {
		assert.Contains(t, decoded, key)
	}

	assert.Nil(t, decoded["last_seen"])
	assert.Equal(t, "offline", decoded["status"])
}

func TestTelemetryUptimeDuration(t *testing.T) {
	tel := Telemetry{Uptime: 90.5}
	assert.Equal(t, 90*time.Second+500*time.Millisecond, tel.UptimeDuration())
}
