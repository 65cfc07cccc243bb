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

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/fleetradar/pkg/models"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
		check   func(t *testing.T, cfg *CmdConfig)
	}{
		{
			name: "no args shows help",
			args: nil,
			check: func(t *testing.T, cfg *CmdConfig) {
				t.Helper()
				assert.True(t, cfg.Help)
			},
		},
		{
			name: "devices with json output",
			args: []string{"devices", "--server", "http://registry:5081/", "-o", "JSON"},
			check: func(t *testing.T, cfg *CmdConfig) {
				t.Helper()
				assert.Equal(t, "devices", cfg.SubCmd)
				assert.Equal(t, "http://registry:5081/", cfg.ServerURL)
				assert.Equal(t, outputJSON, cfg.Output)
				assert.Equal(t, defaultTimeout, cfg.Timeout)
			},
		},
		{
			name: "show takes positional id",
			args: []string{"show", "dev-1", "--api-key", "secret"},
			check: func(t *testing.T, cfg *CmdConfig) {
				t.Helper()
				assert.Equal(t, "dev-1", cfg.DeviceID)
				assert.Equal(t, "secret", cfg.APIKey)
			},
		},
		{
			name:    "show without id",
			args:    []string{"show"},
			wantErr: errMissingDeviceID,
		},
		{
			name: "enqueue message",
			args: []string{"enqueue", "dev-1", "-t", "message", "-m", "hello"},
			check: func(t *testing.T, cfg *CmdConfig) {
				t.Helper()
				assert.Equal(t, "message", cfg.CommandType)
				assert.Equal(t, "hello", cfg.Message)
			},
		},
		{
			name:    "enqueue without type",
			args:    []string{"enqueue", "dev-1"},
			wantErr: errMissingType,
		},
		{
			name:    "enqueue with both payload forms",
			args:    []string{"enqueue", "dev-1", "--type", "message", "--payload", `"x"`, "--message", "y"},
			wantErr: errPayloadConflict,
		},
		{
			name:    "enqueue with invalid payload",
			args:    []string{"enqueue", "dev-1", "--type", "lock", "--payload", "{oops"},
			wantErr: errInvalidPayload,
		},
		{
			name:    "bad output format",
			args:    []string{"devices", "-o", "yaml"},
			wantErr: errInvalidOutput,
		},
		{
			name:    "unknown subcommand",
			args:    []string{"reboot-all"},
			wantErr: errUnknownSubcommand,
		},
		{
			name: "subcommand help",
			args: []string{"enqueue", "--help"},
			check: func(t *testing.T, cfg *CmdConfig) {
				t.Helper()
				assert.True(t, cfg.Help)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseFlags(tt.args)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestBuildEnqueueRequest(t *testing.T) {
	req, err := buildEnqueueRequest(&CmdConfig{CommandType: "message", Message: `say "hi"`})
	require.NoError(t, err)
	assert.JSONEq(t, `"say \"hi\""`, string(req.Payload))

	req, err = buildEnqueueRequest(&CmdConfig{CommandType: "lock"})
	require.NoError(t, err)
	assert.Nil(t, req.Payload)

	body, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"lock","payload":null}`, string(body))
}

type fakeRegistry struct {
	apiKey   string
	devices  []models.DeviceView
	enqueued []models.EnqueueCommandRequest
}

func (f *fakeRegistry) handler(t *testing.T) http.Handler {
	t.Helper()

	writeJSONResponse := func(w http.ResponseWriter, status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	authorized := func(w http.ResponseWriter, r *http.Request) bool {
		if f.apiKey != "" && r.Header.Get(apiKeyHeader) != f.apiKey {
			writeJSONResponse(w, http.StatusUnauthorized, models.ErrorResponse{Message: "Unauthorized", Status: http.StatusUnauthorized})
			return false
		}

		return true
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/devices", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			writeJSONResponse(w, http.StatusOK, f.devices)
		}
	})
	mux.HandleFunc("GET /api/devices/{device_id}", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}

		for _, d := range f.devices {
			if d.ID == r.PathValue("device_id") {
				writeJSONResponse(w, http.StatusOK, d)
				return
			}
		}

		writeJSONResponse(w, http.StatusNotFound, models.ErrorResponse{Message: "device not found", Status: http.StatusNotFound})
	})
	mux.HandleFunc("POST /api/devices/{device_id}/commands", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}

		var req models.EnqueueCommandRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONResponse(w, http.StatusBadRequest, models.ErrorResponse{Message: err.Error(), Status: http.StatusBadRequest})
			return
		}

		f.enqueued = append(f.enqueued, req)
		writeJSONResponse(w, http.StatusOK, models.CommandView{ID: "cmd-1", Type: req.Type, Payload: req.Payload})
	})

	return mux
}

func newFakeRegistry(t *testing.T, apiKey string) (*fakeRegistry, string) {
	t.Helper()

	seen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ip := "10.1.2.3"

	f := &fakeRegistry{
		apiKey: apiKey,
		devices: []models.DeviceView{
			{
				ID: "dev-1", Hostname: "lab-01", OSVersion: "Windows 11", AgentVersion: "1.0.0",
				LastSeen: &seen, LastIP: &ip, Status: models.DeviceStatusOnline,
				Telemetry: &models.Telemetry{CPUPercent: 12.5, MemPercent: 48, ActiveUser: "student", Uptime: 90},
			},
			{ID: "dev-2", Hostname: "lab-02", Status: models.DeviceStatusOffline},
		},
	}

	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	return f, srv.URL
}

func TestRunDevices(t *testing.T) {
	_, url := newFakeRegistry(t, "")

	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), &CmdConfig{SubCmd: "devices", ServerURL: url, Output: outputText}, &out))

	text := out.String()
	assert.Contains(t, text, "HOSTNAME")
	assert.Contains(t, text, "lab-01")
	assert.Contains(t, text, "online")
	assert.Contains(t, text, "offline")
	assert.Contains(t, text, "never")

	out.Reset()
	require.NoError(t, Run(context.Background(), &CmdConfig{SubCmd: "devices", ServerURL: url, Output: outputJSON}, &out))

	var devices []models.DeviceView
	require.NoError(t, json.Unmarshal(out.Bytes(), &devices))
	assert.Len(t, devices, 2)
}

func TestRunShow(t *testing.T) {
	_, url := newFakeRegistry(t, "")

	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), &CmdConfig{SubCmd: "show", DeviceID: "dev-1", ServerURL: url, Output: outputText}, &out))

	text := out.String()
	assert.Contains(t, text, "lab-01")
	assert.Contains(t, text, "10.1.2.3")
	assert.Contains(t, text, "2026-03-01T12:00:00Z")
	assert.Contains(t, text, "student")
	assert.Contains(t, text, "1m30s")

	err := Run(context.Background(), &CmdConfig{SubCmd: "show", DeviceID: "missing", ServerURL: url, Output: outputText}, &out)
	require.ErrorIs(t, err, ErrDeviceNotFound)
	assert.Contains(t, err.Error(), "device not found")
}

func TestRunEnqueue(t *testing.T) {
	f, url := newFakeRegistry(t, "op-key")

	var out bytes.Buffer
	cfg := &CmdConfig{
		SubCmd: "enqueue", DeviceID: "dev-1", ServerURL: url, APIKey: "op-key",
		Output: outputText, CommandType: "message", Message: "Class ends soon",
	}
	require.NoError(t, Run(context.Background(), cfg, &out))

	assert.Equal(t, "Queued message command cmd-1 for device dev-1\n", out.String())
	require.Len(t, f.enqueued, 1)
	assert.JSONEq(t, `"Class ends soon"`, string(f.enqueued[0].Payload))

	cfg.APIKey = "wrong"
	err := Run(context.Background(), cfg, &out)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRunHelp(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), &CmdConfig{Help: true}, &out))
	assert.Contains(t, out.String(), "fleetctl devices")
}

func TestNormaliseServerURL(t *testing.T) {
	assert.Equal(t, defaultServerURL, normaliseServerURL("  "))
	assert.Equal(t, "http://registry:5081", normaliseServerURL("http://registry:5081//"))
}
