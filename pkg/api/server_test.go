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

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/carverauto/fleetradar/pkg/dispatch"
	"github.com/carverauto/fleetradar/pkg/enrollment"
	srHttp "github.com/carverauto/fleetradar/pkg/http"
	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
	"github.com/carverauto/fleetradar/pkg/registry"
)

type testServer struct {
	t      *testing.T
	server *httptest.Server
}

func newTestServer(t *testing.T, opts ...func(*APIServer)) *testServer {
	t.Helper()

	mp := sdkmetric.NewMeterProvider()
	store := registry.NewMemoryStore(registry.WithMeterProvider(mp))

	base := []func(*APIServer){
		WithEnroller(enrollment.NewService(store)),
		WithDispatcher(dispatch.NewDispatcher(store, dispatch.WithMeterProvider(mp))),
		WithDeviceReader(store),
		WithLogger(logger.NewTestLogger()),
	}

	s := NewAPIServer(models.CORSConfig{}, append(base, opts...)...)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	return &testServer{t: t, server: srv}
}

func (ts *testServer) do(method, path string, body interface{}, headers map[string]string) *http.Response {
	ts.t.Helper()

	var reader io.Reader = http.NoBody

	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			require.NoError(ts.t, err)

			raw = string(b)
		}

		reader = bytes.NewBufferString(raw)
	}

	req, err := http.NewRequest(method, ts.server.URL+path, reader)
	require.NoError(ts.t, err)

	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := ts.server.Client().Do(req)
	require.NoError(ts.t, err)

	ts.t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return out
}

func (ts *testServer) register(hostname string) models.RegistrationResponse {
	ts.t.Helper()

	resp := ts.do(http.MethodPost, "/api/devices/register", models.RegistrationRequest{
		Hostname:     hostname,
		OSVersion:    "Windows 11",
		AgentVersion: "1.0.0",
	}, nil)
	require.Equal(ts.t, http.StatusOK, resp.StatusCode)

	return decode[models.RegistrationResponse](ts.t, resp)
}

func key(credential string) map[string]string {
	return map[string]string{srHttp.DeviceKeyHeader: credential}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, resp)["status"])
}

func TestRegister(t *testing.T) {
	ts := newTestServer(t)

	first := ts.register("LAB-PC-01")
	second := ts.register("LAB-PC-01")

	assert.NotEmpty(t, first.DeviceID)
	assert.NotEmpty(t, first.Credential)
	assert.NotEqual(t, first.DeviceID, second.DeviceID)

	resp := ts.do(http.MethodPost, "/api/devices/register", "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	errBody := decode[models.ErrorResponse](t, resp)
	assert.Equal(t, http.StatusBadRequest, errBody.Status)
}

func TestHeartbeat(t *testing.T) {
	ts := newTestServer(t)
	dev := ts.register("LAB-PC-01")

	hb := models.HeartbeatRequest{CPUPercent: 10, MemPercent: 20, IP: "10.1.2.3", Uptime: 120}

	resp := ts.do(http.MethodPost, "/api/devices/heartbeat", hb, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(http.MethodPost, "/api/devices/heartbeat", hb, key("forged"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(http.MethodPost, "/api/devices/heartbeat", hb, key(dev.Credential))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(http.MethodGet, "/api/devices/"+dev.DeviceID, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	view := decode[models.DeviceView](t, resp)
	assert.Equal(t, models.DeviceStatusOnline, view.Status)
	require.NotNil(t, view.LastIP)
	assert.Equal(t, "10.1.2.3", *view.LastIP)
}

func TestListDevices(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodGet, "/api/devices", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.DeviceView](t, resp))

	a := ts.register("a")
	b := ts.register("b")

	resp = ts.do(http.MethodGet, "/api/devices", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	devices := decode[[]models.DeviceView](t, resp)
	require.Len(t, devices, 2)
	assert.Equal(t, a.DeviceID, devices[0].ID)
	assert.Equal(t, b.DeviceID, devices[1].ID)
	assert.Equal(t, models.DeviceStatusOffline, devices[0].Status)
	assert.Nil(t, devices[0].LastSeen)
}

func TestGetDevice_NotFound(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodGet, "/api/devices/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEnqueue(t *testing.T) {
	ts := newTestServer(t)
	dev := ts.register("LAB-PC-01")

	resp := ts.do(http.MethodPost, "/api/devices/missing/commands", models.EnqueueCommandRequest{Type: "lock"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(http.MethodPost, "/api/devices/missing/commands", `{"type":"","payload":null}`, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(http.MethodPost, "/api/devices/"+dev.DeviceID+"/commands", `{"type":"","payload":null}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	empty := decode[models.CommandView](t, resp)
	assert.Empty(t, empty.Type)

	resp = ts.do(http.MethodPost, "/api/devices/"+dev.DeviceID+"/commands",
		`{"type":"message","payload":{"text":"class ends in 5 minutes"}}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cmd := decode[models.CommandView](t, resp)
	assert.NotEmpty(t, cmd.ID)
	assert.Equal(t, "message", cmd.Type)
	assert.JSONEq(t, `{"text":"class ends in 5 minutes"}`, string(cmd.Payload))
}

func TestPoll(t *testing.T) {
	ts := newTestServer(t)
	dev := ts.register("LAB-PC-01")

	for _, typ := range []string{"A", "B", "C"} {
		resp := ts.do(http.MethodPost, "/api/devices/"+dev.DeviceID+"/commands", models.EnqueueCommandRequest{Type: typ}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := ts.do(http.MethodGet, "/api/devices/"+dev.DeviceID+"/commands?max=2", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	batch := decode[[]models.CommandView](t, resp)
	require.Len(t, batch, 2)
	assert.Equal(t, "A", batch[0].Type)
	assert.Equal(t, "B", batch[1].Type)

	resp = ts.do(http.MethodGet, "/api/devices/"+dev.DeviceID+"/commands", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	batch = decode[[]models.CommandView](t, resp)
	require.Len(t, batch, 1)
	assert.Equal(t, "C", batch[0].Type)

	resp = ts.do(http.MethodGet, "/api/devices/missing/commands", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.CommandView](t, resp))

	resp = ts.do(http.MethodGet, "/api/devices/"+dev.DeviceID+"/commands?max=lots", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPoll_DeviceKeyMustMatch(t *testing.T) {
	ts := newTestServer(t)
	a := ts.register("a")
	b := ts.register("b")

	resp := ts.do(http.MethodGet, "/api/devices/"+a.DeviceID+"/commands", nil, key(b.Credential))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(http.MethodGet, "/api/devices/"+a.DeviceID+"/commands", nil, key("forged"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(http.MethodGet, "/api/devices/"+a.DeviceID+"/commands", nil, key(a.Credential))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAck(t *testing.T) {
	ts := newTestServer(t)
	dev := ts.register("LAB-PC-01")

	ack := models.AckCommandRequest{Status: models.AckStatusDone}

	resp := ts.do(http.MethodPost, "/api/devices/missing/commands/x/ack", ack, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(http.MethodPost, "/api/devices/"+dev.DeviceID+"/commands/never-issued/ack", ack, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// A lock enqueued by an operator is delivered once, acknowledged, and gone.
func TestLockScenario(t *testing.T) {
	ts := newTestServer(t)
	dev := ts.register("LAB-PC-01")

	resp := ts.do(http.MethodPost, "/api/devices/heartbeat", models.HeartbeatRequest{IP: "10.0.0.7"}, key(dev.Credential))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(http.MethodPost, "/api/devices/"+dev.DeviceID+"/commands", models.EnqueueCommandRequest{Type: "lock"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	enqueued := decode[models.CommandView](t, resp)

	resp = ts.do(http.MethodGet, "/api/devices/"+dev.DeviceID+"/commands?max=5", nil, key(dev.Credential))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	batch := decode[[]models.CommandView](t, resp)
	require.Len(t, batch, 1)
	assert.Equal(t, enqueued.ID, batch[0].ID)
	assert.Equal(t, "lock", batch[0].Type)

	resp = ts.do(http.MethodPost, "/api/devices/"+dev.DeviceID+"/commands/"+batch[0].ID+"/ack",
		models.AckCommandRequest{Status: models.AckStatusDone}, key(dev.Credential))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(http.MethodGet, "/api/devices/"+dev.DeviceID+"/commands?max=5", nil, key(dev.Credential))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.CommandView](t, resp))
}

func TestOperatorAPIKey(t *testing.T) {
	ts := newTestServer(t, WithAPIKey("operator-secret"))
	dev := ts.register("LAB-PC-01")

	resp := ts.do(http.MethodGet, "/api/devices", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(http.MethodGet, "/api/devices", nil, map[string]string{srHttp.APIKeyHeader: "operator-secret"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(http.MethodPost, "/api/devices/"+dev.DeviceID+"/commands", models.EnqueueCommandRequest{Type: "lock"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(http.MethodGet, "/api/devices/"+dev.DeviceID+"/commands", nil, key(dev.Credential))
	assert.Equal(t, http.StatusOK, resp.StatusCode, "device routes do not need the operator key")
}
