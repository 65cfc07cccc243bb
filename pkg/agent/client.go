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

package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/carverauto/fleetradar/pkg/models"
	"github.com/carverauto/fleetradar/pkg/version"
)

const (
	deviceKeyHeader = "X-Device-Key"

	defaultHTTPTimeout = 30 * time.Second
)

var (
	// ErrUnauthorized is returned when the registry rejects the device credential.
	ErrUnauthorized = errors.New("device credential rejected")
	// ErrTransport wraps network failures and unexpected responses.
	ErrTransport = errors.New("registry transport error")
)

// RegistryClient speaks the registry HTTP API.
type RegistryClient struct {
	client *resty.Client
}

var _ Registry = (*RegistryClient)(nil)

// NewRegistryClient creates a client for serverURL. A non-positive timeout uses 30s.
func NewRegistryClient(serverURL string, timeout time.Duration) *RegistryClient {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	client := resty.New().
		SetBaseURL(serverURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", version.UserAgent("fleetradar-agent")).
		SetTimeout(timeout)

	return &RegistryClient{client: client}
}

// Register requests a new identity.
func (c *RegistryClient) Register(ctx context.Context, req *models.RegistrationRequest) (*models.RegistrationResponse, error) {
	var out models.RegistrationResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/api/devices/register")
	if err := checkResponse("register", resp, err); err != nil {
		return nil, err
	}

	if out.DeviceID == "" || out.Credential == "" {
		return nil, fmt.Errorf("%w: register: empty identity in response", ErrTransport)
	}

	return &out, nil
}

// Heartbeat reports liveness under credential.
func (c *RegistryClient) Heartbeat(ctx context.Context, credential string, req *models.HeartbeatRequest) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader(deviceKeyHeader, credential).
		SetBody(req).
		Post("/api/devices/heartbeat")

	return checkResponse("heartbeat", resp, err)
}

// Poll drains up to limit pending commands for the identity's device.
func (c *RegistryClient) Poll(ctx context.Context, identity Identity, limit int) ([]models.CommandView, error) {
	var out []models.CommandView

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader(deviceKeyHeader, identity.Credential).
		SetPathParam("device_id", identity.DeviceID).
		SetQueryParam("max", strconv.Itoa(limit)).
		SetResult(&out).
		Get("/api/devices/{device_id}/commands")
	if err := checkResponse("poll", resp, err); err != nil {
		return nil, err
	}

	return out, nil
}

// Ack reports the outcome of a command.
func (c *RegistryClient) Ack(ctx context.Context, identity Identity, commandID string, req *models.AckCommandRequest) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader(deviceKeyHeader, identity.Credential).
		SetPathParams(map[string]string{
			"device_id":  identity.DeviceID,
			"command_id": commandID,
		}).
		SetBody(req).
		Post("/api/devices/{device_id}/commands/{command_id}/ack")

	return checkResponse("ack", resp, err)
}

func checkResponse(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
	}

	switch {
	case resp.StatusCode() == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, op)
	case resp.StatusCode() != http.StatusOK:
		return fmt.Errorf("%w: %s: server responded %d: %s", ErrTransport, op, resp.StatusCode(), resp.String())
	}

	return nil
}
