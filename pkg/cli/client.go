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
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/carverauto/fleetradar/pkg/models"
	"github.com/carverauto/fleetradar/pkg/version"
)

const apiKeyHeader = "X-API-Key"

// OperatorClient calls the operator endpoints of the registry API.
type OperatorClient struct {
	client *resty.Client
}

// NewOperatorClient creates a client for serverURL. apiKey may be empty when the
// registry runs without one.
func NewOperatorClient(serverURL, apiKey string, timeout time.Duration) *OperatorClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := resty.New().
		SetBaseURL(normaliseServerURL(serverURL)).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", version.UserAgent("fleetctl")).
		SetTimeout(timeout)

	if apiKey != "" {
		client.SetHeader(apiKeyHeader, apiKey)
	}

	return &OperatorClient{client: client}
}

// ListDevices returns every registered device in registration order.
func (c *OperatorClient) ListDevices(ctx context.Context) ([]models.DeviceView, error) {
	var out []models.DeviceView

	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&models.ErrorResponse{}).
		Get("/api/devices")
	if err := checkResponse("list devices", resp, err); err != nil {
		return nil, err
	}

	return out, nil
}

// GetDevice returns one device.
func (c *OperatorClient) GetDevice(ctx context.Context, deviceID string) (*models.DeviceView, error) {
	var out models.DeviceView

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("device_id", deviceID).
		SetResult(&out).
		SetError(&models.ErrorResponse{}).
		Get("/api/devices/{device_id}")
	if err := checkResponse("get device", resp, err); err != nil {
		return nil, err
	}

	return &out, nil
}

// Enqueue appends a command to the device queue.
func (c *OperatorClient) Enqueue(
	ctx context.Context, deviceID string, req *models.EnqueueCommandRequest) (*models.CommandView, error) {
	var out models.CommandView

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetPathParam("device_id", deviceID).
		SetBody(req).
		SetResult(&out).
		SetError(&models.ErrorResponse{}).
		Post("/api/devices/{device_id}/commands")
	if err := checkResponse("enqueue command", resp, err); err != nil {
		return nil, err
	}

	return &out, nil
}

func checkResponse(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %w", errRequestFailed, op, err)
	}

	if resp.StatusCode() == http.StatusOK {
		return nil
	}

	msg := strings.TrimSpace(resp.String())
	if apiErr, ok := resp.Error().(*models.ErrorResponse); ok && apiErr.Message != "" {
		msg = apiErr.Message
	}

	switch resp.StatusCode() {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, op)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s: %s", ErrDeviceNotFound, op, msg)
	default:
		return fmt.Errorf("%w: %s: status %d: %s", errRequestFailed, op, resp.StatusCode(), msg)
	}
}

func normaliseServerURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultServerURL
	}

	return strings.TrimRight(raw, "/")
}
