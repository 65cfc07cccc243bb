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
	"context"

	"github.com/carverauto/fleetradar/pkg/models"
)

// Enroller issues identities and authenticates device credentials.
type Enroller interface {
	Register(ctx context.Context, req *models.RegistrationRequest) (*models.RegistrationResponse, error)
	Authenticate(ctx context.Context, credential string) (string, error)
	Heartbeat(ctx context.Context, credential string, req *models.HeartbeatRequest) (string, error)
}

// CommandDispatcher moves commands between operators and devices.
type CommandDispatcher interface {
	Enqueue(ctx context.Context, deviceID string, req *models.EnqueueCommandRequest) (*models.CommandView, error)
	Poll(ctx context.Context, deviceID string, limit int) ([]models.CommandView, error)
	Ack(ctx context.Context, deviceID, commandID string, req *models.AckCommandRequest) error
}

// DeviceReader serves operator views of the registry.
type DeviceReader interface {
	ListDevices(ctx context.Context) ([]models.DeviceView, error)
	GetDevice(ctx context.Context, deviceID string) (*models.DeviceView, error)
}
