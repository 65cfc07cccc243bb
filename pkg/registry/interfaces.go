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

// Package registry is the authoritative in-process store of devices, their credentials,
// liveness, and per-device command queues.
package registry

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/carverauto/fleetradar/pkg/models"
)

var (
	// ErrAuthFailure is returned when a credential is missing or unknown.
	ErrAuthFailure = errors.New("authentication failed")
	// ErrNotFound is returned when a device id is unknown.
	ErrNotFound = errors.New("device not found")
	// ErrCredentialConflict is returned when a credential digest is already indexed.
	ErrCredentialConflict = errors.New("credential already in use")
)

// DeviceMetadata is the informational description supplied at registration.
type DeviceMetadata struct {
	Hostname     string
	OSVersion    string
	AgentVersion string
}

// Store is the registry contract. MemoryStore is the only implementation; a durable
// backend must preserve the per-device FIFO and the single-credential mapping.
type Store interface {
	// CreateDevice allocates a new device bound to credential and returns its id.
	CreateDevice(ctx context.Context, meta DeviceMetadata, credential string) (string, error)
	// LookupCredential resolves a credential to a device id.
	LookupCredential(ctx context.Context, credential string) (string, error)
	// Heartbeat authenticates credential and records liveness.
	Heartbeat(ctx context.Context, credential string, req *models.HeartbeatRequest) (string, error)
	ListDevices(ctx context.Context) ([]models.DeviceView, error)
	GetDevice(ctx context.Context, deviceID string) (*models.DeviceView, error)
	// Push appends a command to the tail of the device queue.
	Push(ctx context.Context, deviceID, cmdType string, payload json.RawMessage) (*models.CommandView, error)
	// Pop removes and returns up to limit commands from the head of the device queue.
	Pop(ctx context.Context, deviceID string, limit int) ([]models.CommandView, error)
	// Exists reports whether deviceID is known.
	Exists(ctx context.Context, deviceID string) bool
}
