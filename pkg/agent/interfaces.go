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
	"time"

	"github.com/carverauto/fleetradar/pkg/models"
)

//go:generate mockgen -destination=mock_agent.go -package=agent github.com/carverauto/fleetradar/pkg/agent Registry,Executor,LockStore,Restarter,MessageSink,TelemetryCollector,IdentityStore

// Registry is the agent's view of the registry server.
type Registry interface {
	Register(ctx context.Context, req *models.RegistrationRequest) (*models.RegistrationResponse, error)
	// Heartbeat returns ErrUnauthorized when the credential is rejected.
	Heartbeat(ctx context.Context, credential string, req *models.HeartbeatRequest) error
	Poll(ctx context.Context, identity Identity, limit int) ([]models.CommandView, error)
	Ack(ctx context.Context, identity Identity, commandID string, req *models.AckCommandRequest) error
}

// Executor applies a command locally and reports the outcome to acknowledge.
type Executor interface {
	Execute(ctx context.Context, cmd *models.CommandView) models.AckCommandRequest
}

// LockStore persists the lock flag read by the lock-screen companion.
type LockStore interface {
	WriteLockState(locked bool) error
	ReadLockState() (bool, error)
}

// Restarter schedules an OS restart after a grace delay without waiting for it.
type Restarter interface {
	ScheduleRestart(ctx context.Context, delay time.Duration) error
}

// MessageSink displays operator messages to the local user.
type MessageSink interface {
	Show(ctx context.Context, text string) error
}

// TelemetryCollector samples the host for heartbeats.
type TelemetryCollector interface {
	Collect(ctx context.Context) *models.HeartbeatRequest
	Describe(ctx context.Context) *models.RegistrationRequest
}

// IdentityStore keeps the issued identity across agent restarts.
type IdentityStore interface {
	Load() (*Identity, error)
	Save(identity *Identity) error
	Clear() error
}
