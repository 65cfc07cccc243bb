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

// Package agent runs on each managed device: it registers with the registry,
// reports liveness, and executes the commands it polls.
package agent

import (
	"context"
	"errors"
	"time"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/version"
)

// ControlLoop drives a device through registration, heartbeat, poll, execute and
// acknowledge. It is single-threaded; each cycle runs to completion before the next.
type ControlLoop struct {
	registry   Registry
	executor   Executor
	telemetry  TelemetryCollector
	identities IdentityStore
	interval   time.Duration
	batchSize  int
	logger     logger.Logger
	sleep      func(ctx context.Context, d time.Duration) error

	identity *Identity
}

// LoopOption configures a ControlLoop.
type LoopOption func(*ControlLoop)

// WithInterval sets the pause between cycles.
func WithInterval(d time.Duration) LoopOption {
	return func(l *ControlLoop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithBatchSize sets how many commands one poll may return.
func WithBatchSize(n int) LoopOption {
	return func(l *ControlLoop) {
		if n >= 1 {
			l.batchSize = n
		}
	}
}

// WithIdentityStore persists the identity so a restarted agent keeps its device.
func WithIdentityStore(s IdentityStore) LoopOption {
	return func(l *ControlLoop) {
		l.identities = s
	}
}

// WithLoopLogger sets the loop logger.
func WithLoopLogger(log logger.Logger) LoopOption {
	return func(l *ControlLoop) {
		if log != nil {
			l.logger = log
		}
	}
}

// NewControlLoop creates a loop with a 5s interval and a batch of 5.
func NewControlLoop(registry Registry, executor Executor, telemetry TelemetryCollector, opts ...LoopOption) *ControlLoop {
	l := &ControlLoop{
		registry:  registry,
		executor:  executor,
		telemetry: telemetry,
		interval:  defaultPollInterval,
		batchSize: defaultBatchSize,
		logger:    logger.NewTestLogger(),
		sleep:     sleepContext,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Identity returns a copy of the current identity, or nil when unregistered.
func (l *ControlLoop) Identity() *Identity {
	if l.identity == nil {
		return nil
	}

	id := *l.identity

	return &id
}

// Run registers and then cycles until ctx is cancelled. It returns ctx.Err().
func (l *ControlLoop) Run(ctx context.Context) error {
	l.logger.Info().
		Dur("interval", l.interval).
		Int("batch_size", l.batchSize).
		Str("version", version.GetFullVersion()).
		Msg("Starting control loop")

	l.loadIdentity()

	if err := l.ensureRegistered(ctx); err != nil {
		return err
	}

	for {
		l.RunCycle(ctx)

		if err := l.sleep(ctx, l.interval); err != nil {
			l.logger.Info().Msg("Control loop stopping due to context cancellation")
			return err
		}
	}
}

// RunCycle performs one heartbeat and, when the credential is still accepted, one
// poll with its executions and acknowledgments.
func (l *ControlLoop) RunCycle(ctx context.Context) {
	if !l.identity.Valid() {
		if err := l.ensureRegistered(ctx); err != nil {
			return
		}
	}

	err := l.registry.Heartbeat(ctx, l.identity.Credential, l.telemetry.Collect(ctx))

	switch {
	case errors.Is(err, ErrUnauthorized):
		l.logger.Warn().Str("device_id", l.identity.DeviceID).Msg("Heartbeat unauthorized; re-registering")
		l.forgetIdentity()

		_ = l.ensureRegistered(ctx)

		return
	case err != nil:
		l.logger.Error().Err(err).Msg("Heartbeat failed")
		return
	}

	l.pollAndExecute(ctx)
}

func (l *ControlLoop) pollAndExecute(ctx context.Context) {
	identity := *l.identity

	commands, err := l.registry.Poll(ctx, identity, l.batchSize)
	if err != nil {
		l.logger.Error().Err(err).Msg("Poll failed")
		return
	}

	for i := range commands {
		cmd := &commands[i]

		outcome := l.executor.Execute(ctx, cmd)

		if err := l.registry.Ack(ctx, identity, cmd.ID, &outcome); err != nil {
			l.logger.Error().
				Err(err).
				Str("command_id", cmd.ID).
				Str("status", string(outcome.Status)).
				Msg("Failed to acknowledge command")
		}
	}
}

// ensureRegistered blocks until an identity is held, retrying once per interval.
// Only cancellation ends it early.
func (l *ControlLoop) ensureRegistered(ctx context.Context) error {
	for !l.identity.Valid() {
		if err := ctx.Err(); err != nil {
			return err
		}

		resp, err := l.registry.Register(ctx, l.telemetry.Describe(ctx))
		if err == nil {
			l.identity = &Identity{DeviceID: resp.DeviceID, Credential: resp.Credential}
			l.saveIdentity()

			l.logger.Info().Str("device_id", resp.DeviceID).Msg("Registered device")

			return nil
		}

		l.logger.Error().Err(err).Dur("retry_in", l.interval).Msg("Registration failed")

		if err := l.sleep(ctx, l.interval); err != nil {
			return err
		}
	}

	return nil
}

func (l *ControlLoop) loadIdentity() {
	if l.identities == nil || l.identity.Valid() {
		return
	}

	id, err := l.identities.Load()
	if err != nil {
		l.logger.Warn().Err(err).Msg("Ignoring unreadable stored identity")
		return
	}

	if id.Valid() {
		l.identity = id
		l.logger.Info().Str("device_id", id.DeviceID).Msg("Resumed stored identity")
	}
}

func (l *ControlLoop) saveIdentity() {
	if l.identities == nil {
		return
	}

	if err := l.identities.Save(l.identity); err != nil {
		l.logger.Warn().Err(err).Msg("Failed to persist identity")
	}
}

func (l *ControlLoop) forgetIdentity() {
	l.identity = nil

	if l.identities == nil {
		return
	}

	if err := l.identities.Clear(); err != nil {
		l.logger.Warn().Err(err).Msg("Failed to clear stored identity")
	}
}
