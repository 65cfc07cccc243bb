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
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
)

var errNoLockStore = errors.New("no lock store configured")

// LocalExecutor dispatches commands to the host collaborators by lower-cased type.
type LocalExecutor struct {
	restarter    Restarter
	lockStore    LockStore
	messages     MessageSink
	restartDelay time.Duration
	logger       logger.Logger
}

var _ Executor = (*LocalExecutor)(nil)

// ExecutorOption configures a LocalExecutor.
type ExecutorOption func(*LocalExecutor)

// WithRestartDelay overrides DefaultRestartDelay.
func WithRestartDelay(d time.Duration) ExecutorOption {
	return func(e *LocalExecutor) {
		if d >= 0 {
			e.restartDelay = d
		}
	}
}

// WithExecutorLogger sets the executor logger.
func WithExecutorLogger(log logger.Logger) ExecutorOption {
	return func(e *LocalExecutor) {
		if log != nil {
			e.logger = log
		}
	}
}

// NewLocalExecutor wires the collaborators used for each command type.
func NewLocalExecutor(restarter Restarter, lockStore LockStore, messages MessageSink, opts ...ExecutorOption) *LocalExecutor {
	e := &LocalExecutor{
		restarter:    restarter,
		lockStore:    lockStore,
		messages:     messages,
		restartDelay: DefaultRestartDelay,
		logger:       logger.NewTestLogger(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Execute never returns an error: handler failures and panics become a failed
// outcome and unrecognized types are ignored.
func (e *LocalExecutor) Execute(ctx context.Context, cmd *models.CommandView) (ack models.AckCommandRequest) {
	defer func() {
		if r := recover(); r != nil {
			result := fmt.Sprintf("command panicked: %v", r)

			e.logger.Error().Str("command_id", cmd.ID).Str("type", cmd.Type).Interface("panic", r).
				Msg("Recovered from panic in command handler")

			ack = models.AckCommandRequest{Status: models.AckStatusFailed, Result: &result}
		}
	}()

	var err error

	switch strings.ToLower(cmd.Type) {
	case models.CommandRestart:
		err = e.restart(ctx)
	case models.CommandLock:
		err = e.setLock(true)
	case models.CommandUnlock:
		err = e.setLock(false)
	case models.CommandMessage:
		err = e.showMessage(ctx, cmd.Payload)
	default:
		result := "unknown command: " + cmd.Type

		e.logger.Warn().Str("command_id", cmd.ID).Str("type", cmd.Type).Msg("Ignoring unknown command")

		return models.AckCommandRequest{Status: models.AckStatusIgnored, Result: &result}
	}

	if err != nil {
		result := err.Error()

		e.logger.Error().Err(err).Str("command_id", cmd.ID).Str("type", cmd.Type).Msg("Command failed")

		return models.AckCommandRequest{Status: models.AckStatusFailed, Result: &result}
	}

	e.logger.Info().Str("command_id", cmd.ID).Str("type", cmd.Type).Msg("Command executed")

	return models.AckCommandRequest{Status: models.AckStatusDone}
}

func (e *LocalExecutor) restart(ctx context.Context) error {
	if e.restarter == nil {
		return errors.New("no restarter configured")
	}

	return e.restarter.ScheduleRestart(ctx, e.restartDelay)
}

func (e *LocalExecutor) setLock(locked bool) error {
	if e.lockStore == nil {
		return errNoLockStore
	}

	if err := e.lockStore.WriteLockState(locked); err != nil {
		return fmt.Errorf("failed to set lock state: %w", err)
	}

	e.logger.Info().Bool("locked", locked).Msg("Lock state updated")

	return nil
}

func (e *LocalExecutor) showMessage(ctx context.Context, payload json.RawMessage) error {
	if e.messages == nil {
		return errors.New("no message sink configured")
	}

	return e.messages.Show(ctx, messageText(payload))
}

// messageText accepts a JSON string, an object with a "text" field, or any other
// JSON value, which is shown verbatim.
func messageText(payload json.RawMessage) string {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" || trimmed == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(payload, &s); err == nil {
		return s
	}

	var obj struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(payload, &obj); err == nil && obj.Text != nil {
		return *obj.Text
	}

	return trimmed
}
