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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/fleetradar/pkg/models"
)

type loopFixture struct {
	registry   *MockRegistry
	executor   *MockExecutor
	telemetry  *MockTelemetryCollector
	identities *MockIdentityStore
	loop       *ControlLoop
}

func newLoopFixture(t *testing.T) *loopFixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	f := &loopFixture{
		registry:   NewMockRegistry(ctrl),
		executor:   NewMockExecutor(ctrl),
		telemetry:  NewMockTelemetryCollector(ctrl),
		identities: NewMockIdentityStore(ctrl),
	}

	f.loop = NewControlLoop(f.registry, f.executor, f.telemetry,
		WithInterval(time.Millisecond),
		WithBatchSize(5),
		WithIdentityStore(f.identities),
	)
	f.loop.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	f.telemetry.EXPECT().Collect(gomock.Any()).Return(&models.HeartbeatRequest{IP: "10.0.0.5"}).AnyTimes()
	f.telemetry.EXPECT().Describe(gomock.Any()).Return(&models.RegistrationRequest{Hostname: "lab-01"}).AnyTimes()

	return f
}

func strPtr(s string) *string { return &s }

func TestRunCycleExecutesAndAcksInOrder(t *testing.T) {
	f := newLoopFixture(t)
	f.loop.identity = &Identity{DeviceID: "dev-1", Credential: "cred-1"}

	id := Identity{DeviceID: "dev-1", Credential: "cred-1"}
	commands := []models.CommandView{
		{ID: "c1", Type: "lock"},
		{ID: "c2", Type: "bogus"},
	}

	gomock.InOrder(
		f.registry.EXPECT().Heartbeat(gomock.Any(), "cred-1", gomock.Any()).Return(nil),
		f.registry.EXPECT().Poll(gomock.Any(), id, 5).Return(commands, nil),
		f.executor.EXPECT().Execute(gomock.Any(), &commands[0]).Return(models.AckCommandRequest{Status: models.AckStatusDone}),
		f.registry.EXPECT().Ack(gomock.Any(), id, "c1", &models.AckCommandRequest{Status: models.AckStatusDone}).Return(nil),
		f.executor.EXPECT().Execute(gomock.Any(), &commands[1]).
			Return(models.AckCommandRequest{Status: models.AckStatusIgnored, Result: strPtr("unknown command: bogus")}),
		f.registry.EXPECT().Ack(gomock.Any(), id, "c2", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ Identity, _ string, req *models.AckCommandRequest) error {
				assert.Equal(t, models.AckStatusIgnored, req.Status)
				return nil
			}),
	)

	f.loop.RunCycle(context.Background())
}

func TestRunCycleAckFailureDoesNotStopBatch(t *testing.T) {
	f := newLoopFixture(t)
	f.loop.identity = &Identity{DeviceID: "dev-1", Credential: "cred-1"}

	commands := []models.CommandView{{ID: "c1", Type: "lock"}, {ID: "c2", Type: "unlock"}}

	f.registry.EXPECT().Heartbeat(gomock.Any(), "cred-1", gomock.Any()).Return(nil)
	f.registry.EXPECT().Poll(gomock.Any(), gomock.Any(), 5).Return(commands, nil)
	f.executor.EXPECT().Execute(gomock.Any(), gomock.Any()).Return(models.AckCommandRequest{Status: models.AckStatusDone}).Times(2)
	f.registry.EXPECT().Ack(gomock.Any(), gomock.Any(), "c1", gomock.Any()).Return(fmt.Errorf("%w: boom", ErrTransport))
	f.registry.EXPECT().Ack(gomock.Any(), gomock.Any(), "c2", gomock.Any()).Return(nil)

	f.loop.RunCycle(context.Background())
}

func TestRunCycleReRegistersOnStaleCredential(t *testing.T) {
	f := newLoopFixture(t)
	f.loop.identity = &Identity{DeviceID: "dev-old", Credential: "stale"}

	gomock.InOrder(
		f.registry.EXPECT().Heartbeat(gomock.Any(), "stale", gomock.Any()).Return(fmt.Errorf("%w: heartbeat", ErrUnauthorized)),
		f.identities.EXPECT().Clear().Return(nil),
		f.registry.EXPECT().Register(gomock.Any(), gomock.Any()).
			Return(&models.RegistrationResponse{DeviceID: "dev-new", Credential: "fresh"}, nil),
		f.identities.EXPECT().Save(&Identity{DeviceID: "dev-new", Credential: "fresh"}).Return(nil),
	)

	// no Poll is expected in the cycle that re-registered
	f.loop.RunCycle(context.Background())

	require.NotNil(t, f.loop.Identity())
	assert.Equal(t, "dev-new", f.loop.Identity().DeviceID)
	assert.Equal(t, "fresh", f.loop.Identity().Credential)

	f.registry.EXPECT().Heartbeat(gomock.Any(), "fresh", gomock.Any()).Return(nil)
	f.registry.EXPECT().Poll(gomock.Any(), Identity{DeviceID: "dev-new", Credential: "fresh"}, 5).Return(nil, nil)

	f.loop.RunCycle(context.Background())
}

func TestRunCycleHeartbeatTransportErrorSkipsPoll(t *testing.T) {
	f := newLoopFixture(t)
	f.loop.identity = &Identity{DeviceID: "dev-1", Credential: "cred-1"}

	f.registry.EXPECT().Heartbeat(gomock.Any(), "cred-1", gomock.Any()).Return(fmt.Errorf("%w: refused", ErrTransport))

	f.loop.RunCycle(context.Background())

	assert.Equal(t, "dev-1", f.loop.Identity().DeviceID)
}

func TestRunCyclePollErrorIsLogged(t *testing.T) {
	f := newLoopFixture(t)
	f.loop.identity = &Identity{DeviceID: "dev-1", Credential: "cred-1"}

	f.registry.EXPECT().Heartbeat(gomock.Any(), "cred-1", gomock.Any()).Return(nil)
	f.registry.EXPECT().Poll(gomock.Any(), gomock.Any(), 5).Return(nil, errors.New("timeout"))

	f.loop.RunCycle(context.Background())
}

func TestRunRetriesRegistrationAndResumesStoredIdentity(t *testing.T) {
	t.Run("retries until registered", func(t *testing.T) {
		f := newLoopFixture(t)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		f.identities.EXPECT().Load().Return(nil, nil)

		gomock.InOrder(
			f.registry.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil, fmt.Errorf("%w: refused", ErrTransport)),
			f.registry.EXPECT().Register(gomock.Any(), gomock.Any()).
				Return(&models.RegistrationResponse{DeviceID: "dev-1", Credential: "cred-1"}, nil),
		)
		f.identities.EXPECT().Save(gomock.Any()).Return(nil)
		f.registry.EXPECT().Heartbeat(gomock.Any(), "cred-1", gomock.Any()).Return(nil)
		f.registry.EXPECT().Poll(gomock.Any(), gomock.Any(), 5).DoAndReturn(
			func(context.Context, Identity, int) ([]models.CommandView, error) {
				cancel()
				return nil, nil
			})

		err := f.loop.Run(ctx)
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, "dev-1", f.loop.Identity().DeviceID)
	})

	t.Run("stored identity skips registration", func(t *testing.T) {
		f := newLoopFixture(t)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		f.identities.EXPECT().Load().Return(&Identity{DeviceID: "dev-9", Credential: "cred-9"}, nil)
		f.registry.EXPECT().Heartbeat(gomock.Any(), "cred-9", gomock.Any()).DoAndReturn(
			func(context.Context, string, *models.HeartbeatRequest) error {
				cancel()
				return nil
			})
		f.registry.EXPECT().Poll(gomock.Any(), gomock.Any(), 5).Return(nil, nil)

		err := f.loop.Run(ctx)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("cancelled before registration", func(t *testing.T) {
		f := newLoopFixture(t)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		f.identities.EXPECT().Load().Return(nil, nil)

		err := f.loop.Run(ctx)
		require.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, f.loop.Identity())
	})
}

func TestNewControlLoopIgnoresInvalidOptions(t *testing.T) {
	loop := NewControlLoop(nil, nil, nil, WithInterval(0), WithBatchSize(0), WithLoopLogger(nil))

	assert.Equal(t, defaultPollInterval, loop.interval)
	assert.Equal(t, defaultBatchSize, loop.batchSize)
	assert.NotNil(t, loop.logger)
	assert.Nil(t, loop.Identity())
}
