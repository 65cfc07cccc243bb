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

package lifecycle

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/fleetradar/pkg/logger"
)

type recordingService struct {
	name     string
	startErr error
	events   *[]string
	started  chan struct{}
}

func (r *recordingService) Start(context.Context) error {
	*r.events = append(*r.events, "start "+r.name)

	if r.started != nil {
		close(r.started)
	}

	return r.startErr
}

func (r *recordingService) Stop(context.Context) error {
	*r.events = append(*r.events, "stop "+r.name)

	return nil
}

func TestRunServerStopsServicesInReverseOrder(t *testing.T) {
	var events []string

	started := make(chan struct{})
	first := &recordingService{name: "first", events: &events}
	second := &recordingService{name: "second", events: &events, started: started}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)

	go func() {
		errCh <- RunServer(ctx, &ServerOptions{
			ListenAddr:      "127.0.0.1:0",
			ServiceName:     "test",
			Handler:         http.NotFoundHandler(),
			Services:        []Service{first, second},
			ShutdownTimeout: time.Second,
		})
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("services were not started")
	}

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("RunServer did not return after cancellation")
	}

	assert.Equal(t, []string{"start first", "start second", "stop second", "stop first"}, events)
}

func TestRunServerStartFailure(t *testing.T) {
	var events []string

	boom := errors.New("nats unavailable")
	svc := &recordingService{name: "events", events: &events, startErr: boom}

	err := RunServer(context.Background(), &ServerOptions{
		ListenAddr:  "127.0.0.1:0",
		ServiceName: "test",
		Handler:     http.NotFoundHandler(),
		Services:    []Service{svc},
	})
	require.ErrorIs(t, err, boom)
}

func TestCreateComponentLogger(t *testing.T) {
	log, err := CreateComponentLogger("registry", &logger.Config{Level: "debug", Output: "stderr"})
	require.NoError(t, err)
	assert.NotNil(t, log)

	_, err = CreateComponentLogger("registry", &logger.Config{Level: "loud"})
	require.Error(t, err)

	require.NoError(t, InitializeLogger(nil))
	require.NoError(t, ShutdownLogger())
}
