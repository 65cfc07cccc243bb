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

// Package app wires the registry server from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/carverauto/fleetradar/pkg/api"
	"github.com/carverauto/fleetradar/pkg/config"
	"github.com/carverauto/fleetradar/pkg/dispatch"
	"github.com/carverauto/fleetradar/pkg/enrollment"
	"github.com/carverauto/fleetradar/pkg/events"
	"github.com/carverauto/fleetradar/pkg/lifecycle"
	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/registry"
	"github.com/carverauto/fleetradar/pkg/version"
)

const serviceName = "fleetradar-registry"

// Options contains runtime configuration derived from CLI flags.
type Options struct {
	ConfigPath string
	ListenAddr string
}

// Run boots the registry server and blocks until it is shut down.
func Run(ctx context.Context, opts Options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := registry.LoadConfig(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}

	if opts.ListenAddr != "" {
		cfg.ListenAddr = opts.ListenAddr
	}

	if err := lifecycle.InitializeLogger(cfg.Logging); err != nil {
		return err
	}

	mainLogger, err := lifecycle.CreateComponentLogger("registry-main", cfg.Logging)
	if err != nil {
		return err
	}

	defer func() {
		if shutdownErr := lifecycle.ShutdownLogger(); shutdownErr != nil {
			mainLogger.Error().Err(shutdownErr).Msg("Error shutting down logger")
		}
	}()

	if sanitized, sanitizeErr := config.Sanitize(&cfg); sanitizeErr == nil {
		mainLogger.Info().RawJSON("config", sanitized).Msg("Loaded registry configuration")
	}

	if _, metricsErr := logger.InitializeMetrics(ctx, logger.MetricsConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.GetVersion(),
		OTel:           cfg.MetricsConfig(),
	}); metricsErr != nil && !errors.Is(metricsErr, logger.ErrOTelMetricsDisabled) {
		return metricsErr
	}

	publisher, services, err := connectEvents(ctx, &cfg, mainLogger)
	if err != nil {
		return err
	}

	store := registry.NewMemoryStore(
		registry.WithLivenessWindow(cfg.LivenessWindow.Std()),
		registry.WithLogger(componentLogger(mainLogger, "registry")),
	)

	enroller := enrollment.NewService(store,
		enrollment.WithPublisher(publisher),
		enrollment.WithLogger(componentLogger(mainLogger, "enrollment")),
	)

	dispatcher := dispatch.NewDispatcher(store,
		dispatch.WithPublisher(publisher),
		dispatch.WithMaxBatch(cfg.MaxPollBatch),
		dispatch.WithLogger(componentLogger(mainLogger, "dispatch")),
	)

	apiServer := api.NewAPIServer(cfg.CORS,
		api.WithEnroller(enroller),
		api.WithDispatcher(dispatcher),
		api.WithDeviceReader(store),
		api.WithAPIKey(cfg.APIKey),
		api.WithLogger(componentLogger(mainLogger, "api")),
	)

	return lifecycle.RunServer(ctx, &lifecycle.ServerOptions{
		ListenAddr:  cfg.ListenAddr,
		ServiceName: serviceName,
		Handler:     apiServer.Handler(),
		Services:    services,
		Logger:      mainLogger,
	})
}

// connectEvents returns the publisher for fleet events. When the stream is disabled
// events are dropped.
func connectEvents(
	ctx context.Context, cfg *registry.Config, log logger.Logger) (events.Publisher, []lifecycle.Service, error) {
	if cfg.NATS == nil || !cfg.NATS.Enabled {
		log.Info().Msg("Fleet event stream disabled")

		return events.NoopPublisher{}, nil, nil
	}

	publisher, nc, err := events.Connect(ctx, cfg.NATS, componentLogger(log, "events"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize fleet event stream: %w", err)
	}

	return publisher, []lifecycle.Service{&natsService{conn: nc}}, nil
}

// natsService drains the event connection on shutdown.
type natsService struct {
	conn *nats.Conn
}

func (*natsService) Start(context.Context) error { return nil }

func (s *natsService) Stop(context.Context) error {
	if s.conn == nil || s.conn.IsClosed() {
		return nil
	}

	return s.conn.Drain()
}

func componentLogger(base logger.Logger, component string) logger.Logger {
	return logger.NewZerologAdapter(base.WithComponent(component))
}
