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

// Package dispatch accepts operator commands, delivers them to polling devices in
// FIFO order, and records the outcomes they report.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
	"github.com/carverauto/fleetradar/pkg/registry"
)

//go:generate mockgen -destination=mock_dispatch.go -package=dispatch github.com/carverauto/fleetradar/pkg/dispatch EventPublisher

const (
	// DefaultPollBatch is used when a poll does not name a batch size.
	DefaultPollBatch = 10
	// DefaultMaxPollBatch is a server-side cap on the batch a single poll can drain,
	// whatever max the agent asks for.
	DefaultMaxPollBatch = 100
)

// EventPublisher receives command lifecycle events.
type EventPublisher interface {
	PublishCommandEnqueued(ctx context.Context, data models.CommandEventData) error
	PublishCommandAcked(ctx context.Context, data models.CommandEventData) error
}

// Dispatcher moves commands through a registry store.
type Dispatcher struct {
	store     registry.Store
	publisher EventPublisher
	logger    logger.Logger
	metrics   *dispatchMetrics
	maxBatch  int
	now       func() time.Time
}

// Option configures a Dispatcher.
type Option func(*dispatchOptions)

type dispatchOptions struct {
	publisher     EventPublisher
	logger        logger.Logger
	meterProvider metric.MeterProvider
	maxBatch      int
	clock         func() time.Time
}

// WithPublisher sets the command event publisher.
func WithPublisher(p EventPublisher) Option {
	return func(o *dispatchOptions) {
		o.publisher = p
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(log logger.Logger) Option {
	return func(o *dispatchOptions) {
		o.logger = log
	}
}

// WithMeterProvider sets the provider for dispatch instruments.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *dispatchOptions) {
		o.meterProvider = provider
	}
}

// WithMaxBatch overrides DefaultMaxPollBatch. Values below 1 are ignored.
func WithMaxBatch(n int) Option {
	return func(o *dispatchOptions) {
		if n >= 1 {
			o.maxBatch = n
		}
	}
}

// WithClock overrides the event timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(o *dispatchOptions) {
		o.clock = clock
	}
}

// NewDispatcher creates a dispatcher over store.
func NewDispatcher(store registry.Store, opts ...Option) *Dispatcher {
	o := dispatchOptions{
		maxBatch: DefaultMaxPollBatch,
		clock:    time.Now,
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = logger.NewTestLogger()
	}

	return &Dispatcher{
		store:     store,
		publisher: o.publisher,
		logger:    o.logger,
		metrics:   newDispatchMetrics(o.meterProvider),
		maxBatch:  o.maxBatch,
		now:       o.clock,
	}
}

// MaxBatch returns the upper bound applied to poll sizes.
func (d *Dispatcher) MaxBatch() int {
	return d.maxBatch
}

// ClampBatch forces n into [1, MaxBatch].
func (d *Dispatcher) ClampBatch(n int) int {
	if n < 1 {
		return 1
	}

	if n > d.maxBatch {
		return d.maxBatch
	}

	return n
}

// Enqueue appends a command to the device queue. Any type string is accepted, empty
// included; interpreting it is the agent's concern.
func (d *Dispatcher) Enqueue(ctx context.Context, deviceID string, req *models.EnqueueCommandRequest) (*models.CommandView, error) {
	if req == nil {
		req = &models.EnqueueCommandRequest{}
	}

	cmd, err := d.store.Push(ctx, deviceID, req.Type, req.Payload)
	if err != nil {
		return nil, fmt.Errorf("enqueue for %s: %w", deviceID, err)
	}

	d.metrics.addEnqueued(ctx, cmd.Type)

	d.logger.Info().
		Str("device_id", deviceID).
		Str("command_id", cmd.ID).
		Str("type", cmd.Type).
		Msg("Command enqueued")

	if d.publisher != nil {
		err = d.publisher.PublishCommandEnqueued(ctx, models.CommandEventData{
			DeviceID:  deviceID,
			CommandID: cmd.ID,
			Type:      cmd.Type,
			Timestamp: d.now(),
		})
		if err != nil {
			d.logger.Warn().Err(err).Str("command_id", cmd.ID).Msg("Failed to publish enqueue event")
		}
	}

	return cmd, nil
}

// Poll drains up to limit pending commands in FIFO order. An unknown device gets an
// empty batch rather than an error. Delivery is final: nothing popped is requeued.
func (d *Dispatcher) Poll(ctx context.Context, deviceID string, limit int) ([]models.CommandView, error) {
	batch, err := d.store.Pop(ctx, deviceID, d.ClampBatch(limit))
	if errors.Is(err, registry.ErrNotFound) {
		return []models.CommandView{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("poll for %s: %w", deviceID, err)
	}

	if len(batch) > 0 {
		d.metrics.addDelivered(ctx, len(batch))

		d.logger.Debug().
			Str("device_id", deviceID).
			Int("count", len(batch)).
			Msg("Commands delivered")
	}

	return batch, nil
}

// Ack records the outcome of a command. It only checks that the device exists; the
// command id is not matched against anything delivered.
func (d *Dispatcher) Ack(ctx context.Context, deviceID, commandID string, req *models.AckCommandRequest) error {
	if !d.store.Exists(ctx, deviceID) {
		return fmt.Errorf("ack for %s: %w", deviceID, registry.ErrNotFound)
	}

	if req == nil {
		req = &models.AckCommandRequest{}
	}

	d.metrics.addAcked(ctx, req.Status)

	event := d.logger.Info()
	if req.Status == models.AckStatusFailed {
		event = d.logger.Warn()
	}

	event = event.
		Str("device_id", deviceID).
		Str("command_id", commandID).
		Str("status", string(req.Status))
	if req.Result != nil {
		event = event.Str("result", *req.Result)
	}

	event.Msg("Command acknowledged")

	if d.publisher != nil {
		err := d.publisher.PublishCommandAcked(ctx, models.CommandEventData{
			DeviceID:  deviceID,
			CommandID: commandID,
			Status:    req.Status,
			Result:    req.Result,
			Timestamp: d.now(),
		})
		if err != nil {
			d.logger.Warn().Err(err).Str("command_id", commandID).Msg("Failed to publish ack event")
		}
	}

	return nil
}
