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

package registry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	registryMeterName = "github.com/carverauto/fleetradar/pkg/registry"

	metricRegistrationsName = "fleet_registrations_total"
	metricHeartbeatsName    = "fleet_heartbeats_total"
	metricAuthFailuresName  = "fleet_auth_failures_total"
	metricDevicesName       = "fleet_devices"
	metricPendingName       = "fleet_commands_pending"
)

type storeMetrics struct {
	registrations metric.Int64Counter
	heartbeats    metric.Int64Counter
	authFailures  metric.Int64Counter
	devices       metric.Int64ObservableGauge
	pending       metric.Int64ObservableGauge
	registration  metric.Registration
}

// newStoreMetrics builds the registry instruments. Instrument errors are handed to
// otel.Handle and the affected instrument falls back to a no-op.
func newStoreMetrics(provider metric.MeterProvider, s *MemoryStore) *storeMetrics {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}

	meter := provider.Meter(registryMeterName)
	m := &storeMetrics{}

	var err error

	m.registrations, err = meter.Int64Counter(
		metricRegistrationsName,
		metric.WithDescription("Number of device identities issued"),
	)
	if err != nil {
		otel.Handle(err)
	}

	m.heartbeats, err = meter.Int64Counter(
		metricHeartbeatsName,
		metric.WithDescription("Number of accepted heartbeats"),
	)
	if err != nil {
		otel.Handle(err)
	}

	m.authFailures, err = meter.Int64Counter(
		metricAuthFailuresName,
		metric.WithDescription("Number of credential lookups that failed"),
	)
	if err != nil {
		otel.Handle(err)
	}

	m.devices, err = meter.Int64ObservableGauge(
		metricDevicesName,
		metric.WithDescription("Number of registered devices"),
	)
	if err != nil {
		otel.Handle(err)
		return m
	}

	m.pending, err = meter.Int64ObservableGauge(
		metricPendingName,
		metric.WithDescription("Number of commands waiting in device queues"),
	)
	if err != nil {
		otel.Handle(err)
		return m
	}

	m.registration, err = meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		observer.ObserveInt64(m.devices, s.deviceCount.Load())
		observer.ObserveInt64(m.pending, s.pendingCount.Load())

		return nil
	}, m.devices, m.pending)
	if err != nil {
		otel.Handle(err)
	}

	return m
}

func (m *storeMetrics) addRegistration(ctx context.Context) {
	if m.registrations != nil {
		m.registrations.Add(ctx, 1)
	}
}

func (m *storeMetrics) addHeartbeat(ctx context.Context) {
	if m.heartbeats != nil {
		m.heartbeats.Add(ctx, 1)
	}
}

func (m *storeMetrics) addAuthFailure(ctx context.Context) {
	if m.authFailures != nil {
		m.authFailures.Add(ctx, 1)
	}
}
