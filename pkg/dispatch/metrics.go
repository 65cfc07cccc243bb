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

package dispatch

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/carverauto/fleetradar/pkg/models"
)

const (
	dispatchMeterName = "github.com/carverauto/fleetradar/pkg/dispatch"

	metricEnqueuedName  = "fleet_commands_enqueued_total"
	metricDeliveredName = "fleet_commands_delivered_total"
	metricAckedName     = "fleet_commands_acked_total"
)

type dispatchMetrics struct {
	enqueued  metric.Int64Counter
	delivered metric.Int64Counter
	acked     metric.Int64Counter
}

func newDispatchMetrics(provider metric.MeterProvider) *dispatchMetrics {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}

	meter := provider.Meter(dispatchMeterName)
	m := &dispatchMetrics{}

	var err error

	m.enqueued, err = meter.Int64Counter(
		metricEnqueuedName,
		metric.WithDescription("Number of commands accepted for delivery"),
	)
	if err != nil {
		otel.Handle(err)
	}

	m.delivered, err = meter.Int64Counter(
		metricDeliveredName,
		metric.WithDescription("Number of commands handed to polling devices"),
	)
	if err != nil {
		otel.Handle(err)
	}

	m.acked, err = meter.Int64Counter(
		metricAckedName,
		metric.WithDescription("Number of command outcomes reported by devices"),
	)
	if err != nil {
		otel.Handle(err)
	}

	return m
}

func (m *dispatchMetrics) addEnqueued(ctx context.Context, cmdType string) {
	if m.enqueued != nil {
		m.enqueued.Add(ctx, 1, metric.WithAttributes(attribute.String("type", cmdType)))
	}
}

func (m *dispatchMetrics) addDelivered(ctx context.Context, n int) {
	if m.delivered != nil {
		m.delivered.Add(ctx, int64(n))
	}
}

func (m *dispatchMetrics) addAcked(ctx context.Context, status models.AckStatus) {
	if m.acked != nil {
		m.acked.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))
	}
}
