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

// Package events publishes fleet activity as CloudEvents onto a NATS JetStream stream.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
)

const (
	// DefaultStream is used when the configuration leaves the stream name empty.
	DefaultStream = "FLEET_EVENTS"

	SubjectDeviceRegistered = "fleet.device.registered"
	SubjectCommandEnqueued  = "fleet.command.enqueued"
	SubjectCommandAcked     = "fleet.command.acked"

	eventSource     = "fleetradar/registry"
	eventTypePrefix = "com.carverauto.fleetradar."
)

var errNilConfig = errors.New("nats config is required")

// streamSubjects are bound to the stream when it has to be created.
var streamSubjects = []string{"fleet.device.*", "fleet.command.*"}

// Publisher is the full set of fleet events.
type Publisher interface {
	PublishDeviceRegistered(ctx context.Context, data models.DeviceRegisteredEventData) error
	PublishCommandEnqueued(ctx context.Context, data models.CommandEventData) error
	PublishCommandAcked(ctx context.Context, data models.CommandEventData) error
}

// jetStreamPublisher is the part of jetstream.JetStream the publisher needs.
type jetStreamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSPublisher writes CloudEvents to JetStream.
type NATSPublisher struct {
	js     jetStreamPublisher
	stream string
	logger logger.Logger
}

var _ Publisher = (*NATSPublisher)(nil)

// NewNATSPublisher wraps an existing JetStream context.
func NewNATSPublisher(js jetStreamPublisher, streamName string, log logger.Logger) *NATSPublisher {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &NATSPublisher{
		js:     js,
		stream: streamName,
		logger: log,
	}
}

// PublishDeviceRegistered announces a newly issued identity. The credential is never part of the event.
func (p *NATSPublisher) PublishDeviceRegistered(ctx context.Context, data models.DeviceRegisteredEventData) error {
	return p.publish(ctx, SubjectDeviceRegistered, "device.registered", data.DeviceID, data.Timestamp, data)
}

// PublishCommandEnqueued announces a command appended to a device queue.
func (p *NATSPublisher) PublishCommandEnqueued(ctx context.Context, data models.CommandEventData) error {
	return p.publish(ctx, SubjectCommandEnqueued, "command.enqueued", data.DeviceID, data.Timestamp, data)
}

// PublishCommandAcked records the outcome an agent reported for a command.
func (p *NATSPublisher) PublishCommandAcked(ctx context.Context, data models.CommandEventData) error {
	return p.publish(ctx, SubjectCommandAcked, "command.acked", data.DeviceID, data.Timestamp, data)
}

func (p *NATSPublisher) publish(
	ctx context.Context, subject, kind, deviceID string, ts time.Time, data interface{}) error {
	event := models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            eventTypePrefix + kind,
		DataContentType: "application/json",
		Subject:         subject,
		Time:            &ts,
		Data:            data,
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", kind, err)
	}

	ack, err := p.js.Publish(ctx, subject, eventBytes)
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", kind, err)
	}

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("subject", subject).
		Str("device_id", deviceID).
		Uint64("seq", ack.Sequence).
		Msg("Published fleet event")

	return nil
}

// Connect dials NATS, ensures the stream exists and returns a publisher bound to it.
// The caller owns the returned connection.
func Connect(ctx context.Context, cfg *models.NATSConfig, log logger.Logger, extraOpts ...nats.Option) (*NATSPublisher, *nats.Conn, error) {
	if cfg == nil {
		return nil, nil, errNilConfig
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	opts := []nats.Option{
		nats.Name("fleetradar-registry"),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}
	opts = append(opts, extraOpts...)

	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := newJetStream(nc, cfg.Domain)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}

	stream := cfg.Stream
	if stream == "" {
		stream = DefaultStream
	}

	if err := ensureStream(ctx, js, stream); err != nil {
		nc.Close()
		return nil, nil, err
	}

	log.Info().
		Str("url", nc.ConnectedUrl()).
		Str("stream", stream).
		Msg("Fleet event stream ready")

	return NewNATSPublisher(js, stream, log), nc, nil
}

func newJetStream(nc *nats.Conn, domain string) (jetstream.JetStream, error) {
	if domain != "" {
		js, err := jetstream.NewWithDomain(nc, domain)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream context with domain %s: %w", domain, err)
		}

		return js, nil
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return js, nil
}

type streamManager interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

func ensureStream(ctx context.Context, js streamManager, name string) error {
	_, err := js.Stream(ctx, name)
	if err == nil {
		return nil
	}

	if !isStreamMissingErr(err) {
		return fmt.Errorf("failed to look up stream %s: %w", name, err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     name,
		Subjects: streamSubjects,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", name, err)
	}

	return nil
}

func isStreamMissingErr(err error) bool {
	return errors.Is(err, jetstream.ErrStreamNotFound) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrStreamNotFound) ||
		errors.Is(err, nats.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrNoResponders)
}

// NoopPublisher drops every event. It is used when the event stream is disabled.
type NoopPublisher struct{}

var _ Publisher = NoopPublisher{}

func (NoopPublisher) PublishDeviceRegistered(context.Context, models.DeviceRegisteredEventData) error {
	return nil
}

func (NoopPublisher) PublishCommandEnqueued(context.Context, models.CommandEventData) error {
	return nil
}

func (NoopPublisher) PublishCommandAcked(context.Context, models.CommandEventData) error {
	return nil
}
