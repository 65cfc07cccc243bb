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

// Package enrollment issues device identities and authenticates credentials.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
	"github.com/carverauto/fleetradar/pkg/registry"
)

//go:generate mockgen -destination=mock_enrollment.go -package=enrollment github.com/carverauto/fleetradar/pkg/enrollment EventPublisher

// maxCredentialAttempts bounds retries on a digest collision, which only a broken
// random source could produce.
const maxCredentialAttempts = 3

var errCredentialExhausted = errors.New("could not allocate a unique credential")

// EventPublisher receives registration events.
type EventPublisher interface {
	PublishDeviceRegistered(ctx context.Context, data models.DeviceRegisteredEventData) error
}

// Service binds registration and authentication to a registry store.
type Service struct {
	store     registry.Store
	publisher EventPublisher
	logger    logger.Logger
	now       func() time.Time
	newCred   func() (string, error)
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the event publisher for registrations.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// NewService creates an enrollment service.
func NewService(store registry.Store, opts ...Option) *Service {
	s := &Service{
		store:   store,
		logger:  logger.NewTestLogger(),
		now:     time.Now,
		newCred: registry.NewCredential,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Register always mints a new device and credential, even for a hostname that is
// already known. The optional token is accepted and not validated.
func (s *Service) Register(ctx context.Context, req *models.RegistrationRequest) (*models.RegistrationResponse, error) {
	if req == nil {
		req = &models.RegistrationRequest{}
	}

	if req.Token != nil {
		s.logger.Debug().Str("hostname", req.Hostname).Msg("Registration token supplied; not validated")
	}

	meta := registry.DeviceMetadata{
		Hostname:     req.Hostname,
		OSVersion:    req.OSVersion,
		AgentVersion: req.AgentVersion,
	}

	for attempt := 0; attempt < maxCredentialAttempts; attempt++ {
		credential, err := s.newCred()
		if err != nil {
			return nil, err
		}

		deviceID, err := s.store.CreateDevice(ctx, meta, credential)
		if errors.Is(err, registry.ErrCredentialConflict) {
			s.logger.Warn().Int("attempt", attempt+1).Msg("Credential collision, regenerating")
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to create device: %w", err)
		}

		s.logger.Info().
			Str("device_id", deviceID).
			Str("hostname", req.Hostname).
			Str("agent_version", req.AgentVersion).
			Msg("Device registered")

		s.publish(ctx, deviceID, meta)

		return &models.RegistrationResponse{
			DeviceID:   deviceID,
			Credential: credential,
		}, nil
	}

	return nil, errCredentialExhausted
}

func (s *Service) publish(ctx context.Context, deviceID string, meta registry.DeviceMetadata) {
	if s.publisher == nil {
		return
	}

	err := s.publisher.PublishDeviceRegistered(ctx, models.DeviceRegisteredEventData{
		DeviceID:     deviceID,
		Hostname:     meta.Hostname,
		OSVersion:    meta.OSVersion,
		AgentVersion: meta.AgentVersion,
		Timestamp:    s.now(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("device_id", deviceID).Msg("Failed to publish registration event")
	}
}

// Authenticate resolves a credential to its device id. A missing or unknown
// credential yields registry.ErrAuthFailure.
func (s *Service) Authenticate(ctx context.Context, credential string) (string, error) {
	return s.store.LookupCredential(ctx, credential)
}

// Heartbeat authenticates credential and records liveness for its device.
func (s *Service) Heartbeat(ctx context.Context, credential string, req *models.HeartbeatRequest) (string, error) {
	return s.store.Heartbeat(ctx, credential, req)
}
