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
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
)

// shardCount is the number of independently locked partitions of each index.
const shardCount = 32

type deviceShard struct {
	mu      sync.RWMutex
	devices map[string]*device
}

type credentialShard struct {
	mu      sync.RWMutex
	devices map[credentialDigest]*device
}

// MemoryStore keeps the registry in process. Indexes are sharded so unrelated devices
// never share a write lock, and each device serializes its own queue and liveness.
type MemoryStore struct {
	byID         [shardCount]deviceShard
	byCredential [shardCount]credentialShard

	seq          atomic.Uint64
	deviceCount  atomic.Int64
	pendingCount atomic.Int64

	now     func() time.Time
	window  time.Duration
	logger  logger.Logger
	metrics *storeMetrics
}

// Option configures a MemoryStore.
type Option func(*storeOptions)

type storeOptions struct {
	clock         func() time.Time
	window        time.Duration
	logger        logger.Logger
	meterProvider metric.MeterProvider
}

// WithClock overrides the time source used for heartbeats and status derivation.
func WithClock(clock func() time.Time) Option {
	return func(o *storeOptions) {
		o.clock = clock
	}
}

// WithLivenessWindow overrides DefaultLivenessWindow.
func WithLivenessWindow(window time.Duration) Option {
	return func(o *storeOptions) {
		if window > 0 {
			o.window = window
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(log logger.Logger) Option {
	return func(o *storeOptions) {
		o.logger = log
	}
}

// WithMeterProvider sets the provider for registry instruments; the global one is used otherwise.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *storeOptions) {
		o.meterProvider = provider
	}
}

// NewMemoryStore creates an empty registry.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := storeOptions{
		clock:  time.Now,
		window: DefaultLivenessWindow,
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = logger.NewTestLogger()
	}

	s := &MemoryStore{
		now:    o.clock,
		window: o.window,
		logger: o.logger,
	}

	for i := range s.byID {
		s.byID[i].devices = make(map[string]*device)
		s.byCredential[i].devices = make(map[credentialDigest]*device)
	}

	s.metrics = newStoreMetrics(o.meterProvider, s)

	return s
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) idShard(deviceID string) *deviceShard {
	return &s.byID[xxhash.Sum64String(deviceID)%shardCount]
}

func (s *MemoryStore) lookupID(deviceID string) (*device, bool) {
	shard := s.idShard(deviceID)

	shard.mu.RLock()
	d, ok := shard.devices[deviceID]
	shard.mu.RUnlock()

	return d, ok
}

func (s *MemoryStore) lookupDigest(digest credentialDigest) (*device, bool) {
	shard := &s.byCredential[digest.shard()]

	shard.mu.RLock()
	d, ok := shard.devices[digest]
	shard.mu.RUnlock()

	return d, ok
}

// CreateDevice indexes a new device under a fresh id and the digest of credential.
func (s *MemoryStore) CreateDevice(ctx context.Context, meta DeviceMetadata, credential string) (string, error) {
	if credential == "" {
		return "", fmt.Errorf("%w: empty credential", ErrCredentialConflict)
	}

	digest := digestCredential(credential)
	credShard := &s.byCredential[digest.shard()]

	credShard.mu.Lock()
	defer credShard.mu.Unlock()

	if _, taken := credShard.devices[digest]; taken {
		return "", ErrCredentialConflict
	}

	d := &device{
		seq:          s.seq.Add(1),
		hostname:     meta.Hostname,
		osVersion:    meta.OSVersion,
		agentVersion: meta.AgentVersion,
		digest:       digest,
	}

	for {
		d.id = uuid.NewString()
		shard := s.idShard(d.id)

		shard.mu.Lock()
		if _, exists := shard.devices[d.id]; exists {
			shard.mu.Unlock()
			continue
		}

		shard.devices[d.id] = d
		shard.mu.Unlock()

		break
	}

	credShard.devices[digest] = d
	s.deviceCount.Add(1)
	s.metrics.addRegistration(ctx)

	s.logger.Debug().
		Str("device_id", d.id).
		Str("hostname", meta.Hostname).
		Msg("Device created")

	return d.id, nil
}

// LookupCredential resolves credential to its device id in constant time.
func (s *MemoryStore) LookupCredential(ctx context.Context, credential string) (string, error) {
	if credential == "" {
		s.metrics.addAuthFailure(ctx)
		return "", ErrAuthFailure
	}

	d, ok := s.lookupDigest(digestCredential(credential))
	if !ok {
		s.metrics.addAuthFailure(ctx)
		return "", ErrAuthFailure
	}

	return d.id, nil
}

// Heartbeat stamps last_seen with the current time and records the reported address.
func (s *MemoryStore) Heartbeat(ctx context.Context, credential string, req *models.HeartbeatRequest) (string, error) {
	if credential == "" {
		s.metrics.addAuthFailure(ctx)
		return "", ErrAuthFailure
	}

	d, ok := s.lookupDigest(digestCredential(credential))
	if !ok {
		s.metrics.addAuthFailure(ctx)
		return "", ErrAuthFailure
	}

	if req == nil {
		req = &models.HeartbeatRequest{}
	}

	d.recordHeartbeat(s.now(), req)
	s.metrics.addHeartbeat(ctx)

	return d.id, nil
}

// ListDevices returns every device in registration order, with status derived
// against a single reading of the clock.
func (s *MemoryStore) ListDevices(_ context.Context) ([]models.DeviceView, error) {
	all := make([]*device, 0, s.deviceCount.Load())

	for i := range s.byID {
		shard := &s.byID[i]

		shard.mu.RLock()
		for _, d := range shard.devices {
			all = append(all, d)
		}
		shard.mu.RUnlock()
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].seq < all[j].seq
	})

	now := s.now()
	views := make([]models.DeviceView, 0, len(all))

	for _, d := range all {
		views = append(views, d.view(now, s.window))
	}

	return views, nil
}

// GetDevice returns a single device view.
func (s *MemoryStore) GetDevice(_ context.Context, deviceID string) (*models.DeviceView, error) {
	d, ok := s.lookupID(deviceID)
	if !ok {
		return nil, ErrNotFound
	}

	v := d.view(s.now(), s.window)

	return &v, nil
}

// Push appends a command to the device's queue.
func (s *MemoryStore) Push(_ context.Context, deviceID, cmdType string, payload json.RawMessage) (*models.CommandView, error) {
	d, ok := s.lookupID(deviceID)
	if !ok {
		return nil, ErrNotFound
	}

	cmd := queuedCommand{
		id:      uuid.NewString(),
		cmdType: cmdType,
		payload: clonePayload(payload),
	}

	d.mu.Lock()
	d.queue.push(cmd)
	d.mu.Unlock()

	s.pendingCount.Add(1)

	return cmd.toView(), nil
}

// Pop removes up to limit commands from the head of the queue; limit is raised to 1
// when smaller. Popped commands are gone whether or not the caller ever acknowledges them.
func (s *MemoryStore) Pop(_ context.Context, deviceID string, limit int) ([]models.CommandView, error) {
	d, ok := s.lookupID(deviceID)
	if !ok {
		return nil, ErrNotFound
	}

	if limit < 1 {
		limit = 1
	}

	d.mu.Lock()
	popped := d.queue.popN(limit)
	d.mu.Unlock()

	s.pendingCount.Add(-int64(len(popped)))

	views := make([]models.CommandView, 0, len(popped))
	for i := range popped {
		views = append(views, *popped[i].toView())
	}

	return views, nil
}

// Exists reports whether deviceID has been registered.
func (s *MemoryStore) Exists(_ context.Context, deviceID string) bool {
	_, ok := s.lookupID(deviceID)

	return ok
}

// Pending returns the queue depth for a device, or zero when unknown.
func (s *MemoryStore) Pending(deviceID string) int {
	d, ok := s.lookupID(deviceID)
	if !ok {
		return 0
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	return d.queue.len()
}

func (c *queuedCommand) toView() *models.CommandView {
	return &models.CommandView{
		ID:      c.id,
		Type:    c.cmdType,
		Payload: clonePayload(c.payload),
	}
}

func clonePayload(payload json.RawMessage) json.RawMessage {
	if payload == nil {
		return nil
	}

	return append(json.RawMessage(nil), payload...)
}
