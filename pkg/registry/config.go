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
	"errors"
	"fmt"

	"github.com/carverauto/fleetradar/pkg/config"
	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
)

const (
	defaultListenAddr   = ":5081"
	defaultMaxPollBatch = 100
)

var (
	errListenAddrRequired = errors.New("listen_addr is required")
	errInvalidWindow      = errors.New("liveness_window must be positive")
	errInvalidMaxBatch    = errors.New("max_poll_batch must be at least 1")
)

// Config is the registry server configuration (registry.json).
type Config struct {
	ListenAddr     string          `json:"listen_addr" yaml:"listen_addr"`
	LivenessWindow models.Duration `json:"liveness_window" yaml:"liveness_window"`
	MaxPollBatch   int             `json:"max_poll_batch" yaml:"max_poll_batch"`
	// APIKey guards the operator routes when set. Agent routes never use it.
	APIKey  string             `json:"api_key,omitempty" yaml:"api_key,omitempty" sensitive:"true"`
	CORS    models.CORSConfig  `json:"cors" yaml:"cors"`
	Logging *logger.Config     `json:"logging,omitempty" yaml:"logging,omitempty"`
	Metrics *logger.OTelConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	NATS    *models.NATSConfig `json:"nats,omitempty" yaml:"nats,omitempty"`
}

// DefaultConfig returns the values used for anything the configuration omits.
func DefaultConfig() Config {
	return Config{
		ListenAddr:     defaultListenAddr,
		LivenessWindow: models.Duration(DefaultLivenessWindow),
		MaxPollBatch:   defaultMaxPollBatch,
	}
}

// Validate implements config.Validator.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return errListenAddrRequired
	}

	if c.LivenessWindow <= 0 {
		return errInvalidWindow
	}

	if c.MaxPollBatch < 1 {
		return errInvalidMaxBatch
	}

	return nil
}

// MetricsConfig returns the OTLP exporter settings, preferring the dedicated
// metrics block over the one nested in logging.
func (c *Config) MetricsConfig() *logger.OTelConfig {
	if c.Metrics != nil {
		return c.Metrics
	}

	if c.Logging != nil {
		return &c.Logging.OTel
	}

	return nil
}

// LoadConfig loads the registry configuration from path over DefaultConfig.
func LoadConfig(ctx context.Context, path string) (Config, error) {
	cfg := DefaultConfig()

	if err := config.NewConfig(nil).LoadAndValidate(ctx, path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load registry config: %w", err)
	}

	return cfg, nil
}
