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
	"net/url"
	"os"
	"time"

	"github.com/carverauto/fleetradar/pkg/config"
	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
)

const (
	defaultServerURL    = "http://localhost:5081"
	defaultPollInterval = 5 * time.Second
	defaultBatchSize    = 5
	defaultServiceName  = "FleetRadarAgent"
)

var (
	errServerURLRequired = errors.New("server_url is required")
	errInvalidInterval   = errors.New("poll_interval must be positive")
	errInvalidBatchSize  = errors.New("batch_size must be at least 1")
	errNegativeDelay     = errors.New("restart_delay must not be negative")
)

// Config is the agent configuration file (agent.json).
type Config struct {
	ServerURL     string          `json:"server_url" yaml:"server_url"`
	PollInterval  models.Duration `json:"poll_interval" yaml:"poll_interval"`
	BatchSize     int             `json:"batch_size" yaml:"batch_size"`
	HTTPTimeout   models.Duration `json:"http_timeout" yaml:"http_timeout"`
	RestartDelay  models.Duration `json:"restart_delay" yaml:"restart_delay"`
	LockStatePath string          `json:"lock_state_path,omitempty" yaml:"lock_state_path,omitempty"`
	// StateFile, when set, keeps the issued identity across restarts.
	StateFile   string         `json:"state_file,omitempty" yaml:"state_file,omitempty"`
	ServiceName string         `json:"service_name" yaml:"service_name"`
	Logging     *logger.Config `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// DefaultConfig returns the values used for anything the file leaves out.
func DefaultConfig() *Config {
	return &Config{
		ServerURL:    defaultServerURL,
		PollInterval: models.Duration(defaultPollInterval),
		BatchSize:    defaultBatchSize,
		HTTPTimeout:  models.Duration(defaultHTTPTimeout),
		RestartDelay: models.Duration(DefaultRestartDelay),
		ServiceName:  defaultServiceName,
	}
}

// Validate implements config.Validator.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return errServerURLRequired
	}

	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid server_url %q", c.ServerURL)
	}

	if c.PollInterval <= 0 {
		return errInvalidInterval
	}

	if c.BatchSize < 1 {
		return errInvalidBatchSize
	}

	if c.RestartDelay < 0 {
		return errNegativeDelay
	}

	return nil
}

// LoadConfig loads the agent configuration over DefaultConfig. A missing file is not
// an error when reading from disk; the defaults are validated and used.
func LoadConfig(ctx context.Context, path string) (*Config, error) {
	cfg := DefaultConfig()

	if source := os.Getenv("CONFIG_SOURCE"); source == "" || source == "file" {
		if _, err := os.Stat(path); path == "" || errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.Validate()
		}
	}

	if err := config.NewConfig(nil).LoadAndValidate(ctx, path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load agent config: %w", err)
	}

	return cfg, nil
}
