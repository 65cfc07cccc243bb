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

// Package cli implements fleetctl, the operator command line for the registry.
package cli

import (
	"time"
)

const (
	defaultServerURL = "http://localhost:5081"
	defaultTimeout   = 30 * time.Second

	outputText = "text"
	outputJSON = "json"
)

// CmdConfig holds parsed command-line configuration.
type CmdConfig struct {
	Help        bool
	SubCmd      string
	ServerURL   string
	APIKey      string
	Timeout     time.Duration
	Output      string
	DeviceID    string
	CommandType string
	// Payload is raw JSON; Message is a shorthand that becomes a JSON string.
	Payload string
	Message string
	Args    []string
}
