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

package cli

import (
	"errors"
)

var (
	// ErrUnauthorized is returned when the registry rejects the operator API key.
	ErrUnauthorized = errors.New("operator API key rejected")
	// ErrDeviceNotFound is returned for an unknown device id.
	ErrDeviceNotFound = errors.New("device not found")

	errUnknownSubcommand = errors.New("unknown subcommand")
	errMissingDeviceID   = errors.New("a device id is required")
	errMissingType       = errors.New("--type is required")
	errPayloadConflict   = errors.New("--payload and --message are mutually exclusive")
	errInvalidPayload    = errors.New("--payload must be valid JSON")
	errInvalidOutput     = errors.New("--output must be text or json")
	errRequestFailed     = errors.New("registry request failed")
)
