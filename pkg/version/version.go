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

// Package version reports the build version shared by the registry, the agent and
// fleetctl.
package version

import "strings"

// These variables are set via ldflags during build, e.g.
// -X github.com/carverauto/fleetradar/pkg/version.version=1.4.0
//
//nolint:gochecknoglobals // intentionally global for ldflags injection
var (
	version = "dev"
	buildID = "dev"
)

// GetVersion returns the current version.
func GetVersion() string {
	return version
}

// GetFullVersion returns the version with the build ID when one was stamped.
func GetFullVersion() string {
	if buildID == "" || buildID == version {
		return version
	}

	return version + " (build: " + buildID + ")"
}

// UserAgent returns the User-Agent a component sends to the registry.
func UserAgent(component string) string {
	component = strings.TrimSpace(component)
	if component == "" {
		component = "fleetradar"
	}

	return component + "/" + version
}
