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
	"time"

	"github.com/carverauto/fleetradar/pkg/models"
)

// DefaultLivenessWindow is how long a device stays online after its last heartbeat.
const DefaultLivenessWindow = 20 * time.Second

// DeriveStatus reports online iff the device heartbeated less than window before now.
// It depends on nothing but its arguments.
func DeriveStatus(now time.Time, lastSeen *time.Time, window time.Duration) models.DeviceStatus {
	if lastSeen == nil {
		return models.DeviceStatusOffline
	}

	if now.Sub(*lastSeen) < window {
		return models.DeviceStatusOnline
	}

	return models.DeviceStatusOffline
}
