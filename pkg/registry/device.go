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
	"sync"
	"time"

	"github.com/carverauto/fleetradar/pkg/models"
)

// device is the authoritative record. Identity fields are immutable after creation;
// everything below mu is guarded by it.
type device struct {
	id           string
	seq          uint64
	hostname     string
	osVersion    string
	agentVersion string
	digest       credentialDigest

	mu        sync.Mutex
	lastSeen  *time.Time
	lastIP    *string
	telemetry *models.Telemetry
	queue     commandQueue
}

func (d *device) recordHeartbeat(now time.Time, req *models.HeartbeatRequest) {
	d.mu.Lock()
	defer d.mu.Unlock()

	seen := now
	d.lastSeen = &seen

	ip := req.IP
	d.lastIP = &ip

	d.telemetry = &models.Telemetry{
		CPUPercent: req.CPUPercent,
		MemPercent: req.MemPercent,
		ActiveUser: req.ActiveUser,
		Uptime:     req.Uptime,
	}
}

func (d *device) view(now time.Time, window time.Duration) models.DeviceView {
	d.mu.Lock()
	defer d.mu.Unlock()

	v := models.DeviceView{
		ID:           d.id,
		Hostname:     d.hostname,
		OSVersion:    d.osVersion,
		AgentVersion: d.agentVersion,
		Status:       DeriveStatus(now, d.lastSeen, window),
	}

	if d.lastSeen != nil {
		seen := *d.lastSeen
		v.LastSeen = &seen
	}

	if d.lastIP != nil {
		ip := *d.lastIP
		v.LastIP = &ip
	}

	if d.telemetry != nil {
		t := *d.telemetry
		v.Telemetry = &t
	}

	return v
}
