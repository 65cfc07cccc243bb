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

// Package models holds the wire types shared by the registry server, the agent and the
// operator CLI.
package models

import (
	"encoding/json"
	"time"
)

// DeviceStatus is derived at read time from the last heartbeat; it is never stored.
type DeviceStatus string

const (
	DeviceStatusOnline  DeviceStatus = "online"
	DeviceStatusOffline DeviceStatus = "offline"
)

// RegistrationRequest is sent by an agent on first contact.
type RegistrationRequest struct {
	Hostname     string `json:"hostname"`
	OSVersion    string `json:"os_version"`
	AgentVersion string `json:"agent_version"`
	// Token is reserved for pre-shared enrollment tokens and is currently ignored.
	Token *string `json:"token,omitempty"`
}

// RegistrationResponse carries the freshly issued identity.
type RegistrationResponse struct {
	DeviceID   string `json:"device_id"`
	Credential string `json:"credential" sensitive:"true"`
}

// HeartbeatRequest is the liveness report. The load figures are informational.
type HeartbeatRequest struct {
	CPUPercent float64 `json:"cpu_pct"`
	MemPercent float64 `json:"mem_pct"`
	ActiveUser string  `json:"active_user,omitempty"`
	IP         string  `json:"ip"`
	// Uptime is expressed in seconds on the wire.
	Uptime float64 `json:"uptime"`
}

// DeviceView is the operator-facing snapshot of a device.
type DeviceView struct {
	ID           string       `json:"id"`
	Hostname     string       `json:"hostname"`
	OSVersion    string       `json:"os_version"`
	AgentVersion string       `json:"agent_version"`
	LastSeen     *time.Time   `json:"last_seen"`
	LastIP       *string      `json:"last_ip"`
	Status       DeviceStatus `json:"status"`
	Telemetry    *Telemetry   `json:"telemetry,omitempty"`
}

// Telemetry is the load information carried by the most recent heartbeat.
type Telemetry struct {
	CPUPercent float64 `json:"cpu_pct"`
	MemPercent float64 `json:"mem_pct"`
	ActiveUser string  `json:"active_user,omitempty"`
	Uptime     float64 `json:"uptime"`
}

// UptimeDuration converts the uptime seconds into a time.Duration.
func (t *Telemetry) UptimeDuration() time.Duration {
	return time.Duration(t.Uptime * float64(time.Second))
}

// Command types understood by the stock agent executor.
const (
	CommandRestart = "restart"
	CommandLock    = "lock"
	CommandUnlock  = "unlock"
	CommandMessage = "message"
)

// AckStatus is the outcome an agent reports for a command.
type AckStatus string

const (
	AckStatusDone    AckStatus = "done"
	AckStatusIgnored AckStatus = "ignored"
	AckStatusFailed  AckStatus = "failed"
)

// EnqueueCommandRequest is submitted by an operator.
type EnqueueCommandRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// CommandView is returned on enqueue and on poll.
type CommandView struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckCommandRequest reports the outcome of a delivered command.
type AckCommandRequest struct {
	Status AckStatus `json:"status"`
	Result *string   `json:"result,omitempty"`
}
