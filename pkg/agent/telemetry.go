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
	"net"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
	"github.com/carverauto/fleetradar/pkg/version"
)

const defaultCPUSample = 200 * time.Millisecond

// HostCollector samples the local host with gopsutil. Each source is a field so
// tests can replace it.
type HostCollector struct {
	logger       logger.Logger
	cpuSample    time.Duration
	cpuPercent   func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error)
	memStats     func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	uptime       func(ctx context.Context) (uint64, error)
	hostInfo     func(ctx context.Context) (*host.InfoStat, error)
	currentUser  func() string
	localIP      func(ctx context.Context) string
	agentVersion string
}

var _ TelemetryCollector = (*HostCollector)(nil)

// NewHostCollector creates a collector for the running host.
func NewHostCollector(log logger.Logger) *HostCollector {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &HostCollector{
		logger:       log,
		cpuSample:    defaultCPUSample,
		cpuPercent:   cpu.PercentWithContext,
		memStats:     mem.VirtualMemoryWithContext,
		uptime:       host.UptimeWithContext,
		hostInfo:     host.InfoWithContext,
		currentUser:  currentUser,
		localIP:      localIP,
		agentVersion: version.GetVersion(),
	}
}

// Collect builds a heartbeat. Sources that fail report zero values; a heartbeat is
// never withheld for missing telemetry.
func (c *HostCollector) Collect(ctx context.Context) *models.HeartbeatRequest {
	req := &models.HeartbeatRequest{
		ActiveUser: c.currentUser(),
		IP:         c.localIP(ctx),
	}

	if pct, err := c.cpuPercent(ctx, c.cpuSample, false); err != nil {
		c.logger.Debug().Err(err).Msg("cpu.PercentWithContext failed; reporting zero")
	} else if len(pct) > 0 {
		req.CPUPercent = pct[0]
	}

	if vm, err := c.memStats(ctx); err != nil {
		c.logger.Debug().Err(err).Msg("mem.VirtualMemoryWithContext failed; reporting zero")
	} else if vm != nil {
		req.MemPercent = vm.UsedPercent
	}

	if up, err := c.uptime(ctx); err != nil {
		c.logger.Debug().Err(err).Msg("host.UptimeWithContext failed; reporting zero")
	} else {
		req.Uptime = float64(up)
	}

	return req
}

// Describe builds the registration request for this host.
func (c *HostCollector) Describe(ctx context.Context) *models.RegistrationRequest {
	req := &models.RegistrationRequest{
		Hostname:     hostname(),
		AgentVersion: c.agentVersion,
	}

	info, err := c.hostInfo(ctx)
	if err != nil || info == nil {
		c.logger.Debug().Err(err).Msg("host.InfoWithContext failed")
		return req
	}

	if info.Hostname != "" {
		req.Hostname = info.Hostname
	}

	req.OSVersion = strings.TrimSpace(strings.Join([]string{info.Platform, info.PlatformVersion}, " "))
	if req.OSVersion == "" {
		req.OSVersion = info.OS
	}

	return req
}

func hostname() string {
	if name, err := os.Hostname(); err == nil && name != "" {
		return name
	}

	return "unknown-host"
}

func currentUser() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}

	return u.Username
}

// localIP returns the address the host would use to reach the internet. No packet
// is sent; UDP dial only selects a route.
func localIP(ctx context.Context) string {
	dialer := &net.Dialer{Timeout: time.Second}

	conn, err := dialer.DialContext(ctx, "udp", "8.8.8.8:80")
	if err != nil {
		return ""
	}
	defer func() {
		_ = conn.Close()
	}()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return ""
	}

	return addr.IP.String()
}
