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
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"github.com/carverauto/fleetradar/pkg/logger"
)

// DefaultRestartDelay leaves time for the acknowledgment to reach the registry.
const DefaultRestartDelay = 5 * time.Second

type commandRunner func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// OSRestarter reboots the host through the platform shutdown command.
type OSRestarter struct {
	logger logger.Logger
	goos   string
	run    commandRunner
	sleep  func(ctx context.Context, d time.Duration) error
}

var _ Restarter = (*OSRestarter)(nil)

// NewOSRestarter creates a restarter for the running platform.
func NewOSRestarter(log logger.Logger) *OSRestarter {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &OSRestarter{
		logger: log,
		goos:   runtime.GOOS,
		run:    runCommand,
		sleep:  sleepContext,
	}
}

// restartCommand returns the command line for the platform. Windows applies the
// delay itself; elsewhere the caller sleeps first.
func restartCommand(goos string, delay time.Duration) (string, []string, bool) {
	if goos == "windows" {
		secs := int(delay.Round(time.Second) / time.Second)

		return "shutdown", []string{"/r", "/t", strconv.Itoa(secs)}, true
	}

	return "shutdown", []string{"-r", "+0"}, false
}

// ScheduleRestart starts the restart in the background and returns immediately.
// The restart is detached from ctx so it outlives the command cycle.
func (r *OSRestarter) ScheduleRestart(_ context.Context, delay time.Duration) error {
	if delay < 0 {
		return fmt.Errorf("invalid restart delay %s", delay)
	}

	name, args, selfDelayed := restartCommand(r.goos, delay)

	r.logger.Warn().
		Dur("delay", delay).
		Str("command", name).
		Strs("args", args).
		Msg("Restart scheduled")

	go func() {
		ctx := context.Background()

		if !selfDelayed {
			if err := r.sleep(ctx, delay); err != nil {
				return
			}
		}

		if err := r.run(ctx, name, args...); err != nil {
			r.logger.Error().Err(err).Msg("Restart command failed")
		}
	}()

	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
