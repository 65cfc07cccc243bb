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

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kardianos/service"
	"github.com/spf13/pflag"

	"github.com/carverauto/fleetradar/pkg/agent"
	"github.com/carverauto/fleetradar/pkg/lifecycle"
	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/version"
)

const stopTimeout = 10 * time.Second

// program adapts the control loop to the service manager.
type program struct {
	loop   *agent.ControlLoop
	logger logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (p *program) Start(service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	p.cancel = cancel
	p.done = make(chan struct{})
	p.mu.Unlock()

	go func() {
		defer close(p.done)

		if err := p.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Error().Err(err).Msg("Control loop exited")
		}
	}()

	return nil
}

func (p *program) Stop(service.Service) error {
	p.logger.Info().Msg("Stopping FleetRadar agent")

	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()

	select {
	case <-done:
	case <-time.After(stopTimeout):
		p.logger.Warn().Dur("timeout", stopTimeout).Msg("Control loop did not stop in time")
	}

	return nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flagSet := pflag.NewFlagSet("fleetradar-agent", pflag.ContinueOnError)
	configPath := flagSet.StringP("config", "c", defaultConfigPath(), "Path to agent config file")
	showVersion := flagSet.Bool("version", false, "Print the version and exit")

	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: fleetradar-agent [install|uninstall|start|stop|restart] [options]\n")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}

		return err
	}

	if *showVersion {
		fmt.Println(version.GetFullVersion())
		return nil
	}

	ctx := context.Background()

	cfg, err := agent.LoadConfig(ctx, *configPath)
	if err != nil {
		return err
	}

	if err := lifecycle.InitializeLogger(cfg.Logging); err != nil {
		return err
	}

	agentLogger, err := lifecycle.CreateComponentLogger("agent", cfg.Logging)
	if err != nil {
		return err
	}

	defer func() {
		_ = lifecycle.ShutdownLogger()
	}()

	svcConfig := &service.Config{
		Name:        cfg.ServiceName,
		DisplayName: "FleetRadar Agent",
		Description: "Registers this device with the FleetRadar registry and runs operator commands.",
		Arguments:   serviceArguments(*configPath),
	}

	prg := &program{
		loop:   buildLoop(cfg, agentLogger),
		logger: agentLogger,
	}

	svc, err := service.New(prg, svcConfig)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	if action := flagSet.Arg(0); action != "" {
		if err := service.Control(svc, action); err != nil {
			return fmt.Errorf("service %s failed (valid actions %q): %w", action, service.ControlAction, err)
		}

		agentLogger.Info().Str("action", action).Str("service", cfg.ServiceName).Msg("Service action completed")

		return nil
	}

	return svc.Run()
}

func buildLoop(cfg *agent.Config, log logger.Logger) *agent.ControlLoop {
	client := agent.NewRegistryClient(cfg.ServerURL, cfg.HTTPTimeout.Std())

	executor := agent.NewLocalExecutor(
		agent.NewOSRestarter(log),
		agent.NewFileLockStore(cfg.LockStatePath),
		agent.NewLogMessageSink(log),
		agent.WithRestartDelay(cfg.RestartDelay.Std()),
		agent.WithExecutorLogger(log),
	)

	opts := []agent.LoopOption{
		agent.WithInterval(cfg.PollInterval.Std()),
		agent.WithBatchSize(cfg.BatchSize),
		agent.WithLoopLogger(log),
	}

	if cfg.StateFile != "" {
		opts = append(opts, agent.WithIdentityStore(agent.NewFileIdentityStore(cfg.StateFile)))
	}

	return agent.NewControlLoop(client, executor, agent.NewHostCollector(log), opts...)
}

// serviceArguments pins the config path the installed service starts with.
func serviceArguments(configPath string) []string {
	if abs, err := filepath.Abs(configPath); err == nil {
		configPath = abs
	}

	return []string{"--config", configPath}
}

func defaultConfigPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "agent.json"
	}

	return filepath.Join(filepath.Dir(exe), "agent.json")
}
