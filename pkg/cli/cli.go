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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/carverauto/fleetradar/pkg/models"
)

const (
	envServerURL = "FLEETCTL_SERVER"
	envAPIKey    = "FLEETCTL_API_KEY"
)

// SubcommandHandler defines the interface for parsing subcommand flags.
type SubcommandHandler interface {
	Parse(args []string, cfg *CmdConfig) error
}

// DevicesHandler handles flags for the devices subcommand.
type DevicesHandler struct{}

// Parse processes the command-line arguments for the devices subcommand.
func (DevicesHandler) Parse(args []string, cfg *CmdConfig) error {
	fs := newFlagSet("devices", cfg)

	return parseFlagSet(fs, args, cfg)
}

// ShowHandler handles flags for the show subcommand.
type ShowHandler struct{}

// Parse processes the command-line arguments for the show subcommand.
func (ShowHandler) Parse(args []string, cfg *CmdConfig) error {
	fs := newFlagSet("show", cfg)

	if err := parseFlagSet(fs, args, cfg); err != nil || cfg.Help {
		return err
	}

	return takeDeviceID(cfg)
}

// EnqueueHandler handles flags for the enqueue subcommand.
type EnqueueHandler struct{}

// Parse processes the command-line arguments for the enqueue subcommand.
func (EnqueueHandler) Parse(args []string, cfg *CmdConfig) error {
	fs := newFlagSet("enqueue", cfg)
	fs.StringVarP(&cfg.CommandType, "type", "t", "", "command type: restart, lock, unlock or message")
	fs.StringVar(&cfg.Payload, "payload", "", "command payload as raw JSON")
	fs.StringVarP(&cfg.Message, "message", "m", "", "message text, sent as a JSON string payload")

	if err := parseFlagSet(fs, args, cfg); err != nil || cfg.Help {
		return err
	}

	if err := takeDeviceID(cfg); err != nil {
		return err
	}

	cfg.CommandType = strings.TrimSpace(cfg.CommandType)
	if cfg.CommandType == "" {
		return errMissingType
	}

	if cfg.Payload != "" && cfg.Message != "" {
		return errPayloadConflict
	}

	if cfg.Payload != "" && !json.Valid([]byte(cfg.Payload)) {
		return errInvalidPayload
	}

	return nil
}

var handlers = map[string]SubcommandHandler{
	"devices": DevicesHandler{},
	"show":    ShowHandler{},
	"enqueue": EnqueueHandler{},
}

// ParseFlags parses the subcommand and its flags.
func ParseFlags(args []string) (*CmdConfig, error) {
	cfg := &CmdConfig{}

	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		cfg.Help = true
		return cfg, nil
	}

	cfg.SubCmd = args[0]

	handler, ok := handlers[cfg.SubCmd]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownSubcommand, cfg.SubCmd)
	}

	if err := handler.Parse(args[1:], cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Run executes a parsed command, writing human or JSON output to out.
func Run(ctx context.Context, cfg *CmdConfig, out io.Writer) error {
	if cfg.Help {
		ShowHelp(out)
		return nil
	}

	client := NewOperatorClient(cfg.ServerURL, cfg.APIKey, cfg.Timeout)

	switch cfg.SubCmd {
	case "devices":
		return runDevices(ctx, client, cfg, out)
	case "show":
		return runShow(ctx, client, cfg, out)
	case "enqueue":
		return runEnqueue(ctx, client, cfg, out)
	default:
		return fmt.Errorf("%w: %s", errUnknownSubcommand, cfg.SubCmd)
	}
}

func runDevices(ctx context.Context, client *OperatorClient, cfg *CmdConfig, out io.Writer) error {
	devices, err := client.ListDevices(ctx)
	if err != nil {
		return err
	}

	if cfg.Output == outputJSON {
		return writeJSON(out, devices)
	}

	if len(devices) == 0 {
		_, err := fmt.Fprintln(out, "No devices registered.")
		return err
	}

	_, err = fmt.Fprintln(out, renderDeviceTable(devices))

	return err
}

func runShow(ctx context.Context, client *OperatorClient, cfg *CmdConfig, out io.Writer) error {
	device, err := client.GetDevice(ctx, cfg.DeviceID)
	if err != nil {
		return err
	}

	if cfg.Output == outputJSON {
		return writeJSON(out, device)
	}

	printDeviceDetails(out, device)

	return nil
}

func runEnqueue(ctx context.Context, client *OperatorClient, cfg *CmdConfig, out io.Writer) error {
	req, err := buildEnqueueRequest(cfg)
	if err != nil {
		return err
	}

	cmd, err := client.Enqueue(ctx, cfg.DeviceID, req)
	if err != nil {
		return err
	}

	if cfg.Output == outputJSON {
		return writeJSON(out, cmd)
	}

	_, err = fmt.Fprintf(out, "Queued %s command %s for device %s\n", cmd.Type, cmd.ID, cfg.DeviceID)

	return err
}

func buildEnqueueRequest(cfg *CmdConfig) (*models.EnqueueCommandRequest, error) {
	req := &models.EnqueueCommandRequest{Type: cfg.CommandType}

	switch {
	case cfg.Message != "":
		payload, err := json.Marshal(cfg.Message)
		if err != nil {
			return nil, err
		}

		req.Payload = payload
	case cfg.Payload != "":
		req.Payload = json.RawMessage(cfg.Payload)
	}

	return req, nil
}

func newFlagSet(name string, cfg *CmdConfig) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "server", envOrDefault(envServerURL, defaultServerURL), "registry base URL")
	fs.StringVar(&cfg.APIKey, "api-key", os.Getenv(envAPIKey), "operator API key")
	fs.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "request timeout")
	fs.StringVarP(&cfg.Output, "output", "o", outputText, "output format: text or json")

	return fs
}

func parseFlagSet(fs *pflag.FlagSet, args []string, cfg *CmdConfig) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			cfg.Help = true
			return nil
		}

		return fmt.Errorf("parsing %s flags: %w", fs.Name(), err)
	}

	cfg.Args = fs.Args()
	cfg.Output = strings.ToLower(strings.TrimSpace(cfg.Output))

	if cfg.Output != outputText && cfg.Output != outputJSON {
		return errInvalidOutput
	}

	return nil
}

func takeDeviceID(cfg *CmdConfig) error {
	if len(cfg.Args) == 0 || strings.TrimSpace(cfg.Args[0]) == "" {
		return errMissingDeviceID
	}

	cfg.DeviceID = strings.TrimSpace(cfg.Args[0])
	cfg.Args = cfg.Args[1:]

	return nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}

	return fallback
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
