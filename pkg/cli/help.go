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
	"fmt"
	"io"
)

// ShowHelp writes the usage message to out.
func ShowHelp(out io.Writer) {
	_, _ = fmt.Fprint(out, `fleetctl: FleetRadar operator tool
Usage:
  fleetctl devices [options]
  fleetctl show <device-id> [options]
  fleetctl enqueue <device-id> --type <type> [--payload JSON | --message TEXT] [options]

Commands:
  devices    List registered devices with their derived status
  show       Show one device, including its last telemetry
  enqueue    Queue a command for a device

Options:
  --server string     registry base URL (default "http://localhost:5081", env FLEETCTL_SERVER)
  --api-key string    operator API key (env FLEETCTL_API_KEY)
  --timeout duration  request timeout (default 30s)
  -o, --output string output format: text or json (default "text")

Options for enqueue:
  -t, --type string     command type: restart, lock, unlock or message
  --payload string      command payload as raw JSON
  -m, --message string  message text, sent as a JSON string payload

Examples:
  fleetctl devices
  fleetctl show 6f1c2b9e-2d4f-4b59-9d0e-3f0b3b7f2a11 -o json
  fleetctl enqueue 6f1c2b9e-2d4f-4b59-9d0e-3f0b3b7f2a11 --type message -m "Class ends in 5 minutes"
  fleetctl enqueue 6f1c2b9e-2d4f-4b59-9d0e-3f0b3b7f2a11 --type lock
`)
}
