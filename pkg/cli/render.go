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
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/carverauto/fleetradar/pkg/models"
)

// Dracula theme colors.
const (
	draculaForeground = "#F8F8F2"
	draculaCyan       = "#8BE9FD"
	draculaGreen      = "#50FA7B"
	draculaPurple     = "#BD93F9"
	draculaRed        = "#FF5555"
	draculaComment    = "#6272A4"
)

const cellPadding = 1

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(draculaPurple)).Padding(0, cellPadding)
	cellStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaForeground)).Padding(0, cellPadding)
	onlineStyle  = cellStyle.Foreground(lipgloss.Color(draculaGreen))
	offlineStyle = cellStyle.Foreground(lipgloss.Color(draculaRed))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaCyan))
)

const statusColumn = 4

func renderDeviceTable(devices []models.DeviceView) string {
	rows := make([][]string, 0, len(devices))
	for i := range devices {
		d := &devices[i]
		rows = append(rows, []string{
			d.ID,
			d.Hostname,
			d.OSVersion,
			d.AgentVersion,
			string(d.Status),
			formatOptionalTime(d.LastSeen),
			formatOptionalString(d.LastIP),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(draculaComment))).
		Headers("ID", "HOSTNAME", "OS", "AGENT", "STATUS", "LAST SEEN", "LAST IP").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}

			if col == statusColumn && row >= 0 && row < len(devices) {
				if devices[row].Status == models.DeviceStatusOnline {
					return onlineStyle
				}

				return offlineStyle
			}

			return cellStyle
		})

	return t.String()
}

func printDeviceDetails(out io.Writer, d *models.DeviceView) {
	line := func(label, value string) {
		_, _ = fmt.Fprintf(out, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-13s:", label)), value)
	}

	line("Device ID", d.ID)
	line("Hostname", d.Hostname)
	line("OS", d.OSVersion)
	line("Agent", d.AgentVersion)
	line("Status", string(d.Status))
	line("Last seen", formatOptionalTime(d.LastSeen))
	line("Last IP", formatOptionalString(d.LastIP))

	if t := d.Telemetry; t != nil {
		line("CPU", fmt.Sprintf("%.1f%%", t.CPUPercent))
		line("Memory", fmt.Sprintf("%.1f%%", t.MemPercent))

		if t.ActiveUser != "" {
			line("Active user", t.ActiveUser)
		}

		line("Uptime", t.UptimeDuration().Truncate(time.Second).String())
	}
}

func formatOptionalTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}

	return t.UTC().Format(time.RFC3339)
}

func formatOptionalString(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}

	return *s
}
