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

	"github.com/carverauto/fleetradar/pkg/logger"
)

// LogMessageSink writes operator messages to the agent log, where the desktop
// companion picks them up.
type LogMessageSink struct {
	logger logger.Logger
}

var _ MessageSink = (*LogMessageSink)(nil)

// NewLogMessageSink creates a sink writing to log.
func NewLogMessageSink(log logger.Logger) *LogMessageSink {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &LogMessageSink{logger: log}
}

// Show logs text at info level.
func (s *LogMessageSink) Show(_ context.Context, text string) error {
	s.logger.Info().Str("text", text).Msg("Operator message")

	return nil
}
