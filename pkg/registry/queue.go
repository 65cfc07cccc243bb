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
	"encoding/json"
)

type queuedCommand struct {
	id      string
	cmdType string
	payload json.RawMessage
}

// commandQueue is an unbounded FIFO. It is not safe for concurrent use; the owning
// device serializes access.
type commandQueue struct {
	items []queuedCommand
	head  int
}

func (q *commandQueue) push(cmd queuedCommand) {
	q.items = append(q.items, cmd)
}

// popN removes up to n commands from the head.
func (q *commandQueue) popN(n int) []queuedCommand {
	available := len(q.items) - q.head
	if n > available {
		n = available
	}

	if n <= 0 {
		return nil
	}

	out := make([]queuedCommand, n)
	copy(out, q.items[q.head:q.head+n])

	for i := q.head; i < q.head+n; i++ {
		q.items[i] = queuedCommand{}
	}

	q.head += n
	q.compact()

	return out
}

func (q *commandQueue) len() int {
	return len(q.items) - q.head
}

// compact reclaims the consumed prefix once it dominates the backing array.
func (q *commandQueue) compact() {
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0

		return
	}

	if q.head > 32 && q.head*2 >= len(q.items) {
		remaining := copy(q.items, q.items[q.head:])
		q.items = q.items[:remaining]
		q.head = 0
	}
}
