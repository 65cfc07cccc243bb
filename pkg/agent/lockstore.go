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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const lockStateFile = "state.json"

// lockState is the on-disk format shared with the lock-screen companion.
type lockState struct {
	IsLocked bool `json:"isLocked"`
}

// FileLockStore persists the lock flag as {"isLocked": bool}.
type FileLockStore struct {
	mu   sync.Mutex
	path string
}

var _ LockStore = (*FileLockStore)(nil)

// NewFileLockStore creates a lock store at path, or at DefaultLockStatePath when empty.
func NewFileLockStore(path string) *FileLockStore {
	if path == "" {
		path = DefaultLockStatePath()
	}

	return &FileLockStore{path: path}
}

// DefaultLockStatePath is <user config dir>/fleetradar/state.json, falling back to the
// temp dir when no config dir is known.
func DefaultLockStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}

	return filepath.Join(dir, "fleetradar", lockStateFile)
}

// Path returns the file the store writes.
func (s *FileLockStore) Path() string {
	return s.path
}

// WriteLockState atomically replaces the flag file.
func (s *FileLockStore) WriteLockState(locked bool) error {
	data, err := json.Marshal(lockState{IsLocked: locked})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return writeFileAtomic(s.path, data, 0o644)
}

// ReadLockState returns the current flag. A missing file reads as unlocked.
func (s *FileLockStore) ReadLockState() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to read lock state: %w", err)
	}

	var state lockState
	if err := json.Unmarshal(data, &state); err != nil {
		return false, fmt.Errorf("failed to decode lock state %s: %w", s.path, err)
	}

	return state.IsLocked, nil
}
