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
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/zeebo/blake3"
)

// credentialBytes is the amount of entropy behind every credential (256 bits).
const credentialBytes = 32

type credentialDigest [32]byte

// NewCredential returns a fresh url-safe random credential.
func NewCredential() (string, error) {
	buf := make([]byte, credentialBytes)

	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate credential: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// digestCredential is the only form in which credentials are indexed.
func digestCredential(credential string) credentialDigest {
	return blake3.Sum256([]byte(credential))
}

func (d credentialDigest) shard() int {
	return int(d[0]) % shardCount
}
