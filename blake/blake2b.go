// Copyright 2025 AK Software GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package blake provides blake2b-512 content digests for uploaded files.
// The direct blob transport registers each blob together with its digest so
// the server can verify what actually landed in storage.
package blake

import (
	"encoding/base64"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
)

const digestLength = 64

type Digest [digestLength]byte

// New returns a hash.Hash suitable for streaming a file through while it is
// being transferred.
func New() hash.Hash {
	h, err := blake2b.New512(nil)
	if err != nil {
		panic(err)
	}
	return h
}

// Sum converts a finished hash into a Digest.
func Sum(h hash.Hash) Digest {
	var d Digest
	sum := h.Sum(nil)
	if len(sum) != digestLength {
		panic(fmt.Sprintf("unexpected digest length %d", len(sum)))
	}
	copy(d[:], sum)
	return d
}

// URLSafe renders the digest in the encoding the register endpoint expects.
func (d Digest) URLSafe() string {
	return base64.RawURLEncoding.EncodeToString(d[:])
}
