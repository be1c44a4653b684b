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

// Package transport defines the capability set every upload backend
// implements. The concrete variants live in the simple, chunked and
// directblob subpackages; call sites only ever see this interface and never
// inspect the concrete type.
package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"aeromedia/customer"
)

type Transport interface {
	Connect(ctx context.Context) error
	Disconnect()
	Status(ctx context.Context) string
	UploadDirectory(ctx context.Context, localDir, remoteName string, cust *customer.Customer) error
	ShareableLink(ctx context.Context) (string, error)
}

var (
	ErrNotConnected = errors.New("transport: not connected")
	ErrNoFiles      = errors.New("transport: no files to upload")
)

// StatusError carries a non-2xx server response.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Code, e.Body)
}

// Holder is the single swappable handle to the active transport. Swapping is
// a configuration-time decision; the worker reads the pointer before every
// dequeue, never mid-upload.
type Holder struct {
	current atomic.Pointer[Transport]
}

func NewHolder(t Transport) *Holder {
	h := &Holder{}
	if t != nil {
		h.Swap(t)
	}
	return h
}

func (h *Holder) Swap(t Transport) {
	h.current.Store(&t)
}

func (h *Holder) Current() Transport {
	p := h.current.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Slug derives the stable remote target identifier from a directory base
// name. Lowercased, with anything outside [a-z0-9._-] collapsed to a single
// dash.
func Slug(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	pendingDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		default:
			pendingDash = true
		}
	}
	return strings.Trim(b.String(), "-._")
}
