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

package blake

import "testing"

func TestDigestURLSafe(t *testing.T) {
	h := New()
	if _, err := h.Write([]byte("hello aeromedia")); err != nil {
		t.Fatal(err)
	}
	d := Sum(h)

	encoded := d.URLSafe()
	if len(encoded) != 86 {
		t.Fatalf("unexpected encoded length %d", len(encoded))
	}
	for _, r := range encoded {
		if r == '+' || r == '/' || r == '=' {
			t.Fatalf("encoding must be URL safe and unpadded, got %q", r)
		}
	}
}

func TestDigestDeterministic(t *testing.T) {
	h1 := New()
	h2 := New()
	_, _ = h1.Write([]byte("same bytes"))
	_, _ = h2.Write([]byte("same bytes"))
	if Sum(h1) != Sum(h2) {
		t.Fatal("same input must produce the same digest")
	}

	h3 := New()
	_, _ = h3.Write([]byte("other bytes"))
	if Sum(h1) == Sum(h3) {
		t.Fatal("different input must produce a different digest")
	}
}
