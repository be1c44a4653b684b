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

package customer

import (
	"testing"

	"github.com/go-test/deep"
)

func TestParse(t *testing.T) {
	cases := map[string]*Customer{
		"": nil,
		"  \n\t ": nil,
		`{"kunde_id": 4711, "vorname": "Max", "nachname": "Mustermann", "email": "max@example.com", "telefon": "+4915112345678", "foto": true, "video": false}`: {
			Number:    4711,
			FirstName: "Max",
			LastName:  "Mustermann",
			Email:     "max@example.com",
			Phone:     "+4915112345678",
			Foto:      true,
		},
		`{"customer_number": 8, "first_name": "Erika", "last_name": "Musterfrau", "phone": "015198765432", "video": true}`: {
			Number:    8,
			FirstName: "Erika",
			LastName:  "Musterfrau",
			Phone:     "015198765432",
			Video:     true,
		},
	}

	for input, expected := range cases {
		actual, err := Parse([]byte(input))
		if err != nil {
			t.Fatalf("input=%q err=%v", input, err)
		}
		if diff := deep.Equal(expected, actual); diff != nil {
			t.Fatalf("input=%q diff=%v", input, diff)
		}
	}
}

func TestParseAliasPrecedence(t *testing.T) {
	c, err := Parse([]byte(`{"kunde_id": 1, "customer_number": 2, "vorname": "A", "first_name": "B"}`))
	if err != nil {
		t.Fatal(err)
	}
	if c.Number != 1 {
		t.Errorf("expected kunde_id to win, got %d", c.Number)
	}
	if c.FirstName != "A" {
		t.Errorf("expected vorname to win, got %q", c.FirstName)
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse([]byte("not json at all")); err == nil {
		t.Fatal("expected an error for malformed contents")
	}
}

func TestFullName(t *testing.T) {
	cases := map[string]Customer{
		"Max Mustermann": {FirstName: "Max", LastName: "Mustermann"},
		"Max":            {FirstName: "Max"},
		"Mustermann":     {LastName: "Mustermann"},
		"":               {},
	}
	for expected, c := range cases {
		if actual := c.FullName(); actual != expected {
			t.Errorf("expected=%q actual=%q", expected, actual)
		}
	}
}
