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
	"bytes"
	"encoding/json"
	"strings"
)

// Customer is the guest record carried in a ready marker file.
// Marker files are written by more than one booking system, so both the
// German and the English field names are accepted.
type Customer struct {
	Number    int
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Foto      bool
	Video     bool
}

type markerRecord struct {
	KundeID        *int   `json:"kunde_id"`
	CustomerNumber *int   `json:"customer_number"`
	Email          string `json:"email"`
	Vorname        string `json:"vorname"`
	FirstName      string `json:"first_name"`
	Nachname       string `json:"nachname"`
	LastName       string `json:"last_name"`
	Telefon        string `json:"telefon"`
	Phone          string `json:"phone"`
	Foto           bool   `json:"foto"`
	Video          bool   `json:"video"`
}

// Parse decodes marker file contents into a Customer.
// Empty (or whitespace-only) contents are not an error; they yield a nil Customer.
func Parse(data []byte) (*Customer, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var record markerRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}

	c := &Customer{
		Email:     record.Email,
		FirstName: firstOf(record.Vorname, record.FirstName),
		LastName:  firstOf(record.Nachname, record.LastName),
		Phone:     firstOf(record.Telefon, record.Phone),
		Foto:      record.Foto,
		Video:     record.Video,
	}
	if record.KundeID != nil {
		c.Number = *record.KundeID
	} else if record.CustomerNumber != nil {
		c.Number = *record.CustomerNumber
	}
	return c, nil
}

func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
