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

package unixtime

import (
	"fmt"
	"time"
)

func Now() Seconds {
	return Seconds(time.Now().Unix())
}

type Seconds int64

// Decimal renders the value zero-padded so encoded keys sort chronologically.
func (t Seconds) Decimal() string {
	return fmt.Sprintf("%020d", t)
}

func (t Seconds) String() string {
	return time.Unix(int64(t), 0).UTC().Format(time.RFC3339)
}

func (t *Seconds) ParseString(value string) error {
	gotime, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return err
	}
	*t = Seconds(gotime.Unix())
	return nil
}

func (t Seconds) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Seconds) UnmarshalText(text []byte) error {
	return t.ParseString(string(text))
}
