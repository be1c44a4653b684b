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

// Package ledger records every finished job in a local bolt database so job
// history survives restarts and is queryable without the remote API.
package ledger

import (
	"encoding/json"
	"os"

	"go.etcd.io/bbolt"

	"aeromedia/unixtime"
)

var jobsBucket = []byte("jobs")

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

type Entry struct {
	JobID     string           `json:"job_id"`
	Directory string           `json:"directory"`
	Outcome   string           `json:"outcome"`
	OrderID   string           `json:"order_id,omitempty"`
	ShareLink string           `json:"share_link,omitempty"`
	Bytes     int64            `json:"bytes"`
	Files     int              `json:"files"`
	Error     string           `json:"error,omitempty"`
	Time      unixtime.Seconds `json:"time"`
}

type Ledger struct {
	db *bbolt.DB
}

func Open(path string, mode os.FileMode) (*Ledger, error) {
	db, err := bbolt.Open(path, mode, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(jobsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record persists entry. Entries without a timestamp are stamped now; the
// zero-padded timestamp prefix keeps bolt's key order chronological.
func (l *Ledger) Record(entry Entry) error {
	if entry.Time == 0 {
		entry.Time = unixtime.Now()
	}
	key := []byte(entry.Time.Decimal() + "_" + entry.JobID)
	value, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return l.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(jobsBucket).Put(key, value)
	})
}

// Recent returns up to n entries, newest first.
func (l *Ledger) Recent(n int) ([]Entry, error) {
	var entries []Entry
	err := l.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(jobsBucket).Cursor()
		for k, v := c.Last(); k != nil && len(entries) < n; k, v = c.Prev() {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	return entries, err
}
