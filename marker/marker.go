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

// Package marker implements the filesystem contract that tells the pipeline
// when a media directory is complete. The camera workstation drops a
// `_fertig.txt` file into a directory when it is done writing; claiming that
// directory renames the file to `_in_verarbeitung.txt`. The rename is the
// atomic claim: once it succeeds, no other scanner can claim the directory.
package marker

import (
	"os"
	"path/filepath"

	"aeromedia/customer"
)

const (
	Ready   = "_fertig.txt"
	Claimed = "_in_verarbeitung.txt"
)

// IsMarker reports whether name is one of the two marker file names.
// Marker files are never part of an upload.
func IsMarker(name string) bool {
	return name == Ready || name == Claimed
}

// IsReady reports whether dir contains a ready marker.
func IsReady(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, Ready))
	return err == nil && info.Mode().IsRegular()
}

// ReadCustomer parses the ready marker's contents as a customer record.
// An empty marker yields (nil, nil).
func ReadCustomer(dir string) (*customer.Customer, error) {
	data, err := os.ReadFile(filepath.Join(dir, Ready))
	if err != nil {
		return nil, err
	}
	return customer.Parse(data)
}

// Claim renames the ready marker to the claimed marker.
// A failed rename means another process won the race (or the marker vanished);
// callers retry on the next scan cycle.
func Claim(dir string) error {
	return os.Rename(filepath.Join(dir, Ready), filepath.Join(dir, Claimed))
}

// RemoveClaimed deletes a leftover claimed marker, if any.
func RemoveClaimed(dir string) error {
	err := os.Remove(filepath.Join(dir, Claimed))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
