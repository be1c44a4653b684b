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

package transport

import (
	"io/fs"
	"path/filepath"

	"aeromedia/customer"
	"aeromedia/marker"

	"github.com/gabriel-vasile/mimetype"
)

const fallbackMIME = "application/octet-stream"

// FileEntry is one file of a directory upload.
type FileEntry struct {
	// Name is the path relative to the uploaded directory, forward slashes.
	Name string
	// Path is the absolute local path.
	Path string
	Size int64
	MIME string
}

// CollectFiles walks dir and returns the files to upload plus their total
// size. Marker files are excluded; they describe processing state and are
// not part of the media set.
func CollectFiles(dir string) ([]FileEntry, int64, error) {
	var entries []FileEntry
	var total int64

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if marker.IsMarker(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		entries = append(entries, FileEntry{
			Name: filepath.ToSlash(rel),
			Path: path,
			Size: info.Size(),
			MIME: detectMIME(path),
		})
		total += info.Size()
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func detectMIME(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return fallbackMIME
	}
	return mt.String()
}

// ManifestEntry is the wire shape of one file in a session-init request.
type ManifestEntry struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

func Manifest(files []FileEntry) []ManifestEntry {
	out := make([]ManifestEntry, len(files))
	for i, f := range files {
		out[i] = ManifestEntry{Name: f.Name, Size: f.Size, Type: f.MIME}
	}
	return out
}

// CustomerMeta is the optional customer metadata attached to session-init
// requests.
type CustomerMeta struct {
	Number    int    `json:"customer_number,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Foto      bool   `json:"foto,omitempty"`
	Video     bool   `json:"video,omitempty"`
}

func MetaFor(c *customer.Customer) *CustomerMeta {
	if c == nil {
		return nil
	}
	return &CustomerMeta{
		Number:    c.Number,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		Foto:      c.Foto,
		Video:     c.Video,
	}
}
