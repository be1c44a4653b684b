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

package archiver

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aeromedia/marker"
)

func makeJobDir(t *testing.T, root, name string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("photo"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, marker.Claimed), nil, 0o644))
	return dir
}

func TestArchiveSuccess(t *testing.T) {
	watch := t.TempDir()
	archive := t.TempDir()
	dir := makeJobDir(t, watch, "20250101_job")

	a := &Archiver{Root: archive}
	dest, err := a.Archive(dir, BucketSuccess)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(archive, BucketSuccess, "20250101_job"), dest)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "source must be gone")

	data, err := os.ReadFile(filepath.Join(dest, "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "photo", string(data))

	_, err = os.Stat(filepath.Join(dest, marker.Claimed))
	assert.True(t, os.IsNotExist(err), "claim marker must be stripped")
}

func TestArchiveCollision(t *testing.T) {
	watch := t.TempDir()
	archive := t.TempDir()

	first := makeJobDir(t, watch, "job")
	a := &Archiver{Root: archive}
	dest1, err := a.Archive(first, BucketFailure)
	require.NoError(t, err)

	second := makeJobDir(t, watch, "job")
	dest2, err := a.Archive(second, BucketFailure)
	require.NoError(t, err)

	assert.NotEqual(t, dest1, dest2)
	assert.True(t, strings.HasPrefix(filepath.Base(dest2), "job_"))
	for _, d := range []string{dest1, dest2} {
		_, err := os.Stat(filepath.Join(d, "a.jpg"))
		assert.NoError(t, err)
	}
}

func TestArchiveDisabled(t *testing.T) {
	watch := t.TempDir()
	dir := makeJobDir(t, watch, "job")

	a := &Archiver{}
	dest, err := a.Archive(dir, BucketSuccess)
	require.NoError(t, err)
	assert.Empty(t, dest)

	_, err = os.Stat(dir)
	assert.NoError(t, err, "directory must stay in place when archiving is off")
}

func TestWriteReceipt(t *testing.T) {
	dir := t.TempDir()
	WriteReceipt(dir, Receipt{
		OrderID:   "order-1",
		ShareLink: "https://share.example/o1",
		Outcome:   BucketSuccess,
		Files:     3,
		Bytes:     1234,
	})

	data, err := os.ReadFile(filepath.Join(dir, "_upload_info.json"))
	require.NoError(t, err)

	var receipt Receipt
	require.NoError(t, json.Unmarshal(data, &receipt))
	assert.Equal(t, "order-1", receipt.OrderID)
	assert.Equal(t, int64(1234), receipt.Bytes)
	assert.Equal(t, BucketSuccess, receipt.Outcome)
}
