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

package ledger

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aeromedia/unixtime"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"), 0o644)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, l.Close())
	})
	return l
}

func TestRecordAndRecent(t *testing.T) {
	l := openTestLedger(t)

	base := unixtime.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Record(Entry{
			JobID:     fmt.Sprintf("job-%d", i),
			Directory: fmt.Sprintf("/watch/dir-%d", i),
			Outcome:   OutcomeSuccess,
			OrderID:   fmt.Sprintf("order-%d", i),
			Bytes:     int64(i * 100),
			Files:     i,
			Time:      base + unixtime.Seconds(i),
		}))
	}

	entries, err := l.Recent(3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "job-4", entries[0].JobID, "newest first")
	assert.Equal(t, "job-3", entries[1].JobID)
	assert.Equal(t, "job-2", entries[2].JobID)

	all, err := l.Recent(100)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestRecordStampsTime(t *testing.T) {
	l := openTestLedger(t)
	require.NoError(t, l.Record(Entry{JobID: "j1", Outcome: OutcomeFailure, Error: "upload: HTTP 500"}))

	entries, err := l.Recent(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotZero(t, entries[0].Time)
	assert.Equal(t, "upload: HTTP 500", entries[0].Error)
}

func TestRecentEmpty(t *testing.T) {
	l := openTestLedger(t)
	entries, err := l.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
