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

// Package archiver moves processed job directories out of the watch folder
// into per-outcome buckets so they are never picked up again.
package archiver

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/retailnext/writefile"
	"go.uber.org/zap"

	"aeromedia/marker"
	"aeromedia/unixtime"
)

const (
	BucketSuccess = "erfolg"
	BucketFailure = "fehler"

	receiptName = "_upload_info.json"
)

type Archiver struct {
	// Root is the archive base directory. When empty, archiving is disabled
	// and processed directories stay where they are.
	Root string
}

// Archive moves dir into the named bucket under Root and strips the claim
// marker from the result. It returns the final location of the directory.
func (a *Archiver) Archive(dir, bucket string) (string, error) {
	lgr := zap.S()

	if a.Root == "" {
		lgr.Warnw("archive_disabled", "dir", dir)
		return "", nil
	}

	bucketDir := filepath.Join(a.Root, bucket)
	if err := os.MkdirAll(bucketDir, 0o755); err != nil {
		return "", err
	}

	dest := filepath.Join(bucketDir, filepath.Base(dir))
	if _, err := os.Stat(dest); err == nil {
		// A directory of the same name was archived before. Suffix with the
		// current unix time instead of clobbering it; a counter breaks ties
		// within the same second.
		stamped := dest + "_" + unixtime.Now().Decimal()
		dest = stamped
		for n := 2; ; n++ {
			if _, err := os.Stat(dest); os.IsNotExist(err) {
				break
			}
			dest = stamped + "_" + strconv.Itoa(n)
		}
	}

	if err := moveDir(dir, dest); err != nil {
		return "", err
	}
	if err := marker.RemoveClaimed(dest); err != nil && !os.IsNotExist(err) {
		lgr.Warnw("archive_marker_cleanup_failed", "dir", dest, "err", err)
	}
	lgr.Infow("archived", "dir", dir, "dest", dest, "bucket", bucket)
	return dest, nil
}

// moveDir prefers a rename and falls back to copy-and-remove when the
// archive lives on a different filesystem.
func moveDir(src, dest string) error {
	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}
	if err := copyTree(src, dest); err != nil {
		return err
	}
	return os.RemoveAll(src)
}

func copyTree(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// Receipt summarizes a finished upload; it is written next to the archived
// files so an operator can trace any directory back to its order.
type Receipt struct {
	OrderID    string           `json:"order_id,omitempty"`
	ShareLink  string           `json:"share_link,omitempty"`
	Outcome    string           `json:"outcome"`
	Files      int              `json:"files"`
	Bytes      int64            `json:"bytes"`
	Error      string           `json:"error,omitempty"`
	FinishedAt unixtime.Seconds `json:"finished_at"`
}

// WriteReceipt atomically places the receipt in dir. Failing to write a
// receipt never fails the job; the caller only gets a log line.
func WriteReceipt(dir string, receipt Receipt) {
	lgr := zap.S()

	if dir == "" {
		return
	}
	target := writefile.Config{
		Directory:     dir,
		DirectoryMode: 0o755,
		FileMode:      0o644,
	}
	err := target.WriteFile(receiptName, func(file *os.File) error {
		enc := json.NewEncoder(file)
		enc.SetIndent("", "  ")
		return enc.Encode(receipt)
	})
	if err != nil {
		lgr.Warnw("receipt_write_failed", "dir", dir, "err", err)
	}
}
