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

// Package watcher scans the watch folder for directories with a ready
// marker, claims them, and hands them to the work queue. The claim rename
// makes each directory enter the queue exactly once even with several
// scanners racing on a shared folder.
package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"aeromedia/marker"
	"aeromedia/metrics"
	"aeromedia/workqueue"
)

// missingPathPause is the longest pause between retries while the watch
// folder does not exist, e.g. an unmounted network share.
const missingPathPause = 60 * time.Second

type Watcher struct {
	queue *workqueue.Queue

	mu       sync.Mutex
	path     string
	interval time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	wakeCh   chan struct{}
	doneCh   chan struct{}
}

func New(queue *workqueue.Queue, path string, interval time.Duration) *Watcher {
	return &Watcher{
		queue:    queue,
		path:     path,
		interval: interval,
		stopCh:   make(chan struct{}),
		wakeCh:   make(chan struct{}, 1),
		doneCh:   make(chan struct{}),
	}
}

// SetPath changes the watch folder for subsequent scans.
func (w *Watcher) SetPath(path string) {
	w.mu.Lock()
	w.path = path
	w.mu.Unlock()
	w.Wake()
}

// SetInterval changes the pause between scans.
func (w *Watcher) SetInterval(interval time.Duration) {
	w.mu.Lock()
	w.interval = interval
	w.mu.Unlock()
	w.Wake()
}

// Wake triggers an immediate scan if one is not already pending.
func (w *Watcher) Wake() {
	select {
	case w.wakeCh <- struct{}{}:
	default:
	}
}

func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Done is closed once the scan loop has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

func (w *Watcher) snapshotConfig() (string, time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path, w.interval
}

// Run scans until Stop is called. It never returns an error; problems with
// individual directories are logged and skipped.
func (w *Watcher) Run() {
	lgr := zap.S()
	defer close(w.doneCh)

	for {
		path, interval := w.snapshotConfig()

		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			lgr.Warnw("watch_path_unavailable", "path", path, "err", err)
			pause := interval
			if pause < missingPathPause {
				pause = missingPathPause
			}
			if !w.sleep(pause) {
				return
			}
			continue
		}

		w.scan(path)

		if !w.sleep(interval) {
			return
		}
	}
}

// sleep pauses for up to d and reports whether the loop should continue.
// A Wake cuts the pause short.
func (w *Watcher) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-w.stopCh:
		return false
	case <-w.wakeCh:
		return true
	case <-timer.C:
		return true
	}
}

func (w *Watcher) scan(path string) {
	lgr := zap.S()

	entries, err := os.ReadDir(path)
	if err != nil {
		lgr.Warnw("scan_failed", "path", path, "err", err)
		return
	}
	for _, entry := range entries {
		select {
		case <-w.stopCh:
			return
		default:
		}
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(path, entry.Name())
		if !marker.IsReady(dir) {
			continue
		}
		w.claim(dir)
	}
}

// claim reads the customer file, atomically takes ownership of the
// directory, and enqueues the job. Losing the claim race is not an error.
func (w *Watcher) claim(dir string) {
	lgr := zap.S()

	cust, err := marker.ReadCustomer(dir)
	if err != nil {
		// A broken customer file must not strand the directory; the job
		// proceeds without customer data and the operator gets notified
		// via the fallback address.
		lgr.Warnw("customer_file_invalid", "dir", dir, "err", err)
		cust = nil
	}

	if err := marker.Claim(dir); err != nil {
		if os.IsNotExist(err) {
			lgr.Debugw("claim_lost", "dir", dir)
			return
		}
		lgr.Warnw("claim_failed", "dir", dir, "err", err)
		return
	}

	job := workqueue.NewJob(dir, cust)
	w.queue.Put(job)
	metrics.Pipeline.ClaimedDirectories.Inc()
	lgr.Infow("directory_claimed", "dir", dir, "job_id", job.ID)
}

// ScanOnce performs a single scan of path, claiming and enqueuing every
// ready directory. Used by the one-shot scan command.
func (w *Watcher) ScanOnce() {
	path, _ := w.snapshotConfig()
	w.scan(path)
}
