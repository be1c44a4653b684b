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

// Package progress is the event surface consumed by whatever front end is
// attached to the pipeline. The pipeline publishes per-file and per-directory
// byte progress, a free-text status line, and a job-running indicator over
// typed channels. Publishing never blocks: when nobody is listening, or a
// listener falls behind, the oldest pending event is dropped so the newest
// one always lands.
package progress

import "sync"

// Snapshot is one progress observation. The reset tuple (0,0,0) is published
// before a job starts and after it ends.
type Snapshot struct {
	Percent int
	Done    int64
	Total   int64
}

const channelDepth = 64

type Reporter struct {
	fileCh    chan Snapshot
	dirCh     chan Snapshot
	statusCh  chan string
	runningCh chan bool
}

func NewReporter() *Reporter {
	return &Reporter{
		fileCh:    make(chan Snapshot, channelDepth),
		dirCh:     make(chan Snapshot, channelDepth),
		statusCh:  make(chan string, channelDepth),
		runningCh: make(chan bool, channelDepth),
	}
}

func (r *Reporter) File() <-chan Snapshot  { return r.fileCh }
func (r *Reporter) Dir() <-chan Snapshot   { return r.dirCh }
func (r *Reporter) StatusC() <-chan string { return r.statusCh }
func (r *Reporter) Running() <-chan bool   { return r.runningCh }

func (r *Reporter) PublishFile(s Snapshot) {
	if r == nil {
		return
	}
	offer(r.fileCh, s)
}

func (r *Reporter) PublishDir(s Snapshot) {
	if r == nil {
		return
	}
	offer(r.dirCh, s)
}

func (r *Reporter) PublishStatus(msg string) {
	if r == nil {
		return
	}
	offer(r.statusCh, msg)
}

func (r *Reporter) SetRunning(v bool) {
	if r == nil {
		return
	}
	offer(r.runningCh, v)
}

// Reset publishes the zero tuple on both progress channels.
func (r *Reporter) Reset() {
	r.PublishFile(Snapshot{})
	r.PublishDir(Snapshot{})
}

func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Tracker does the byte accounting for one job. All transports report through
// it; the counter update and both progress emissions happen inside one
// critical section so percentages and byte counts never desynchronize under
// concurrent file completions.
type Tracker struct {
	reporter *Reporter

	mu       sync.Mutex
	total    int64
	done     int64
	fileSize int64
	fileDone int64
}

func NewTracker(r *Reporter, totalBytes int64) *Tracker {
	return &Tracker{
		reporter: r,
		total:    totalBytes,
	}
}

// StartFile resets the file-level accounting for the next file.
func (t *Tracker) StartFile(size int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fileSize = size
	t.fileDone = 0
	t.reporter.PublishFile(Snapshot{Percent: 0, Done: 0, Total: size})
	t.publishDirLocked()
}

// Advance records n more transferred bytes for the current file and publishes
// both progress levels.
func (t *Tracker) Advance(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fileDone += n
	t.done += n
	t.reporter.PublishFile(Snapshot{
		Percent: percent(t.fileDone, t.fileSize),
		Done:    t.fileDone,
		Total:   t.fileSize,
	})
	t.publishDirLocked()
}

// CompleteFile marks an entire file as transferred in one step. Used by
// transports without intra-file granularity.
func (t *Tracker) CompleteFile(size int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done += size
	t.reporter.PublishFile(Snapshot{Percent: 100, Done: size, Total: size})
	t.publishDirLocked()
}

// Done reports the bytes accounted for so far.
func (t *Tracker) Done() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

func (t *Tracker) publishDirLocked() {
	t.reporter.PublishDir(Snapshot{
		Percent: percent(t.done, t.total),
		Done:    t.done,
		Total:   t.total,
	})
}

func percent(done, total int64) int {
	if total <= 0 {
		return 100
	}
	p := int(done * 100 / total)
	if p > 100 {
		p = 100
	}
	return p
}
