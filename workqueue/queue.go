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

// Package workqueue connects the folder watcher to the upload worker.
// The queue is an unbounded FIFO; insertion order is processing order.
// Callers are responsible for not enqueueing the same directory twice —
// the marker claim protocol guarantees that upstream.
package workqueue

import (
	"path/filepath"
	"sync"

	"aeromedia/customer"

	"github.com/google/uuid"
)

// Job is one claimed directory awaiting upload.
type Job struct {
	ID       uuid.UUID
	Dir      string
	Customer *customer.Customer
}

func NewJob(dir string, cust *customer.Customer) Job {
	return Job{
		ID:       uuid.New(),
		Dir:      dir,
		Customer: cust,
	}
}

// Name is the directory base name, used for remote naming and notifications.
func (j Job) Name() string {
	return filepath.Base(j.Dir)
}

type item struct {
	job  Job
	stop bool
}

type Queue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []item
}

func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *Queue) Put(job Job) {
	q.mu.Lock()
	q.items = append(q.items, item{job: job})
	q.mu.Unlock()
	q.cond.Signal()
}

// Stop enqueues a sentinel that releases one blocked Take with ok=false.
// Jobs already in the queue ahead of the sentinel are still delivered first.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.items = append(q.items, item{stop: true})
	q.mu.Unlock()
	q.cond.Signal()
}

// Take blocks until a job or a stop sentinel is available.
// ok is false when the consumer should exit; the returned Job is then zero.
func (q *Queue) Take() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		q.cond.Wait()
	}
	head := q.items[0]
	q.items = q.items[1:]
	if head.stop {
		return Job{}, false
	}
	return head.job, true
}

// Len reports the number of queued entries, sentinels included.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
