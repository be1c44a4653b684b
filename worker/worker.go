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

// Package worker drains the job queue one job at a time: upload, archive,
// notify, record. Jobs are strictly sequential so a single slow upload can
// never starve the uplink for another.
package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"aeromedia/archiver"
	"aeromedia/ledger"
	"aeromedia/metrics"
	"aeromedia/notify"
	"aeromedia/progress"
	"aeromedia/transport"
	"aeromedia/unixtime"
	"aeromedia/workqueue"
)

type Worker struct {
	Queue     *workqueue.Queue
	Transport *transport.Holder
	Archiver  *archiver.Archiver
	Notifier  notify.Notifier
	Shortener *notify.Shortener
	Ledger    *ledger.Ledger
	Reporter  *progress.Reporter
}

// Run processes jobs until the queue delivers its stop sentinel. Each job
// runs to a terminal outcome; only the sentinel ends the loop.
func (w *Worker) Run(ctx context.Context) {
	lgr := zap.S()
	for {
		w.Reporter.PublishStatus("warte auf nächsten auftrag...")
		job, ok := w.Queue.Take()
		if !ok {
			lgr.Infow("worker_stopped")
			return
		}
		w.process(ctx, job)
	}
}

// Stop makes Run return once all queued jobs are processed.
func (w *Worker) Stop() {
	w.Queue.Stop()
}

func (w *Worker) process(ctx context.Context, job workqueue.Job) {
	lgr := zap.S()

	// Uploads are not preemptible: a shutdown signal must not abort the job
	// that is already in flight. The interrupt context only gates the
	// dequeue loop; the job itself runs on a detached context.
	ctx = context.WithoutCancel(ctx)

	w.Reporter.SetRunning(true)
	w.Reporter.Reset()
	w.Reporter.PublishStatus(fmt.Sprintf("starte upload: %s", job.Name()))
	metrics.Pipeline.JobInProgress.Set(1)
	defer func() {
		metrics.Pipeline.JobInProgress.Set(0)
		w.Reporter.SetRunning(false)
		w.Reporter.Reset()
	}()

	files, totalBytes, err := transport.CollectFiles(job.Dir)
	if err != nil {
		w.fail(ctx, job, 0, 0, err)
		return
	}

	current := w.Transport.Current()
	if current == nil {
		w.fail(ctx, job, len(files), totalBytes, &UploadError{Directory: job.Dir, Err: transport.ErrNotConnected})
		return
	}

	remoteName := transport.Slug(job.Name())
	lgr.Infow("job_start", "job_id", job.ID, "dir", job.Dir, "remote_name", remoteName, "files", len(files))

	if err := current.UploadDirectory(ctx, job.Dir, remoteName, job.Customer); err != nil {
		w.fail(ctx, job, len(files), totalBytes, &UploadError{Directory: job.Dir, Err: err})
		return
	}
	w.succeed(ctx, job, current, len(files), totalBytes)
}

func (w *Worker) succeed(ctx context.Context, job workqueue.Job, current transport.Transport, files int, totalBytes int64) {
	lgr := zap.S()

	link, err := current.ShareableLink(ctx)
	if err != nil {
		// The upload itself is done; a missing link degrades the
		// notification but does not fail the job.
		lgr.Warnw("share_link_unavailable", "job_id", job.ID, "err", err)
		link = ""
	}
	if link != "" {
		link = w.Shortener.Shorten(ctx, link)
	}

	switch {
	case link == "":
		lgr.Warnw("success_notification_skipped", "job_id", job.ID, "reason", "no share link")
	case job.Customer == nil:
		lgr.Warnw("no_customer_data", "job_id", job.ID, "dir", job.Dir)
	default:
		if err := w.Notifier.SendSuccess(ctx, job.Name(), link, job.Customer); err != nil {
			lgr.Warnw("success_notification_failed", "job_id", job.ID, "err", err)
		}
	}

	dest, err := w.Archiver.Archive(job.Dir, archiver.BucketSuccess)
	if err != nil {
		archiveErr := &ArchiveError{Directory: job.Dir, Bucket: archiver.BucketSuccess, Err: err}
		lgr.Errorw("archive_failed", "job_id", job.ID, "err", archiveErr)
	}
	archiver.WriteReceipt(dest, archiver.Receipt{
		OrderID:    w.orderID(),
		ShareLink:  link,
		Outcome:    archiver.BucketSuccess,
		Files:      files,
		Bytes:      totalBytes,
		FinishedAt: unixtime.Now(),
	})

	metrics.Pipeline.JobsCompleted.Inc()
	metrics.Pipeline.UploadedBytes.Add(float64(totalBytes))
	metrics.Pipeline.UploadedFiles.Add(float64(files))
	metrics.Pipeline.LastJobAt.SetToCurrentTime()
	metrics.Pipeline.LastJobOk.Set(1)

	w.record(ledger.Entry{
		JobID:     job.ID.String(),
		Directory: job.Dir,
		Outcome:   ledger.OutcomeSuccess,
		OrderID:   w.orderID(),
		ShareLink: link,
		Bytes:     totalBytes,
		Files:     files,
	})
	w.Reporter.PublishStatus(fmt.Sprintf("fertig: %s", job.Name()))
	lgr.Infow("job_done", "job_id", job.ID, "dir", job.Dir, "link", link)
}

func (w *Worker) fail(ctx context.Context, job workqueue.Job, files int, totalBytes int64, jobErr error) {
	lgr := zap.S()
	lgr.Errorw("job_failed", "job_id", job.ID, "dir", job.Dir, "err", jobErr)
	w.Reporter.PublishStatus(fmt.Sprintf("fehler: %s", job.Name()))

	// Archive before mailing: the failure mail tells the operator the
	// directory was moved to the failure folder, so move it first.
	dest, err := w.Archiver.Archive(job.Dir, archiver.BucketFailure)
	if err != nil {
		archiveErr := &ArchiveError{Directory: job.Dir, Bucket: archiver.BucketFailure, Err: err}
		lgr.Errorw("archive_failed", "job_id", job.ID, "err", archiveErr)
	}
	archiver.WriteReceipt(dest, archiver.Receipt{
		Outcome:    archiver.BucketFailure,
		Files:      files,
		Bytes:      totalBytes,
		Error:      jobErr.Error(),
		FinishedAt: unixtime.Now(),
	})

	if err := w.Notifier.SendFailure(ctx, job.Name(), jobErr.Error()); err != nil {
		lgr.Warnw("failure_notification_failed", "job_id", job.ID, "err", err)
	}

	metrics.Pipeline.JobsFailed.Inc()
	metrics.Pipeline.LastJobAt.SetToCurrentTime()
	metrics.Pipeline.LastJobOk.Set(0)

	w.record(ledger.Entry{
		JobID:     job.ID.String(),
		Directory: job.Dir,
		Outcome:   ledger.OutcomeFailure,
		Bytes:     totalBytes,
		Files:     files,
		Error:     jobErr.Error(),
	})
}

func (w *Worker) record(entry ledger.Entry) {
	if w.Ledger == nil {
		return
	}
	if err := w.Ledger.Record(entry); err != nil {
		zap.S().Warnw("ledger_record_failed", "job_id", entry.JobID, "err", err)
	}
}

// orderID pulls the order issued by the last upload, when the transport
// exposes one.
func (w *Worker) orderID() string {
	type orderedTransport interface {
		OrderID() string
	}
	current := w.Transport.Current()
	if current == nil {
		return ""
	}
	if ot, ok := current.(orderedTransport); ok {
		return ot.OrderID()
	}
	return ""
}
