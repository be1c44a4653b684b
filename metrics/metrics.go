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

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type pipeline struct {
	ClaimedDirectories prometheus.Counter
	JobsCompleted      prometheus.Counter
	JobsFailed         prometheus.Counter
	JobInProgress      prometheus.Gauge
	LastJobAt          prometheus.Gauge
	LastJobOk          prometheus.Gauge
	UploadedBytes      prometheus.Counter
	UploadedFiles      prometheus.Counter
	NotifyErrors       prometheus.Counter
}

var Pipeline = pipeline{
	ClaimedDirectories: prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "aeromedia",
		Subsystem: "watcher",
		Name:      "claimed_directories_total",
		Help:      "Number of completed directories claimed and enqueued.",
	}),
	JobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "aeromedia",
		Subsystem: "worker",
		Name:      "jobs_completed_total",
		Help:      "Number of jobs uploaded and archived successfully.",
	}),
	JobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "aeromedia",
		Subsystem: "worker",
		Name:      "jobs_failed_total",
		Help:      "Number of jobs that ended in the failure bucket.",
	}),
	JobInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "aeromedia",
		Subsystem: "worker",
		Name:      "job_in_progress",
		Help:      "1 if a job is currently being processed.",
	}),
	LastJobAt: prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "aeromedia",
		Subsystem: "worker",
		Name:      "last_job_at_seconds",
		Help:      "Time the last job finished.",
	}),
	LastJobOk: prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "aeromedia",
		Subsystem: "worker",
		Name:      "last_job_ok",
		Help:      "1 if the last job completed successfully.",
	}),
	UploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "aeromedia",
		Subsystem: "transport",
		Name:      "uploaded_bytes_total",
		Help:      "Total bytes uploaded to the remote backend.",
	}),
	UploadedFiles: prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "aeromedia",
		Subsystem: "transport",
		Name:      "uploaded_files_total",
		Help:      "Number of files uploaded to the remote backend.",
	}),
	NotifyErrors: prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "aeromedia",
		Subsystem: "notify",
		Name:      "errors_total",
		Help:      "Number of failed notification attempts.",
	}),
}

func SetupPrometheus(metricsListenAddress, metricsPath *string) {
	if metricsListenAddress == nil || *metricsListenAddress == "" {
		return
	}
	go func() {
		http.Handle(*metricsPath, promhttp.Handler())
		err := http.ListenAndServe(*metricsListenAddress, nil)
		zap.S().Fatalw("metrics_listen_error", "err", err)
	}()
}

func init() {
	prometheus.MustRegister(Pipeline.ClaimedDirectories)
	prometheus.MustRegister(Pipeline.JobsCompleted)
	prometheus.MustRegister(Pipeline.JobsFailed)
	prometheus.MustRegister(Pipeline.JobInProgress)
	prometheus.MustRegister(Pipeline.LastJobAt)
	prometheus.MustRegister(Pipeline.LastJobOk)
	prometheus.MustRegister(Pipeline.UploadedBytes)
	prometheus.MustRegister(Pipeline.UploadedFiles)
	prometheus.MustRegister(Pipeline.NotifyErrors)
}
