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

package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/term"

	"aeromedia/archiver"
	"aeromedia/config"
	"aeromedia/customer"
	"aeromedia/ledger"
	"aeromedia/marker"
	"aeromedia/metrics"
	"aeromedia/notify"
	"aeromedia/progress"
	"aeromedia/transport"
	"aeromedia/transport/api"
	"aeromedia/transport/chunked"
	"aeromedia/transport/directblob"
	"aeromedia/transport/simple"
	"aeromedia/watcher"
	"aeromedia/worker"
	"aeromedia/workqueue"
)

func setupLogger() func() {
	var logger *zap.Logger
	var err error
	if term.IsTerminal(int(os.Stdin.Fd())) {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)

	return func() {
		_ = logger.Sync()
	}
}

func setupInterruptContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		select {
		case sig := <-c:
			zap.S().Infow("shutting_down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	onExit := func() {
		signal.Stop(c)
		cancel()
	}
	return ctx, onExit
}

var (
	configFile = kingpin.Flag("config", "Location of the YAML config file.").String()

	metricsListenAddress = kingpin.Flag("web.listen-address", "Address on which to expose metrics.").String()
	metricsPath          = kingpin.Flag("web.telemetry-path", "Path under which to expose metrics.").Default("/metrics").String()

	watchPath    = kingpin.Flag("watch-path", "Directory to scan for finished jobs.").String()
	scanInterval = kingpin.Flag("scan-interval", "Pause between scans.").Duration()
	archivePath  = kingpin.Flag("archive-path", "Directory that receives processed jobs.").String()
	transportKey = kingpin.Flag("transport", "Upload transport. [simple, chunked or directblob]").String()
	ledgerFile   = kingpin.Flag("ledger-file", "Location of the local job history database.").String()

	_ = kingpin.Command("run", "Watch the folder and upload jobs until interrupted.")

	_ = kingpin.Command("scan", "Claim and upload everything currently ready, then exit.")

	uploadCmd    = kingpin.Command("upload", "Upload a single directory, then exit.")
	uploadCmdDir = uploadCmd.Arg("directory", "Directory to upload.").Required().ExistingDir()

	_ = kingpin.Command("status", "Check API connectivity, then exit.")

	historyCmd      = kingpin.Command("history", "Show recently processed jobs.")
	historyCmdLimit = historyCmd.Flag("limit", "Maximum number of entries.").Default("20").Int()
)

func parseOptions() (string, *config.Config) {
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate)
	cmd := kingpin.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		kingpin.Fatalf("%s", err)
	}
	if *watchPath != "" {
		cfg.WatchPath = *watchPath
	}
	if *scanInterval > 0 {
		cfg.ScanIntervalSeconds = int(*scanInterval / time.Second)
	}
	if *archivePath != "" {
		cfg.ArchivePath = *archivePath
	}
	if *transportKey != "" {
		cfg.Transport = *transportKey
	}
	if *ledgerFile != "" {
		cfg.LedgerPath = *ledgerFile
	}
	if err := cfg.Validate(); err != nil {
		kingpin.Fatalf("%s", err)
	}
	return cmd, cfg
}

func buildTransport(cfg *config.Config, reporter *progress.Reporter) transport.Transport {
	client := api.New(cfg.API.URL, cfg.API.Token)
	switch cfg.Transport {
	case config.TransportChunked:
		return chunked.New(client, reporter)
	case config.TransportDirectBlob:
		return directblob.New(client, reporter)
	default:
		return simple.New(client, reporter)
	}
}

func buildWorker(cfg *config.Config, queue *workqueue.Queue, reporter *progress.Reporter, lgr *zap.SugaredLogger) (*worker.Worker, func()) {
	remote := buildTransport(cfg, reporter)

	var jobLedger *ledger.Ledger
	if cfg.LedgerPath != "" {
		var err error
		jobLedger, err = ledger.Open(cfg.LedgerPath, 0o644)
		if err != nil {
			lgr.Fatalw("ledger_open_error", "path", cfg.LedgerPath, "err", err)
		}
	}

	w := &worker.Worker{
		Queue:     queue,
		Transport: transport.NewHolder(remote),
		Archiver:  &archiver.Archiver{Root: cfg.ArchivePath},
		Notifier: &notify.Combined{
			Email: notify.NewEmailSender(cfg.SMTP),
			SMS:   notify.NewSMSSender(cfg.SMS),
		},
		Shortener: notify.NewShortener(cfg.Shortener),
		Ledger:    jobLedger,
		Reporter:  reporter,
	}
	cleanup := func() {
		if jobLedger != nil {
			if err := jobLedger.Close(); err != nil {
				lgr.Errorw("ledger_close_error", "err", err)
			}
		}
	}
	return w, cleanup
}

// drainReporter keeps the progress channels moving in headless operation and
// surfaces them as debug logs.
func drainReporter(reporter *progress.Reporter, stopCh <-chan struct{}) {
	lgr := zap.S()
	for {
		select {
		case <-stopCh:
			return
		case s := <-reporter.Dir():
			lgr.Debugw("directory_progress",
				"percent", s.Percent,
				"done", humanize.Bytes(uint64(s.Done)),
				"total", humanize.Bytes(uint64(s.Total)))
		case s := <-reporter.File():
			lgr.Debugw("file_progress", "percent", s.Percent)
		case msg := <-reporter.StatusC():
			lgr.Infow("status", "msg", msg)
		case running := <-reporter.Running():
			lgr.Debugw("running", "value", running)
		}
	}
}

func runPipeline(ctx context.Context, cfg *config.Config, oneShot bool) error {
	lgr := zap.S()

	reporter := progress.NewReporter()
	queue := workqueue.New()
	w, cleanup := buildWorker(cfg, queue, reporter, lgr)
	defer cleanup()

	if err := w.Transport.Current().Connect(ctx); err != nil {
		return err
	}
	defer w.Transport.Current().Disconnect()

	stopDrain := make(chan struct{})
	defer close(stopDrain)
	go drainReporter(reporter, stopDrain)

	scanner := watcher.New(queue, cfg.WatchPath, cfg.ScanInterval())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		w.Run(ctx)
	}()

	if oneShot {
		scanner.ScanOnce()
		w.Stop()
		<-workerDone
		return nil
	}

	go scanner.Run()
	lgr.Infow("pipeline_started",
		"watch_path", cfg.WatchPath,
		"interval", cfg.ScanInterval(),
		"transport", cfg.Transport)

	<-ctx.Done()
	scanner.Stop()
	<-scanner.Done()
	w.Stop()

	// Give in-flight jobs a bounded window to finish.
	select {
	case <-workerDone:
	case <-time.After(2 * time.Minute):
		lgr.Warnw("shutdown_timeout_jobs_abandoned", "queued", queue.Len())
	}
	return nil
}

func uploadSingle(ctx context.Context, cfg *config.Config, dir string) error {
	lgr := zap.S()

	var cust *customer.Customer
	if marker.IsReady(dir) {
		var err error
		cust, err = marker.ReadCustomer(dir)
		if err != nil {
			lgr.Warnw("customer_file_invalid", "dir", dir, "err", err)
		}
		if err := marker.Claim(dir); err != nil {
			return err
		}
	}

	reporter := progress.NewReporter()
	queue := workqueue.New()
	w, cleanup := buildWorker(cfg, queue, reporter, lgr)
	defer cleanup()

	if err := w.Transport.Current().Connect(ctx); err != nil {
		return err
	}
	defer w.Transport.Current().Disconnect()

	stopDrain := make(chan struct{})
	defer close(stopDrain)
	go drainReporter(reporter, stopDrain)

	queue.Put(workqueue.NewJob(dir, cust))
	w.Stop()
	w.Run(ctx)
	return nil
}

func main() {
	cmd, cfg := parseOptions()

	sync := setupLogger()
	defer sync()
	lgr := zap.S()

	ctx, onExit := setupInterruptContext()
	defer onExit()

	metrics.SetupPrometheus(metricsListenAddress, metricsPath)

	switch cmd {
	case "run":
		err := runPipeline(ctx, cfg, false)
		if err == context.Canceled {
			return
		}
		if err != nil {
			lgr.Fatalw("run_error", "err", err)
		}
	case "scan":
		err := runPipeline(ctx, cfg, true)
		if err == context.Canceled {
			return
		}
		if err != nil {
			lgr.Fatalw("scan_error", "err", err)
		}
	case "upload":
		err := uploadSingle(ctx, cfg, *uploadCmdDir)
		if err == context.Canceled {
			return
		}
		if err != nil {
			lgr.Fatalw("upload_error", "err", err)
		}
	case "status":
		client := api.New(cfg.API.URL, cfg.API.Token)
		if err := client.Connect(ctx); err != nil {
			lgr.Fatalw("status_error", "err", err)
		}
		lgr.Infow("status_ok", "status", client.ConnectionStatus())
	case "history":
		if cfg.LedgerPath == "" {
			lgr.Fatalw("history_error", "err", "no ledger file configured")
		}
		jobLedger, err := ledger.Open(cfg.LedgerPath, 0o644)
		if err != nil {
			lgr.Fatalw("history_error", "err", err)
		}
		defer func() {
			_ = jobLedger.Close()
		}()
		entries, err := jobLedger.Recent(*historyCmdLimit)
		if err != nil {
			lgr.Fatalw("history_error", "err", err)
		}
		for _, entry := range entries {
			lgr.Infow("job",
				"time", entry.Time.String(),
				"outcome", entry.Outcome,
				"dir", entry.Directory,
				"order_id", entry.OrderID,
				"files", entry.Files,
				"bytes", humanize.Bytes(uint64(entry.Bytes)),
				"link", entry.ShareLink,
				"err", entry.Error)
		}
	default:
		lgr.Fatalw("unhandled_command", "cmd", cmd)
	}
}
