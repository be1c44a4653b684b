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

// Package directblob uploads files straight to blob storage via presigned
// URLs, keeping only the session bookkeeping on the API. Files move in
// parallel; the API is polled afterwards until the server has seen all
// registered blobs.
package directblob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"aeromedia/blake"
	"aeromedia/customer"
	"aeromedia/progress"
	"aeromedia/transport"
	"aeromedia/transport/api"
)

const (
	parallelUploads = 3
	blobTimeout     = 600 * time.Second
	pollInterval    = 2 * time.Second
	pollTimeout     = 5 * time.Minute
)

// RegistrationError marks a blob that reached storage but could not be
// registered with the API. The session is unusable afterwards even though
// the bytes were transferred.
type RegistrationError struct {
	File string
	Err  error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register %s: %v", e.File, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

type Transport struct {
	api      *api.Client
	reporter *progress.Reporter
	httpc    *http.Client
}

var _ transport.Transport = (*Transport)(nil)

func New(client *api.Client, reporter *progress.Reporter) *Transport {
	return &Transport{
		api:      client,
		reporter: reporter,
		httpc:    &http.Client{Timeout: blobTimeout},
	}
}

func (t *Transport) Connect(ctx context.Context) error { return t.api.Connect(ctx) }
func (t *Transport) Disconnect()                       { t.api.Disconnect() }
func (t *Transport) Status(ctx context.Context) string { return t.api.ConnectionStatus() }

func (t *Transport) ShareableLink(ctx context.Context) (string, error) {
	return t.api.ShareLink(ctx)
}

// OrderID reports the order issued by the most recent upload.
func (t *Transport) OrderID() string { return t.api.OrderID() }

type initRequest struct {
	DirectoryName string                    `json:"directory_name"`
	Files         []transport.ManifestEntry `json:"files"`
	Customer      *transport.CustomerMeta   `json:"customer,omitempty"`
}

type initResponse struct {
	SessionID string `json:"session_id"`
	OrderID   string `json:"order_id"`
	TenantID  string `json:"tenant_id"`
}

type presignedResponse struct {
	URL        string `json:"url"`
	ObjectPath string `json:"object_path"`
}

type statusResponse struct {
	Status        string `json:"status"`
	FilesExpected int    `json:"files_expected"`
	FilesReceived int    `json:"files_received"`
}

func (t *Transport) UploadDirectory(ctx context.Context, localDir, remoteName string, cust *customer.Customer) error {
	lgr := zap.S()

	if !t.api.Connected() {
		return transport.ErrNotConnected
	}

	files, totalBytes, err := transport.CollectFiles(localDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return transport.ErrNoFiles
	}

	session, err := t.initSession(ctx, remoteName, files, cust)
	if err != nil {
		return err
	}
	t.api.SetOrderID(session.OrderID)
	lgr.Infow("directblob_upload_start",
		"session_id", session.SessionID,
		"files", len(files),
		"size", humanize.Bytes(uint64(totalBytes)))

	if err := t.uploadAll(ctx, session.SessionID, files, totalBytes); err != nil {
		return err
	}
	return t.awaitComplete(ctx, session.SessionID, len(files))
}

// uploadAll moves files through a bounded pool. The first failure cancels
// the remaining uploads.
func (t *Transport) uploadAll(ctx context.Context, sessionID string, files []transport.FileEntry, totalBytes int64) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tracker := progress.NewTracker(t.reporter, totalBytes)
	limiter := make(chan struct{}, parallelUploads)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for _, entry := range files {
		select {
		case limiter <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(entry transport.FileEntry) {
			defer wg.Done()
			defer func() {
				<-limiter
			}()
			if err := t.uploadOne(ctx, sessionID, entry); err != nil {
				fail(err)
				return
			}
			tracker.CompleteFile(entry.Size)
		}(entry)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	return firstErr
}

// uploadOne requests a presigned URL, PUTs the blob while digesting it, and
// registers the result. A failed registration after a successful PUT is
// still fatal for the session.
func (t *Transport) uploadOne(ctx context.Context, sessionID string, entry transport.FileEntry) error {
	presigned, err := t.presign(ctx, sessionID, entry.Name)
	if err != nil {
		return err
	}

	digest, err := t.putBlob(ctx, presigned.URL, entry)
	if err != nil {
		return err
	}

	if err := t.register(ctx, sessionID, entry, presigned.ObjectPath, digest); err != nil {
		return &RegistrationError{File: entry.Name, Err: err}
	}
	return nil
}

func (t *Transport) presign(ctx context.Context, sessionID, fileName string) (*presignedResponse, error) {
	payload, err := json.Marshal(map[string]string{
		"session_id": sessionID,
		"file_name":  fileName,
	})
	if err != nil {
		return nil, err
	}
	req, err := t.api.NewRequest(ctx, http.MethodPost, "/upload/presigned-url", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.api.Do("presigned_url", req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var presigned presignedResponse
	if err := json.NewDecoder(resp.Body).Decode(&presigned); err != nil {
		return nil, fmt.Errorf("presigned_url: %w", err)
	}
	if presigned.URL == "" {
		return nil, fmt.Errorf("presigned_url: no url for %s", fileName)
	}
	return &presigned, nil
}

func (t *Transport) putBlob(ctx context.Context, url string, entry transport.FileEntry) (blake.Digest, error) {
	var zero blake.Digest

	f, err := os.Open(entry.Path)
	if err != nil {
		return zero, err
	}
	defer func() {
		_ = f.Close()
	}()

	hasher := blake.New()
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, io.TeeReader(f, hasher))
	if err != nil {
		return zero, err
	}
	req.ContentLength = entry.Size
	req.Header.Set("Content-Type", entry.MIME)

	resp, err := t.httpc.Do(req)
	if err != nil {
		return zero, fmt.Errorf("put %s: %w", entry.Name, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return zero, api.NewStatusError("blob_put", resp)
	}
	return blake.Sum(hasher), nil
}

func (t *Transport) register(ctx context.Context, sessionID string, entry transport.FileEntry, objectPath string, digest blake.Digest) error {
	payload, err := json.Marshal(map[string]any{
		"session_id":  sessionID,
		"file_name":   entry.Name,
		"object_path": objectPath,
		"size":        entry.Size,
		"checksum":    digest.URLSafe(),
	})
	if err != nil {
		return err
	}
	req, err := t.api.NewRequest(ctx, http.MethodPost, "/upload/register", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.api.Do("register", req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}

// awaitComplete polls the session status until the server reports every
// registered blob, with one final read when the deadline expires.
func (t *Transport) awaitComplete(ctx context.Context, sessionID string, expected int) error {
	lgr := zap.S()

	deadline := time.Now().Add(pollTimeout)
	for {
		status, err := t.sessionStatus(ctx, sessionID)
		if err != nil {
			return err
		}
		lgr.Debugw("directblob_session_status",
			"session_id", sessionID,
			"status", status.Status,
			"received", status.FilesReceived,
			"expected", status.FilesExpected)
		switch status.Status {
		case "completed", "complete":
			lgr.Infow("directblob_upload_done", "session_id", sessionID, "files", expected)
			return nil
		case "failed":
			return fmt.Errorf("session %s failed server-side after %d/%d files",
				sessionID, status.FilesReceived, status.FilesExpected)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("session %s not complete after %s (%d/%d files)",
				sessionID, pollTimeout, status.FilesReceived, status.FilesExpected)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (t *Transport) sessionStatus(ctx context.Context, sessionID string) (*statusResponse, error) {
	req, err := t.api.NewRequest(ctx, http.MethodGet, "/upload/status/"+sessionID, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.api.Do("session_status", req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("session_status: %w", err)
	}
	return &status, nil
}

func (t *Transport) initSession(ctx context.Context, remoteName string, files []transport.FileEntry, cust *customer.Customer) (*initResponse, error) {
	payload, err := json.Marshal(initRequest{
		DirectoryName: remoteName,
		Files:         transport.Manifest(files),
		Customer:      transport.MetaFor(cust),
	})
	if err != nil {
		return nil, err
	}
	req, err := t.api.NewRequest(ctx, http.MethodPost, "/upload/direct-init", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.api.Do("direct_init", req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var session initResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("direct_init: %w", err)
	}
	if session.SessionID == "" {
		return nil, fmt.Errorf("direct_init: no session_id in response")
	}
	return &session, nil
}
