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

// Package chunked uploads files in fixed-size pieces within a server-side
// session. Slower per byte than the simple transport, but a dropped
// connection only costs one chunk instead of the whole directory.
package chunked

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"aeromedia/customer"
	"aeromedia/progress"
	"aeromedia/transport"
	"aeromedia/transport/api"
)

const (
	// defaultChunkSize is used when the init response does not dictate one.
	defaultChunkSize = 8 * 1024 * 1024

	chunkTimeout = 120 * time.Second
)

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
		httpc:    &http.Client{Timeout: chunkTimeout},
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
	ChunkSize int64  `json:"chunk_size"`
}

type completeResponse struct {
	CustomerURL string `json:"customer_url"`
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
	chunkSize := session.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	t.api.SetOrderID(session.OrderID)
	lgr.Infow("chunked_upload_start",
		"session_id", session.SessionID,
		"files", len(files),
		"size", humanize.Bytes(uint64(totalBytes)),
		"chunk_size", humanize.Bytes(uint64(chunkSize)))

	tracker := progress.NewTracker(t.reporter, totalBytes)
	for _, entry := range files {
		if err := t.uploadFile(ctx, session.SessionID, entry, chunkSize, tracker); err != nil {
			return err
		}
	}

	result, err := t.complete(ctx, session.SessionID)
	if err != nil {
		return err
	}
	lgr.Infow("chunked_upload_done",
		"order_id", session.OrderID,
		"customer_url", result.CustomerURL)
	return nil
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
	req, err := t.api.NewRequest(ctx, http.MethodPost, "/upload/init", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.api.Do("upload_init", req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var session initResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("upload_init: %w", err)
	}
	if session.SessionID == "" {
		return nil, fmt.Errorf("upload_init: no session_id in response")
	}
	return &session, nil
}

// uploadFile streams one file chunk by chunk in order. Chunks of a single
// file are strictly sequential; a chunk is only counted once the server has
// acknowledged it.
func (t *Transport) uploadFile(ctx context.Context, sessionID string, entry transport.FileEntry, chunkSize int64, tracker *progress.Tracker) error {
	tracker.StartFile(entry.Size)
	if entry.Size == 0 {
		tracker.CompleteFile(0)
		return nil
	}

	f, err := os.Open(entry.Path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	totalChunks := (entry.Size + chunkSize - 1) / chunkSize
	buf := make([]byte, chunkSize)
	for index := int64(0); index < totalChunks; index++ {
		n, err := io.ReadFull(f, buf)
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			err = nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name, err)
		}
		if err := t.sendChunk(ctx, sessionID, entry.Name, index, totalChunks, buf[:n]); err != nil {
			return err
		}
		tracker.Advance(int64(n))
	}
	return nil
}

func (t *Transport) sendChunk(ctx context.Context, sessionID, fileName string, index, total int64, data []byte) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := map[string]string{
		"session_id":   sessionID,
		"file_name":    fileName,
		"chunk_index":  strconv.FormatInt(index, 10),
		"total_chunks": strconv.FormatInt(total, 10),
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("chunk", fileName)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := t.api.NewRequest(ctx, http.MethodPost, "/upload/chunk", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := t.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s chunk %d/%d: %w", fileName, index+1, total, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s chunk %d/%d: %w",
			fileName, index+1, total, api.NewStatusError("upload_chunk", resp))
	}
	return nil
}

func (t *Transport) complete(ctx context.Context, sessionID string) (*completeResponse, error) {
	payload, err := json.Marshal(map[string]string{"session_id": sessionID})
	if err != nil {
		return nil, err
	}
	req, err := t.api.NewRequest(ctx, http.MethodPost, "/upload/complete", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.api.Do("upload_complete", req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var result completeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("upload_complete: %w", err)
	}
	return &result, nil
}
