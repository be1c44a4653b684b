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

// Package simple uploads a whole directory as a single streamed multipart
// POST. It is the least chatty transport and the default.
package simple

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"aeromedia/customer"
	"aeromedia/progress"
	"aeromedia/transport"
	"aeromedia/transport/api"
)

// uploadTimeout bounds the full multipart request. Bodies can be many
// gigabytes, so it is far above the control-plane timeout.
const uploadTimeout = 600 * time.Second

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
		httpc:    &http.Client{Timeout: uploadTimeout},
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

type uploadResponse struct {
	OrderID     string `json:"order_id"`
	SessionID   string `json:"session_id"`
	CustomerURL string `json:"customer_url"`
}

// UploadDirectory sends every file under localDir in one multipart request.
// All parts share the field name "files"; the filename carries the remote
// directory prefix so the server can reassemble the layout.
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
	lgr.Infow("simple_upload_start",
		"dir", localDir,
		"files", len(files),
		"size", humanize.Bytes(uint64(totalBytes)))

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeParts(mw, files, remoteName, cust)
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	req, err := t.api.NewRequest(ctx, http.MethodPost, "/upload", pr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	tracker := progress.NewTracker(t.reporter, totalBytes)
	tracker.StartFile(totalBytes)
	resp, err := t.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return api.NewStatusError("upload", resp)
	}

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	if result.OrderID == "" {
		return fmt.Errorf("upload: no order_id in response")
	}
	t.api.SetOrderID(result.OrderID)
	tracker.CompleteFile(totalBytes)

	lgr.Infow("simple_upload_done", "order_id", result.OrderID, "session_id", result.SessionID)
	return nil
}

func writeParts(mw *multipart.Writer, files []transport.FileEntry, remoteName string, cust *customer.Customer) error {
	if meta := transport.MetaFor(cust); meta != nil {
		encoded, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		if err := mw.WriteField("customer", string(encoded)); err != nil {
			return err
		}
	}
	for _, entry := range files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="files"; filename="%s"`,
				escapeQuotes(remoteName+"/"+entry.Name)))
		hdr.Set("Content-Type", entry.MIME)
		part, err := mw.CreatePart(hdr)
		if err != nil {
			return err
		}
		f, err := os.Open(entry.Path)
		if err != nil {
			return err
		}
		_, err = io.Copy(part, f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("upload %s: %w", entry.Name, err)
		}
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
