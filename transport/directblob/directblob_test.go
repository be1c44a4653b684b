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

package directblob

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aeromedia/progress"
	"aeromedia/transport/api"
)

const testToken = "key_test.secret"

// blobServer plays both the API and the blob store: presigned URLs point
// back at the same server under /blob/.
type blobServer struct {
	t *testing.T

	mu         sync.Mutex
	baseURL    string
	blobs      map[string][]byte
	registered map[string]string
	polls      int
	failPut    bool
	failReg    bool
}

func newBlobServer(t *testing.T) *blobServer {
	return &blobServer{
		t:          t,
		blobs:      make(map[string][]byte),
		registered: make(map[string]string),
	}
}

func (s *blobServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"healthy","tenant_id":"t1"}`))
	})
	mux.HandleFunc("/upload/direct-init", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"session_id":"sess-1","order_id":"order-3","tenant_id":"t1"}`))
	})
	mux.HandleFunc("/upload/presigned-url", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SessionID string `json:"session_id"`
			FileName  string `json:"file_name"`
		}
		require.NoError(s.t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(s.t, "sess-1", body.SessionID)
		s.mu.Lock()
		base := s.baseURL
		s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{
			"url":         base + "/blob/" + body.FileName,
			"object_path": "tenant/t1/" + body.FileName,
		})
	})
	mux.HandleFunc("/blob/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(s.t, http.MethodPut, r.Method)
		s.mu.Lock()
		failPut := s.failPut
		s.mu.Unlock()
		if failPut {
			http.Error(w, "storage unavailable", http.StatusBadGateway)
			return
		}
		data, err := io.ReadAll(r.Body)
		require.NoError(s.t, err)
		s.mu.Lock()
		s.blobs[strings.TrimPrefix(r.URL.Path, "/blob/")] = data
		s.mu.Unlock()
	})
	mux.HandleFunc("/upload/register", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		failReg := s.failReg
		s.mu.Unlock()
		if failReg {
			http.Error(w, "register rejected", http.StatusConflict)
			return
		}
		var body struct {
			FileName   string `json:"file_name"`
			ObjectPath string `json:"object_path"`
			Checksum   string `json:"checksum"`
			Size       int64  `json:"size"`
		}
		require.NoError(s.t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotEmpty(s.t, body.Checksum)
		s.mu.Lock()
		s.registered[body.FileName] = body.ObjectPath
		s.mu.Unlock()
	})
	mux.HandleFunc("/upload/status/", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.polls++
		received := len(s.registered)
		polls := s.polls
		s.mu.Unlock()
		status := "pending"
		// Stay pending for the first poll so the loop is exercised.
		if polls > 1 {
			status = "completed"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":         status,
			"files_expected": received,
			"files_received": received,
		})
	})
	return mux
}

func startBlobTransport(t *testing.T, server *blobServer) (*Transport, *api.Client) {
	t.Helper()
	srv := httptest.NewServer(server.handler())
	t.Cleanup(srv.Close)
	server.mu.Lock()
	server.baseURL = srv.URL
	server.mu.Unlock()

	client := api.New(srv.URL, testToken)
	tr := New(client, progress.NewReporter())
	require.NoError(t, tr.Connect(context.Background()))
	return tr, client
}

func TestUploadDirectoryDirect(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("img_%d.jpg", i)
		content := strings.Repeat("x", 100+i)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	server := newBlobServer(t)
	tr, client := startBlobTransport(t, server)

	err := tr.UploadDirectory(context.Background(), dir, "20250101_shoot", nil)
	require.NoError(t, err)

	server.mu.Lock()
	defer server.mu.Unlock()
	assert.Len(t, server.blobs, 5)
	assert.Len(t, server.registered, 5)
	assert.Equal(t, "tenant/t1/img_0.jpg", server.registered["img_0.jpg"])
	assert.Equal(t, strings.Repeat("x", 100), string(server.blobs["img_0.jpg"]))
	assert.GreaterOrEqual(t, server.polls, 2)
	assert.Equal(t, "order-3", client.OrderID())
}

func TestUploadDirectoryPutFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("data"), 0o644))

	server := newBlobServer(t)
	server.failPut = true
	tr, _ := startBlobTransport(t, server)

	err := tr.UploadDirectory(context.Background(), dir, "x", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blob_put")
}

func TestUploadDirectoryRegisterFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("data"), 0o644))

	server := newBlobServer(t)
	server.failReg = true
	tr, _ := startBlobTransport(t, server)

	err := tr.UploadDirectory(context.Background(), dir, "x", nil)
	var re *RegistrationError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "a.jpg", re.File)

	// The bytes made it to storage even though the session failed.
	server.mu.Lock()
	defer server.mu.Unlock()
	assert.Equal(t, "data", string(server.blobs["a.jpg"]))
}
