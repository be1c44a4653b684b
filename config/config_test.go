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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sample = `
watch_path: /srv/eingang
scan_interval_seconds: 5
archive_path: /srv/archiv
transport: chunked
api:
  url: https://cloud.example.com/api
  token: key_abc.secret
smtp:
  host: mail.example.com
  user: uploader
  password: geheim
  sender_addr: medien@example.com
  fallback_recipient: buero@example.com
sms:
  api_key: sevenkey
  sender: AERO
  sandbox: true
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aeromedia.yaml")
	if err := os.WriteFile(path, []byte(sample), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.WatchPath != "/srv/eingang" {
		t.Errorf("watch_path=%q", cfg.WatchPath)
	}
	if cfg.ScanInterval() != 5*time.Second {
		t.Errorf("interval=%v", cfg.ScanInterval())
	}
	if cfg.Transport != TransportChunked {
		t.Errorf("transport=%q", cfg.Transport)
	}
	if cfg.API.Token != "key_abc.secret" {
		t.Errorf("token=%q", cfg.API.Token)
	}
	if cfg.SMTP.Port != 587 {
		t.Errorf("smtp port default not applied: %d", cfg.SMTP.Port)
	}
	if !cfg.SMS.Sandbox {
		t.Error("sandbox flag lost")
	}
	if err := cfg.Validate(); err != nil {
		t.Error(err)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ScanInterval() != DefaultScanInterval {
		t.Errorf("interval=%v", cfg.ScanInterval())
	}
	if cfg.Transport != TransportSimple {
		t.Errorf("transport=%q", cfg.Transport)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error")
	}
}

func TestValidateUnknownTransport(t *testing.T) {
	cfg := &Config{Transport: "carrier-pigeon"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error")
	}
}
