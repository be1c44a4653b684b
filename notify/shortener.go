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

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"aeromedia/config"
)

const shortenTimeout = 5 * time.Second

// Shortener turns long share links into short ones. It never fails the
// caller: any problem just returns the original link.
type Shortener struct {
	cfg   config.Shortener
	httpc *http.Client
}

func NewShortener(cfg config.Shortener) *Shortener {
	return &Shortener{
		cfg:   cfg,
		httpc: &http.Client{Timeout: shortenTimeout},
	}
}

func (s *Shortener) Shorten(ctx context.Context, link string) string {
	lgr := zap.S()

	if s == nil || s.cfg.URL == "" || link == "" {
		return link
	}

	payload, err := json.Marshal(map[string]string{"long_url": link})
	if err != nil {
		return link
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return link
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.Key != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Key)
	}

	resp, err := s.httpc.Do(req)
	if err != nil {
		lgr.Warnw("shorten_failed", "err", err)
		return link
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		lgr.Warnw("shorten_failed", "status", resp.StatusCode)
		return link
	}

	var result struct {
		ShortURL string `json:"short_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || result.ShortURL == "" {
		lgr.Warnw("shorten_bad_response", "err", err)
		return link
	}
	return result.ShortURL
}
