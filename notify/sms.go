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
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"aeromedia/config"
)

const (
	sevenEndpoint = "https://gateway.seven.io/api/sms"
	smsTimeout    = 10 * time.Second
)

// SMSSender delivers share links over the seven.io SMS gateway.
type SMSSender struct {
	cfg      config.SMS
	endpoint string
	httpc    *http.Client
}

func NewSMSSender(cfg config.SMS) *SMSSender {
	return &SMSSender{
		cfg:      cfg,
		endpoint: sevenEndpoint,
		httpc:    &http.Client{Timeout: smsTimeout},
	}
}

func (s *SMSSender) SendLink(ctx context.Context, phone, link string) error {
	text := fmt.Sprintf("Deine Aufnahmen sind fertig! Hier ansehen: %s", link)

	form := url.Values{}
	form.Set("to", phone)
	form.Set("text", text)
	if s.cfg.Sender != "" {
		form.Set("from", s.cfg.Sender)
	}
	if s.cfg.Sandbox {
		form.Set("sandbox", "1")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Api-Key", s.cfg.APIKey)

	resp, err := s.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("sms: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sms: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	zap.S().Infow("sms_sent", "to", phone, "response", strings.TrimSpace(string(body)))
	return nil
}
