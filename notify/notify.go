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

// Package notify tells customers and operators about finished jobs. Email
// is the mandatory channel; SMS is best-effort on top.
package notify

import (
	"context"

	"go.uber.org/zap"

	"aeromedia/customer"
	"aeromedia/metrics"
)

type Notifier interface {
	// SendSuccess delivers the share link for a finished upload to the
	// customer.
	SendSuccess(ctx context.Context, dirName, link string, cust *customer.Customer) error
	// SendFailure alerts the operator that a directory could not be
	// uploaded.
	SendFailure(ctx context.Context, dirName, errText string) error
}

// Combined fans a notification out to email and, when the customer has a
// phone number, SMS. Email errors are the caller's problem; SMS errors are
// only logged.
type Combined struct {
	Email *EmailSender
	SMS   *SMSSender
}

var _ Notifier = (*Combined)(nil)

func (c *Combined) SendSuccess(ctx context.Context, dirName, link string, cust *customer.Customer) error {
	lgr := zap.S()

	// Email first; the SMS is a best-effort extra on top of it.
	if c.Email != nil {
		if err := c.Email.SendSuccess(ctx, dirName, link, cust); err != nil {
			metrics.Pipeline.NotifyErrors.Inc()
			return err
		}
	}
	if c.SMS != nil && cust != nil && cust.Phone != "" {
		if err := c.SMS.SendLink(ctx, cust.Phone, link); err != nil {
			metrics.Pipeline.NotifyErrors.Inc()
			lgr.Warnw("sms_send_failed", "dir", dirName, "err", err)
		}
	}
	return nil
}

func (c *Combined) SendFailure(ctx context.Context, dirName, errText string) error {
	if c.Email == nil {
		return nil
	}
	if err := c.Email.SendFailure(ctx, dirName, errText); err != nil {
		metrics.Pipeline.NotifyErrors.Inc()
		return err
	}
	return nil
}
