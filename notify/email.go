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
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"aeromedia/config"
	"aeromedia/customer"
)

var ErrNoRecipient = errors.New("notify: no recipient address")

const smtpDialTimeout = 30 * time.Second

var successTemplate = template.Must(template.New("success").Parse(`<html>
<body style="font-family: Arial, sans-serif; color: #222;">
<p>Hallo{{if .Name}} {{.Name}}{{end}},</p>
<p>deine Aufnahmen sind fertig! Du kannst deine Fotos und Videos hier ansehen und herunterladen:</p>
<p><a href="{{.Link}}" style="font-size: 1.2em;">{{.Link}}</a></p>
<p>Viel Freude mit deinen Erinnerungen!</p>
<p>Dein AeroMedia-Team</p>
</body>
</html>
`))

type EmailSender struct {
	cfg config.SMTP
}

func NewEmailSender(cfg config.SMTP) *EmailSender {
	return &EmailSender{cfg: cfg}
}

// SendSuccess mails the share link to the customer. Without a customer
// address the mail goes to the configured fallback recipient instead.
func (s *EmailSender) SendSuccess(ctx context.Context, dirName, link string, cust *customer.Customer) error {
	to := s.cfg.FallbackRecipient
	name := ""
	if cust != nil {
		if cust.Email != "" {
			to = cust.Email
		}
		name = cust.FirstName
	}
	if to == "" {
		return ErrNoRecipient
	}

	var body bytes.Buffer
	err := successTemplate.Execute(&body, struct {
		Name string
		Link string
	}{Name: name, Link: link})
	if err != nil {
		return err
	}

	subject := "Deine Aufnahmen sind fertig!"
	msg := s.compose(to, subject, "text/html", body.Bytes())
	if err := s.send(ctx, to, msg); err != nil {
		return err
	}
	zap.S().Infow("success_mail_sent", "dir", dirName, "to", to)
	return nil
}

// SendFailure mails a plain-text alert to the operator.
func (s *EmailSender) SendFailure(ctx context.Context, dirName, errText string) error {
	to := s.cfg.FallbackRecipient
	if to == "" {
		return ErrNoRecipient
	}

	subject := fmt.Sprintf("Upload fehlgeschlagen: %s", dirName)
	body := fmt.Sprintf(
		"Der Upload des Verzeichnisses %q ist fehlgeschlagen.\r\n\r\nFehler: %s\r\n\r\nDas Verzeichnis wurde in den Fehler-Ordner verschoben.\r\n",
		dirName, errText)
	msg := s.compose(to, subject, "text/plain", []byte(body))
	if err := s.send(ctx, to, msg); err != nil {
		return err
	}
	zap.S().Infow("failure_mail_sent", "dir", dirName, "to", to)
	return nil
}

func (s *EmailSender) compose(to, subject, contentType string, body []byte) []byte {
	var msg bytes.Buffer
	from := s.cfg.SenderAddr
	if s.cfg.SenderName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", s.cfg.SenderName), s.cfg.SenderAddr)
	}
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: %s; charset=utf-8\r\n", contentType)
	msg.WriteString("\r\n")
	msg.Write(body)
	return msg.Bytes()
}

// send speaks SMTP with STARTTLS, the submission setup virtually all
// providers expect on port 587.
func (s *EmailSender) send(ctx context.Context, to string, msg []byte) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	dialer := &net.Dialer{Timeout: smtpDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer func() {
		_ = client.Close()
	}()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if s.cfg.User != "" {
		auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(s.cfg.SenderAddr); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return client.Quit()
}
