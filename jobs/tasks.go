// Package jobs runs background work over Redis queues: today that is the
// notification e-mail fan-out, kept off the request path so a slow SMTP
// server never delays a negotiation transition.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for notification e-mails.
	TaskTypeSendEmail = "notify:email"
)

// SendEmailPayload describes the information required to send an e-mail.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// SMTPConfig points the worker at the outgoing mail server.
type SMTPConfig struct {
	Host string
	Port int
	From string
}

// NewSendEmailHandler returns the Asynq handler that delivers queued
// notification e-mails over SMTP. Malformed payloads are dropped, delivery
// failures are retried by Asynq.
func NewSendEmailHandler(cfg SMTPConfig, logger *slog.Logger) asynq.HandlerFunc {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		msg := []byte("From: " + cfg.From + "\r\n" +
			"To: " + payload.To + "\r\n" +
			"Subject: " + payload.Subject + "\r\n" +
			"Content-Type: text/plain; charset=utf-8\r\n" +
			"\r\n" +
			payload.Body + "\r\n")
		if err := smtp.SendMail(addr, nil, cfg.From, []string{payload.To}, msg); err != nil {
			logger.Warn("send email", slog.Any("error", err), slog.String("to", payload.To))
			return err
		}
		return nil
	}
}
