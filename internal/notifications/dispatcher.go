package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/carloseduardonl/nf-ship-flow/internal/users"
)

// UserDirectory resolves the recipient set for a company.
type UserDirectory interface {
	ListActiveByCompany(ctx context.Context, companyID uuid.UUID) ([]users.User, error)
}

// ChangePublisher cues realtime listeners after rows are written.
type ChangePublisher interface {
	PublishNotifications(ctx context.Context, userID uuid.UUID) error
}

// Mailer enqueues notification e-mails. Satisfied by the jobs client.
type Mailer interface {
	EnqueueSendEmail(ctx context.Context, to, subject, body string) error
}

// Dispatcher fans one draft out to every active user of the target company:
// one notification row per user, one realtime cue per user, one e-mail task
// per user. The acting company's own users never receive anything.
type Dispatcher struct {
	repo      Repository
	directory UserDirectory
	publisher ChangePublisher
	mailer    Mailer
	logger    *slog.Logger
}

// NewDispatcher constructs a dispatcher. publisher and mailer may be nil.
func NewDispatcher(repo Repository, directory UserDirectory, publisher ChangePublisher, mailer Mailer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{repo: repo, directory: directory, publisher: publisher, mailer: mailer, logger: logger}
}

// NotifyCompany delivers the draft to every active user of companyID.
func (d *Dispatcher) NotifyCompany(ctx context.Context, companyID uuid.UUID, draft Draft) error {
	recipients, err := d.directory.ListActiveByCompany(ctx, companyID)
	if err != nil {
		return fmt.Errorf("list recipients: %w", err)
	}
	if len(recipients) == 0 {
		return nil
	}

	rows := make([]Notification, 0, len(recipients))
	for _, u := range recipients {
		rows = append(rows, Notification{
			UserID:     u.ID,
			DeliveryID: draft.DeliveryID,
			Type:       draft.Type,
			Title:      draft.Title,
			Message:    draft.Message,
		})
	}
	if err := d.repo.InsertBatch(ctx, rows); err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}

	for _, u := range recipients {
		if d.publisher != nil {
			if err := d.publisher.PublishNotifications(ctx, u.ID); err != nil {
				d.logger.Warn("publish notification cue", slog.Any("error", err))
			}
		}
		if d.mailer != nil {
			if err := d.mailer.EnqueueSendEmail(ctx, u.Email, draft.Title, draft.Message); err != nil {
				d.logger.Warn("enqueue notification email", slog.Any("error", err), slog.String("email", u.Email))
			}
		}
	}
	return nil
}
