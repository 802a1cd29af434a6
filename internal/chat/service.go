package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/carloseduardonl/nf-ship-flow/internal/delivery"
	"github.com/carloseduardonl/nf-ship-flow/internal/notifications"
	"github.com/carloseduardonl/nf-ship-flow/internal/shared"
)

var (
	ErrEmptyMessage   = errors.New("message must not be blank")
	ErrMessageTooLong = errors.New("message exceeds the maximum length")
)

// Deliveries resolves delivery visibility for the caller. Satisfied by the
// delivery service.
type Deliveries interface {
	Get(ctx context.Context, viewer shared.Profile, id uuid.UUID) (delivery.Delivery, error)
}

// Notifier fans a draft out to the users of one company.
type Notifier interface {
	NotifyCompany(ctx context.Context, companyID uuid.UUID, draft notifications.Draft) error
}

// ChangePublisher cues realtime listeners after a message is stored.
type ChangePublisher interface {
	PublishMessages(ctx context.Context, deliveryID uuid.UUID) error
}

// Service stores messages and notifies the counterpart. The message row is
// the source of truth; notification and cue failures are logged only.
type Service struct {
	logger     *slog.Logger
	repo       Repository
	deliveries Deliveries
	notifier   Notifier
	publisher  ChangePublisher
}

// NewService constructs a chat service. notifier and publisher may be nil.
func NewService(logger *slog.Logger, repo Repository, deliveries Deliveries, notifier Notifier, publisher ChangePublisher) *Service {
	return &Service{logger: logger, repo: repo, deliveries: deliveries, notifier: notifier, publisher: publisher}
}

// List returns the conversation on a delivery visible to the caller.
func (s *Service) List(ctx context.Context, viewer shared.Profile, deliveryID uuid.UUID) ([]Message, error) {
	if _, err := s.deliveries.Get(ctx, viewer, deliveryID); err != nil {
		return nil, err
	}
	return s.repo.ListByDelivery(ctx, deliveryID)
}

// Send stores a message and notifies every user of the counterpart company.
func (s *Service) Send(ctx context.Context, author shared.Profile, deliveryID uuid.UUID, body string) (Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return Message{}, ErrEmptyMessage
	}
	if len([]rune(body)) > MaxMessageLength {
		return Message{}, ErrMessageTooLong
	}

	d, err := s.deliveries.Get(ctx, author, deliveryID)
	if err != nil {
		return Message{}, err
	}

	m, err := s.repo.Insert(ctx, Message{
		DeliveryID: deliveryID,
		UserID:     author.UserID,
		Body:       body,
	})
	if err != nil {
		return Message{}, err
	}
	m.AuthorName = author.FullName

	role, _ := d.RoleOf(author.CompanyID)
	counterpart := d.CompanyOf(role.Counterpart())
	if s.notifier != nil {
		draft := notifications.Draft{
			DeliveryID: &deliveryID,
			Type:       notifications.TypeNewMessage,
			Title:      "Nova mensagem",
			Message:    author.FullName + ": " + truncate(body, 120),
		}
		if err := s.notifier.NotifyCompany(ctx, counterpart, draft); err != nil {
			s.logger.Error("notify new message", slog.Any("error", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishMessages(ctx, deliveryID); err != nil {
			s.logger.Warn("publish message change", slog.Any("error", err))
		}
	}
	return m, nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
