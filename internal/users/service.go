package users

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Mailer enqueues invitation e-mails. Satisfied by the jobs client.
type Mailer interface {
	EnqueueSendEmail(ctx context.Context, to, subject, body string) error
}

// Service provides team management: inviting and deactivating members.
type Service struct {
	repo   Repository
	mailer Mailer
	logger *slog.Logger
}

// NewService constructs a user service.
func NewService(repo Repository, mailer Mailer, logger *slog.Logger) *Service {
	return &Service{repo: repo, mailer: mailer, logger: logger}
}

// Invite creates an active user in the inviter's company with a generated
// temporary password and mails the credentials. The invitee changes the
// password through the upstream auth layer on first login.
func (s *Service) Invite(ctx context.Context, companyID uuid.UUID, req InviteUserRequest) (User, error) {
	tempPassword, err := generatePassword()
	if err != nil {
		return User{}, fmt.Errorf("generate password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, User{
		CompanyID:    companyID,
		FullName:     req.FullName,
		Email:        req.Email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return User{}, err
	}

	if s.mailer != nil {
		body := fmt.Sprintf("Você foi convidado para o nf-ship-flow.\n\nSenha temporária: %s\n", tempPassword)
		if err := s.mailer.EnqueueSendEmail(ctx, user.Email, "Convite para o nf-ship-flow", body); err != nil {
			s.logger.Warn("enqueue invite email", slog.Any("error", err), slog.String("email", user.Email))
		}
	}

	return user, nil
}

// Deactivate removes a member from notification fan-out and sign-in.
func (s *Service) Deactivate(ctx context.Context, userID uuid.UUID) error {
	return s.repo.Deactivate(ctx, userID)
}

// ListByCompany returns the active members of a company.
func (s *Service) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]User, error) {
	return s.repo.ListActiveByCompany(ctx, companyID)
}

func generatePassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
