package services

import (
	"context"
	"fmt"
	"log/slog"
)

type accountStore interface {
	AnonymizeUser(ctx context.Context, userID string) error
	DeleteDeviceTokens(ctx context.Context, userID string) error
}

type objectRemover interface {
	RemoveObject(ctx context.Context, key string) error
}

type authAdmin interface {
	AdminDeleteUser(ctx context.Context, userID string) error
}

// AccountService runs the full account-deletion sequence: avatar cleanup,
// users-row pseudonymization, device-token removal, then deletion of the auth
// account itself. Storage and token cleanup are best-effort; the row update
// and the auth deletion are not.
type AccountService struct {
	Accounts accountStore
	Storage  objectRemover
	Auth     authAdmin
	Logger   *slog.Logger
}

func (s *AccountService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *AccountService) Anonymize(ctx context.Context, userID string) error {
	log := s.logger().With("op", "Anonymize", "user_id", userID)

	if s.Storage != nil {
		key := fmt.Sprintf("avatars/%s/profile.jpg", userID)
		if err := s.Storage.RemoveObject(ctx, key); err != nil {
			log.Warn("avatar cleanup failed", "err", err)
		}
	}

	if err := s.Accounts.AnonymizeUser(ctx, userID); err != nil {
		return fmt.Errorf("anonymize user row: %w", err)
	}

	if err := s.Accounts.DeleteDeviceTokens(ctx, userID); err != nil {
		log.Warn("device token cleanup failed", "err", err)
	}

	if err := s.Auth.AdminDeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete auth user: %w", err)
	}

	log.Info("account anonymized")
	return nil
}
