package notifications

import (
	"context"
	"log/slog"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	store       StoreAPI
	Mailer      Mailer
	DefaultFrom string
}

func New(store StoreAPI, mailer Mailer) *Service {
	return &Service{store: store, Mailer: mailer, DefaultFrom: "no-reply@example.com"}
}

// Notify records an in-app notification and, when the org has email
// enabled, mirrors it to the user's address. Email failures are logged
// and swallowed; money flows never hinge on SMTP.
func (s *Service) Notify(ctx context.Context, orgID, userID, ntype, title, body string) error {
	if err := s.store.CreateNotification(ctx, orgID, userID, ntype, title, body); err != nil {
		return err
	}

	if s.Mailer == nil {
		return nil
	}

	enabled, from := s.getEmailSettings(ctx, orgID)
	if !enabled {
		return nil
	}
	if from == "" {
		from = s.DefaultFrom
	}

	email, err := s.store.UserEmail(ctx, orgID, userID)
	if err != nil {
		slog.Warn("notification email lookup failed", "err", err)
		return nil
	}
	if email == "" {
		return nil
	}
	if err := s.Mailer.Send(ctx, from, email, title, body); err != nil {
		slog.Warn("notification email send failed", "err", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, orgID, userID string, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, orgID, userID, limit, offset)
}

func (s *Service) Count(ctx context.Context, orgID, userID string) (int, error) {
	return s.store.CountNotifications(ctx, orgID, userID)
}

func (s *Service) UnreadCount(ctx context.Context, orgID, userID string) (int, error) {
	return s.store.CountUnread(ctx, orgID, userID)
}

func (s *Service) MarkRead(ctx context.Context, orgID, userID, notificationID string) error {
	return s.store.MarkRead(ctx, orgID, userID, notificationID)
}

func (s *Service) MarkAllRead(ctx context.Context, orgID, userID string) error {
	return s.store.MarkAllRead(ctx, orgID, userID)
}

func (s *Service) getEmailSettings(ctx context.Context, orgID string) (bool, string) {
	enabled, from, err := s.store.EmailSettings(ctx, orgID)
	if err != nil {
		return false, ""
	}
	return enabled, from
}

func (s *Service) GetSettings(ctx context.Context, orgID string) (bool, string, error) {
	return s.store.EmailSettings(ctx, orgID)
}

func (s *Service) UpdateSettings(ctx context.Context, orgID string, enabled bool, from string) error {
	return s.store.UpdateSettings(ctx, orgID, enabled, from)
}
