package services

import (
	"context"
	"log/slog"

	"firebase.google.com/go/messaging"

	"wonmoreBack/internal/models"
)

type fcmSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushService fans a notification out to device tokens, one FCM send per
// token. A failed token does not stop the rest; the caller gets a per-token
// result list.
type PushService struct {
	Client       fcmSender
	DefaultTitle string
	Logger       *slog.Logger
}

func (s *PushService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *PushService) Send(ctx context.Context, req models.PushRequest) models.PushResponse {
	if len(req.Tokens) == 0 {
		return models.PushResponse{OK: true, Sent: 0}
	}

	title := req.Title
	if title == "" {
		title = s.DefaultTitle
	}

	results := make([]models.PushSendResult, 0, len(req.Tokens))
	for _, token := range req.Tokens {
		msg := &messaging.Message{
			Token: token,
			Notification: &messaging.Notification{
				Title: title,
				Body:  req.Body,
			},
			Data: req.Data,
			Android: &messaging.AndroidConfig{
				Priority: "high",
			},
			APNS: &messaging.APNSConfig{
				Payload: &messaging.APNSPayload{
					Aps: &messaging.Aps{Sound: "default"},
				},
			},
		}

		id, err := s.Client.Send(ctx, msg)
		if err != nil {
			s.logger().Warn("push send failed", "op", "Send", "err", err)
			results = append(results, models.PushSendResult{Token: token, OK: false, Error: err.Error()})
			continue
		}
		results = append(results, models.PushSendResult{Token: token, OK: true, ID: id})
	}

	return models.PushResponse{OK: true, Sent: len(results), Results: results}
}
