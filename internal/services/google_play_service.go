package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	androidpublisher "google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"wonmoreBack/internal/models"
)

type GooglePlayConfig struct {
	PackageName        string
	ServiceAccountJSON string

	// Optional overrides, used by tests to point the client at a fake API.
	TokenSource oauth2.TokenSource
	Endpoint    string
}

// GooglePlayService wraps the Play Developer API subscriptions-v2 lookup.
// Authentication is the standard JWT-bearer grant: the service account key
// signs an RS256 assertion scoped to androidpublisher, which the oauth2
// package exchanges for a bearer token.
type GooglePlayService struct {
	cfg GooglePlayConfig
	svc *androidpublisher.Service
}

func NewGooglePlayService(ctx context.Context, cfg GooglePlayConfig) (*GooglePlayService, error) {
	cfg.PackageName = strings.TrimSpace(cfg.PackageName)
	if cfg.PackageName == "" {
		return nil, errors.New("ANDROID_PACKAGE_NAME is empty")
	}

	opts := []option.ClientOption{}
	switch {
	case cfg.TokenSource != nil:
		opts = append(opts, option.WithTokenSource(cfg.TokenSource))
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		jwtCfg, err := google.JWTConfigFromJSON([]byte(cfg.ServiceAccountJSON), androidpublisher.AndroidpublisherScope)
		if err != nil {
			return nil, fmt.Errorf("parse service account: %w", err)
		}
		opts = append(opts, option.WithTokenSource(jwtCfg.TokenSource(ctx)))
	default:
		return nil, errors.New("GOOGLE_SERVICE_ACCOUNT_JSON is empty")
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	s, err := androidpublisher.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("androidpublisher.NewService: %w", err)
	}

	return &GooglePlayService{cfg: cfg, svc: s}, nil
}

// VerifySubscription fetches the subscriptions-v2 state for a purchase token
// and maps it to the canonical status set.
func (s *GooglePlayService) VerifySubscription(ctx context.Context, token string) (models.GoogleSubscription, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.GoogleSubscription{}, errors.New("purchase_token is required")
	}

	resp, err := s.svc.Purchases.Subscriptionsv2.Get(s.cfg.PackageName, token).
		Context(ctx).
		Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return models.GoogleSubscription{}, &StoreError{
				Source:     "google",
				StatusCode: gerr.Code,
				Status:     fmt.Sprintf("%d", gerr.Code),
				Body:       gerr.Body,
			}
		}
		return models.GoogleSubscription{}, fmt.Errorf("google subscriptionsv2.get: %w", err)
	}

	raw, _ := json.Marshal(resp)

	var productID, expiryTime string
	if len(resp.LineItems) > 0 && resp.LineItems[0] != nil {
		productID = resp.LineItems[0].ProductId
		expiryTime = resp.LineItems[0].ExpiryTime
	}

	status, canceledPeriodEnd := MapSubscriptionState(resp.SubscriptionState)

	return models.GoogleSubscription{
		ProductID:            productID,
		SubscriptionState:    resp.SubscriptionState,
		AcknowledgementState: resp.AcknowledgementState,
		Status:               status,
		CanceledPeriodEnd:    canceledPeriodEnd,
		StartDate:            isoFromRFC3339(resp.StartTime),
		EndDate:              isoFromRFC3339(expiryTime),
		IsSandbox:            resp.TestPurchase != nil,
		Raw:                  string(raw),
	}, nil
}

// MapSubscriptionState maps Play's SubscriptionState enum to the canonical
// status. CANCELED keeps its entitlement until the period end, so it also
// flips the canceled_date_period_end flag.
func MapSubscriptionState(state string) (status string, canceledPeriodEnd bool) {
	switch state {
	case "SUBSCRIPTION_STATE_PENDING":
		return models.StatusPending, false
	case "SUBSCRIPTION_STATE_ACTIVE":
		return models.StatusActive, false
	case "SUBSCRIPTION_STATE_PAUSED":
		return models.StatusPaused, false
	case "SUBSCRIPTION_STATE_IN_GRACE_PERIOD", "SUBSCRIPTION_STATE_ON_HOLD":
		return models.StatusPastDue, false
	case "SUBSCRIPTION_STATE_CANCELED":
		return models.StatusCanceled, true
	case "SUBSCRIPTION_STATE_EXPIRED":
		return models.StatusExpired, false
	case "SUBSCRIPTION_STATE_PENDING_PURCHASE_CANCELED":
		return models.StatusCanceled, false
	default:
		return models.StatusUnknown, false
	}
}
