package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"wonmoreBack/internal/models"
	"wonmoreBack/internal/repositories"
)

var transactionIDShape = regexp.MustCompile(`^\d+$`)

type subscriptionStore interface {
	LatestByUser(ctx context.Context, userID, store string) (models.SubscriptionRecord, error)
	UpdateByToken(ctx context.Context, purchaseToken string, payload any) error
}

type googleVerifier interface {
	VerifySubscription(ctx context.Context, purchaseToken string) (models.GoogleSubscription, error)
}

type appleVerifier interface {
	SubscriptionStatuses(ctx context.Context, originalTransactionID string) ([]models.AppleTransactionPayload, bool, error)
	VerifyReceipt(ctx context.Context, receipt string) (models.AppleReceiptResponse, bool, error)
}

// VerificationService reconciles a local subscription row with the store that
// sold it: resolve the purchase token, verify against Google Play or the App
// Store, normalize, and patch the row back. Collaborators come in as
// interfaces so tests run against fakes.
type VerificationService struct {
	Subscriptions subscriptionStore
	Google        googleVerifier
	Apple         appleVerifier
	Logger        *slog.Logger

	Now func() time.Time
}

func (s *VerificationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *VerificationService) nowISO() string {
	return s.now().UTC().Format(isoMillisLayout)
}

func (s *VerificationService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Reconcile implements the verification flow. Soft outcomes (no candidates,
// malformed token) come back as OK=false with a nil error; hard upstream
// failures are typed errors the handler maps to 4xx/5xx.
func (s *VerificationService) Reconcile(ctx context.Context, req models.VerifyRequest) (models.VerifyResult, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		return models.VerifyResult{}, errors.New("user_id required")
	}

	if req.Store == models.StoreAppleAppStore {
		return s.reconcileApple(ctx, req)
	}
	return s.reconcileGoogle(ctx, req)
}

func (s *VerificationService) resolveToken(ctx context.Context, req *models.VerifyRequest, store string) error {
	if strings.TrimSpace(req.PurchaseToken) != "" {
		return nil
	}
	row, err := s.Subscriptions.LatestByUser(ctx, req.UserID, store)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNoSubscriptionRow
		}
		return fmt.Errorf("resolve purchase token: %w", err)
	}
	req.PurchaseToken = row.PurchaseToken
	if req.ProductID == "" {
		req.ProductID = row.ProductID
	}
	return nil
}

func (s *VerificationService) reconcileGoogle(ctx context.Context, req models.VerifyRequest) (models.VerifyResult, error) {
	if s.Google == nil {
		return models.VerifyResult{}, errors.New("google play verification not configured")
	}
	if err := s.resolveToken(ctx, &req, models.StoreGooglePlay); err != nil {
		return models.VerifyResult{}, err
	}

	sub, err := s.Google.VerifySubscription(ctx, req.PurchaseToken)
	if err != nil {
		// Row deliberately left untouched: a transient Play API failure must
		// not overwrite a known-good state.
		return models.VerifyResult{}, err
	}

	productID := req.ProductID
	if productID == "" {
		productID = sub.ProductID
	}

	update := models.SubscriptionUpdate{
		ProductID:             productID,
		Status:                sub.Status,
		StartDate:             sub.StartDate,
		EndDate:               sub.EndDate,
		LastVerifiedDate:      s.nowISO(),
		IsSandbox:             sub.IsSandbox,
		CanceledDatePeriodEnd: models.BoolPtr(sub.CanceledPeriodEnd),
	}
	if err := s.Subscriptions.UpdateByToken(ctx, req.PurchaseToken, update); err != nil {
		return models.VerifyResult{}, err
	}

	s.logger().Info("reconciled", "op", "Reconcile", "store", models.StoreGooglePlay,
		"user_id", req.UserID, "status", sub.Status, "state", sub.SubscriptionState)

	return models.VerifyResult{
		OK:        true,
		Status:    sub.Status,
		Active:    models.BoolPtr(sub.Status == models.StatusActive),
		IsSandbox: models.BoolPtr(sub.IsSandbox),
		StartDate: sub.StartDate,
		EndDate:   sub.EndDate,
	}, nil
}

func (s *VerificationService) reconcileApple(ctx context.Context, req models.VerifyRequest) (models.VerifyResult, error) {
	if s.Apple == nil {
		return models.VerifyResult{}, errors.New("app store verification not configured")
	}
	if err := s.resolveToken(ctx, &req, models.StoreAppleAppStore); err != nil {
		return models.VerifyResult{}, err
	}

	// A StoreKit2 token is a JSON blob carrying the original transaction id.
	// Anything else falls through to the legacy receipt path.
	trimmed := strings.TrimSpace(req.PurchaseToken)
	if strings.HasPrefix(trimmed, "{") {
		var tok models.StoreKitToken
		if err := json.Unmarshal([]byte(trimmed), &tok); err == nil {
			otid := tok.OriginalTransaction()
			if !transactionIDShape.MatchString(otid) {
				return models.VerifyResult{OK: false, Error: "invalid original transaction id"}, nil
			}
			if req.ProductID == "" {
				req.ProductID = tok.Product()
			}
			return s.reconcileStoreKit(ctx, req, otid)
		}
	}
	return s.reconcileReceipt(ctx, req)
}

func (s *VerificationService) reconcileStoreKit(ctx context.Context, req models.VerifyRequest, otid string) (models.VerifyResult, error) {
	candidates, sandbox, err := s.Apple.SubscriptionStatuses(ctx, otid)
	if err != nil {
		// Both hosts rejected the lookup. Reported softly so the client can
		// retry; nothing was written.
		return models.VerifyResult{OK: false, Source: "asc", Error: err.Error()}, nil
	}

	latest, ok := SelectLatestTransaction(candidates, req.ProductID)
	if !ok {
		touch := models.SubscriptionTouch{
			Status:           models.StatusPending,
			LastVerifiedDate: s.nowISO(),
			IsSandbox:        models.BoolPtr(sandbox),
		}
		if err := s.Subscriptions.UpdateByToken(ctx, req.PurchaseToken, touch); err != nil {
			return models.VerifyResult{}, err
		}
		return models.VerifyResult{OK: false, Reason: "no-candidates", IsSandbox: models.BoolPtr(sandbox)}, nil
	}

	expiresMs := normalizeMillis(latest.ExpiresDate)
	startMs := normalizeMillis(firstNonZero(latest.SignedDate, latest.OriginalPurchaseDate, latest.PurchaseDate))
	active := expiresMs > s.now().UnixMilli()
	canceled := latest.Revoked()

	productID := latest.ProductID
	if productID == "" {
		productID = req.ProductID
	}

	update := models.SubscriptionUpdate{
		ProductID:        productID,
		Status:           appleStatus(active, canceled),
		StartDate:        isoFromMillisPtr(startMs),
		EndDate:          isoFromMillisPtr(expiresMs),
		LastVerifiedDate: s.nowISO(),
		IsSandbox:        sandbox,
	}
	if err := s.Subscriptions.UpdateByToken(ctx, req.PurchaseToken, update); err != nil {
		return models.VerifyResult{}, err
	}

	s.logger().Info("reconciled", "op", "Reconcile", "store", models.StoreAppleAppStore,
		"user_id", req.UserID, "status", update.Status, "sandbox", sandbox)

	return models.VerifyResult{
		OK:        true,
		Status:    update.Status,
		Active:    models.BoolPtr(active),
		IsSandbox: models.BoolPtr(sandbox),
		StartDate: update.StartDate,
		EndDate:   update.EndDate,
	}, nil
}

func (s *VerificationService) reconcileReceipt(ctx context.Context, req models.VerifyRequest) (models.VerifyResult, error) {
	if !LooksLikeReceipt(req.PurchaseToken) {
		// Neither StoreKit2 JSON nor a base64 receipt. Only the verification
		// timestamp moves so the row does not look stale forever.
		touch := models.SubscriptionTouch{
			Status:           models.StatusPending,
			LastVerifiedDate: s.nowISO(),
		}
		if err := s.Subscriptions.UpdateByToken(ctx, req.PurchaseToken, touch); err != nil {
			return models.VerifyResult{}, err
		}
		return models.VerifyResult{OK: false, Error: "invalid ios token format"}, nil
	}

	resp, sandbox, err := s.Apple.VerifyReceipt(ctx, strings.TrimSpace(req.PurchaseToken))
	if err != nil {
		return models.VerifyResult{}, err
	}
	if resp.Status != 0 {
		touch := models.SubscriptionTouch{
			Status:           models.StatusPending,
			LastVerifiedDate: s.nowISO(),
			IsSandbox:        models.BoolPtr(sandbox),
		}
		if err := s.Subscriptions.UpdateByToken(ctx, req.PurchaseToken, touch); err != nil {
			return models.VerifyResult{}, err
		}
		return models.VerifyResult{OK: false, Source: "apple", Detail: fmt.Sprintf("status %d", resp.Status)}, nil
	}

	selected, ok := SelectLatestReceipt(resp.LatestReceiptInfo, req.ProductID)
	if !ok {
		touch := models.SubscriptionTouch{
			Status:           models.StatusExpired,
			LastVerifiedDate: s.nowISO(),
			IsSandbox:        models.BoolPtr(sandbox),
		}
		if err := s.Subscriptions.UpdateByToken(ctx, req.PurchaseToken, touch); err != nil {
			return models.VerifyResult{}, err
		}
		return models.VerifyResult{
			OK:        true,
			Status:    models.StatusExpired,
			Active:    models.BoolPtr(false),
			IsSandbox: models.BoolPtr(sandbox),
		}, nil
	}

	expiresMs := receiptMillis(selected.ExpiresDateMS)
	startMs := receiptMillis(selected.OriginalPurchaseDateMS)
	if startMs == 0 {
		startMs = receiptMillis(selected.PurchaseDateMS)
	}
	active := expiresMs > s.now().UnixMilli()
	canceled := receiptMillis(selected.CancellationDateMS) > 0

	update := models.SubscriptionUpdate{
		ProductID:        selected.ProductID,
		Status:           appleStatus(active, canceled),
		StartDate:        isoFromMillisPtr(startMs),
		EndDate:          isoFromMillisPtr(expiresMs),
		LastVerifiedDate: s.nowISO(),
		IsSandbox:        sandbox,
	}
	if err := s.Subscriptions.UpdateByToken(ctx, req.PurchaseToken, update); err != nil {
		return models.VerifyResult{}, err
	}

	return models.VerifyResult{
		OK:        true,
		Status:    update.Status,
		Active:    models.BoolPtr(active),
		IsSandbox: models.BoolPtr(sandbox),
		StartDate: update.StartDate,
		EndDate:   update.EndDate,
	}, nil
}

func appleStatus(active, canceled bool) string {
	switch {
	case canceled:
		return models.StatusCanceled
	case active:
		return models.StatusActive
	default:
		return models.StatusExpired
	}
}

func firstNonZero(vals ...int64) int64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
