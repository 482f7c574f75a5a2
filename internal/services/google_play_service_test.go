package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"

	"wonmoreBack/internal/models"
)

func TestMapSubscriptionState(t *testing.T) {
	cases := []struct {
		state             string
		status            string
		canceledPeriodEnd bool
	}{
		{"SUBSCRIPTION_STATE_PENDING", models.StatusPending, false},
		{"SUBSCRIPTION_STATE_ACTIVE", models.StatusActive, false},
		{"SUBSCRIPTION_STATE_PAUSED", models.StatusPaused, false},
		{"SUBSCRIPTION_STATE_IN_GRACE_PERIOD", models.StatusPastDue, false},
		{"SUBSCRIPTION_STATE_ON_HOLD", models.StatusPastDue, false},
		{"SUBSCRIPTION_STATE_CANCELED", models.StatusCanceled, true},
		{"SUBSCRIPTION_STATE_EXPIRED", models.StatusExpired, false},
		{"SUBSCRIPTION_STATE_PENDING_PURCHASE_CANCELED", models.StatusCanceled, false},
		{"SUBSCRIPTION_STATE_UNSPECIFIED", models.StatusUnknown, false},
		{"", models.StatusUnknown, false},
	}
	for _, c := range cases {
		t.Run(c.state, func(t *testing.T) {
			status, cpe := MapSubscriptionState(c.state)
			if status != c.status || cpe != c.canceledPeriodEnd {
				t.Errorf("MapSubscriptionState(%q) = (%q, %v), want (%q, %v)",
					c.state, status, cpe, c.status, c.canceledPeriodEnd)
			}
		})
	}
}

func newTestPlayService(t *testing.T, handler http.HandlerFunc) *GooglePlayService {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	svc, err := NewGooglePlayService(context.Background(), GooglePlayConfig{
		PackageName: "com.example.wonmore",
		TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"}),
		Endpoint:    ts.URL,
	})
	if err != nil {
		t.Fatalf("NewGooglePlayService: %v", err)
	}
	return svc
}

func TestVerifySubscriptionActive(t *testing.T) {
	svc := newTestPlayService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"subscriptionState":    "SUBSCRIPTION_STATE_ACTIVE",
			"acknowledgementState": "ACKNOWLEDGEMENT_STATE_ACKNOWLEDGED",
			"startTime":            "2024-01-01T00:00:00Z",
			"lineItems": []map[string]any{
				{"productId": "premium_monthly", "expiryTime": "2030-01-01T00:00:00Z"},
			},
		})
	})

	sub, err := svc.VerifySubscription(context.Background(), "tok-123")
	if err != nil {
		t.Fatalf("VerifySubscription: %v", err)
	}
	if sub.Status != models.StatusActive {
		t.Errorf("status = %q, want active", sub.Status)
	}
	if sub.ProductID != "premium_monthly" {
		t.Errorf("product id = %q", sub.ProductID)
	}
	if sub.EndDate == nil || *sub.EndDate != "2030-01-01T00:00:00.000Z" {
		t.Errorf("end date = %v", sub.EndDate)
	}
	if sub.StartDate == nil || *sub.StartDate != "2024-01-01T00:00:00.000Z" {
		t.Errorf("start date = %v", sub.StartDate)
	}
	if sub.IsSandbox {
		t.Error("expected production purchase")
	}
}

func TestVerifySubscriptionSandbox(t *testing.T) {
	svc := newTestPlayService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"subscriptionState": "SUBSCRIPTION_STATE_CANCELED",
			"testPurchase":      map[string]any{},
			"lineItems": []map[string]any{
				{"productId": "premium_monthly", "expiryTime": "2030-01-01T00:00:00Z"},
			},
		})
	})

	sub, err := svc.VerifySubscription(context.Background(), "tok-123")
	if err != nil {
		t.Fatalf("VerifySubscription: %v", err)
	}
	if !sub.IsSandbox {
		t.Error("testPurchase should mark the result as sandbox")
	}
	if sub.Status != models.StatusCanceled || !sub.CanceledPeriodEnd {
		t.Errorf("status = %q, canceledPeriodEnd = %v", sub.Status, sub.CanceledPeriodEnd)
	}
}

func TestVerifySubscriptionStoreError(t *testing.T) {
	svc := newTestPlayService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"Invalid Value"}}`)
	})

	_, err := svc.VerifySubscription(context.Background(), "bad-token")
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreError, got %T: %v", err, err)
	}
	if storeErr.Source != "google" || storeErr.StatusCode != http.StatusBadRequest {
		t.Errorf("unexpected store error: %+v", storeErr)
	}
}

func TestVerifySubscriptionEmptyToken(t *testing.T) {
	svc := newTestPlayService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty token")
	})
	if _, err := svc.VerifySubscription(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty purchase token")
	}
}
