package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"wonmoreBack/internal/models"
)

func newTestRest(t *testing.T, handler http.HandlerFunc) *SupabaseREST {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	rest, err := NewSupabaseREST(SupabaseRESTConfig{
		ProjectURL:     ts.URL,
		ServiceRoleKey: "service-role-key",
	})
	if err != nil {
		t.Fatalf("NewSupabaseREST: %v", err)
	}
	return rest
}

func TestLatestByUser(t *testing.T) {
	rest := newTestRest(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/subscriptions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("apikey"); got != "service-role-key" {
			t.Errorf("apikey header = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer service-role-key" {
			t.Errorf("authorization header = %q", got)
		}
		q := r.URL.Query()
		if q.Get("user_id") != "eq.u1" || q.Get("store") != "eq.google_play" {
			t.Errorf("query = %v", q)
		}
		if q.Get("order") != "created_at.desc" || q.Get("limit") != "1" {
			t.Errorf("query = %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]models.SubscriptionRecord{{
			UserID:        "u1",
			PurchaseToken: "tok-1",
			ProductID:     "premium_monthly",
		}})
	})

	repo := NewSubscriptionRepository(rest)
	row, err := repo.LatestByUser(context.Background(), "u1", models.StoreGooglePlay)
	if err != nil {
		t.Fatalf("LatestByUser: %v", err)
	}
	if row.PurchaseToken != "tok-1" {
		t.Errorf("row = %+v", row)
	}
}

func TestLatestByUserNotFound(t *testing.T) {
	rest := newTestRest(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	})

	repo := NewSubscriptionRepository(rest)
	_, err := repo.LatestByUser(context.Background(), "u1", "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLatestByUserOmitsStoreFilter(t *testing.T) {
	rest := newTestRest(t, func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.URL.Query()["store"]; ok {
			t.Error("store filter should be absent when no store is given")
		}
		_, _ = w.Write([]byte("[]"))
	})
	repo := NewSubscriptionRepository(rest)
	_, _ = repo.LatestByUser(context.Background(), "u1", "")
}

func TestUpdateByToken(t *testing.T) {
	var gotBody []byte
	rest := newTestRest(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s", r.Method)
		}
		if got := r.URL.Query().Get("purchase_token"); got != "eq.tok-1" {
			t.Errorf("purchase_token filter = %q", got)
		}
		if got := r.Header.Get("Prefer"); got != "return=minimal" {
			t.Errorf("prefer header = %q", got)
		}
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	})

	repo := NewSubscriptionRepository(rest)
	update := models.SubscriptionUpdate{Status: models.StatusActive, LastVerifiedDate: "2026-01-01T00:00:00.000Z"}
	if err := repo.UpdateByToken(context.Background(), "tok-1", update); err != nil {
		t.Fatalf("UpdateByToken: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("payload not json: %v", err)
	}
	if decoded["status"] != "active" {
		t.Errorf("payload = %v", decoded)
	}
}

func TestSupabaseErrorSurfaced(t *testing.T) {
	rest := newTestRest(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"permission denied"}`, http.StatusForbidden)
	})

	repo := NewSubscriptionRepository(rest)
	err := repo.UpdateByToken(context.Background(), "tok-1", models.SubscriptionTouch{})
	var supaErr *SupabaseError
	if !errors.As(err, &supaErr) {
		t.Fatalf("expected SupabaseError, got %T: %v", err, err)
	}
	if supaErr.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d", supaErr.StatusCode)
	}
}

func TestAdminDeleteUser(t *testing.T) {
	rest := newTestRest(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/auth/v1/admin/users/user-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	})
	if err := rest.AdminDeleteUser(context.Background(), "user-1"); err != nil {
		t.Fatalf("AdminDeleteUser: %v", err)
	}
}
