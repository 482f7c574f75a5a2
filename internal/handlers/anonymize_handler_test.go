package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	"wonmoreBack/internal/services"
)

const testJWTSecret = "super-secret-jwt-key"

type fakeAccounts struct {
	anonymized []string
	tokens     []string
}

func (f *fakeAccounts) AnonymizeUser(ctx context.Context, userID string) error {
	f.anonymized = append(f.anonymized, userID)
	return nil
}

func (f *fakeAccounts) DeleteDeviceTokens(ctx context.Context, userID string) error {
	f.tokens = append(f.tokens, userID)
	return nil
}

type fakeAuth struct {
	deleted []string
}

func (f *fakeAuth) AdminDeleteUser(ctx context.Context, userID string) error {
	f.deleted = append(f.deleted, userID)
	return nil
}

func sessionToken(t *testing.T, sub, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign session token: %v", err)
	}
	return signed
}

func postAnonymize(t *testing.T, h *AnonymizeHandler, auth string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/anonymize-account", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rr := httptest.NewRecorder()
	h.AnonymizeAccount(rr, req)
	return rr
}

func TestAnonymizeAccount(t *testing.T) {
	accounts := &fakeAccounts{}
	auth := &fakeAuth{}
	svc := &services.AccountService{Accounts: accounts, Auth: auth}
	h := NewAnonymizeHandler(svc, testJWTSecret)

	rr := postAnonymize(t, h, "Bearer "+sessionToken(t, "user-1", testJWTSecret))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if len(accounts.anonymized) != 1 || accounts.anonymized[0] != "user-1" {
		t.Errorf("anonymized = %v", accounts.anonymized)
	}
	if len(auth.deleted) != 1 || auth.deleted[0] != "user-1" {
		t.Errorf("deleted = %v", auth.deleted)
	}
	if !strings.Contains(rr.Body.String(), `"ok":true`) {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestAnonymizeAccountMissingAuth(t *testing.T) {
	h := NewAnonymizeHandler(&services.AccountService{}, testJWTSecret)
	rr := postAnonymize(t, h, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestAnonymizeAccountWrongSecret(t *testing.T) {
	accounts := &fakeAccounts{}
	svc := &services.AccountService{Accounts: accounts, Auth: &fakeAuth{}}
	h := NewAnonymizeHandler(svc, testJWTSecret)

	rr := postAnonymize(t, h, "Bearer "+sessionToken(t, "user-1", "other-secret"))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rr.Code)
	}
	if len(accounts.anonymized) != 0 {
		t.Error("nothing should be anonymized with a forged token")
	}
}

func TestAnonymizeAccountMissingSub(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, _ := token.SignedString([]byte(testJWTSecret))

	h := NewAnonymizeHandler(&services.AccountService{}, testJWTSecret)
	rr := postAnonymize(t, h, "Bearer "+signed)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rr.Code)
	}
}
