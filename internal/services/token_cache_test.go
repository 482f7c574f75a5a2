package services

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

type countingTokenSource struct {
	calls int
	tok   *oauth2.Token
	err   error
}

func (c *countingTokenSource) Token() (*oauth2.Token, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.tok, nil
}

func TestCachedTokenSourceWithoutRedis(t *testing.T) {
	base := &countingTokenSource{tok: &oauth2.Token{
		AccessToken: "abc",
		Expiry:      time.Now().Add(time.Hour),
	}}
	src := NewCachedTokenSource(nil, "oauth:test", base)

	tok, err := src.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok.AccessToken != "abc" {
		t.Errorf("token = %q", tok.AccessToken)
	}
	if base.calls != 1 {
		t.Errorf("base calls = %d", base.calls)
	}

	// No redis means no caching layer; every call hits the base source.
	if _, err := src.Token(); err != nil {
		t.Fatalf("Token: %v", err)
	}
	if base.calls != 2 {
		t.Errorf("base calls = %d, want 2", base.calls)
	}
}

func TestCachedTokenSourcePropagatesError(t *testing.T) {
	base := &countingTokenSource{err: errors.New("key rejected")}
	src := NewCachedTokenSource(nil, "oauth:test", base)
	if _, err := src.Token(); err == nil {
		t.Fatal("expected base error to propagate")
	}
}
