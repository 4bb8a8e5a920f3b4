package authn

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStateLifecycle(t *testing.T) {
	s := NewState(MintingTokens("secret", time.Minute))
	if s.Loaded() {
		t.Fatalf("new state must not be loaded")
	}
	s.SignIn("user-1")
	if !s.Loaded() || s.UserID() != "user-1" {
		t.Fatalf("sign in not applied")
	}
	tok, err := s.Token(context.Background())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	sub, err := Verify("secret", tok)
	if err != nil || sub != "user-1" {
		t.Fatalf("verify: %s %v", sub, err)
	}
	s.SignOut()
	if _, err := s.Token(context.Background()); !errors.Is(err, ErrSignedOut) {
		t.Fatalf("expected signed out, got %v", err)
	}
}

func TestVerifyRejects(t *testing.T) {
	tok, err := Mint("secret", "u", time.Minute, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Verify("other", tok); err == nil {
		t.Fatalf("wrong secret accepted")
	}
	expired, _ := Mint("secret", "u", time.Minute, time.Now().Add(-time.Hour))
	if _, err := Verify("secret", expired); err == nil {
		t.Fatalf("expired token accepted")
	}
	if _, err := Mint("", "u", time.Minute, time.Now()); err == nil {
		t.Fatalf("empty secret accepted")
	}
}
