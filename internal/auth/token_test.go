package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	tokens := NewTokens("secret", "quiz-unlock-service", time.Hour)

	signed, err := tokens.Issue("u1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	userID, err := tokens.UserID("Bearer " + signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != "u1" {
		t.Fatalf("expected u1, got %q", userID)
	}
}

func TestRejectsForeignAndExpiredTokens(t *testing.T) {
	tokens := NewTokens("secret", "quiz-unlock-service", time.Hour)
	other := NewTokens("other-secret", "quiz-unlock-service", time.Hour)

	signed, _ := other.Issue("u1")
	if _, err := tokens.UserID(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for foreign secret, got %v", err)
	}

	signed, _ = tokens.Issue("u1")
	tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := tokens.UserID(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token after expiry, got %v", err)
	}

	if _, err := tokens.UserID("  "); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token, got %v", err)
	}
}
