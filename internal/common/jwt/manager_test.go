package jwt

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndValidateRoundTrip(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	signed, claims, err := m.IssueRiderToken("rider-42")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if claims.Subject != "rider-42" || claims.Role != "RIDER" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	got, err := m.ParseAndValidate(signed)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.Subject != "rider-42" || got.Role != "RIDER" {
		t.Fatalf("unexpected parsed claims: %+v", got)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	signed, _, err := NewManager("secret-a", time.Hour).IssueRiderToken("rider-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewManager("secret-b", time.Hour).ParseAndValidate(signed); err == nil {
		t.Fatal("expected validation to fail with the wrong secret")
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	signed, _, err := NewManager("secret", -time.Minute).IssueRiderToken("rider-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewManager("secret", time.Hour).ParseAndValidate(signed); err == nil {
		t.Fatal("expected validation to fail for an expired token")
	}
}

func TestPeekClaimsWithoutSecret(t *testing.T) {
	signed, _, err := NewManager("backend-only-secret", time.Hour).IssueRiderToken("rider-7")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := PeekClaims(signed)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if claims.Subject != "rider-7" {
		t.Fatalf("unexpected subject: %q", claims.Subject)
	}
	if claims.Expired(time.Now()) {
		t.Fatal("fresh token must not report expired")
	}
}

func TestPeekClaimsRequiresSubject(t *testing.T) {
	signed, _, err := NewManager("s", time.Hour).IssueRiderToken("")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := PeekClaims(signed); !errors.Is(err, ErrMissingSubject) {
		t.Fatalf("expected ErrMissingSubject, got %v", err)
	}
}

func TestPeekClaimsRejectsGarbage(t *testing.T) {
	if _, err := PeekClaims("not-a-token"); err == nil {
		t.Fatal("expected an error for a malformed token")
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()
	past := NewRiderClaims("r", -time.Minute)
	if !past.Expired(now) {
		t.Fatal("past expiry must report expired")
	}
	future := NewRiderClaims("r", time.Minute)
	if future.Expired(now) {
		t.Fatal("future expiry must not report expired")
	}
	if (&Claims{}).Expired(now) {
		t.Fatal("claims without an expiry must not report expired")
	}
}

func TestNewManagerPanicsOnEmptySecret(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for an empty secret")
		}
	}()
	NewManager("   ", time.Hour)
}
