package credentials

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rider-agent/internal/common/jwt"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeToken(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write token: %v", err)
	}
	return path
}

func TestCredentialFromTokenFile(t *testing.T) {
	signed, _, err := jwt.NewManager("backend-secret", time.Hour).IssueRiderToken("rider-9")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	store := NewFileStore(writeToken(t, signed+"\n"), discardLogger())

	cred, err := store.Credential(context.Background())
	if err != nil {
		t.Fatalf("credential: %v", err)
	}
	if cred.RiderID != "rider-9" {
		t.Fatalf("unexpected rider id: %q", cred.RiderID)
	}
	if cred.Token != signed {
		t.Fatal("token must be returned trimmed, without the trailing newline")
	}
}

func TestCredentialPicksUpRotation(t *testing.T) {
	m := jwt.NewManager("backend-secret", time.Hour)
	first, _, _ := m.IssueRiderToken("rider-1")
	path := writeToken(t, first)
	store := NewFileStore(path, discardLogger())

	if cred, err := store.Credential(context.Background()); err != nil || cred.RiderID != "rider-1" {
		t.Fatalf("first read: %v %+v", err, cred)
	}

	second, _, _ := m.IssueRiderToken("rider-2")
	if err := os.WriteFile(path, []byte(second), 0o600); err != nil {
		t.Fatalf("rotate token: %v", err)
	}
	cred, err := store.Credential(context.Background())
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if cred.RiderID != "rider-2" {
		t.Fatalf("rotation not picked up, rider id %q", cred.RiderID)
	}
}

func TestCredentialExpiredIsStillReturned(t *testing.T) {
	signed, _, err := jwt.NewManager("backend-secret", -time.Minute).IssueRiderToken("rider-3")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	store := NewFileStore(writeToken(t, signed), discardLogger())

	cred, err := store.Credential(context.Background())
	if err != nil {
		t.Fatalf("expired token must still be returned: %v", err)
	}
	if cred.RiderID != "rider-3" {
		t.Fatalf("unexpected rider id: %q", cred.RiderID)
	}
}

func TestCredentialErrors(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent"), discardLogger())
	if _, err := store.Credential(context.Background()); err == nil {
		t.Fatal("expected an error for a missing file")
	}

	store = NewFileStore(writeToken(t, "  \n"), discardLogger())
	if _, err := store.Credential(context.Background()); err == nil {
		t.Fatal("expected an error for an empty file")
	}

	store = NewFileStore(writeToken(t, "garbage"), discardLogger())
	if _, err := store.Credential(context.Background()); err == nil {
		t.Fatal("expected an error for a non-JWT token")
	}
}
