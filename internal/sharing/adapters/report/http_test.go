package report

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rider-agent/internal/sharing/domain"
)

type staticCreds struct {
	cred domain.Credential
	err  error
}

func (s staticCreds) Credential(ctx context.Context) (domain.Credential, error) {
	return s.cred, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendBuildsCorrectRequest(t *testing.T) {
	heading := 270.0
	captured := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)

	var gotPath, gotAuth, gotMethod string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	rep := NewHTTPReporter(srv.URL, 5*time.Second, staticCreds{cred: domain.Credential{Token: "tok123", RiderID: "rider-1"}}, discardLogger())

	sentAt, err := rep.Send(context.Background(), domain.PositionReading{
		Latitude:       1.5,
		Longitude:      2.5,
		AccuracyMeters: 8,
		HeadingDegrees: &heading,
		SpeedMps:       nil,
		CapturedAt:     captured,
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sentAt.IsZero() {
		t.Fatal("expected a send timestamp")
	}

	if gotMethod != http.MethodPut {
		t.Fatalf("expected PUT, got %s", gotMethod)
	}
	if gotPath != "/riders/rider-1/location" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotAuth != "Bearer tok123" {
		t.Fatalf("unexpected auth header: %s", gotAuth)
	}
	if gotBody["lat"] != 1.5 || gotBody["lng"] != 2.5 || gotBody["accuracy"] != 8.0 {
		t.Fatalf("unexpected body: %+v", gotBody)
	}
	if gotBody["heading"] != 270.0 {
		t.Fatalf("expected heading 270, got %v", gotBody["heading"])
	}
	if v, present := gotBody["speed"]; !present || v != nil {
		t.Fatalf("expected speed to serialize as null, got %v (present=%v)", v, present)
	}
	if gotBody["timestamp"] != "2026-08-25T10:30:00Z" {
		t.Fatalf("unexpected timestamp: %v", gotBody["timestamp"])
	}
}

func TestSendRejectedByRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	rep := NewHTTPReporter(srv.URL, 5*time.Second, staticCreds{cred: domain.Credential{Token: "t", RiderID: "r"}}, discardLogger())

	_, err := rep.Send(context.Background(), domain.PositionReading{CapturedAt: time.Now()})
	if !errors.Is(err, domain.ErrRemoteRejected) {
		t.Fatalf("expected ErrRemoteRejected, got %v", err)
	}
}

func TestSendWithoutCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request must reach the backend without a credential")
	}))
	defer srv.Close()

	rep := NewHTTPReporter(srv.URL, 5*time.Second, staticCreds{err: errors.New("file missing")}, discardLogger())
	if _, err := rep.Send(context.Background(), domain.PositionReading{}); !errors.Is(err, domain.ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}

	rep = NewHTTPReporter(srv.URL, 5*time.Second, staticCreds{cred: domain.Credential{}}, discardLogger())
	if _, err := rep.Send(context.Background(), domain.PositionReading{}); !errors.Is(err, domain.ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential for empty token, got %v", err)
	}
}

func TestSendNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	rep := NewHTTPReporter(srv.URL, time.Second, staticCreds{cred: domain.Credential{Token: "t", RiderID: "r"}}, discardLogger())
	if _, err := rep.Send(context.Background(), domain.PositionReading{CapturedAt: time.Now()}); err == nil {
		t.Fatal("expected transport error")
	}
}
