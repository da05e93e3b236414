package domain

import "testing"

func TestClassifySourceError(t *testing.T) {
	cases := []struct {
		code  int
		kind  ErrorKind
		fatal bool
	}{
		{CodePermissionDenied, KindPermissionDenied, true},
		{CodePositionUnavailable, KindPositionUnavailable, false},
		{CodeTimeout, KindTimeout, false},
		{0, KindUnknown, false},
		{42, KindUnknown, false},
		{-1, KindUnknown, false},
	}

	for _, c := range cases {
		e := ClassifySourceError(c.code, "msg")
		if e.Kind != c.kind {
			t.Fatalf("code %d: expected %s, got %s", c.code, c.kind, e.Kind)
		}
		if e.Kind.Fatal() != c.fatal {
			t.Fatalf("kind %s: expected fatal=%v", e.Kind, c.fatal)
		}
	}
}

func TestErrorKindFatality(t *testing.T) {
	if !KindUnsupported.Fatal() {
		t.Fatal("UNSUPPORTED must be fatal")
	}
	if KindNetworkSendFailed.Fatal() {
		t.Fatal("a failed send must never be fatal")
	}
	if KindUnknown.Fatal() {
		t.Fatal("unrecognized conditions must be treated as transient")
	}
}

func TestShareErrorMessage(t *testing.T) {
	e := &ShareError{Kind: KindTimeout, Message: "fix took too long"}
	if e.Error() != "TIMEOUT: fix took too long" {
		t.Fatalf("unexpected error text: %s", e.Error())
	}
	bare := &ShareError{Kind: KindTimeout}
	if bare.Error() != "TIMEOUT" {
		t.Fatalf("unexpected bare error text: %s", bare.Error())
	}
}
