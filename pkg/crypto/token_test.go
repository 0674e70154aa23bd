package crypto

import (
	"strings"
	"testing"
)

func TestInternalHMACToken_RoundTrip(t *testing.T) {
	t.Parallel()

	token := GenerateInternalHMACToken("gateway-1", "secret")
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	if !VerifyInternalHMACToken("gateway-1", token, "secret") {
		t.Fatal("expected token to verify")
	}
	if VerifyInternalHMACToken("gateway-2", token, "secret") {
		t.Fatal("expected token bound to the service id")
	}
	if VerifyInternalHMACToken("gateway-1", token, "other-secret") {
		t.Fatal("expected token bound to the secret")
	}
}

func TestGenerateInternalHMACToken_EmptyInputs(t *testing.T) {
	t.Parallel()

	if GenerateInternalHMACToken("", "secret") != "" {
		t.Fatal("expected empty token for blank service id")
	}
	if GenerateInternalHMACToken("gateway", "") != "" {
		t.Fatal("expected empty token for blank secret")
	}
	if VerifyInternalHMACToken("gateway", "deadbeef", "") {
		t.Fatal("expected verification to fail without a secret")
	}
}

func TestRandomCode(t *testing.T) {
	t.Parallel()

	code := RandomCode(8)
	if len(code) != 8 {
		t.Fatalf("expected 8 characters, got %d", len(code))
	}
	for _, r := range code {
		if !strings.ContainsRune(codeCharset, r) {
			t.Fatalf("unexpected character %q in code %q", r, code)
		}
	}

	if RandomCode(0) != "" {
		t.Fatal("expected empty code for zero length")
	}
}
