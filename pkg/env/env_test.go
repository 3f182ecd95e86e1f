package env

import "testing"

func TestGetTrimsAndFallsBack(t *testing.T) {
	t.Setenv("WALLET_TEST_VALUE", "  json ")
	if got := Get("WALLET_TEST_VALUE", "console"); got != "json" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
	t.Setenv("WALLET_TEST_VALUE", "   ")
	if got := Get("WALLET_TEST_VALUE", "console"); got != "console" {
		t.Fatalf("expected fallback for blank value, got %q", got)
	}
}

func TestFirstSkipsBlankKeys(t *testing.T) {
	t.Setenv("WALLET_TEST_A", "")
	t.Setenv("WALLET_TEST_B", "b")
	if got := First("WALLET_TEST_A", "WALLET_TEST_B"); got != "b" {
		t.Fatalf("expected b, got %q", got)
	}
	if got := First("WALLET_TEST_MISSING"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
