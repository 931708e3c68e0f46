package solana

import "testing"

func TestValidAddress(t *testing.T) {
	valid := []string{
		"So11111111111111111111111111111111111111112",  // wrapped SOL mint
		"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", // USDC mint
		"11111111111111111111111111111111",             // system program
	}
	for _, addr := range valid {
		if !ValidAddress(addr) {
			t.Errorf("ValidAddress(%q) = false, want true", addr)
		}
	}

	invalid := []string{
		"",
		"abc",            // too short
		"not-base58!",    // invalid alphabet
		"0OIl0OIl0OIl0O", // characters excluded from base58
	}
	for _, addr := range invalid {
		if ValidAddress(addr) {
			t.Errorf("ValidAddress(%q) = true, want false", addr)
		}
	}
}

func TestIsOnCurve_InvalidInput(t *testing.T) {
	if IsOnCurve("not-base58!") {
		t.Error("IsOnCurve accepted invalid base58")
	}
	if IsOnCurve("abc") {
		t.Error("IsOnCurve accepted a short address")
	}
}
