package utils_test

import (
	"strings"
	"testing"

	"github.com/ltdedn/editions_backend/utils"
)

func TestGenerateQRCodeDeterministic(t *testing.T) {
	a := utils.GenerateQRCode(1, 7, "midnight-print")
	b := utils.GenerateQRCode(1, 7, "midnight-print")
	if a != b {
		t.Fatalf("same inputs produced different codes: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d (%q)", len(a), a)
	}
}

func TestGenerateQRCodeDistinctPerEdition(t *testing.T) {
	seen := map[string]bool{}
	for number := 1; number <= 100; number++ {
		code := utils.GenerateQRCode(1, number, "midnight-print")
		if seen[code] {
			t.Fatalf("duplicate code for edition %d", number)
		}
		seen[code] = true
	}
	if utils.GenerateQRCode(1, 1, "midnight-print") == utils.GenerateQRCode(2, 1, "midnight-print") {
		t.Fatal("different products produced the same code")
	}
}

func TestVerifyQRCode(t *testing.T) {
	code := utils.GenerateQRCode(3, 12, "slug")
	if !utils.VerifyQRCode(3, 12, "slug", code) {
		t.Fatal("valid code did not verify")
	}
	if utils.VerifyQRCode(3, 13, "slug", code) {
		t.Fatal("code verified against the wrong edition number")
	}
	if utils.VerifyQRCode(3, 12, "slug", code[:63]+"0") {
		t.Fatal("tampered code verified")
	}
}

func TestGenerateShortQRCode(t *testing.T) {
	short := utils.GenerateShortQRCode(1, 7, "midnight-print")
	if len(short) != 8 {
		t.Fatalf("expected 8 chars, got %d (%q)", len(short), short)
	}
	if short != strings.ToUpper(short) {
		t.Fatalf("short code not uppercase: %q", short)
	}
	if short != utils.GenerateShortQRCode(1, 7, "midnight-print") {
		t.Fatal("short code is not deterministic")
	}
}
