package utils_test

import (
	"testing"

	"github.com/ltdedn/editions_backend/utils"
)

func TestJwtRoundTrip(t *testing.T) {
	token, err := utils.JwtGenerate(42, "collector")
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}

	parsed, err := utils.JwtValidate(token)
	if err != nil {
		t.Fatalf("JwtValidate: %v", err)
	}
	if !parsed.Valid {
		t.Fatal("generated token did not validate")
	}

	claims, ok := parsed.Claims.(*utils.JwtCustomClaim)
	if !ok {
		t.Fatalf("unexpected claims type %T", parsed.Claims)
	}
	if claims.ID != 42 {
		t.Fatalf("expected user id 42, got %d", claims.ID)
	}
	if claims.Role != "collector" {
		t.Fatalf("expected role collector, got %q", claims.Role)
	}
}

func TestJwtValidateRejectsGarbage(t *testing.T) {
	if _, err := utils.JwtValidate("not.a.token"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}

func TestRandomToken(t *testing.T) {
	a, err := utils.RandomToken()
	if err != nil {
		t.Fatalf("RandomToken: %v", err)
	}
	b, err := utils.RandomToken()
	if err != nil {
		t.Fatalf("RandomToken: %v", err)
	}
	if len(a) != 64 || len(b) != 64 {
		t.Fatalf("expected 64-char tokens, got %d and %d", len(a), len(b))
	}
	if a == b {
		t.Fatal("two tokens collided")
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"a@b.co", "collector+tag@example.org"}
	invalid := []string{"", "no-at.example.org", "a@b"}
	for _, e := range valid {
		if !utils.IsValidEmail(e) {
			t.Errorf("expected %q to be valid", e)
		}
	}
	for _, e := range invalid {
		if utils.IsValidEmail(e) {
			t.Errorf("expected %q to be invalid", e)
		}
	}
}
