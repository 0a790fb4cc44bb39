package utils

import (
	"testing"
	"time"
)

const testSecret = "test-secret-for-unit-tests"

func TestGenerateAndValidateJWT(t *testing.T) {
	token, err := GenerateJWT("64f0c2a1b3d4e5f6a7b8c9d0", "mjones", "teacher", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := ValidateJWT(token, testSecret)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if claims.UserID != "64f0c2a1b3d4e5f6a7b8c9d0" {
		t.Errorf("wrong user id: %q", claims.UserID)
	}
	if claims.Username != "mjones" {
		t.Errorf("wrong username: %q", claims.Username)
	}
	if claims.Role != "teacher" {
		t.Errorf("wrong role: %q", claims.Role)
	}
}

func TestValidateJWTWrongSecret(t *testing.T) {
	token, err := GenerateJWT("user", "user", "student", testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateJWT(token, "a-different-secret"); err == nil {
		t.Error("expected validation to fail with the wrong secret")
	}
}

func TestValidateExpiredJWT(t *testing.T) {
	token, err := GenerateJWT("user", "user", "student", testSecret, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateJWT(token, testSecret); err == nil {
		t.Error("expected validation to fail for an expired token")
	}
}

func TestExtractTokenFromHeader(t *testing.T) {
	if got := ExtractTokenFromHeader("Bearer abc123"); got != "abc123" {
		t.Errorf("got %q", got)
	}
	if got := ExtractTokenFromHeader("abc123"); got != "" {
		t.Errorf("expected empty for malformed header, got %q", got)
	}
	if got := ExtractTokenFromHeader(""); got != "" {
		t.Errorf("expected empty for missing header, got %q", got)
	}
}
