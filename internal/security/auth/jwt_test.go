package auth

import (
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	tm := NewTokenManager("test-secret", "tenantplane")

	token, err := tm.GenerateToken("op-1", "ops@example.com", "operator", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := tm.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.OperatorID != "op-1" {
		t.Errorf("expected operator op-1, got %s", claims.OperatorID)
	}
	if claims.Email != "ops@example.com" {
		t.Errorf("unexpected email %s", claims.Email)
	}
	if claims.Issuer != "tenantplane" {
		t.Errorf("unexpected issuer %s", claims.Issuer)
	}
}

func TestGenerateTokenRequiresOperator(t *testing.T) {
	tm := NewTokenManager("test-secret", "")
	if _, err := tm.GenerateToken("", "ops@example.com", "operator", time.Hour); err == nil {
		t.Error("expected error for missing operator id")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret", "")
	token, err := tm.GenerateToken("op-1", "", "", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	other := NewTokenManager("different-secret", "")
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("expected validation to fail with wrong secret")
	}
}

func TestValidateExpiredToken(t *testing.T) {
	tm := NewTokenManager("test-secret", "")
	token, err := tm.GenerateToken("op-1", "", "", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := tm.ValidateToken(token); err == nil {
		t.Error("expected validation to fail for expired token")
	}
}

func TestExtractToken(t *testing.T) {
	token, err := ExtractToken("Bearer abc123")
	if err != nil {
		t.Fatalf("ExtractToken failed: %v", err)
	}
	if token != "abc123" {
		t.Errorf("unexpected token %s", token)
	}

	for _, header := range []string{"", "abc123", "Basic abc123", "Bearer a b"} {
		if _, err := ExtractToken(header); err == nil {
			t.Errorf("expected error for header %q", header)
		}
	}
}
