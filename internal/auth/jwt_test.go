package auth

import (
	"testing"
	"time"
)

func TestGenerateAndValidate(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)

	token, err := manager.GenerateToken("ops")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("failed to validate token: %v", err)
	}
	if claims.Operator != "ops" {
		t.Errorf("expected operator ops, got %s", claims.Operator)
	}
	if claims.Issuer != "breakout-bot" {
		t.Errorf("unexpected issuer: %s", claims.Issuer)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-a", time.Hour).GenerateToken("ops")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if _, err := NewJWTManager("secret-b", time.Hour).ValidateToken(token); err == nil {
		t.Error("expected validation failure with mismatched secret")
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	manager := NewJWTManager("test-secret", -time.Minute)

	token, err := manager.GenerateToken("ops")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if _, err := manager.ValidateToken(token); err == nil {
		t.Error("expected validation failure for expired token")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)
	if _, err := manager.ValidateToken("not.a.token"); err == nil {
		t.Error("expected validation failure for malformed token")
	}
}
