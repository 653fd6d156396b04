package jwtutil

import (
	"errors"
	"testing"

	"taskhub/internal/model"
	"taskhub/pkg/config"

	"github.com/google/uuid"
)

func testUser() *model.User {
	tenantID := uuid.New()
	return &model.User{
		ID:       uuid.New(),
		TenantID: &tenantID,
		Email:    "admin@acme.test",
		FullName: "Acme Admin",
		Role:     model.RoleTenantAdmin,
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})

	user := testUser()
	token, err := GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("user id = %v, want %v", claims.UserID, user.ID)
	}
	if claims.TenantID == nil || *claims.TenantID != *user.TenantID {
		t.Errorf("tenant id = %v, want %v", claims.TenantID, user.TenantID)
	}
	if claims.Email != user.Email {
		t.Errorf("email = %q, want %q", claims.Email, user.Email)
	}
	if claims.Role != model.RoleTenantAdmin {
		t.Errorf("role = %q, want %q", claims.Role, model.RoleTenantAdmin)
	}
}

func TestValidateToken_SuperAdminWithoutTenant(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})

	user := &model.User{
		ID:    uuid.New(),
		Email: "root@taskhub.test",
		Role:  model.RoleSuperAdmin,
	}
	token, err := GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.TenantID != nil {
		t.Errorf("tenant id = %v, want nil", claims.TenantID)
	}
}

func TestValidateToken_Expired(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: -1})

	token, err := GenerateToken(testUser())
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})
	if _, err := ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("ValidateToken() error = %v, want ErrExpiredToken", err)
	}
}

func TestValidateToken_WrongKey(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "first-key", ExpirationHours: 1})

	token, err := GenerateToken(testUser())
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	Initialize(&config.JWTConfig{SigningKey: "second-key", ExpirationHours: 1})
	if _, err := ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateToken() error = %v, want ErrInvalidToken", err)
	}
}

func TestValidateToken_Malformed(t *testing.T) {
	Initialize(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})

	for _, token := range []string{"", "not-a-token", "aaa.bbb.ccc"} {
		if _, err := ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ValidateToken(%q) error = %v, want ErrInvalidToken", token, err)
		}
	}
}
