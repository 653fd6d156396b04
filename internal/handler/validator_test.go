package handler

import (
	"strings"
	"testing"

	"taskhub/internal/apperr"
)

func TestRequestValidator_FieldMessages(t *testing.T) {
	v := NewRequestValidator()

	type registerRequest struct {
		TenantName    string `json:"tenant_name" validate:"required"`
		Subdomain     string `json:"subdomain" validate:"required,hostname_rfc1123"`
		AdminEmail    string `json:"admin_email" validate:"required,email"`
		AdminPassword string `json:"admin_password" validate:"required,min=8"`
	}

	err := v.Validate(&registerRequest{
		TenantName:    "Acme",
		Subdomain:     "not a subdomain",
		AdminEmail:    "not-an-email",
		AdminPassword: "short",
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("error = %v, want validation kind", err)
	}

	msg := apperr.MessageOf(err)
	for _, want := range []string{
		"subdomain must be a valid subdomain",
		"admin_email must be a valid email address",
		"admin_password must be at least 8 characters",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
	// Struct-internal naming must never reach the client.
	for _, leak := range []string{"registerRequest", "AdminEmail", "Key:", "Error:Field"} {
		if strings.Contains(msg, leak) {
			t.Errorf("message %q leaks %q", msg, leak)
		}
	}

	if err := v.Validate(&registerRequest{}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("empty struct: error = %v, want validation kind", err)
	} else if !strings.Contains(apperr.MessageOf(err), "tenant_name is required") {
		t.Errorf("message %q missing required-field report", apperr.MessageOf(err))
	}

	if err := v.Validate(&registerRequest{
		TenantName:    "Acme",
		Subdomain:     "acme",
		AdminEmail:    "admin@acme.test",
		AdminPassword: "long-enough-password",
	}); err != nil {
		t.Errorf("valid struct: error = %v", err)
	}
}
