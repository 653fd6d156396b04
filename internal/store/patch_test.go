package store

import (
	"encoding/json"
	"testing"

	"taskhub/internal/apperr"

	"github.com/google/uuid"
)

func TestTaskPatch_AssigneeNullVsAbsent(t *testing.T) {
	var absent TaskPatch
	if err := json.Unmarshal([]byte(`{"title":"retitled"}`), &absent); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	cols, err := absent.Columns()
	if err != nil {
		t.Fatalf("Columns() error = %v", err)
	}
	if _, ok := cols["assigned_to"]; ok {
		t.Error("absent assigned_to should not appear in the update set")
	}
	if cols["title"] != "retitled" {
		t.Errorf("title = %v, want %q", cols["title"], "retitled")
	}

	var cleared TaskPatch
	if err := json.Unmarshal([]byte(`{"assigned_to":null,"due_date":null}`), &cleared); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	cols, err = cleared.Columns()
	if err != nil {
		t.Fatalf("Columns() error = %v", err)
	}
	if v, ok := cols["assigned_to"]; !ok || v != nil {
		t.Errorf("explicit null assigned_to should clear the column, got %v (present=%v)", v, ok)
	}
	if v, ok := cols["due_date"]; !ok || v != nil {
		t.Errorf("explicit null due_date should clear the column, got %v (present=%v)", v, ok)
	}

	assignee := uuid.New()
	var set TaskPatch
	body := `{"assigned_to":"` + assignee.String() + `"}`
	if err := json.Unmarshal([]byte(body), &set); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	cols, err = set.Columns()
	if err != nil {
		t.Fatalf("Columns() error = %v", err)
	}
	if cols["assigned_to"] != assignee {
		t.Errorf("assigned_to = %v, want %v", cols["assigned_to"], assignee)
	}
}

func TestTaskPatch_RejectsInvalidLiterals(t *testing.T) {
	bad := "done"
	if _, err := (&TaskPatch{Status: &bad}).Columns(); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("invalid status: error = %v, want validation", err)
	}

	urgent := "urgent"
	if _, err := (&TaskPatch{Priority: &urgent}).Columns(); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("invalid priority: error = %v, want validation", err)
	}

	empty := ""
	if _, err := (&TaskPatch{Title: &empty}).Columns(); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("empty title: error = %v, want validation", err)
	}
}

func TestUserPatch_AdminFields(t *testing.T) {
	name := "New Name"
	if (&UserPatch{FullName: &name}).HasAdminFields() {
		t.Error("full_name alone should not be an admin field")
	}

	role := "tenant_admin"
	p := &UserPatch{Role: &role}
	if !p.HasAdminFields() {
		t.Error("role is an admin field")
	}
	cols, err := p.Columns()
	if err != nil {
		t.Fatalf("Columns() error = %v", err)
	}
	if cols["role"] != "tenant_admin" {
		t.Errorf("role = %v", cols["role"])
	}

	inactive := false
	if !(&UserPatch{IsActive: &inactive}).HasAdminFields() {
		t.Error("is_active is an admin field")
	}
}

func TestUserPatch_RejectsSuperAdminRole(t *testing.T) {
	role := "super_admin"
	if _, err := (&UserPatch{Role: &role}).Columns(); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("super_admin assignment: error = %v, want validation", err)
	}

	bogus := "owner"
	if _, err := (&UserPatch{Role: &bogus}).Columns(); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("unknown role: error = %v, want validation", err)
	}
}

func TestTenantPatch_AdminFieldsAndLimits(t *testing.T) {
	name := "Acme Renamed"
	if (&TenantPatch{Name: &name}).HasAdminFields() {
		t.Error("name alone should not be an admin field")
	}

	users := 10
	p := &TenantPatch{MaxUsers: &users}
	if !p.HasAdminFields() {
		t.Error("max_users is an admin field")
	}

	zero := 0
	if _, err := (&TenantPatch{MaxProjects: &zero}).Columns(); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("zero max_projects: error = %v, want validation", err)
	}

	suspended := "suspended"
	cols, err := (&TenantPatch{Status: &suspended}).Columns()
	if err != nil {
		t.Fatalf("Columns() error = %v", err)
	}
	if cols["status"] != "suspended" {
		t.Errorf("status = %v", cols["status"])
	}

	frozen := "frozen"
	if _, err := (&TenantPatch{Status: &frozen}).Columns(); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("invalid status: error = %v, want validation", err)
	}
}

func TestProjectPatch_Columns(t *testing.T) {
	archived := "archived"
	desc := ""
	cols, err := (&ProjectPatch{Status: &archived, Description: &desc}).Columns()
	if err != nil {
		t.Fatalf("Columns() error = %v", err)
	}
	if cols["status"] != "archived" {
		t.Errorf("status = %v", cols["status"])
	}
	if v, ok := cols["description"]; !ok || v != "" {
		t.Errorf("empty description should still be applied, got %v (present=%v)", v, ok)
	}

	deleted := "deleted"
	if _, err := (&ProjectPatch{Status: &deleted}).Columns(); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("invalid status: error = %v, want validation", err)
	}
}
