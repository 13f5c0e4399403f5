package auth

import (
	"testing"
	"time"
)

func TestSession_IsGuest(t *testing.T) {
	s := Session{Role: RoleGuest}
	if !s.IsGuest() {
		t.Fatalf("expected guest")
	}
	if (Session{Role: RoleViewer}).IsGuest() {
		t.Fatalf("did not expect guest")
	}
}

func TestSession_CanOperate(t *testing.T) {
	if !(Session{Role: RoleAdmin}).CanOperate() {
		t.Fatalf("admin should operate")
	}
	if !(Session{Role: RoleOperator}).CanOperate() {
		t.Fatalf("operator should operate")
	}
	if (Session{Role: RoleViewer}).CanOperate() {
		t.Fatalf("viewer must not operate")
	}
	if (Session{Role: RoleGuest}).CanOperate() {
		t.Fatalf("guest must not operate")
	}
}

func TestIdentity_SimpleFields(t *testing.T) {
	id := Identity{UserID: "u", Email: "e", ExpiresAt: time.Now().Add(time.Hour)}
	if id.UserID != "u" || id.Email != "e" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}
