package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/innovation-records/internal/apperror"
	"github.com/sakif/innovation-records/internal/model"
)

func TestUserUpsert_CreatesWithUserRole(t *testing.T) {
	db := newTestDB(t)

	u, err := db.Users().Upsert(context.Background(), "a@pms.edu.my", false)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if u.Role != model.RoleUser {
		t.Errorf("Role = %q, want %q", u.Role, model.RoleUser)
	}
	if u.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestUserUpsert_NeverDowngrades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.Users().Upsert(ctx, "boss@pms.edu.my", true); err != nil {
		t.Fatalf("Upsert(promote) error = %v", err)
	}
	u, err := db.Users().Upsert(ctx, "boss@pms.edu.my", false)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if u.Role != model.RoleAdmin {
		t.Errorf("Role = %q, want %q after plain login", u.Role, model.RoleAdmin)
	}
}

func TestUserUpsert_PromotesExistingUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first, _ := db.Users().Upsert(ctx, "a@pms.edu.my", false)
	u, err := db.Users().Upsert(ctx, "a@pms.edu.my", true)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if u.Role != model.RoleAdmin {
		t.Errorf("Role = %q, want admin", u.Role)
	}
	if !u.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed from %v to %v", first.CreatedAt, u.CreatedAt)
	}
}

func TestUserGetByEmail_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Users().GetByEmail(context.Background(), "nobody@pms.edu.my")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByEmail() error = %v, want ErrNotFound", err)
	}
}
