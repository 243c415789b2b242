package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/innovation-records/internal/apperror"
	"github.com/sakif/innovation-records/internal/model"
)

func TestAddMember_Duplicate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	inv := createTestInnovation(t, db, "a@pms.edu.my", "Roster")

	addTestMember(t, db, inv.ID, "b@pms.edu.my", model.TeamRoleMember)
	err := db.Teams().AddMember(ctx, &model.TeamMember{
		InnovationID: inv.ID,
		MemberEmail:  "b@pms.edu.my",
		Role:         model.TeamRoleLeader,
		AddedByEmail: "a@pms.edu.my",
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("AddMember() error = %v, want ErrConflict", err)
	}

	team, _ := db.Teams().ListMembers(ctx, inv.ID)
	count := 0
	for _, m := range team {
		if m.MemberEmail == "b@pms.edu.my" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("roster has %d entries for b, want 1", count)
	}
}

func TestGetMember(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	inv := createTestInnovation(t, db, "a@pms.edu.my", "Roster")
	added := addTestMember(t, db, inv.ID, "b@pms.edu.my", model.TeamRoleCoLeader)

	m, err := db.Teams().GetMember(ctx, inv.ID, "b@pms.edu.my")
	if err != nil {
		t.Fatalf("GetMember() error = %v", err)
	}
	if m.Role != model.TeamRoleCoLeader || m.MemberDept != "JKE" {
		t.Errorf("GetMember() = %+v", m)
	}

	byID, err := db.Teams().GetMemberByID(ctx, inv.ID, added.ID)
	if err != nil {
		t.Fatalf("GetMemberByID() error = %v", err)
	}
	if byID.MemberEmail != "b@pms.edu.my" {
		t.Errorf("GetMemberByID() email = %q", byID.MemberEmail)
	}

	if _, err := db.Teams().GetMember(ctx, inv.ID, "zz@pms.edu.my"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetMember(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRemoveMember_LastLeaderRejected(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	inv := createTestInnovation(t, db, "a@pms.edu.my", "Roster")
	addTestMember(t, db, inv.ID, "b@pms.edu.my", model.TeamRoleMember)

	removed, err := db.Teams().RemoveMember(ctx, inv.ID, "a@pms.edu.my")
	if !errors.Is(err, apperror.ErrLastLeader) {
		t.Fatalf("RemoveMember() error = %v, want ErrLastLeader", err)
	}
	if removed {
		t.Error("RemoveMember() reported removal on rejection")
	}

	team, _ := db.Teams().ListMembers(ctx, inv.ID)
	if len(team) != 2 {
		t.Errorf("roster changed: %d entries, want 2", len(team))
	}
}

func TestRemoveMember_LeaderWithCoLeaderPresent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	inv := createTestInnovation(t, db, "a@pms.edu.my", "Roster")
	addTestMember(t, db, inv.ID, "b@pms.edu.my", model.TeamRoleCoLeader)

	removed, err := db.Teams().RemoveMember(ctx, inv.ID, "a@pms.edu.my")
	if err != nil {
		t.Fatalf("RemoveMember() error = %v", err)
	}
	if !removed {
		t.Error("RemoveMember() = false, want true")
	}

	// b is now the only leading member.
	if _, err := db.Teams().RemoveMember(ctx, inv.ID, "b@pms.edu.my"); !errors.Is(err, apperror.ErrLastLeader) {
		t.Errorf("RemoveMember(b) error = %v, want ErrLastLeader", err)
	}
}

func TestRemoveMember_Missing(t *testing.T) {
	db := newTestDB(t)
	inv := createTestInnovation(t, db, "a@pms.edu.my", "Roster")

	removed, err := db.Teams().RemoveMember(context.Background(), inv.ID, "nobody@pms.edu.my")
	if err != nil {
		t.Fatalf("RemoveMember() error = %v", err)
	}
	if removed {
		t.Error("RemoveMember() = true for a member that was never added")
	}
}
