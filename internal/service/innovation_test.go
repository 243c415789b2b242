package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/innovation-records/internal/apperror"
	"github.com/sakif/innovation-records/internal/model"
)

func TestCreate_BootstrapsLeader(t *testing.T) {
	env := newTestEnv(t)
	env.store.addStaff("a@pms.edu.my", "Aminah", "JKE", true)

	inv := env.createInnovation(t, "A@pms.edu.my", "Smart Dustbin")

	assert.Equal(t, "a@pms.edu.my", inv.OwnerEmail)
	roster := env.store.roster(inv.ID)
	require.Len(t, roster, 1, "a new record has exactly one roster entry")
	assert.Equal(t, "a@pms.edu.my", roster[0].MemberEmail)
	assert.Equal(t, model.TeamRoleLeader, roster[0].Role)
	assert.Equal(t, "Aminah", roster[0].MemberName, "leader name comes from the directory")
	assert.Equal(t, "JKE", roster[0].MemberDept)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name      string
		in        InnovationInput
		wantField string
	}{
		{"missing title", InnovationInput{Year: "2026"}, "title"},
		{"blank title", InnovationInput{Title: "   ", Year: "2026"}, "title"},
		{"missing year", InnovationInput{Title: "X"}, "year"},
		{"ipo yes without number", InnovationInput{Title: "X", Year: "2026", IPOStatus: "yes"}, "ipoNumber"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.innovations.Create(context.Background(), "a@pms.edu.my", tt.in)
			require.ErrorIs(t, err, apperror.ErrValidation)

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantField, appErr.Field)
		})
	}
}

func TestCreate_IPONormalisation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	inv, err := env.innovations.Create(ctx, "a@pms.edu.my",
		InnovationInput{Title: "X", Year: "2026", IPOStatus: "maybe", IPONumber: "MY-123"})
	require.NoError(t, err)
	assert.Equal(t, model.IPONo, inv.IPOStatus)
	assert.Empty(t, inv.IPONumber, "number is cleared unless status is yes")

	inv, err = env.innovations.Create(ctx, "a@pms.edu.my",
		InnovationInput{Title: "Y", Year: "2026", IPOStatus: " YES ", IPONumber: "MY-123"})
	require.NoError(t, err)
	assert.Equal(t, model.IPOYes, inv.IPOStatus)
	assert.Equal(t, "MY-123", inv.IPONumber)
}

func TestListVisible_Union(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.store.addStaff("u@pms.edu.my", "U", "JKE", true)

	own1 := env.createInnovation(t, "u@pms.edu.my", "own 1")
	other := env.createInnovation(t, "x@pms.edu.my", "other, U is member")
	_ = env.createInnovation(t, "x@pms.edu.my", "invisible")
	own2 := env.createInnovation(t, "u@pms.edu.my", "own 2")

	_, err := env.teams.AddMember(ctx, other.ID, "x@pms.edu.my", AddMemberInput{Email: "u@pms.edu.my"})
	require.NoError(t, err)

	visible, err := env.innovations.ListVisible(ctx, "u@pms.edu.my")
	require.NoError(t, err)

	ids := make([]string, 0, len(visible))
	for _, inv := range visible {
		ids = append(ids, inv.ID)
	}
	// U is owner and leader of own1/own2: they must still appear once.
	assert.Equal(t, []string{own2.ID, other.ID, own1.ID}, ids, "newest first, no duplicates")
}

func TestListVisible_TiesKeepInsertionOrder(t *testing.T) {
	env := newTestEnv(t)
	env.store.step = 0

	first := env.createInnovation(t, "u@pms.edu.my", "first")
	second := env.createInnovation(t, "u@pms.edu.my", "second")
	third := env.createInnovation(t, "u@pms.edu.my", "third")

	visible, err := env.innovations.ListVisible(context.Background(), "u@pms.edu.my")
	require.NoError(t, err)
	require.Len(t, visible, 3)
	assert.Equal(t, first.ID, visible[0].ID)
	assert.Equal(t, second.ID, visible[1].ID)
	assert.Equal(t, third.ID, visible[2].ID)
}

func TestListVisible_Empty(t *testing.T) {
	env := newTestEnv(t)
	env.createInnovation(t, "x@pms.edu.my", "not mine")

	visible, err := env.innovations.ListVisible(context.Background(), "nobody@pms.edu.my")
	require.NoError(t, err)
	assert.NotNil(t, visible)
	assert.Empty(t, visible)
}

func TestGetVisible(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	inv := env.createInnovation(t, "a@pms.edu.my", "X")

	got, err := env.innovations.GetVisible(ctx, "a@pms.edu.my", inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)

	_, err = env.innovations.GetVisible(ctx, "z@pms.edu.my", inv.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = env.innovations.GetVisible(ctx, "a@pms.edu.my", "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.store.addStaff("b@pms.edu.my", "B", "JKE", true)
	env.store.addStaff("c@pms.edu.my", "C", "JKE", true)
	inv := env.createInnovation(t, "a@pms.edu.my", "Old")

	_, err := env.teams.AddMember(ctx, inv.ID, "a@pms.edu.my", AddMemberInput{Email: "b@pms.edu.my", Role: "coleader"})
	require.NoError(t, err)
	_, err = env.teams.AddMember(ctx, inv.ID, "a@pms.edu.my", AddMemberInput{Email: "c@pms.edu.my"})
	require.NoError(t, err)

	updated, err := env.innovations.Update(ctx, "b@pms.edu.my", inv.ID, InnovationInput{Title: "New", Year: "2027"})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)
	assert.Equal(t, "a@pms.edu.my", updated.OwnerEmail, "owner never changes")

	_, err = env.innovations.Update(ctx, "c@pms.edu.my", inv.ID, InnovationInput{Title: "Nope", Year: "2027"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestDelete_OwnerOnlyAndCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.store.addStaff("b@pms.edu.my", "B", "JKE", true)
	inv := env.createInnovation(t, "a@pms.edu.my", "X")

	_, err := env.teams.AddMember(ctx, inv.ID, "a@pms.edu.my", AddMemberInput{Email: "b@pms.edu.my", Role: "leader"})
	require.NoError(t, err)
	_, err = env.comps.Add(ctx, inv.ID, "b@pms.edu.my", CompetitionInput{EventName: "ITEX", Year: "2026", Level: "Antarabangsa"})
	require.NoError(t, err)

	err = env.innovations.Delete(ctx, "b@pms.edu.my", inv.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden, "leaders cannot delete the record")

	require.NoError(t, env.innovations.Delete(ctx, "a@pms.edu.my", inv.ID))
	assert.Empty(t, env.store.roster(inv.ID))
	assert.Empty(t, env.store.comps)

	err = env.innovations.Delete(ctx, "a@pms.edu.my", inv.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
