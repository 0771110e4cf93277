package user

import (
	"context"
	"testing"

	"alumnet/internal/access"
	apperr "alumnet/internal/errors"
	"alumnet/internal/models"
	"alumnet/internal/repositories"
	"alumnet/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const strongPassword = "Sw4p!lessons"

func newService(t *testing.T) (Service, repositories.UserRepository) {
	repo := repositories.NewUserRepository(testutil.NewDB(t))
	return NewService(repo, nil), repo
}

func TestService_Register(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, models.CreateUserInput{
		Email:          "  Ada@Alumni.Example ",
		Password:       strongPassword,
		Name:           "Ada",
		GraduationYear: 2012,
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@alumni.example", u.Email)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(strongPassword)))

	_, err = svc.Register(ctx, models.CreateUserInput{Email: "ada@alumni.example", Password: strongPassword, Name: "Ada again"})
	assert.True(t, apperr.IsConflict(err))
}

func TestService_RegisterValidation(t *testing.T) {
	svc, _ := newService(t)

	tests := []struct {
		name  string
		input models.CreateUserInput
	}{
		{"bad email", models.CreateUserInput{Email: "not-an-email", Password: strongPassword, Name: "X"}},
		{"short password", models.CreateUserInput{Email: "x@alumni.example", Password: "a1!", Name: "X"}},
		{"no special char", models.CreateUserInput{Email: "x@alumni.example", Password: "abcdefg12", Name: "X"}},
		{"missing name", models.CreateUserInput{Email: "x@alumni.example", Password: strongPassword}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.input)
			assert.True(t, apperr.IsValidation(err), "got %v", err)
		})
	}
}

func TestService_SwapPreferences(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	u, err := svc.Register(ctx, models.CreateUserInput{Email: "b@alumni.example", Password: strongPassword, Name: "B"})
	require.NoError(t, err)
	actor := access.NewActor(u.ID, u.Role)

	prefs, err := svc.UpdateSwapPreferences(ctx, actor, models.SwapPreferences{
		PreferredCategories: []models.OfferCategory{models.CategorySkill, models.CategoryItem, models.CategorySkill},
		OpenToRemote:        true,
		Notes:               "  weekends  ",
	})
	require.NoError(t, err)
	assert.Equal(t, []models.OfferCategory{models.CategorySkill, models.CategoryItem}, prefs.PreferredCategories)

	profile, err := svc.GetSwapProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, profile.Preferences.OpenToRemote)
	assert.Equal(t, "weekends", profile.Preferences.Notes)

	_, err = svc.UpdateSwapPreferences(ctx, actor, models.SwapPreferences{PreferredCategories: []models.OfferCategory{"castles"}})
	assert.True(t, apperr.IsValidation(err))

	require.NoError(t, repo.IncrementSwapStat(ctx, u.ID, models.StatTotalOffers, 2))
	profile, err = svc.GetSwapProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), profile.Stats.TotalOffers)
}

func TestService_ChangePassword(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	u, err := svc.Register(ctx, models.CreateUserInput{Email: "c@alumni.example", Password: strongPassword, Name: "C"})
	require.NoError(t, err)
	actor := access.NewActor(u.ID, u.Role)

	err = svc.ChangePassword(ctx, actor, "wrong", "N3w!password")
	assert.ErrorIs(t, err, ErrIncorrectPassword)
	err = svc.ChangePassword(ctx, actor, strongPassword, "weak")
	assert.True(t, apperr.IsValidation(err))

	require.NoError(t, svc.ChangePassword(ctx, actor, strongPassword, "N3w!password"))
	stored, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.TokenVersion+1, stored.TokenVersion)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("N3w!password")))
}

func TestService_SetStatus(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	member, err := svc.Register(ctx, models.CreateUserInput{Email: "d@alumni.example", Password: strongPassword, Name: "D"})
	require.NoError(t, err)
	admin := access.NewActor(uuid.New(), models.RoleAdmin)
	plain := access.NewActor(member.ID, models.RoleUser)

	assert.ErrorIs(t, svc.SetStatus(ctx, plain, member.ID, models.UserStatusSuspended), ErrForbidden)
	assert.True(t, apperr.IsValidation(svc.SetStatus(ctx, admin, member.ID, "banished")))

	require.NoError(t, svc.SetStatus(ctx, admin, member.ID, models.UserStatusSuspended))
	stored, err := repo.GetByID(ctx, member.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive())
	assert.Equal(t, member.TokenVersion+1, stored.TokenVersion)
}
