package db

import (
	"context"
	"errors"
	"testing"

	"github.com/oriser/roomies/roommate"
	"github.com/oriser/roomies/testing/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeededProfiles(t *testing.T) {
	t.Parallel()

	dbTest := NewDBTest(t)
	dbTest.Seed(t)
	t.Cleanup(func() {
		dbTest.Cleanup(t)
	})

	for _, name := range []string{"priya", "arjun", "meera"} {
		profile, err := dbTest.db.GetProfileByEmail(context.Background(), name+"@example.com")
		require.NoError(t, err)
		assert.Equal(t, "seed-"+name, profile.ID)
		assert.Equal(t, name+"@okaxis", profile.UPIID)
	}
}

func TestAddAndGetProfile(t *testing.T) {
	t.Parallel()

	dbTest := NewDBTest(t)
	t.Cleanup(func() {
		dbTest.Cleanup(t)
	})

	local := utils.GenerateRandomString(utils.LowerLetters, 8)
	tests := []struct {
		name    string
		profile *roommate.Profile
		lookup  string
	}{
		{
			name:    "generated id",
			profile: &roommate.Profile{Name: "Priya", Email: local + "@example.com", UPIID: "priya@okaxis"},
			lookup:  local + "@example.com",
		},
		{
			name:    "email is normalized",
			profile: &roommate.Profile{ID: "fixed-id", Name: "Arjun", Email: "  Arjun@Example.COM "},
			lookup:  "ARJUN@example.com",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, dbTest.db.AddProfile(ctx, tc.profile))
			require.NotEmpty(t, tc.profile.ID)

			byID, err := dbTest.db.GetProfile(ctx, tc.profile.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.profile, byID)

			byEmail, err := dbTest.db.GetProfileByEmail(ctx, tc.lookup)
			require.NoError(t, err)
			assert.Equal(t, tc.profile, byEmail)
		})
	}
}

func TestGetProfileNotFound(t *testing.T) {
	t.Parallel()

	dbTest := NewDBTest(t)
	t.Cleanup(func() {
		dbTest.Cleanup(t)
	})

	_, err := dbTest.db.GetProfile(context.Background(), "missing")
	notFound := &roommate.ErrNotFound{}
	assert.True(t, errors.As(err, &notFound))

	_, err = dbTest.db.GetProfileByEmail(context.Background(), "ghost@x.com")
	assert.True(t, errors.As(err, &notFound))
}

func TestAddProfileDuplicateEmail(t *testing.T) {
	t.Parallel()

	dbTest := NewDBTest(t)
	t.Cleanup(func() {
		dbTest.Cleanup(t)
	})
	ctx := context.Background()

	require.NoError(t, dbTest.db.AddProfile(ctx, &roommate.Profile{Name: "A", Email: "same@example.com"}))
	err := dbTest.db.AddProfile(ctx, &roommate.Profile{Name: "B", Email: "SAME@example.com"})
	execErr := &ExecError{}
	assert.True(t, errors.As(err, &execErr))
}
