package db

import (
	"context"
	"errors"
	"testing"

	"github.com/oriser/roomies/roommate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndListRoommates(t *testing.T) {
	t.Parallel()

	dbTest := NewDBTest(t)
	t.Cleanup(func() {
		dbTest.Cleanup(t)
	})
	ctx := context.Background()

	roster := []*roommate.Roommate{
		{OwnerID: "owner", Name: "Asha", Email: "Asha@Example.com", UPIID: "asha@okaxis", Phone: "+919800000001"},
		{OwnerID: "owner", Name: "Ravi", Email: "ravi@example.com"},
		{OwnerID: "other-owner", Name: "Asha", Email: "asha@example.com"},
	}
	for _, r := range roster {
		require.NoError(t, dbTest.db.AddRoommate(ctx, r))
		assert.NotEmpty(t, r.ID)
	}

	tests := []struct {
		name     string
		ownerID  string
		expected []*roommate.Roommate
	}{
		{name: "owner", ownerID: "owner", expected: roster[:2]},
		{name: "other owner", ownerID: "other-owner", expected: roster[2:]},
		{name: "unknown owner", ownerID: "nobody", expected: []*roommate.Roommate{}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := dbTest.db.ListRoommates(ctx, tc.ownerID)
			require.NoError(t, err)
			assert.ElementsMatch(t, tc.expected, got)
		})
	}

	assert.Equal(t, "asha@example.com", roster[0].Email)
}

func TestAddRoommateDuplicateEmail(t *testing.T) {
	t.Parallel()

	dbTest := NewDBTest(t)
	t.Cleanup(func() {
		dbTest.Cleanup(t)
	})
	ctx := context.Background()

	require.NoError(t, dbTest.db.AddRoommate(ctx, &roommate.Roommate{OwnerID: "owner", Name: "Asha", Email: "asha@example.com"}))

	err := dbTest.db.AddRoommate(ctx, &roommate.Roommate{OwnerID: "owner", Name: "Asha Again", Email: " ASHA@example.com"})
	duplicate := &roommate.ErrDuplicateRoommate{}
	require.True(t, errors.As(err, &duplicate))
	assert.Equal(t, "asha@example.com", duplicate.Email)

	roster, err := dbTest.db.ListRoommates(ctx, "owner")
	require.NoError(t, err)
	assert.Len(t, roster, 1)
}
