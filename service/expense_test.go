package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/oriser/roomies/expense"
	"github.com/oriser/roomies/roommate"
	"github.com/oriser/roomies/settlement"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addRoster(t *testing.T, ts *testService, identities ...roommate.Identity) {
	t.Helper()
	for _, identity := range identities {
		require.NoError(t, ts.HandleAddRoommate(context.Background(), meID, &roommate.Roommate{
			ID:    "r-" + identity.Email,
			Name:  identity.Name,
			Email: identity.Email,
			UPIID: identity.UPIID,
		}))
	}
}

func TestHandleExpenseAdded(t *testing.T) {
	t.Parallel()

	ts := newTestService(t)
	addRoster(t, ts, priya, arjun)
	ctx := context.Background()

	exp := &expense.Expense{ID: "exp-1", Description: "Groceries", Amount: 90, PaidBy: "Me", Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	result, err := ts.HandleExpenseAdded(ctx, meID, exp)
	require.NoError(t, err)
	require.Len(t, result.Pairs, 2)
	require.Len(t, result.Settlements, 2)
	for _, row := range result.Settlements {
		assert.Equal(t, meID, row.UserID)
		assert.Equal(t, settlement.TypeOwed, row.Type)
		assert.Equal(t, 30.0, row.Amount)
		assert.Equal(t, "exp-1", row.ExpenseID)
		assert.Equal(t, "me@okaxis", row.UPIID)
	}

	saved, err := ts.store.GetExpense(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, meID, saved.OwnerID)

	theirs, err := ts.FetchSettlements(ctx, priyaID)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, settlement.TypeOwes, theirs[0].Type)
	assert.Equal(t, "me@example.com", theirs[0].Email)
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.expensesHandled.WithLabelValues("ok")))

	// The group ids are deterministic, so replaying the event writes nothing new
	_, err = ts.HandleExpenseAdded(ctx, meID, exp)
	require.NoError(t, err)
	mine, err := ts.FetchSettlements(ctx, meID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestHandleExpenseAddedRepeatedSharer(t *testing.T) {
	t.Parallel()

	ts := newTestService(t)
	addRoster(t, ts, priya, arjun)
	ctx := context.Background()

	// Priya takes two of the three shares
	result, err := ts.HandleExpenseAdded(ctx, meID, &expense.Expense{
		ID:      "exp-dup",
		Amount:  90,
		PaidBy:  "Me",
		Sharers: []string{"Me", "Priya", "Priya"},
	})
	require.NoError(t, err)
	require.Len(t, result.Pairs, 1)
	assert.Equal(t, 60.0, result.Pairs[0].Amount)
	require.Len(t, result.Settlements, 1)
	assert.Equal(t, 60.0, result.Settlements[0].Amount)

	for _, userID := range []string{meID, priyaID} {
		rows, err := ts.FetchSettlements(ctx, userID)
		require.NoError(t, err)
		total := 0.0
		for _, row := range rows {
			total += row.Amount
		}
		assert.Equal(t, 60.0, total, "rows of %s", userID)
	}

	// Same shape with the repeated sharer owing the current user's payer
	result, err = ts.HandleExpenseAdded(ctx, meID, &expense.Expense{
		ID:      "exp-dup-paise",
		Amount:  100,
		PaidBy:  "priya@example.com",
		Sharers: []string{"Me", "Arjun", "Me"},
	})
	require.NoError(t, err)
	require.Len(t, result.Settlements, 1)
	assert.InDelta(t, 66.67, result.Settlements[0].Amount, 0.01)
	assert.Equal(t, settlement.TypeOwes, result.Settlements[0].Type)
}

func TestHandleExpenseAddedRoommatePaid(t *testing.T) {
	t.Parallel()

	ts := newTestService(t)
	addRoster(t, ts, priya, arjun)

	result, err := ts.HandleExpenseAdded(context.Background(), meID, &expense.Expense{
		ID:      "exp-rent",
		Amount:  300,
		PaidBy:  "priya@example.com",
		Sharers: []string{"Me", "Priya"},
	})
	require.NoError(t, err)
	require.Len(t, result.Settlements, 1)
	row := result.Settlements[0]
	assert.Equal(t, settlement.TypeOwes, row.Type)
	assert.Equal(t, 150.0, row.Amount)
	assert.Equal(t, "priya@example.com", row.Email)
	assert.Equal(t, "priya@okaxis", row.UPIID)
	assert.Equal(t, meID, row.DebtorUserID)
	assert.Equal(t, priyaID, row.CreditorUserID)
}

func TestHandleExpenseAddedPartialFailure(t *testing.T) {
	t.Parallel()

	ts := newTestService(t, func(c *Config) { c.CreateRateLimit = 1 })
	addRoster(t, ts, priya, arjun)

	result, err := ts.HandleExpenseAdded(context.Background(), meID, &expense.Expense{ID: "exp-2", Amount: 60, PaidBy: "Me"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, settlement.ErrRateLimitExceeded))
	require.NotNil(t, result)
	assert.Len(t, result.Pairs, 2)
	assert.Len(t, result.Settlements, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.expensesHandled.WithLabelValues("partial")))
}

func TestHandleExpenseAddedValidation(t *testing.T) {
	t.Parallel()

	ts := newTestService(t)
	tests := []struct {
		name   string
		userID string
		exp    *expense.Expense
	}{
		{name: "nil expense", userID: meID},
		{name: "zero amount", userID: meID, exp: &expense.Expense{ID: "e", PaidBy: "Me"}},
		{name: "no payer", userID: meID, exp: &expense.Expense{ID: "e", Amount: 5}},
		{name: "infinite amount", userID: meID, exp: &expense.Expense{ID: "e", Amount: math.Inf(1), PaidBy: "Me"}},
		{name: "no user", exp: &expense.Expense{ID: "e", Amount: 5, PaidBy: "Me"}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ts.HandleExpenseAdded(context.Background(), tc.userID, tc.exp)
			assert.True(t, settlement.IsValidationError(err), "got %v", err)
		})
	}
}

func TestHandleAddRoommate(t *testing.T) {
	t.Parallel()

	ts := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name          string
		roommate      *roommate.Roommate
		expectedField string
	}{
		{name: "missing", expectedField: "roommate"},
		{name: "no name", roommate: &roommate.Roommate{Email: "a@example.com"}, expectedField: "name"},
		{name: "bad email", roommate: &roommate.Roommate{Name: "A", Email: "a.example.com"}, expectedField: "email"},
		{name: "bad upi", roommate: &roommate.Roommate{Name: "A", Email: "a@example.com", UPIID: "a b"}, expectedField: "upi id"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ts.HandleAddRoommate(ctx, meID, tc.roommate)
			validationErr := &settlement.ValidationError{}
			require.True(t, errors.As(err, &validationErr), "got %v", err)
			assert.Equal(t, tc.expectedField, validationErr.Field)
		})
	}

	r := &roommate.Roommate{ID: "r-1", Name: "  Meera ", Email: "Meera@Example.com"}
	require.NoError(t, ts.HandleAddRoommate(ctx, meID, r))
	roster, err := ts.Roster(ctx, meID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "Meera", roster[0].Name)
	assert.Equal(t, "meera@example.com", roster[0].Email)
	assert.Equal(t, meID, roster[0].OwnerID)
}

func TestHandleAddProfile(t *testing.T) {
	t.Parallel()

	ts := newTestService(t)
	ctx := context.Background()

	assert.True(t, settlement.IsValidationError(ts.HandleAddProfile(ctx, nil)))
	assert.True(t, settlement.IsValidationError(ts.HandleAddProfile(ctx, &roommate.Profile{ID: "u-x", Email: "nope"})))

	require.NoError(t, ts.HandleAddProfile(ctx, &roommate.Profile{ID: "u-meera", Name: "Meera", Email: "MEERA@example.com"}))
	profile, err := ts.store.GetProfileByEmail(ctx, "meera@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-meera", profile.ID)
}
