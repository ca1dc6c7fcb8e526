package expense

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		expense     *Expense
		expectedErr bool
	}{
		{name: "valid", expense: &Expense{Amount: 90, PaidBy: "You"}},
		{name: "nil", expectedErr: true},
		{name: "zero amount", expense: &Expense{PaidBy: "You"}, expectedErr: true},
		{name: "negative amount", expense: &Expense{Amount: -1, PaidBy: "You"}, expectedErr: true},
		{name: "NaN amount", expense: &Expense{Amount: math.NaN(), PaidBy: "You"}, expectedErr: true},
		{name: "infinite amount", expense: &Expense{Amount: math.Inf(1), PaidBy: "You"}, expectedErr: true},
		{name: "no payer", expense: &Expense{Amount: 90}, expectedErr: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.expense.Validate()
			if tc.expectedErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
