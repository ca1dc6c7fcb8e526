package service

import (
	"math"

	"github.com/oriser/roomies/expense"
	"github.com/oriser/roomies/roommate"
	"github.com/shopspring/decimal"
)

// Pair is one debt derived from an expense: Debtor owes Creditor Amount.
type Pair struct {
	Debtor   roommate.Identity `json:"debtor"`
	Creditor roommate.Identity `json:"creditor"`
	Amount   float64           `json:"amount"`
}

// GenerateSettlementPairs derives the debts of an expense that the current user is a party to.
// Sharers or payers that can't be resolved are dropped, never persisted half-way.
func GenerateSettlementPairs(exp *expense.Expense, current CurrentUser, roommates []*roommate.Roommate, opts ShareOptions) []Pair {
	if exp == nil || !(exp.Amount > 0) || math.IsInf(exp.Amount, 0) {
		return nil
	}
	sharers := EffectiveSharers(exp, current, roommates, opts.DedupeSharers)
	if len(sharers) == 0 {
		return nil
	}

	payer, ok := ResolveParty(exp.PaidBy, current, roommates)
	if !ok {
		return nil
	}

	shares := SplitAmounts(exp.Amount, len(sharers), opts.SplitPaise)
	var pairs []Pair
	for i, sharer := range sharers {
		debtor, ok := ResolveParty(sharer, current, roommates)
		if !ok {
			continue
		}
		if sameIdentity(debtor, payer) {
			// Self pay
			continue
		}
		if !current.is(debtor) && !current.is(payer) {
			// The other party writes its own settlements
			continue
		}
		pairs = append(pairs, Pair{Debtor: debtor, Creditor: payer, Amount: shares[i]})
	}
	return pairs
}

// MergePairs folds pairs between the same debtor and creditor into one, summing their amounts.
// A sharer listed twice owes two shares, and both must land on the single row of that debt.
func MergePairs(pairs []Pair) []Pair {
	var merged []Pair
	var totals []decimal.Decimal
	for _, pair := range pairs {
		found := false
		for i := range merged {
			if sameIdentity(merged[i].Debtor, pair.Debtor) && sameIdentity(merged[i].Creditor, pair.Creditor) {
				totals[i] = totals[i].Add(decimal.NewFromFloat(pair.Amount))
				merged[i].Amount = totals[i].InexactFloat64()
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, pair)
			totals = append(totals, decimal.NewFromFloat(pair.Amount))
		}
	}
	return merged
}
