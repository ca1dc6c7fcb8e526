package service

import (
	"math"

	"github.com/oriser/roomies/expense"
	"github.com/oriser/roomies/roommate"
	"github.com/shopspring/decimal"
)

type ShareOptions struct {
	// DedupeSharers collapses repeated sharer names into one share.
	DedupeSharers bool
	// SplitPaise splits in whole paise and hands the residual to the first sharers.
	SplitPaise bool
}

// EffectiveSharers returns the names the expense is divided between, in order.
func EffectiveSharers(exp *expense.Expense, current CurrentUser, roommates []*roommate.Roommate, dedupe bool) []string {
	if exp == nil {
		return nil
	}

	var sharers []string
	if len(exp.Sharers) > 0 {
		sharers = make([]string, 0, len(exp.Sharers))
		for _, s := range exp.Sharers {
			if current.IsAlias(s) {
				s = current.DisplayName
			}
			sharers = append(sharers, s)
		}
	} else {
		sharers = make([]string, 0, len(roommates)+1)
		sharers = append(sharers, current.DisplayName)
		for _, r := range roommates {
			if r == nil || current.IsAlias(r.Name) || current.is(r.Identity()) {
				// The current user is already the first sharer
				continue
			}
			sharers = append(sharers, r.Name)
		}
	}

	if !dedupe {
		return sharers
	}
	seen := make(map[string]struct{}, len(sharers))
	deduped := sharers[:0]
	for _, s := range sharers {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		deduped = append(deduped, s)
	}
	return deduped
}

func AmountPerSharer(amount float64, sharers int) float64 {
	if sharers <= 0 {
		return 0
	}
	return amount / float64(sharers)
}

// SplitAmounts returns one share per sharer.
func SplitAmounts(amount float64, sharers int, splitPaise bool) []float64 {
	if sharers <= 0 {
		return nil
	}
	shares := make([]float64, sharers)
	if !splitPaise || math.IsNaN(amount) || math.IsInf(amount, 0) {
		perSharer := AmountPerSharer(amount, sharers)
		for i := range shares {
			shares[i] = perSharer
		}
		return shares
	}

	paise := decimal.NewFromFloat(amount).Shift(2).Round(0)
	count := decimal.NewFromInt(int64(sharers))
	base := paise.Div(count).Truncate(0)
	residual := paise.Sub(base.Mul(count)).IntPart()
	for i := range shares {
		share := base
		if int64(i) < residual {
			share = share.Add(decimal.NewFromInt(1))
		}
		shares[i] = share.Shift(-2).InexactFloat64()
	}
	return shares
}
