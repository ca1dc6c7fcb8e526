package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/oriser/roomies/expense"
	"github.com/oriser/roomies/roommate"
	"github.com/oriser/roomies/settlement"
)

type ExpenseResult struct {
	Expense     *expense.Expense         `json:"expense"`
	Pairs       []Pair                   `json:"pairs"`
	Settlements []*settlement.Settlement `json:"settlements"`
}

// HandleExpenseAdded records the expense and writes the settlements the user is a party to.
// Pairs that fail are reported in the joined error while the others are still written.
func (h *Service) HandleExpenseAdded(ctx context.Context, userID string, exp *expense.Expense) (*ExpenseResult, error) {
	if userID == "" {
		return nil, settlement.NewValidationError("user id", "missing requesting user")
	}
	if err := exp.Validate(); err != nil {
		return nil, settlement.NewValidationError("expense", "%v", err)
	}
	if exp.OwnerID == "" {
		exp.OwnerID = userID
	}

	if h.expenseStore != nil {
		if err := h.expenseStore.SaveExpense(ctx, exp); err != nil {
			return nil, fmt.Errorf("save expense: %w", err)
		}
	}

	profile, err := h.profileStore.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	roster, err := h.Roster(ctx, userID)
	if err != nil {
		return nil, err
	}

	pairs := MergePairs(GenerateSettlementPairs(exp, NewCurrentUser(profile), roster, h.shareOptions()))
	result := &ExpenseResult{Expense: exp, Pairs: pairs}

	var errs []error
	for _, pair := range pairs {
		created, err := h.CreateSettlementPair(ctx, CreatePairRequest{
			Debtor:           pair.Debtor,
			Creditor:         pair.Creditor,
			Amount:           pair.Amount,
			ExpenseID:        exp.ID,
			RequestingUserID: userID,
		})
		if err != nil {
			slog.Warn("Creating settlement for expense", "expense_id", exp.ID,
				"debtor", pair.Debtor.Name, "creditor", pair.Creditor.Name, "err", err)
			errs = append(errs, fmt.Errorf("settlement %s -> %s: %w", pair.Debtor.Name, pair.Creditor.Name, err))
			continue
		}
		result.Settlements = append(result.Settlements, created)
	}

	switch {
	case len(errs) == 0:
		h.metrics.expensesHandled.WithLabelValues("ok").Inc()
	case len(result.Settlements) > 0:
		h.metrics.expensesHandled.WithLabelValues("partial").Inc()
	default:
		h.metrics.expensesHandled.WithLabelValues("failed").Inc()
	}
	return result, errors.Join(errs...)
}

func (h *Service) Roster(ctx context.Context, ownerID string) ([]*roommate.Roommate, error) {
	if h.roommateStore == nil {
		return nil, nil
	}
	roster, err := h.roommateStore.ListRoommates(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list roommates: %w", err)
	}
	return roster, nil
}

func (h *Service) ListExpenses(ctx context.Context, ownerID string) ([]*expense.Expense, error) {
	if h.expenseStore == nil {
		return nil, nil
	}
	expenses, err := h.expenseStore.ListExpenses(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}
