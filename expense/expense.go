package expense

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Expense is read-only input to settlement generation. An empty Sharers list means
// the expense is shared by its owner and the whole roster.
type Expense struct {
	ID          string    `db:"id" json:"id"`
	OwnerID     string    `db:"owner_id" json:"owner_id"`
	Description string    `db:"description" json:"description"`
	Amount      float64   `db:"amount" json:"amount"`
	PaidBy      string    `db:"paid_by" json:"paid_by"`
	Date        time.Time `db:"date" json:"date"`
	Category    string    `db:"category" json:"category"`
	Sharers     []string  `db:"-" json:"sharers,omitempty"`
}

func (e *Expense) Validate() error {
	if e == nil {
		return fmt.Errorf("nil expense")
	}
	if !(e.Amount > 0) || math.IsInf(e.Amount, 0) {
		return fmt.Errorf("expense amount must be positive (got %v)", e.Amount)
	}
	if e.PaidBy == "" {
		return fmt.Errorf("expense has no payer")
	}
	return nil
}

type Store interface {
	SaveExpense(ctx context.Context, expense *Expense) error
	GetExpense(ctx context.Context, id string) (*Expense, error)
	ListExpenses(ctx context.Context, ownerID string) ([]*Expense, error)
}
