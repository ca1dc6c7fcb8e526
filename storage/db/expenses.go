package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/oriser/roomies/expense"
)

type expenseModel struct {
	*expense.Expense
	MarshaledSharers []byte    `db:"sharers"`
	DBCreatedAt      time.Time `db:"created_at"`
}

var expenseColumns = []string{"id", "owner_id", "description", "amount", "paid_by", "date", "category", "sharers", "created_at"}

// SaveExpense ignores an expense whose id is already stored, so replayed events are harmless.
func (d *DBStore) SaveExpense(ctx context.Context, exp *expense.Expense) error {
	if exp == nil {
		return fmt.Errorf("nil expense")
	}
	if exp.ID == "" {
		exp.ID = uuid.NewString()
	}
	if exp.Date.IsZero() {
		exp.Date = time.Now().UTC()
	}
	model := &expenseModel{Expense: exp, DBCreatedAt: time.Now().UTC()}

	sharers := exp.Sharers
	if sharers == nil {
		sharers = []string{}
	}
	marshaledSharers, err := json.Marshal(sharers)
	if err != nil {
		return fmt.Errorf("marshal sharers: %w", err)
	}
	model.MarshaledSharers = marshaledSharers

	sql, args, err := d.builder.Insert("expenses").Columns(expenseColumns...).Values(model.ID, model.OwnerID, model.Description, //nolint // it doesn't recognize the embedded struct
		model.Amount, model.PaidBy, model.Date.UTC(), model.Category, string(model.MarshaledSharers), model.DBCreatedAt).
		Suffix("ON CONFLICT (id) DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("generating insert SQL: %w", err)
	}

	if _, err = d.db.ExecContext(ctx, sql, args...); err != nil {
		return newExecError("saving expense", sql, err, args...)
	}
	return nil
}

func (d *DBStore) selectExpenses(ctx context.Context, query sq.SelectBuilder) ([]*expense.Expense, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("generating select SQL: %w", err)
	}

	var models []*expenseModel
	if err = d.db.SelectContext(ctx, &models, sql, args...); err != nil {
		return nil, newExecError("selecting expenses", sql, err, args...)
	}

	ret := make([]*expense.Expense, len(models))
	for i, model := range models {
		if err := json.Unmarshal(model.MarshaledSharers, &model.Expense.Sharers); err != nil {
			return nil, fmt.Errorf("unmarshal sharers of expense %s: %w", model.ID, err)
		}
		if len(model.Expense.Sharers) == 0 {
			model.Expense.Sharers = nil
		}
		ret[i] = model.Expense
	}
	return ret, nil
}

func (d *DBStore) GetExpense(ctx context.Context, id string) (*expense.Expense, error) {
	expenses, err := d.selectExpenses(ctx, d.builder.Select(expenseColumns...).From("expenses").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if len(expenses) == 0 {
		return nil, fmt.Errorf("expense %s not found", id)
	}
	return expenses[0], nil
}

func (d *DBStore) ListExpenses(ctx context.Context, ownerID string) ([]*expense.Expense, error) {
	return d.selectExpenses(ctx, d.builder.Select(expenseColumns...).From("expenses").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("date DESC", "created_at DESC"))
}
