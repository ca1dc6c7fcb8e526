package db

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/oriser/roomies/settlement"
)

var settlementColumns = []string{
	"id", "user_id", "name", "email", "upi_id", "amount", "type", "status", "settled_date",
	"transaction_group_id", "debtor_user_id", "creditor_user_id", "expense_id", "created_at",
}

func (d *DBStore) AddSettlements(ctx context.Context, settlements ...*settlement.Settlement) (int, error) {
	if len(settlements) == 0 {
		return 0, nil
	}

	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	written := 0
	for _, s := range settlements {
		if s == nil {
			return 0, fmt.Errorf("nil settlement")
		}
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = time.Now().UTC()
		}

		sql, args, err := d.builder.Insert("settlements").Columns(settlementColumns...).
			Values(s.ID, s.UserID, s.Name, s.Email, s.UPIID, s.Amount, s.Type, s.Status, s.SettledDate,
				s.TransactionGroupID, s.DebtorUserID, s.CreditorUserID, s.ExpenseID, s.CreatedAt).
			Suffix("ON CONFLICT (transaction_group_id, user_id) DO NOTHING").
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("generating insert SQL: %w", err)
		}

		res, err := tx.ExecContext(ctx, sql, args...)
		if err != nil {
			return 0, newExecError("adding settlement", sql, err, args...)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		written += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit settlements: %w", err)
	}
	return written, nil
}

func (d *DBStore) listSettlements(ctx context.Context, query sq.SelectBuilder) ([]*settlement.Settlement, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("generating select SQL: %w", err)
	}

	settlements := []*settlement.Settlement{}
	if err := d.db.SelectContext(ctx, &settlements, sql, args...); err != nil {
		return nil, newExecError("selecting settlements", sql, err, args...)
	}
	return settlements, nil
}

func (d *DBStore) ListSettlementsForUser(ctx context.Context, userID string) ([]*settlement.Settlement, error) {
	return d.listSettlements(ctx, d.builder.Select(settlementColumns...).From("settlements").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id"))
}

func (d *DBStore) ListSettlementsInGroup(ctx context.Context, groupID string) ([]*settlement.Settlement, error) {
	return d.listSettlements(ctx, d.builder.Select(settlementColumns...).From("settlements").
		Where(sq.Eq{"transaction_group_id": groupID}).
		OrderBy("created_at", "id"))
}

func (d *DBStore) UpdateGroupStatus(ctx context.Context, groupID string, status settlement.Status, settledDate *time.Time) (int64, error) {
	sql, args, err := d.builder.Update("settlements").
		Set("status", status).
		Set("settled_date", settledDate).
		Where(sq.Eq{"transaction_group_id": groupID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("generating update SQL: %w", err)
	}

	res, err := d.db.ExecContext(ctx, sql, args...)
	if err != nil {
		return 0, newExecError("updating settlement status", sql, err, args...)
	}
	return res.RowsAffected()
}

func (d *DBStore) RemoveGroup(ctx context.Context, groupID string) (int64, error) {
	sql, args, err := d.builder.Delete("settlements").Where(sq.Eq{"transaction_group_id": groupID}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("generating delete SQL: %w", err)
	}

	res, err := d.db.ExecContext(ctx, sql, args...)
	if err != nil {
		return 0, newExecError("deleting settlement group", sql, err, args...)
	}
	return res.RowsAffected()
}
