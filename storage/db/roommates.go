package db

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/oriser/roomies/roommate"
)

type roommateModel struct {
	*roommate.Roommate
	CreatedAt time.Time `db:"created_at"`
}

var roommateColumns = []string{"id", "owner_id", "name", "email", "upi_id", "phone", "created_at"}

func (d *DBStore) AddRoommate(ctx context.Context, r *roommate.Roommate) error {
	if r == nil {
		return fmt.Errorf("nil roommate")
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.Email = roommate.NormalizeEmail(r.Email)

	existing, err := d.countRoommates(ctx, sq.Eq{"owner_id": r.OwnerID, "email": r.Email})
	if err != nil {
		return err
	}
	if existing > 0 {
		return &roommate.ErrDuplicateRoommate{Email: r.Email}
	}

	model := &roommateModel{Roommate: r, CreatedAt: time.Now().UTC()}
	sql, args, err := d.builder.Insert("roommates").Columns(roommateColumns...).
		Values(model.ID, model.OwnerID, model.Name, model.Email, model.UPIID, model.Phone, model.CreatedAt).ToSql()
	if err != nil {
		return fmt.Errorf("generating insert SQL: %w", err)
	}

	if _, err = d.db.ExecContext(ctx, sql, args...); err != nil {
		return newExecError("adding roommate", sql, err, args...)
	}
	return nil
}

func (d *DBStore) countRoommates(ctx context.Context, filter sq.Eq) (int, error) {
	sql, args, err := d.builder.Select("COUNT(*)").From("roommates").Where(filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("generating count SQL: %w", err)
	}

	var count int
	if err := d.db.GetContext(ctx, &count, sql, args...); err != nil {
		return 0, newExecError("counting roommates", sql, err, args...)
	}
	return count, nil
}

func (d *DBStore) ListRoommates(ctx context.Context, ownerID string) ([]*roommate.Roommate, error) {
	sql, args, err := d.builder.Select(roommateColumns...).From("roommates").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("created_at", "name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("generating list SQL: %w", err)
	}

	var roommates []*roommateModel
	if err = d.db.SelectContext(ctx, &roommates, sql, args...); err != nil {
		return nil, newExecError("selecting roommates", sql, err, args...)
	}

	ret := make([]*roommate.Roommate, len(roommates))
	for i, r := range roommates {
		ret[i] = r.Roommate
	}
	return ret, nil
}
