package db

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/oriser/roomies/roommate"
)

type profileModel struct {
	*roommate.Profile
	CreatedAt time.Time `db:"created_at"`
}

func (d *DBStore) AddProfile(ctx context.Context, profile *roommate.Profile) error {
	if profile == nil {
		return fmt.Errorf("nil profile")
	}
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	profile.Email = roommate.NormalizeEmail(profile.Email)
	model := &profileModel{Profile: profile, CreatedAt: time.Now().UTC()}

	sql, args, err := d.builder.Insert("profiles").Columns("id", "name", "email", "upi_id", "created_at").
		Values(model.ID, model.Name, model.Email, model.UPIID, model.CreatedAt).ToSql()
	if err != nil {
		return fmt.Errorf("generating insert SQL: %w", err)
	}

	if _, err = d.db.ExecContext(ctx, sql, args...); err != nil {
		return newExecError("adding profile", sql, err, args...)
	}
	return nil
}

func (d *DBStore) getProfile(ctx context.Context, filter sq.Eq, key string) (*roommate.Profile, error) {
	sql, args, err := d.builder.Select("id", "name", "email", "upi_id", "created_at").From("profiles").Where(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("generating select SQL: %w", err)
	}

	var profiles []*profileModel
	if err = d.db.SelectContext(ctx, &profiles, sql, args...); err != nil {
		return nil, newExecError("selecting profile", sql, err, args...)
	}

	if len(profiles) > 1 {
		return nil, fmt.Errorf("more than one profile found (found %d)", len(profiles))
	}
	if len(profiles) == 0 {
		return nil, &roommate.ErrNotFound{Key: key}
	}
	return profiles[0].Profile, nil
}

func (d *DBStore) GetProfile(ctx context.Context, id string) (*roommate.Profile, error) {
	return d.getProfile(ctx, sq.Eq{"id": id}, fmt.Sprintf("profile %s", id))
}

func (d *DBStore) GetProfileByEmail(ctx context.Context, email string) (*roommate.Profile, error) {
	email = roommate.NormalizeEmail(email)
	return d.getProfile(ctx, sq.Eq{"email": email}, fmt.Sprintf("profile with email %s", email))
}
