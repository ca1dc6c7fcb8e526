package db

import (
	"embed"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
)

//go:embed migrations
var migrations embed.FS

type ExecError struct {
	sql  string
	err  error
	msg  string
	args []interface{}
}

func newExecError(msg, sql string, err error, args ...interface{}) *ExecError {
	return &ExecError{sql: sql, err: err, msg: msg, args: args}
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: executing SQL:\n%s\nargs:%#v\nerror:%v", e.msg, e.sql, e.args, e.err)
}

func (e *ExecError) Unwrap() error {
	return e.err
}

type DBStore struct {
	db      *sqlx.DB
	builder sq.StatementBuilderType
}

// New runs the embedded migrations through migrationDriver and returns a store over db.
// A nil migrationDriver skips migrations.
func New(db *sqlx.DB, migrationDriver database.Driver, dbName string) (*DBStore, error) {
	if migrationDriver != nil {
		if err := Migrate(migrationDriver, dbName); err != nil {
			return nil, err
		}
	}

	return &DBStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholderFor(db.DriverName())),
	}, nil
}

func Migrate(migrationDriver database.Driver, dbName string) error {
	d, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("new iofs: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, dbName, migrationDriver)
	if err != nil {
		return fmt.Errorf("new migration instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func placeholderFor(driverName string) sq.PlaceholderFormat {
	switch driverName {
	case "postgres", "pgx":
		return sq.Dollar
	default:
		return sq.Question
	}
}
