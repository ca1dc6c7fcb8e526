package db

import (
	"bytes"
	_ "embed"
	"testing"
	"text/template"
	"time"

	"github.com/Masterminds/sprig"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//go:embed test_seed.sql
var seed string

type DBTest struct {
	db *DBStore
}

func NewDBTest(t *testing.T) *DBTest {
	db, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	// Every new connection to :memory: is a new empty database
	db.SetMaxOpenConns(1)

	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	require.NoError(t, err)

	dbStore, err := New(db, driver, "")
	require.NoError(t, err)

	return &DBTest{db: dbStore}
}

func (d *DBTest) Seed(t *testing.T) {
	t.Helper()
	seedTemplate := template.Must(template.New("seed").Funcs(sprig.TxtFuncMap()).Parse(seed))
	rawSeedSQL := bytes.NewBuffer(nil)
	require.NoError(t, seedTemplate.Execute(rawSeedSQL, nil))

	_, err := d.db.db.Exec(rawSeedSQL.String())
	require.NoError(t, err)
}

func (d *DBTest) Cleanup(t *testing.T) {
	err := d.db.db.Close()
	assert.NoError(t, err)
}

// For the equal to work, dumping and re-parsing the time object the get rid of unimportant changes.
func formatTime(t *testing.T, src time.Time) time.Time {
	str := src.UTC().Format(time.RFC3339)
	got, err := time.Parse(time.RFC3339, str)
	require.NoError(t, err)
	return got
}
