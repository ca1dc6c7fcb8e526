package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/caarlos0/env/v6"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oriser/roomies/api"
	"github.com/oriser/roomies/logging"
	"github.com/oriser/roomies/ratelimit"
	"github.com/oriser/roomies/roommate"
	"github.com/oriser/roomies/service"
	"github.com/oriser/roomies/settlement"
	"github.com/oriser/roomies/storage/combined"
	db2 "github.com/oriser/roomies/storage/db"
	"github.com/oriser/roomies/storage/supabase"
)

const (
	StoreBackendSQL      = "sql"
	StoreBackendSupabase = "supabase"

	RateLimitBackendMemory = "memory"
	RateLimitBackendDB     = "db"
)

type Config struct {
	API              api.Config
	Service          service.Config
	Supabase         supabase.Config
	Logging          logging.Config
	StoreBackend     string `env:"STORE_BACKEND" envDefault:"sql"`
	DBDriver         string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DBLocation       string `env:"DB_LOCATION" envDefault:"/var/sqlite/store.db" json:"-"`
	RateLimitBackend string `env:"RATE_LIMIT_BACKEND" envDefault:"db"`
}

func (c Config) String() string {
	res, _ := json.Marshal(&c)
	return string(res)
}

// LoadConfig reads the given .env files (".env" when none is given) into the environment and parses it.
// Missing files are ignored.
func LoadConfig(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

func migrationDriver(cfg Config, db *sqlx.DB) (database.Driver, error) {
	switch cfg.DBDriver {
	case "sqlite3":
		driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
		if err != nil {
			return nil, fmt.Errorf("new sqlite3 migration driver: %w", err)
		}
		return driver, nil
	case "postgres":
		driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
		if err != nil {
			return nil, fmt.Errorf("new postgres migration driver: %w", err)
		}
		return driver, nil
	default:
		return nil, fmt.Errorf("unknown DB driver %q", cfg.DBDriver)
	}
}

// OpenDB connects to the SQL store and brings its schema up to date.
func OpenDB(cfg Config) (*db2.DBStore, *sqlx.DB, error) {
	db, err := sqlx.Connect(cfg.DBDriver, cfg.DBLocation)
	if err != nil {
		return nil, nil, fmt.Errorf("connect DB: %w", err)
	}
	if cfg.DBDriver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}

	driver, err := migrationDriver(cfg, db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	dbStorage, err := db2.New(db, driver, "")
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("new dbStorage: %w", err)
	}
	return dbStorage, db, nil
}

// Migrate applies the embedded migrations and exits.
func Migrate(cfg Config) error {
	_, db, err := OpenDB(cfg)
	if err != nil {
		return err
	}
	return db.Close()
}

func NewService(cfg Config, dbStorage *db2.DBStore) (*service.Service, error) {
	var settlementStore settlement.Store = dbStorage
	var profileStore roommate.ProfileStore = dbStorage

	switch cfg.StoreBackend {
	case StoreBackendSQL:
	case StoreBackendSupabase:
		supabaseStorage, err := supabase.New(cfg.Supabase)
		if err != nil {
			return nil, fmt.Errorf("new supabase storage: %w", err)
		}
		settlementStore = supabaseStorage
		profileStore = combined.NewPrioritizedProfileStore(dbStorage, supabaseStorage)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	var limiter ratelimit.Limiter
	switch cfg.RateLimitBackend {
	case RateLimitBackendMemory:
		limiter = ratelimit.NewMemory()
	case RateLimitBackendDB:
		limiter = dbStorage.RateLimiter()
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.RateLimitBackend)
	}

	return service.New(cfg.Service, settlementStore, profileStore, dbStorage, dbStorage, limiter)
}

// Run serves the API until ctx is done.
func Run(ctx context.Context, cfg Config) error {
	logging.Setup(cfg.Logging)
	slog.Info("Starting", "options", cfg.String())

	dbStorage, db, err := OpenDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	serviceHandler, err := NewService(cfg, dbStorage)
	if err != nil {
		return fmt.Errorf("new service: %w", err)
	}

	server := api.New(cfg.API, serviceHandler)
	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}
