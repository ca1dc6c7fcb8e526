package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oriser/roomies/ratelimit"
	"github.com/oriser/roomies/roommate"
	"github.com/oriser/roomies/settlement"
	"github.com/oriser/roomies/storage/db"
	"github.com/stretchr/testify/require"
)

const (
	meID    = "u-me"
	priyaID = "u-priya"
	arjunID = "u-arjun"
)

var (
	me    = roommate.Identity{Name: "Me", Email: "me@example.com", UPIID: "me@okaxis"}
	priya = roommate.Identity{Name: "Priya", Email: "priya@example.com", UPIID: "priya@okaxis"}
	arjun = roommate.Identity{Name: "Arjun", Email: "arjun@example.com"}
	ghost = roommate.Identity{Name: "Ghost", Email: "ghost@x.com"}
)

type fakeClock struct {
	lock sync.Mutex
	now  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = c.now.Add(d)
}

// pairFailingStore fails every write of more than one row.
type pairFailingStore struct {
	settlement.Store
}

func (p *pairFailingStore) AddSettlements(ctx context.Context, settlements ...*settlement.Settlement) (int, error) {
	if len(settlements) > 1 {
		return 0, errors.New("constraint violation on counterpart row")
	}
	return p.Store.AddSettlements(ctx, settlements...)
}

func newTestStore(t *testing.T) *db.DBStore {
	t.Helper()
	conn, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = conn.Close()
	})

	driver, err := sqlite3.WithInstance(conn.DB, &sqlite3.Config{})
	require.NoError(t, err)
	store, err := db.New(conn, driver, "")
	require.NoError(t, err)

	ctx := context.Background()
	for id, identity := range map[string]roommate.Identity{meID: me, priyaID: priya, arjunID: arjun} {
		require.NoError(t, store.AddProfile(ctx, &roommate.Profile{ID: id, Name: identity.Name, Email: identity.Email, UPIID: identity.UPIID}))
	}
	return store
}

type testService struct {
	*Service
	store *db.DBStore
	clock *fakeClock
}

func newTestService(t *testing.T, mutate ...func(*Config)) *testService {
	t.Helper()
	store := newTestStore(t)
	clock := &fakeClock{now: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}

	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	svc, err := New(cfg, store, store, store, store, ratelimit.NewMemoryWithClock(clock.Now))
	require.NoError(t, err)
	svc.now = clock.Now
	return &testService{Service: svc, store: store, clock: clock}
}

func (ts *testService) withSettlementStore(store settlement.Store) {
	ts.settlementStore = store
}

func roommateIdentity(email string) roommate.Identity {
	return roommate.Identity{Name: email, Email: email}
}

func withUPI(identity roommate.Identity, upiID string) roommate.Identity {
	identity.UPIID = upiID
	return identity
}
