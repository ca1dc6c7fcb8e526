package service

import (
	"fmt"
	"time"

	"github.com/oriser/roomies/expense"
	"github.com/oriser/roomies/ratelimit"
	"github.com/oriser/roomies/roommate"
	"github.com/oriser/roomies/settlement"
	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	CreateRateLimit int           `env:"SETTLEMENT_CREATE_RATE_LIMIT" envDefault:"5"`
	UpdateRateLimit int           `env:"SETTLEMENT_UPDATE_RATE_LIMIT" envDefault:"10"`
	DeleteRateLimit int           `env:"SETTLEMENT_DELETE_RATE_LIMIT" envDefault:"5"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"60s"`
	DedupeSharers   bool          `env:"DEDUPE_SHARERS" envDefault:"false"`
	SplitPaise      bool          `env:"SPLIT_RESIDUAL_PAISE" envDefault:"false"`
}

func DefaultConfig() Config {
	return Config{
		CreateRateLimit: 5,
		UpdateRateLimit: 10,
		DeleteRateLimit: 5,
		RateLimitWindow: time.Minute,
	}
}

type Service struct {
	cfg             Config
	settlementStore settlement.Store
	profileStore    roommate.ProfileStore
	roommateStore   roommate.Store
	expenseStore    expense.Store
	limiter         ratelimit.Limiter
	metrics         *metrics
	now             func() time.Time
}

// New wires the ledger. roommateStore and expenseStore may be nil when the caller
// passes rosters and expenses in directly.
func New(cfg Config, settlementStore settlement.Store, profileStore roommate.ProfileStore, roommateStore roommate.Store, expenseStore expense.Store, limiter ratelimit.Limiter) (*Service, error) {
	if settlementStore == nil {
		return nil, fmt.Errorf("nil settlement store")
	}
	if profileStore == nil {
		return nil, fmt.Errorf("nil profile store")
	}
	if cfg.RateLimitWindow <= 0 {
		return nil, fmt.Errorf("rate limit window must be positive (got %s)", cfg.RateLimitWindow)
	}
	if limiter == nil {
		limiter = ratelimit.NewMemory()
	}

	return &Service{
		cfg:             cfg,
		settlementStore: settlementStore,
		profileStore:    profileStore,
		roommateStore:   roommateStore,
		expenseStore:    expenseStore,
		limiter:         limiter,
		metrics:         newMetrics(),
		now:             time.Now,
	}, nil
}

func (h *Service) Registry() *prometheus.Registry {
	return h.metrics.registry
}

func (h *Service) shareOptions() ShareOptions {
	return ShareOptions{DedupeSharers: h.cfg.DedupeSharers, SplitPaise: h.cfg.SplitPaise}
}
