package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/oriser/roomies/roommate"
	"github.com/oriser/roomies/settlement"
)

const (
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

type CreatePairRequest struct {
	Debtor           roommate.Identity `json:"debtor"`
	Creditor         roommate.Identity `json:"creditor"`
	Amount           float64           `json:"amount"`
	ExpenseID        string            `json:"expense_id,omitempty"`
	RequestingUserID string            `json:"-"`
}

func (h *Service) allow(ctx context.Context, operation, userID string, limit int) error {
	ok, err := h.limiter.Allow(ctx, operation+":"+userID, limit, h.cfg.RateLimitWindow)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	if !ok {
		h.metrics.rejections.WithLabelValues(operation, "rate_limit").Inc()
		return settlement.ErrRateLimitExceeded
	}
	return nil
}

func (h *Service) reject(operation, reason string, err error) error {
	h.metrics.rejections.WithLabelValues(operation, reason).Inc()
	return err
}

func validatePair(req CreatePairRequest) error {
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount <= 0 {
		return settlement.NewValidationError("amount", "must be a positive number (got %v)", req.Amount)
	}
	if _, err := roommate.ParseEmail(req.Debtor.Email); err != nil {
		return settlement.NewValidationError("debtor email", "%v", err)
	}
	if _, err := roommate.ParseEmail(req.Creditor.Email); err != nil {
		return settlement.NewValidationError("creditor email", "%v", err)
	}
	if strings.EqualFold(roommate.NormalizeEmail(req.Debtor.Email), roommate.NormalizeEmail(req.Creditor.Email)) {
		return settlement.NewValidationError("creditor", "debtor and creditor are the same party")
	}
	if req.Creditor.UPIID != "" {
		if err := roommate.ValidateUPIID(req.Creditor.UPIID); err != nil {
			return settlement.NewValidationError("upi id", "%v", err)
		}
	}
	return nil
}

// CreateSettlementPair writes the requester's row and, when the counterparty has a profile, the paired row
// in the same store call. Failing to write the counterpart never fails the requester's row.
func (h *Service) CreateSettlementPair(ctx context.Context, req CreatePairRequest) (*settlement.Settlement, error) {
	if req.RequestingUserID == "" {
		return nil, h.reject(opCreate, "validation", settlement.NewValidationError("user id", "missing requesting user"))
	}
	if err := h.allow(ctx, opCreate, req.RequestingUserID, h.cfg.CreateRateLimit); err != nil {
		return nil, err
	}
	if err := validatePair(req); err != nil {
		return nil, h.reject(opCreate, "validation", err)
	}

	requester, err := h.profileStore.GetProfile(ctx, req.RequestingUserID)
	if err != nil {
		return nil, fmt.Errorf("get requesting profile: %w", err)
	}
	current := NewCurrentUser(requester)

	debtor := req.Debtor
	debtor.Email = roommate.NormalizeEmail(debtor.Email)
	creditor := req.Creditor
	creditor.Email = roommate.NormalizeEmail(creditor.Email)

	var role settlement.Type
	var counterparty roommate.Identity
	switch current.Email {
	case debtor.Email:
		role, counterparty = settlement.TypeOwes, creditor
	case creditor.Email:
		role, counterparty = settlement.TypeOwed, debtor
	default:
		return nil, h.reject(opCreate, "unauthorized", settlement.ErrUnauthorized)
	}

	groupID := settlement.GroupID(req.ExpenseID, debtor.Email, creditor.Email)
	primary := settlement.NewSettlement(req.RequestingUserID, groupID,
		settlement.Party{Name: counterparty.Name, Email: counterparty.Email}, creditor.UPIID, req.Amount, role)
	primary.ExpenseID = req.ExpenseID

	counterpartUserID := ""
	var counterpart *settlement.Settlement
	if profile := h.counterpartProfile(ctx, counterparty.Email, req.RequestingUserID); profile != nil {
		counterpartUserID = profile.ID
		counterpart = settlement.NewSettlement(profile.ID, groupID,
			settlement.Party{Name: current.DisplayName, Email: current.Email}, creditor.UPIID, req.Amount, role.Opposite())
		counterpart.ExpenseID = req.ExpenseID
		counterpart.CreatedAt = primary.CreatedAt
	}

	debtorID, creditorID := req.RequestingUserID, counterpartUserID
	if role == settlement.TypeOwed {
		debtorID, creditorID = counterpartUserID, req.RequestingUserID
	}
	rows := []*settlement.Settlement{primary}
	if counterpart != nil {
		rows = append(rows, counterpart)
	}
	for _, row := range rows {
		row.DebtorUserID, row.CreditorUserID = debtorID, creditorID
	}

	kind := "paired"
	written, err := h.settlementStore.AddSettlements(ctx, rows...)
	if err != nil && counterpart != nil {
		slog.Warn("Writing settlement pair failed, writing requester row alone",
			"group_id", groupID, "counterpart_user_id", counterpartUserID, "err", err)
		kind = "orphan"
		written, err = h.settlementStore.AddSettlements(ctx, primary)
	}
	if err != nil {
		return nil, fmt.Errorf("add settlements: %w", err)
	}
	if counterpart == nil {
		kind = "orphan"
	}
	h.metrics.rowsWritten.WithLabelValues(kind).Add(float64(written))

	return h.persistedRow(ctx, groupID, req.RequestingUserID, primary), nil
}

func (h *Service) counterpartProfile(ctx context.Context, email, requestingUserID string) *roommate.Profile {
	profile, err := h.profileStore.GetProfileByEmail(ctx, email)
	if err != nil {
		slog.Info("Counterparty profile not found, settlement stays single-sided", "email", email, "err", err)
		return nil
	}
	if profile == nil || profile.ID == "" || profile.ID == requestingUserID {
		return nil
	}
	return profile
}

// persistedRow returns the stored row of userID in the group, which differs from fallback
// when the same debt was already recorded.
func (h *Service) persistedRow(ctx context.Context, groupID, userID string, fallback *settlement.Settlement) *settlement.Settlement {
	rows, err := h.settlementStore.ListSettlementsInGroup(ctx, groupID)
	if err != nil {
		slog.Warn("Listing settlement group after write", "group_id", groupID, "err", err)
		return fallback
	}
	for _, row := range rows {
		if row.UserID == userID {
			return row
		}
	}
	return fallback
}

// UpdateStatus moves every row of the group to status in one write.
func (h *Service) UpdateStatus(ctx context.Context, groupID string, status settlement.Status, userID string) error {
	if userID == "" {
		return h.reject(opUpdate, "validation", settlement.NewValidationError("user id", "missing requesting user"))
	}
	if err := h.allow(ctx, opUpdate, userID, h.cfg.UpdateRateLimit); err != nil {
		return err
	}
	if !status.Valid() {
		return h.reject(opUpdate, "validation", settlement.NewValidationError("status", "unknown status %q", status))
	}
	if groupID == "" {
		return h.reject(opUpdate, "validation", settlement.NewValidationError("transaction group id", "missing"))
	}

	rows, err := h.settlementStore.ListSettlementsInGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("list settlement group: %w", err)
	}
	isParty := false
	for _, row := range rows {
		if row.IsParty(userID) {
			isParty = true
			break
		}
	}
	if !isParty {
		return h.reject(opUpdate, "unauthorized", settlement.ErrUnauthorized)
	}

	var settledDate *time.Time
	if status == settlement.StatusSettled {
		now := h.now().UTC()
		settledDate = &now
	}
	if _, err := h.settlementStore.UpdateGroupStatus(ctx, groupID, status, settledDate); err != nil {
		return fmt.Errorf("update group status: %w", err)
	}
	return nil
}

// DeleteSettlementGroup removes both sides of a debt. The requester must own one of the rows.
func (h *Service) DeleteSettlementGroup(ctx context.Context, groupID, userID string) error {
	if userID == "" {
		return h.reject(opDelete, "validation", settlement.NewValidationError("user id", "missing requesting user"))
	}
	if err := h.allow(ctx, opDelete, userID, h.cfg.DeleteRateLimit); err != nil {
		return err
	}

	rows, err := h.settlementStore.ListSettlementsInGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("list settlement group: %w", err)
	}
	owned := false
	for _, row := range rows {
		if row.UserID == userID {
			owned = true
			break
		}
	}
	if !owned {
		return h.reject(opDelete, "not_found", settlement.ErrNotFoundOrUnauthorized)
	}

	if _, err := h.settlementStore.RemoveGroup(ctx, groupID); err != nil {
		return fmt.Errorf("remove group: %w", err)
	}
	return nil
}

// FetchSettlements lists the rows owned by userID, newest first.
func (h *Service) FetchSettlements(ctx context.Context, userID string) ([]*settlement.Settlement, error) {
	if userID == "" {
		return nil, settlement.NewValidationError("user id", "missing requesting user")
	}
	settlements, err := h.settlementStore.ListSettlementsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	return settlements, nil
}
