package settlement

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeOwes Type = "owes"
	TypeOwed Type = "owed"
)

func (t Type) Opposite() Type {
	if t == TypeOwes {
		return TypeOwed
	}
	return TypeOwes
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusDebtorPaid Status = "debtor_paid"
	StatusSettled    Status = "settled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusDebtorPaid, StatusSettled:
		return true
	}
	return false
}

// Settlement is one party's view of a debt. Both sides of the same debt share a TransactionGroupID.
type Settlement struct {
	ID                 string     `db:"id" json:"id"`
	UserID             string     `db:"user_id" json:"user_id"`
	Name               string     `db:"name" json:"name"`   // counterparty display name
	Email              string     `db:"email" json:"email"` // counterparty email, lower-cased
	UPIID              string     `db:"upi_id" json:"upi_id"`
	Amount             float64    `db:"amount" json:"amount"`
	Type               Type       `db:"type" json:"type"`
	Status             Status     `db:"status" json:"status"`
	SettledDate        *time.Time `db:"settled_date" json:"settled_date,omitempty"`
	TransactionGroupID string     `db:"transaction_group_id" json:"transaction_group_id"`
	DebtorUserID       string     `db:"debtor_user_id" json:"debtor_user_id"`
	CreditorUserID     string     `db:"creditor_user_id" json:"creditor_user_id"`
	ExpenseID          string     `db:"expense_id" json:"expense_id,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
}

// IsParty reports whether userID owns the row or is recorded as one of its two parties.
func (s *Settlement) IsParty(userID string) bool {
	if userID == "" {
		return false
	}
	return s.UserID == userID || s.DebtorUserID == userID || s.CreditorUserID == userID
}

type Store interface {
	// AddSettlements writes all rows at once; rows that already exist for the same
	// (transaction_group_id, user_id) are ignored. Returns the number of rows written.
	AddSettlements(ctx context.Context, settlements ...*Settlement) (int, error)
	ListSettlementsForUser(ctx context.Context, userID string) ([]*Settlement, error)
	ListSettlementsInGroup(ctx context.Context, groupID string) ([]*Settlement, error)
	UpdateGroupStatus(ctx context.Context, groupID string, status Status, settledDate *time.Time) (int64, error)
	RemoveGroup(ctx context.Context, groupID string) (int64, error)
}

var groupNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/oriser/roomies/settlement-group"))

// GroupID derives the transaction group of a debt. It is deterministic for a given expense,
// so concurrent creations for the same debt land on the same group.
func GroupID(expenseID, debtorEmail, creditorEmail string) string {
	if expenseID == "" {
		return uuid.NewString()
	}
	key := strings.Join([]string{expenseID, strings.ToLower(debtorEmail), strings.ToLower(creditorEmail)}, "|")
	return uuid.NewSHA1(groupNamespace, []byte(key)).String()
}

func NewSettlement(userID, groupID string, counterparty Party, upiID string, amount float64, settlementType Type) *Settlement {
	return &Settlement{
		ID:                 uuid.NewString(),
		UserID:             userID,
		Name:               counterparty.Name,
		Email:              strings.ToLower(counterparty.Email),
		UPIID:              upiID,
		Amount:             amount,
		Type:               settlementType,
		Status:             StatusPending,
		TransactionGroupID: groupID,
		CreatedAt:          time.Now().UTC(),
	}
}

// Party is the counterparty as it is shown on a settlement row.
type Party struct {
	Name  string
	Email string
}
