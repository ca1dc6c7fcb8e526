package roommate

import (
	"context"
	"fmt"
	"strings"
)

// Roommate is a member of a user's household roster.
type Roommate struct {
	ID      string `db:"id" json:"id"`
	OwnerID string `db:"owner_id" json:"owner_id"`
	Name    string `db:"name" json:"name"`
	Email   string `db:"email" json:"email"`
	UPIID   string `db:"upi_id" json:"upi_id"`
	Phone   string `db:"phone" json:"phone,omitempty"`
}

// Profile is a registered account. Counterparts of a settlement are looked up here by email.
type Profile struct {
	ID    string `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
	UPIID string `db:"upi_id" json:"upi_id"`
}

// Identity is the minimal data needed to address a party in a settlement.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	UPIID string `json:"upi_id"`
}

func (r *Roommate) Identity() Identity {
	return Identity{Name: r.Name, Email: NormalizeEmail(r.Email), UPIID: r.UPIID}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type ErrNotFound struct {
	Key string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found", e.Key)
}

type ErrDuplicateRoommate struct {
	Email string
}

func (e *ErrDuplicateRoommate) Error() string {
	return fmt.Sprintf("roommate with email %s already exists", e.Email)
}

type Store interface {
	AddRoommate(ctx context.Context, roommate *Roommate) error
	ListRoommates(ctx context.Context, ownerID string) ([]*Roommate, error)
}

type ProfileStore interface {
	AddProfile(ctx context.Context, profile *Profile) error
	GetProfile(ctx context.Context, id string) (*Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*Profile, error)
}
