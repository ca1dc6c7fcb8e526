package service

import (
	"strings"

	"github.com/oriser/roomies/roommate"
)

// FallbackDisplayName is used when neither a profile name nor an account email is known.
const FallbackDisplayName = "You"

// ResolveDisplayName returns the profile name, else the local part of the account email, else FallbackDisplayName.
func ResolveDisplayName(profile *roommate.Profile, accountEmail string) string {
	if profile != nil && strings.TrimSpace(profile.Name) != "" {
		return strings.TrimSpace(profile.Name)
	}
	if accountEmail == "" && profile != nil {
		accountEmail = profile.Email
	}
	if parsed, err := roommate.ParseEmail(accountEmail); err == nil {
		return parsed.Local
	}
	return FallbackDisplayName
}

// CurrentUser is the acting user as they may appear on an expense.
type CurrentUser struct {
	ID          string
	DisplayName string
	Email       string
	ProfileName string
	UPIID       string
}

func NewCurrentUser(profile *roommate.Profile) CurrentUser {
	if profile == nil {
		return CurrentUser{DisplayName: FallbackDisplayName}
	}
	return CurrentUser{
		ID:          profile.ID,
		DisplayName: ResolveDisplayName(profile, profile.Email),
		Email:       roommate.NormalizeEmail(profile.Email),
		ProfileName: profile.Name,
		UPIID:       profile.UPIID,
	}
}

// IsAlias reports whether name refers to the current user: the display name, the raw email or the profile name.
func (c CurrentUser) IsAlias(name string) bool {
	if name == "" {
		return false
	}
	if name == c.DisplayName || (c.ProfileName != "" && name == c.ProfileName) {
		return true
	}
	return c.Email != "" && strings.EqualFold(strings.TrimSpace(name), c.Email)
}

func (c CurrentUser) Identity() roommate.Identity {
	return roommate.Identity{Name: c.DisplayName, Email: c.Email, UPIID: c.UPIID}
}

func (c CurrentUser) is(identity roommate.Identity) bool {
	return sameIdentity(c.Identity(), identity)
}

// ResolveParty maps a free-text name on an expense to the current user or to a roommate.
// Roommates are matched on exact name first, then on email.
func ResolveParty(candidate string, current CurrentUser, roommates []*roommate.Roommate) (roommate.Identity, bool) {
	if current.IsAlias(candidate) {
		return current.Identity(), true
	}
	for _, r := range roommates {
		if r != nil && r.Name == candidate {
			return r.Identity(), true
		}
	}
	for _, r := range roommates {
		if r != nil && r.Email != "" && strings.EqualFold(r.Email, strings.TrimSpace(candidate)) {
			return r.Identity(), true
		}
	}
	return roommate.Identity{}, false
}

func sameIdentity(a, b roommate.Identity) bool {
	if a.Email != "" && b.Email != "" {
		return strings.EqualFold(a.Email, b.Email)
	}
	return a.Name == b.Name
}
