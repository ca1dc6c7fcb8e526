package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/oriser/roomies/roommate"
	"github.com/oriser/roomies/settlement"
)

func validateContact(name, email, upiID string, requireName bool) error {
	if requireName && strings.TrimSpace(name) == "" {
		return settlement.NewValidationError("name", "missing")
	}
	if _, err := roommate.ParseEmail(email); err != nil {
		return settlement.NewValidationError("email", "%v", err)
	}
	if upiID != "" {
		if err := roommate.ValidateUPIID(upiID); err != nil {
			return settlement.NewValidationError("upi id", "%v", err)
		}
	}
	return nil
}

func (h *Service) HandleAddRoommate(ctx context.Context, ownerID string, r *roommate.Roommate) error {
	if h.roommateStore == nil {
		return fmt.Errorf("no roommate store configured")
	}
	if ownerID == "" {
		return settlement.NewValidationError("user id", "missing requesting user")
	}
	if r == nil {
		return settlement.NewValidationError("roommate", "missing")
	}
	if err := validateContact(r.Name, r.Email, r.UPIID, true); err != nil {
		return err
	}
	r.OwnerID = ownerID
	r.Name = strings.TrimSpace(r.Name)
	r.Email = roommate.NormalizeEmail(r.Email)
	if err := h.roommateStore.AddRoommate(ctx, r); err != nil {
		return fmt.Errorf("add roommate: %w", err)
	}
	return nil
}

func (h *Service) HandleAddProfile(ctx context.Context, p *roommate.Profile) error {
	if p == nil {
		return settlement.NewValidationError("profile", "missing")
	}
	if err := validateContact(p.Name, p.Email, p.UPIID, false); err != nil {
		return err
	}
	p.Email = roommate.NormalizeEmail(p.Email)
	if err := h.profileStore.AddProfile(ctx, p); err != nil {
		return fmt.Errorf("add profile: %w", err)
	}
	return nil
}
