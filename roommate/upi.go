package roommate

import (
	"fmt"
	"regexp"
)

const (
	MinUPIIDLength = 3
	MaxUPIIDLength = 50
)

var upiIDRe = regexp.MustCompile(`^[\w.\-@]+$`)

// ValidateUPIID checks the payment address format only; nothing is transacted.
func ValidateUPIID(upiID string) error {
	if len(upiID) < MinUPIIDLength || len(upiID) > MaxUPIIDLength {
		return fmt.Errorf("UPI id must be between %d and %d characters", MinUPIIDLength, MaxUPIIDLength)
	}
	if !upiIDRe.MatchString(upiID) {
		return fmt.Errorf("UPI id %q contains invalid characters", upiID)
	}
	return nil
}
