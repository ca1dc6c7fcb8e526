package roommate

import (
	"errors"
	"fmt"

	"github.com/oriser/regroup"
)

var emailRe = regroup.MustCompile(`^(?P<local>[^@\s]+)@(?P<domain>[^@\s]+\.[^@\s]+)$`)

type EmailAddress struct {
	Local  string `regroup:"local,required"`
	Domain string `regroup:"domain,required"`
}

func ParseEmail(email string) (*EmailAddress, error) {
	parsed := &EmailAddress{}
	if err := emailRe.MatchToTarget(NormalizeEmail(email), parsed); err != nil {
		if errors.Is(err, &regroup.NoMatchFoundError{}) {
			return nil, fmt.Errorf("malformed email %q", email)
		}
		return nil, fmt.Errorf("regroup match to target: %w", err)
	}
	return parsed, nil
}
