package combined

import (
	"context"
	"errors"
	"fmt"

	"github.com/oriser/roomies/roommate"
)

// The ProfileStoreCombined combines two profile directories. it takes 2 profile stores and do the following:
// 1. For AddProfile, adding just to the first
// 2. For GetProfile and GetProfileByEmail, try to get from the first, if it isn't there, takes from the second

type ProfileStoreCombined struct {
	first  roommate.ProfileStore
	second roommate.ProfileStore
}

func NewPrioritizedProfileStore(first, second roommate.ProfileStore) *ProfileStoreCombined {
	return &ProfileStoreCombined{
		first:  first,
		second: second,
	}
}

func (p *ProfileStoreCombined) AddProfile(ctx context.Context, profile *roommate.Profile) error {
	return p.first.AddProfile(ctx, profile)
}

func (p *ProfileStoreCombined) GetProfile(ctx context.Context, id string) (*roommate.Profile, error) {
	return p.get(func(store roommate.ProfileStore) (*roommate.Profile, error) {
		return store.GetProfile(ctx, id)
	})
}

func (p *ProfileStoreCombined) GetProfileByEmail(ctx context.Context, email string) (*roommate.Profile, error) {
	return p.get(func(store roommate.ProfileStore) (*roommate.Profile, error) {
		return store.GetProfileByEmail(ctx, email)
	})
}

func (p *ProfileStoreCombined) get(getFunc func(store roommate.ProfileStore) (*roommate.Profile, error)) (*roommate.Profile, error) {
	profile, err := getFunc(p.first)
	if err == nil && profile != nil {
		return profile, nil
	}

	notFound := &roommate.ErrNotFound{}
	if err != nil && !errors.As(err, &notFound) {
		return nil, fmt.Errorf("getting profile from first storage: %w", err)
	}

	profile, err = getFunc(p.second)
	if err != nil {
		return nil, err
	}
	return profile, nil
}
