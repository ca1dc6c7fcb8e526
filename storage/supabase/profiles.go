package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/oriser/roomies/roommate"
)

const profilesTable = "profiles"

func (s *Store) saveCache(email string, profile *roommate.Profile) {
	if s.maxCacheEntryTime <= 0 {
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	s.cache[email] = cacheEntry{
		profile: profile,
		expired: time.Now().Add(s.maxCacheEntryTime),
	}
}

func (s *Store) getFromCache(email string) *roommate.Profile {
	s.lock.RLock()
	entry, ok := s.cache[email]
	s.lock.RUnlock()

	if !ok {
		return nil
	}

	if time.Now().After(entry.expired) {
		s.lock.Lock()
		delete(s.cache, email)
		s.lock.Unlock()
		slog.Debug("Profile cache entry expired", "email", email)
		return nil
	}
	return entry.profile
}

func (s *Store) AddProfile(ctx context.Context, profile *roommate.Profile) error {
	if profile == nil {
		return fmt.Errorf("nil profile")
	}
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	profile.Email = roommate.NormalizeEmail(profile.Email)

	body, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if _, err = s.do(ctx, "POST", profilesTable, url.Values{}, body, "return=minimal"); err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}

	s.saveCache(profile.Email, profile)
	return nil
}

func (s *Store) getProfile(ctx context.Context, column, value string) (*roommate.Profile, error) {
	gc, err := s.do(ctx, "GET", profilesTable, url.Values{column: {eq(value)}, "select": {"id,name,email,upi_id"}}, nil, "")
	if err != nil {
		return nil, fmt.Errorf("select profile: %w", err)
	}

	rows := children(gc)
	if len(rows) > 1 {
		return nil, fmt.Errorf("more than one profile found (found %d)", len(rows))
	}
	if len(rows) == 0 {
		return nil, &roommate.ErrNotFound{Key: fmt.Sprintf("profile with %s %s", column, value)}
	}

	profile := &roommate.Profile{}
	if err := json.Unmarshal(rows[0].Bytes(), profile); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	return profile, nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (*roommate.Profile, error) {
	return s.getProfile(ctx, "id", id)
}

func (s *Store) GetProfileByEmail(ctx context.Context, email string) (*roommate.Profile, error) {
	email = roommate.NormalizeEmail(email)
	if profile := s.getFromCache(email); profile != nil {
		return profile, nil
	}

	profile, err := s.getProfile(ctx, "email", email)
	if err != nil {
		return nil, err
	}
	s.saveCache(email, profile)
	return profile, nil
}
