package combined

import (
	"context"
	"errors"
	"testing"

	"github.com/oriser/roomies/roommate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapProfileStore struct {
	byID  map[string]*roommate.Profile
	added []*roommate.Profile
	err   error
}

func newMapProfileStore(profiles ...*roommate.Profile) *mapProfileStore {
	s := &mapProfileStore{byID: make(map[string]*roommate.Profile)}
	for _, p := range profiles {
		s.byID[p.ID] = p
	}
	return s
}

func (m *mapProfileStore) AddProfile(_ context.Context, profile *roommate.Profile) error {
	m.added = append(m.added, profile)
	m.byID[profile.ID] = profile
	return nil
}

func (m *mapProfileStore) GetProfile(_ context.Context, id string) (*roommate.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, &roommate.ErrNotFound{Key: id}
	}
	return p, nil
}

func (m *mapProfileStore) GetProfileByEmail(_ context.Context, email string) (*roommate.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.byID {
		if p.Email == roommate.NormalizeEmail(email) {
			return p, nil
		}
	}
	return nil, &roommate.ErrNotFound{Key: email}
}

func TestPrioritizedProfileStore(t *testing.T) {
	t.Parallel()

	local := &roommate.Profile{ID: "1", Name: "Local Asha", Email: "asha@example.com"}
	shadowed := &roommate.Profile{ID: "1", Name: "Remote Asha", Email: "asha@example.com"}
	remote := &roommate.Profile{ID: "2", Name: "Ravi", Email: "ravi@example.com"}

	tests := []struct {
		name        string
		first       *mapProfileStore
		second      *mapProfileStore
		id          string
		email       string
		expected    *roommate.Profile
		expectedErr bool
	}{
		{
			name:     "first wins",
			first:    newMapProfileStore(local),
			second:   newMapProfileStore(shadowed, remote),
			id:       "1",
			email:    "ASHA@example.com",
			expected: local,
		},
		{
			name:     "falls back to second",
			first:    newMapProfileStore(local),
			second:   newMapProfileStore(shadowed, remote),
			id:       "2",
			email:    "ravi@example.com",
			expected: remote,
		},
		{
			name:        "missing everywhere",
			first:       newMapProfileStore(local),
			second:      newMapProfileStore(remote),
			id:          "3",
			email:       "ghost@x.com",
			expectedErr: true,
		},
		{
			name:        "first store failure is not hidden",
			first:       &mapProfileStore{err: errors.New("disk I/O error")},
			second:      newMapProfileStore(remote),
			id:          "2",
			email:       "ravi@example.com",
			expectedErr: true,
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			store := NewPrioritizedProfileStore(tc.first, tc.second)

			byID, err := store.GetProfile(context.Background(), tc.id)
			byEmail, emailErr := store.GetProfileByEmail(context.Background(), tc.email)
			if tc.expectedErr {
				assert.Error(t, err)
				assert.Error(t, emailErr)
				return
			}
			require.NoError(t, err)
			require.NoError(t, emailErr)
			assert.Equal(t, tc.expected, byID)
			assert.Equal(t, tc.expected, byEmail)
		})
	}
}

func TestPrioritizedProfileStoreAddsToFirst(t *testing.T) {
	t.Parallel()

	first, second := newMapProfileStore(), newMapProfileStore()
	store := NewPrioritizedProfileStore(first, second)

	require.NoError(t, store.AddProfile(context.Background(), &roommate.Profile{ID: "1", Email: "a@example.com"}))
	assert.Len(t, first.added, 1)
	assert.Len(t, second.added, 0)
}
