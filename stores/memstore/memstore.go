// Package memstore provides an in-memory IdentityStore and ProfileStore
// for tests and single-process deployments.
package memstore

import (
	"context"
	"sync"

	authcore "github.com/medisync/authcore"
)

// Store keeps users in process memory behind a mutex. IDs are assigned
// sequentially on first save.
type Store struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]*authcore.User
}

// New returns an empty store.
func New() *Store {
	return &Store{
		nextID: 1,
		users:  map[int64]*authcore.User{},
	}
}

func (s *Store) FindByUsername(_ context.Context, username string) (*authcore.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (s *Store) FindByProviderIdentity(_ context.Context, providerID string, providerType authcore.ProviderType) (*authcore.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ProviderID == providerID && u.ProviderType == providerType {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (s *Store) FindByID(_ context.Context, id int64) (*authcore.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (s *Store) Save(_ context.Context, user *authcore.User) (*authcore.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneUser(user)
	if stored.ID == 0 {
		stored.ID = s.nextID
		s.nextID++
	}
	s.users[stored.ID] = stored

	return cloneUser(stored), nil
}

// Len reports how many users the store holds.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func cloneUser(u *authcore.User) *authcore.User {
	if u == nil {
		return nil
	}
	out := *u
	out.Roles = u.Roles.Clone()
	return &out
}

// Profile is one recorded patient profile.
type Profile struct {
	UserID   int64
	Username string
	Name     string
}

// ProfileStore records patient-profile creations in memory.
type ProfileStore struct {
	mu       sync.Mutex
	profiles []Profile
}

// NewProfiles returns an empty profile store.
func NewProfiles() *ProfileStore {
	return &ProfileStore{}
}

func (p *ProfileStore) CreatePatientProfile(_ context.Context, user *authcore.User, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.profiles = append(p.profiles, Profile{UserID: user.ID, Username: user.Username, Name: name})
	return nil
}

// Profiles returns a copy of everything recorded so far.
func (p *ProfileStore) Profiles() []Profile {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Profile, len(p.profiles))
	copy(out, p.profiles)
	return out
}
