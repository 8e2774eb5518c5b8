package storefront

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Store holds the active storefront profile, safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	profile Profile
}

func NewStore() *Store {
	return &Store{}
}

// Current returns the active profile.
func (s *Store) Current() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.profile
}

// Update replaces the active profile. Logs at info level if the profile
// content changed (based on digest), or at debug level if unchanged.
func (s *Store) Update(profile Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.profile.Digest() != profile.Digest() {
		log.Info().Msg("storefront profile: updated")
	} else {
		log.Debug().Msg("storefront profile: no changes detected")
	}

	s.profile = profile
}
