package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const DefaultTTL = 2 * time.Hour

// Store holds live sessions. Idle sessions expire after the TTL; every Get
// extends it.
type Store struct {
	cache *cache.Cache
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{cache: cache.New(ttl, 10*time.Minute)}
}

func (s *Store) Create() *State {
	st := NewState(uuid.NewString())
	s.cache.Set(st.ID(), st, cache.DefaultExpiration)
	return st
}

func (s *Store) Get(id string) (*State, error) {
	x, found := s.cache.Get(id)
	if !found {
		return nil, ErrNotFound
	}
	st := x.(*State)
	s.cache.Set(id, st, cache.DefaultExpiration)
	return st, nil
}

func (s *Store) Delete(id string) {
	s.cache.Delete(id)
}

func (s *Store) Len() int {
	return s.cache.ItemCount()
}
