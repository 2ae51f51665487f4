package session

import (
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"document-chat/internal/config"
	"document-chat/internal/helper"
)

// Store keeps sessions in memory. A session is dropped, with its index and
// history, once it has been idle for the configured TTL.
type Store struct {
	cache *cache.Cache
}

func NewStore(cfg *config.SessionConfig) *Store {
	return newStore(time.Duration(cfg.TTLMinutes)*time.Minute, time.Duration(cfg.CleanupEvery)*time.Minute)
}

func newStore(ttl, cleanup time.Duration) *Store {
	c := cache.New(ttl, cleanup)
	c.OnEvicted(func(id string, _ interface{}) {
		log.Debug().Str("session", id).Msg("Session expired")
	})
	return &Store{cache: c}
}

// Create starts a new empty session.
func (s *Store) Create() (*Session, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	sess := New(id)
	s.cache.Set(id, sess, cache.DefaultExpiration)
	log.Debug().Str("session", id).Msg("Session created")
	return sess, nil
}

// Get looks a session up and extends its lifetime.
func (s *Store) Get(id string) (*Session, bool) {
	x, found := s.cache.Get(id)
	if !found {
		return nil, false
	}
	sess := x.(*Session)
	s.cache.Set(id, sess, cache.DefaultExpiration)
	return sess, true
}

// GetOrCreate returns the session for id, or a new one if it is unknown or
// has expired.
func (s *Store) GetOrCreate(id string) (*Session, error) {
	if id != "" {
		if sess, ok := s.Get(id); ok {
			return sess, nil
		}
	}
	return s.Create()
}

func (s *Store) Delete(id string) {
	s.cache.Delete(id)
}

func (s *Store) Len() int {
	return s.cache.ItemCount()
}
