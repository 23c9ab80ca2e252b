// Package latest holds the last-known telemetry state shared between
// the session's message path (writer) and the UI layer (reader).
package latest

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jackysetiawan6/Android-Homie/internal/telemetry"
)

const readingKey = "reading"

// Store caches the most recent reading. Values never expire; the
// session overwrites them on every message and installs the unknown
// placeholder after a decode failure.
type Store struct {
	c *cache.Cache
}

// New creates an empty latest-value store.
func New() *Store {
	return &Store{c: cache.New(cache.NoExpiration, 0)}
}

// Set records a new reading as the current state.
func (s *Store) Set(r telemetry.Reading) {
	s.c.Set(readingKey, r, cache.NoExpiration)
}

// Reset installs the unknown placeholder, blanking displayed values.
func (s *Store) Reset(at time.Time) {
	s.Set(telemetry.Unknown(at))
}

// Get returns the current reading. ok is false before the first
// message arrives.
func (s *Store) Get() (telemetry.Reading, bool) {
	v, ok := s.c.Get(readingKey)
	if !ok {
		return telemetry.Reading{}, false
	}
	return v.(telemetry.Reading), true
}
