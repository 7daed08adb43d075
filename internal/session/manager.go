// Package session ties anonymous browser sessions to their studio
// controllers. Sessions live in a TTL cache; eviction tears the studio
// down so preview resources are released even when a browser just leaves.
package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"scenestudio/internal/studio"
)

const cookieName = "scenestudio_session"

const defaultTTL = 30 * time.Minute

type Manager struct {
	cache *cache.Cache
	ttl   time.Duration
	build func() *studio.Studio
}

// NewManager builds a session manager. build produces a fresh studio for
// each new session.
func NewManager(ttl time.Duration, build func() *studio.Studio) *Manager {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	cleanup := ttl / 2
	if cleanup <= 0 {
		cleanup = time.Second
	}
	c := cache.New(ttl, cleanup)
	c.OnEvicted(func(id string, v interface{}) {
		if st, ok := v.(*studio.Studio); ok {
			st.Close()
		}
	})
	return &Manager{cache: c, ttl: ttl, build: build}
}

// Resolve returns the studio behind the request's session cookie, minting
// a new session (and cookie) when there is none or it has expired. The TTL
// slides on every call.
func (m *Manager) Resolve(w http.ResponseWriter, r *http.Request) *studio.Studio {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		if v, ok := m.cache.Get(c.Value); ok {
			st := v.(*studio.Studio)
			m.cache.Set(c.Value, st, cache.DefaultExpiration)
			return st
		}
	}

	id := uuid.NewString()
	st := m.build()
	m.cache.Set(id, st, cache.DefaultExpiration)
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.ttl / time.Second),
	})
	return st
}

// Count reports the number of live sessions.
func (m *Manager) Count() int {
	return m.cache.ItemCount()
}
