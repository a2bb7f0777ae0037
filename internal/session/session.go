// Package session keeps each visitor's UI state (resume dialog, navigation
// bar, pending notifications) between HTMX requests.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"github.com/dwhitmore/portfolio/internal/nav"
	"github.com/dwhitmore/portfolio/internal/resume"
)

// DefaultWidth is assumed until the browser reports its viewport.
const DefaultWidth = 1024

// Snackbar is a transient notification shown once.
type Snackbar struct {
	Message string
	IsError bool
}

// Session is one visitor's state.
type Session struct {
	ID       string
	Resume   *resume.Controller
	Viewport *nav.Viewport
	Nav      *nav.Bar

	captchaReset atomic.Bool

	mu       sync.Mutex
	snackbar *Snackbar
	once     sync.Once
}

// CaptchaWidget is the resume.Captcha for this visitor's browser. Resets
// are queued and delivered with the next response.
func (s *Session) CaptchaWidget() resume.Captcha {
	return resume.CaptchaFunc(func() { s.captchaReset.Store(true) })
}

// TakeCaptchaReset reports and clears a pending widget reset.
func (s *Session) TakeCaptchaReset() bool {
	return s.captchaReset.Swap(false)
}

// ShowSnackbar queues a notification, replacing any unseen one.
func (s *Session) ShowSnackbar(message string, isError bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snackbar = &Snackbar{Message: message, IsError: isError}
}

// TakeSnackbar returns and clears the pending notification.
func (s *Session) TakeSnackbar() *Snackbar {
	s.mu.Lock()
	defer s.mu.Unlock()
	sb := s.snackbar
	s.snackbar = nil
	return sb
}

// Close tears down the navigation subscriptions. It is idempotent.
func (s *Session) Close() {
	s.once.Do(func() {
		if s.Nav != nil {
			s.Nav.Close()
		}
		if s.Viewport != nil {
			s.Viewport.Close()
		}
	})
}

// ControllerFactory builds the resume controller for a new session. The
// session's CaptchaWidget and ShowSnackbar are meant to be wired into it.
type ControllerFactory func(s *Session) *resume.Controller

// Store holds sessions for ttl after their last use.
type Store struct {
	cache      *ttlcache.Cache[string, *Session]
	newControl ControllerFactory
	started    atomic.Bool
}

// NewStore creates a store; call Start to begin expiring sessions.
func NewStore(ttl time.Duration, factory ControllerFactory) *Store {
	cache := ttlcache.New[string, *Session](
		ttlcache.WithTTL[string, *Session](ttl),
	)
	cache.OnEviction(func(_ context.Context, _ ttlcache.EvictionReason, item *ttlcache.Item[string, *Session]) {
		item.Value().Close()
	})
	return &Store{cache: cache, newControl: factory}
}

// Start runs the expiry loop until Stop.
func (s *Store) Start() {
	if s.started.CompareAndSwap(false, true) {
		go s.cache.Start()
	}
}

// Stop ends the expiry loop and closes every session.
func (s *Store) Stop() {
	if s.started.CompareAndSwap(true, false) {
		s.cache.Stop()
	}
	s.cache.DeleteAll()
}

// Create starts a new session.
func (s *Store) Create() *Session {
	sess := &Session{ID: uuid.NewString()}
	sess.Viewport = nav.NewViewport(DefaultWidth)
	sess.Nav = nav.NewBar(sess.Viewport)
	sess.Resume = s.newControl(sess)
	s.cache.Set(sess.ID, sess, ttlcache.DefaultTTL)
	return sess
}

// Get returns a live session and extends its lifetime.
func (s *Store) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	item := s.cache.Get(id)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// GetOrCreate returns the session for id, or a new one when it is unknown
// or expired. created reports the latter.
func (s *Store) GetOrCreate(id string) (sess *Session, created bool) {
	if sess, ok := s.Get(id); ok {
		return sess, false
	}
	return s.Create(), true
}

// Delete ends a session.
func (s *Store) Delete(id string) {
	s.cache.Delete(id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	return s.cache.Len()
}
