// Package keykit implements the concurrent verification-key cache backing
// the token authorizer. Keys are fetched on demand from a remote JWKS
// endpoint, at most once per configured refresh interval.
package keykit

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/sirupsen/logrus"
)

var (
	// ErrKeyNotFound is returned when the key id is absent from the cache,
	// including after a completed refresh.
	ErrKeyNotFound = errors.New("key not found")
	// ErrFetchFailed is returned when the key set could not be fetched or
	// parsed. The refresh timestamp is not advanced in that case.
	ErrFetchFailed = errors.New("failed to fetch key set")
)

// KeyRecord is an immutable cached verification key.
type KeyRecord struct {
	KID       string
	Key       crypto.PublicKey
	Algorithm string
}

// Storage maps key ids to verification keys, refreshing from the remote
// key-set endpoint on lookup misses.
//
// Reads never block each other. A refresh is attempted only after a miss,
// only when the minimum interval since the last completed refresh has
// elapsed, and at most one refresh runs at a time; concurrent misses wait
// for the in-flight refresh and resolve against its outcome. A refresh
// replaces the whole mapping, so provider-side key removals take effect
// immediately. Cached keys never expire on their own.
type Storage struct {
	jwksURI    string
	client     *http.Client
	minRefresh time.Duration
	now        func() time.Time
	log        *logrus.Entry

	mu          sync.RWMutex
	keys        map[string]KeyRecord
	lastRefresh time.Time
	attempt     uint64

	// refreshMu serializes refreshes. It is never held together with mu
	// across the network fetch; mu guards only the map swap and the
	// attempt counter.
	refreshMu  sync.Mutex
	refreshErr error // outcome of the last attempt, guarded by refreshMu
}

// Option configures a Storage.
type Option func(*Storage)

// WithHTTPClient overrides the HTTP client used to fetch the key set.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Storage) { s.client = c }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) { s.now = now }
}

// WithLogger overrides the logger.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Storage) { s.log = log }
}

// NewStorage creates an empty key cache for the given JWKS endpoint. The
// zero last-refresh time always satisfies the rate-limit check, so the
// first lookup ever served triggers a fetch.
func NewStorage(jwksURI string, minRefresh time.Duration, opts ...Option) *Storage {
	s := &Storage{
		jwksURI:    jwksURI,
		client:     &http.Client{Timeout: 10 * time.Second},
		minRefresh: minRefresh,
		now:        time.Now,
		log:        logrus.NewEntry(logrus.StandardLogger()),
		keys:       make(map[string]KeyRecord),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the verification key for the given key id, refreshing the
// cache from the remote endpoint when the id is unknown and the refresh
// window allows it.
func (s *Storage) Get(ctx context.Context, keyID string) (KeyRecord, error) {
	s.mu.RLock()
	rec, ok := s.keys[keyID]
	last := s.lastRefresh
	attempt := s.attempt
	s.mu.RUnlock()
	if ok {
		return rec, nil
	}
	if !s.shouldRefresh(last) {
		// Stale miss: resolve without touching the network.
		return KeyRecord{}, fmt.Errorf("%w: %q (refresh window not elapsed)", ErrKeyNotFound, keyID)
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	// A refresh may have run while we waited for the mutex. Re-check the key
	// first, then the attempt counter: coalesced misses resolve against the
	// winner's outcome, success or failure, instead of fetching again.
	s.mu.RLock()
	rec, ok = s.keys[keyID]
	attemptNow := s.attempt
	s.mu.RUnlock()
	if ok {
		return rec, nil
	}
	if attemptNow != attempt {
		if s.refreshErr != nil {
			return KeyRecord{}, s.refreshErr
		}
		return KeyRecord{}, fmt.Errorf("%w: %q", ErrKeyNotFound, keyID)
	}

	err := s.refresh(ctx)
	s.mu.Lock()
	s.attempt++
	s.mu.Unlock()
	s.refreshErr = err
	if err != nil {
		return KeyRecord{}, err
	}

	s.mu.RLock()
	rec, ok = s.keys[keyID]
	s.mu.RUnlock()
	if !ok {
		return KeyRecord{}, fmt.Errorf("%w: %q", ErrKeyNotFound, keyID)
	}
	return rec, nil
}

// Len returns the number of cached keys.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

func (s *Storage) shouldRefresh(lastRefresh time.Time) bool {
	return !s.now().Before(lastRefresh.Add(s.minRefresh))
}

// refresh fetches and parses the key set outside the cache lock, then swaps
// the mapping and the timestamp in as a unit. Callers must hold refreshMu.
func (s *Storage) refresh(ctx context.Context) error {
	s.log.WithField("jwks_uri", s.jwksURI).Debug("refreshing key set")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.jwksURI, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	res, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("%w: endpoint returned status %d", ErrFetchFailed, res.StatusCode)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	set, err := jwk.Parse(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	keys := s.indexKeySet(set)

	s.mu.Lock()
	s.keys = keys
	s.lastRefresh = s.now()
	s.mu.Unlock()
	s.log.WithField("keys", len(keys)).Debug("key set refreshed")
	return nil
}

// indexKeySet converts a parsed key set into the kid-indexed mapping.
// Entries without a kid, or whose material cannot be converted to a public
// key, are skipped rather than failing the whole refresh.
func (s *Storage) indexKeySet(set jwk.Set) map[string]KeyRecord {
	keys := make(map[string]KeyRecord, set.Len())
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		kid := key.KeyID()
		if kid == "" {
			continue
		}
		var raw any
		if err := key.Raw(&raw); err != nil {
			s.log.WithField("kid", kid).WithError(err).Warn("skipping key that cannot be converted to a verification key")
			continue
		}
		keys[kid] = KeyRecord{
			KID:       kid,
			Key:       raw,
			Algorithm: key.Algorithm().String(),
		}
	}
	return keys
}
