package session

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"
)

// Session is a server-side record of per-client state.
//
// The ID is derived from the cookie value and never changes unless the
// session is regenerated. Values are kept as raw JSON so a stored session
// round-trips without knowing the concrete types the application used.
// A Session is safe for concurrent use, but it is meant to live within the
// scope of a single request.
type Session struct {
	mu          sync.RWMutex
	id          string
	expiry      *time.Time
	data        map[string]json.RawMessage
	cookieValue string
}

// document is the persisted JSON form of a Session.
type document struct {
	ID     string                     `json:"id"`
	Expiry *time.Time                 `json:"expiry"`
	Data   map[string]json.RawMessage `json:"data"`
}

// New creates a session with a fresh random cookie value and the id derived
// from it.
func New() *Session {
	cookieValue := generateCookieValue()
	id, _ := IDFromCookieValue(cookieValue)
	return &Session{
		id:          id,
		data:        make(map[string]json.RawMessage),
		cookieValue: cookieValue,
	}
}

// WithID creates an empty session carrying a caller-chosen id and no cookie
// value. Stores validate such ids before persisting them.
func WithID(id string) *Session {
	return &Session{
		id:   id,
		data: make(map[string]json.RawMessage),
	}
}

// FromJSON decodes a persisted session document.
func FromJSON(b []byte) (*Session, error) {
	s := &Session{}
	if err := json.Unmarshal(b, s); err != nil {
		return nil, err
	}
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// CookieValue returns the value to hand to the client, or "" if this session
// has none. Only sessions created by New or Regenerate carry one; a session
// loaded from a store keeps the cookie the client already holds.
func (s *Session) CookieValue() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cookieValue
}

// Regenerate assigns a new cookie value and id. The caller is responsible for
// destroying the row stored under the previous id.
func (s *Session) Regenerate() {
	cookieValue := generateCookieValue()
	id, _ := IDFromCookieValue(cookieValue)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	s.cookieValue = cookieValue
}

// Get decodes the value stored under key into dst. It reports false if the
// key is absent.
func (s *Session) Get(key string, dst any) (bool, error) {
	raw, ok := s.GetRaw(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, err
	}
	return true, nil
}

// GetRaw returns the raw JSON stored under key.
func (s *Session) GetRaw(key string) (json.RawMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[key]
	return raw, ok
}

// Insert encodes v as JSON and stores it under key.
func (s *Session) Insert(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.InsertRaw(key, raw)
	return nil
}

// InsertRaw stores raw under key without validating it.
func (s *Session) InsertRaw(key string, raw json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string]json.RawMessage)
	}
	s.data[key] = raw
}

// Remove deletes key from the session.
func (s *Session) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Keys returns the payload keys in sorted order.
func (s *Session) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of payload entries.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Expiry returns the expiry time, if one is set.
func (s *Session) Expiry() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.expiry == nil {
		return time.Time{}, false
	}
	return *s.expiry, true
}

// SetExpiry sets an absolute expiry time.
func (s *Session) SetExpiry(t time.Time) {
	t = t.UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiry = &t
}

// ExpireIn sets the expiry to d from now.
func (s *Session) ExpireIn(d time.Duration) {
	s.SetExpiry(time.Now().Add(d))
}

// IsExpired reports whether the session has an expiry in the past.
// Stores do not act on it.
func (s *Session) IsExpired() bool {
	exp, ok := s.Expiry()
	return ok && !exp.After(time.Now())
}

// MarshalJSON implements json.Marshaler.
func (s *Session) MarshalJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := document{ID: s.id, Expiry: s.expiry, Data: s.data}
	if doc.Data == nil {
		doc.Data = map[string]json.RawMessage{}
	}
	return json.Marshal(doc)
}

// UnmarshalJSON implements json.Unmarshaler. A document without an id is
// rejected.
func (s *Session) UnmarshalJSON(b []byte) error {
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	if doc.ID == "" {
		return errors.New("session document has no id")
	}
	if doc.Data == nil {
		doc.Data = make(map[string]json.RawMessage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = doc.ID
	s.expiry = doc.Expiry
	s.data = doc.Data
	s.cookieValue = ""
	return nil
}
