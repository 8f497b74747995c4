package credentials

import (
	"errors"
)

const (
	AccessTokenKey = "accessToken" // slot holding the bearer credential
	CookiesKey     = "cookies"     // slot holding persisted side-channel cookies
)

// ErrNotFound is returned by [Store.Get] when a key has no value.
var ErrNotFound = errors.New("credential not found")

// Store is a string key-value store for client-side session state.
type Store interface {
	Get(key string) (string, error) // Get returns [ErrNotFound] for absent keys
	Set(key, value string) error    // Set creates or overwrites key
	Delete(key string) error        // Delete removes key; deleting an absent key is not an error
}

// Slot exposes a single named key of a [Store] as token storage.
type Slot struct {
	store Store
	key   string
}

// NewSlot returns a Slot over the [AccessTokenKey] slot of store.
func NewSlot(store Store) *Slot {
	return &Slot{store: store, key: AccessTokenKey}
}

// NewNamedSlot returns a Slot over an arbitrary key of store.
func NewNamedSlot(store Store, key string) *Slot {
	return &Slot{store: store, key: key}
}

// Token returns the stored credential, or "" when the slot is empty.
func (s *Slot) Token() (string, error) {
	value, err := s.store.Get(s.key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetToken overwrites the stored credential. An empty token clears the slot.
func (s *Slot) SetToken(token string) error {
	if token == "" {
		return s.ClearToken()
	}
	return s.store.Set(s.key, token)
}

// ClearToken deletes the stored credential.
func (s *Slot) ClearToken() error {
	return s.store.Delete(s.key)
}
