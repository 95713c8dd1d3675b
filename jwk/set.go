package jwk

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Set is an ordered collection of keys
type Set struct {
	keys []*Key
}

// NewSet returns a key set from the material, see ParseKeys
func NewSet(material ...any) (*Set, error) {
	s := new(Set)
	for _, m := range material {
		if err := s.Add(m); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add appends keys from material.
// If any key is invalid, the set is not modified.
func (s *Set) Add(material any) error {
	keys, err := ParseKeys(material)
	if err != nil {
		return err
	}
	s.keys = append(s.keys, keys...)
	return nil
}

// Keys returns the keys in insertion order
func (s *Set) Keys() []*Key {
	return append([]*Key(nil), s.keys...)
}

// Len returns number of keys
func (s *Set) Len() int {
	return len(s.keys)
}

// Find returns the first key with kid, or nil
func (s *Set) Find(kid string) *Key {
	for _, k := range s.keys {
		if k.ID() == kid {
			return k
		}
	}
	return nil
}

// Public returns the set of public keys, symmetric keys are omitted
func (s *Set) Public() *Set {
	pub := new(Set)
	for _, k := range s.keys {
		if k.Type() != KeyTypeOct {
			pub.keys = append(pub.keys, k.Public())
		}
	}
	return pub
}

// MarshalJSON returns JWKS representation
func (s *Set) MarshalJSON() ([]byte, error) {
	keys := s.keys
	if keys == nil {
		keys = []*Key{}
	}
	js, err := json.Marshal(struct {
		Keys []*Key `json:"keys"`
	}{Keys: keys})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return js, nil
}

// UnmarshalJSON parses JWKS, a single key or a list of keys
func (s *Set) UnmarshalJSON(data []byte) error {
	keys, err := ParseJSON(data)
	if err != nil {
		return err
	}
	s.keys = keys
	return nil
}
