package coder

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xjose/jwa"
	"github.com/effective-security/xjose/jwk"
	"github.com/effective-security/xlog"
)

// settings holds the configuration shared by signature and encryption coders.
// Any change drops the loader, which is rebuilt on next Encode or Decode.
type settings struct {
	lock sync.Mutex

	name    string
	classes []jwa.Class

	algorithms     []*jwa.Algorithm
	keys           []*jwk.Key
	encodeKeys     []*jwk.Key
	encodeToMany   bool
	serialization  Serialization
	serializations []Serialization

	loader *loader
}

// loader is an immutable snapshot of settings used by Encode and Decode
type loader struct {
	algorithms     []*jwa.Algorithm
	keys           []*jwk.Key
	encodeKeys     []*jwk.Key
	encodeToMany   bool
	serialization  Serialization
	serializations []Serialization
}

func newSettings(name string, classes ...jwa.Class) *settings {
	return &settings{
		name:           name,
		classes:        classes,
		serialization:  Compact,
		serializations: []Serialization{Compact},
	}
}

// AddAlgorithms appends the algorithms in the order of priority.
// If any name is unknown, none of the algorithms is added.
func (s *settings) AddAlgorithms(names ...string) error {
	list, err := jwa.Resolve(names, s.classes...)
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.algorithms = append(s.algorithms, list...)
	s.loader = nil
	return nil
}

// AddKeys appends keys used for decoding, and for encoding if no
// encode keys are configured. See jwk.ParseKeys for supported material.
func (s *settings) AddKeys(material any) error {
	keys, err := jwk.ParseKeys(material)
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.keys = append(s.keys, keys...)
	s.loader = nil
	return nil
}

// AddEncodeKeys appends keys used only for encoding
func (s *settings) AddEncodeKeys(material any) error {
	keys, err := jwk.ParseKeys(material)
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.encodeKeys = append(s.encodeKeys, keys...)
	s.loader = nil
	return nil
}

// SetEncodeToMany enables a signature or recipient per compatible key
func (s *settings) SetEncodeToMany(enabled bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.encodeToMany = enabled
	s.loader = nil
}

// SetSerialization sets default serialization for encoding,
// and enables it for decoding
func (s *settings) SetSerialization(name Serialization) error {
	ser, err := ParseSerialization(string(name))
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.serialization = ser
	s.enable(ser)
	return nil
}

// EnableSerializations enables serializations for decoding,
// decoding tries them in the order they were enabled
func (s *settings) EnableSerializations(names ...Serialization) error {
	list := make([]Serialization, len(names))
	for i, name := range names {
		ser, err := ParseSerialization(string(name))
		if err != nil {
			return err
		}
		list[i] = ser
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	for _, ser := range list {
		s.enable(ser)
	}
	return nil
}

// Algorithms returns names of allowed algorithms in the order of priority
func (s *settings) Algorithms() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	names := make([]string, len(s.algorithms))
	for i, a := range s.algorithms {
		names[i] = a.Name
	}
	return names
}

// Keys returns decoding keys
func (s *settings) Keys() []*jwk.Key {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]*jwk.Key(nil), s.keys...)
}

// Serializations returns serializations enabled for decoding
func (s *settings) Serializations() []Serialization {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]Serialization(nil), s.serializations...)
}

// enable must be called under lock
func (s *settings) enable(ser Serialization) {
	for _, e := range s.serializations {
		if e == ser {
			return
		}
	}
	s.serializations = append(s.serializations, ser)
	s.loader = nil
}

// enableSerialization registers serialization used by Encode
func (s *settings) enableSerialization(ser Serialization) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.enable(ser)
}

func (s *settings) load() *loader {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.loader == nil {
		encodeKeys := s.encodeKeys
		if len(encodeKeys) == 0 {
			encodeKeys = s.keys
		}
		s.loader = &loader{
			algorithms:     append([]*jwa.Algorithm(nil), s.algorithms...),
			keys:           append([]*jwk.Key(nil), s.keys...),
			encodeKeys:     append([]*jwk.Key(nil), encodeKeys...),
			encodeToMany:   s.encodeToMany,
			serialization:  s.serialization,
			serializations: append([]Serialization(nil), s.serializations...),
		}
		logger.KV(xlog.DEBUG,
			"reason", "loader",
			"coder", s.name,
			"algs", len(s.algorithms),
			"keys", len(s.keys),
			"encode_keys", len(s.encodeKeys),
		)
	}
	return s.loader
}

// encodeSerialization returns the serialization for Encode call
func (l *loader) encodeSerialization(o *encodeOptions) (Serialization, error) {
	if o.serialization != "" {
		return ParseSerialization(string(o.serialization))
	}
	if l.encodeToMany {
		return JSONGeneral, nil
	}
	return l.serialization, nil
}

// algorithmsOf returns the allowed algorithms of the class
func (l *loader) algorithmsOf(class jwa.Class) []*jwa.Algorithm {
	var list []*jwa.Algorithm
	for _, a := range l.algorithms {
		if a.Class == class {
			list = append(list, a)
		}
	}
	return list
}

// algorithm returns the first allowed algorithm of the class by name
func (l *loader) algorithm(name string, class jwa.Class) (*jwa.Algorithm, error) {
	for _, a := range l.algorithms {
		if a.Name == name && a.Class == class {
			return a, nil
		}
	}
	return nil, errors.Errorf("algorithm is not allowed: %q", name)
}

// decodeKeys returns keys that can be used for the usage with the algorithm
func (l *loader) decodeKeys(alg *jwa.Algorithm, usage jwk.Usage) []*jwk.Key {
	var list []*jwk.Key
	for _, k := range l.keys {
		if ok, _ := k.AllowsUsage(usage); !ok {
			continue
		}
		if usage.RequiresPrivate() && !k.IsPrivate() {
			continue
		}
		if alg.AllowsKey(k) {
			list = append(list, k)
		}
	}
	return list
}
