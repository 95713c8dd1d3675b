package coder

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrNoCompatibleKeyAlgorithm is returned when encoding finds no key
	// compatible with any of the allowed algorithms
	ErrNoCompatibleKeyAlgorithm = errors.New("no compatible key and algorithm")
	// ErrInvalidToken is returned when a token can not be parsed, verified or decrypted
	ErrInvalidToken = errors.New("invalid token")
	// ErrNotNested is returned when the encrypted token does not carry a signed token
	ErrNotNested = errors.New("not a nested token")
)

// invalidToken does not report which serialization or key failed
func invalidToken(cause error) error {
	return errors.Mark(errors.WithMessage(cause, "invalid token"), ErrInvalidToken)
}

func notNested(format string, args ...any) error {
	return errors.Mark(errors.Errorf(format, args...), ErrNotNested)
}
