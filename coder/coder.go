// Package coder provides encoders and decoders of JOSE tokens:
// signed (JWS), encrypted (JWE), and nested (JWS in JWE).
package coder

import (
	"github.com/effective-security/xjose/jwk"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xjose", "coder")

// Coder encodes and decodes tokens
type Coder interface {
	// Encode returns the token with payload
	Encode(payload []byte, header Header, opts ...EncodeOption) (string, error)
	// Decode returns payload and header of the token
	Decode(token string) ([]byte, Header, error)
}

var (
	_ Coder = (*SignatureCoder)(nil)
	_ Coder = (*EncryptionCoder)(nil)
	_ Coder = (*NestedCoder)(nil)
)

// EncodeOption allows to override the configuration for a single Encode call
type EncodeOption func(*encodeOptions)

type encodeOptions struct {
	keys          []*jwk.Key
	serialization Serialization
}

// WithKeys uses the keys instead of configured encode keys
func WithKeys(keys ...*jwk.Key) EncodeOption {
	return func(o *encodeOptions) {
		o.keys = keys
	}
}

// WithSerialization uses the serialization instead of configured default
func WithSerialization(s Serialization) EncodeOption {
	return func(o *encodeOptions) {
		o.serialization = s
	}
}

func newEncodeOptions(opts []EncodeOption) *encodeOptions {
	o := new(encodeOptions)
	for _, opt := range opts {
		opt(o)
	}
	return o
}
