package dataprotection

import (
	"context"
	"crypto/sha256"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xjose/coder"
	"github.com/effective-security/xjose/jwk"
	"github.com/effective-security/xjose/metricskey"
	"github.com/go-jose/go-jose/v3"
	"golang.org/x/crypto/hkdf"
)

type jweProvider struct {
	coder *coder.EncryptionCoder
}

// New returns `Provider` that protects data as JWE
// produced by the encryption coder
func New(c *coder.EncryptionCoder) (Provider, error) {
	if c == nil {
		return nil, errors.New("encryption coder is required")
	}
	return &jweProvider{coder: c}, nil
}

// NewSymmetric returns `Provider` based on direct AES256-GCM encryption,
// with the key derived from the secret
func NewSymmetric(secret []byte) (Provider, error) {
	if len(secret) == 0 {
		return nil, errors.New("secret is required")
	}

	kdf := hkdf.New(sha256.New, secret, nil, nil)

	// AES-256
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, errors.WithStack(err)
	}

	k, err := jwk.NewKey(jose.JSONWebKey{
		Key:       key,
		Use:       jwk.UseEnc,
		Algorithm: string(jose.DIRECT),
	})
	if err != nil {
		return nil, err
	}

	c, err := coder.NewEncryptionCoder(string(jose.DIRECT), string(jose.A256GCM))
	if err != nil {
		return nil, err
	}
	if err = c.AddKeys(k); err != nil {
		return nil, err
	}
	return New(c)
}

// Protect returns protected blob
func (p *jweProvider) Protect(_ context.Context, data []byte) ([]byte, error) {
	defer metricskey.PerfDataProtection.MeasureSince(time.Now(), "protect")

	token, err := p.coder.Encode(data, nil, coder.WithSerialization(coder.Compact))
	if err != nil {
		return nil, err
	}
	return []byte(token), nil
}

// Unprotect returns unprotected data
func (p *jweProvider) Unprotect(_ context.Context, protected []byte) ([]byte, error) {
	defer metricskey.PerfDataProtection.MeasureSince(time.Now(), "unprotect")

	if len(protected) == 0 {
		return nil, errors.New("invalid data")
	}
	data, _, err := p.coder.Decode(string(protected))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to unprotect")
	}
	return data, nil
}

// IsReady returns true when provider has encryption keys
func (p *jweProvider) IsReady() bool {
	return len(p.coder.Keys()) > 0
}
