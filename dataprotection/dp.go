// Package dataprotection protects application data as compact JWE tokens.
package dataprotection

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Provider protects data with the keys of an encryption coder
type Provider interface {
	// Protect returns data encrypted as compact JWE
	Protect(ctx context.Context, data []byte) ([]byte, error)
	// Unprotect returns the content of JWE produced by Protect
	Unprotect(ctx context.Context, protected []byte) ([]byte, error)
	// IsReady returns true when the coder has decryption keys
	IsReady() bool
}

// ProtectObject returns JSON of v encrypted as compact JWE.
// The token is URL safe and can be stored or sent as is.
func ProtectObject(ctx context.Context, p Provider, v any) (string, error) {
	js, err := json.Marshal(v)
	if err != nil {
		return "", errors.WithMessage(err, "failed to marshal")
	}
	token, err := p.Protect(ctx, js)
	if err != nil {
		return "", errors.WithMessage(err, "failed to protect")
	}
	return string(token), nil
}

// UnprotectObject decrypts the token returned by ProtectObject into v
func UnprotectObject(ctx context.Context, p Provider, token string, v any) error {
	js, err := p.Unprotect(ctx, []byte(token))
	if err != nil {
		return errors.WithMessage(err, "failed to unprotect data")
	}

	if err = json.Unmarshal(js, v); err != nil {
		return errors.WithMessage(err, "failed to unmarshal")
	}
	return nil
}
