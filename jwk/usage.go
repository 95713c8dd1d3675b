package jwk

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/slices"
)

// Usage is a key operation requested from a key
type Usage string

// Key operations, as defined for "key_ops"
const (
	UsageSign      Usage = "sign"
	UsageVerify    Usage = "verify"
	UsageEncrypt   Usage = "encrypt"
	UsageDecrypt   Usage = "decrypt"
	UsageWrapKey   Usage = "wrapKey"
	UsageUnwrapKey Usage = "unwrapKey"
)

// Use returns the "use" value that permits the usage
func (u Usage) Use() (string, error) {
	switch u {
	case UsageSign, UsageVerify:
		return UseSig, nil
	case UsageEncrypt, UsageDecrypt, UsageWrapKey, UsageUnwrapKey:
		return UseEnc, nil
	}
	return "", errors.Mark(errors.Errorf("unsupported usage: %q", string(u)), ErrInvalidUsage)
}

// RequiresPrivate returns true if the operation needs private key material
func (u Usage) RequiresPrivate() bool {
	return u == UsageSign || u == UsageDecrypt || u == UsageUnwrapKey
}

// alias returns the operation accepted in place of u
func (u Usage) alias() Usage {
	switch u {
	case UsageEncrypt:
		return UsageWrapKey
	case UsageWrapKey:
		return UsageEncrypt
	case UsageDecrypt:
		return UsageUnwrapKey
	case UsageUnwrapKey:
		return UsageDecrypt
	}
	return u
}

// AllowsUsage returns true if the key declarations permit the usage.
// Keys without "use" and "key_ops" are not constrained.
func (k *Key) AllowsUsage(u Usage) (bool, error) {
	use, err := u.Use()
	if err != nil {
		return false, err
	}
	if k.jwk.Use != "" && k.jwk.Use != use {
		return false, nil
	}
	if len(k.ops) > 0 &&
		!slices.ContainsString(k.ops, string(u)) &&
		!slices.ContainsString(k.ops, string(u.alias())) {
		return false, nil
	}
	return true, nil
}
