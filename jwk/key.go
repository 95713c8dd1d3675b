package jwk

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/go-jose/go-jose/v3"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xjose", "jwk")

// KeyType is the JWK "kty" value
type KeyType string

// Key types
const (
	KeyTypeOct KeyType = "oct"
	KeyTypeRSA KeyType = "RSA"
	KeyTypeEC  KeyType = "EC"
	KeyTypeOKP KeyType = "OKP"
)

// Declared key usage ("use") values
const (
	UseSig = "sig"
	UseEnc = "enc"
)

var (
	// ErrInvalidKeyMaterial is returned when key input is malformed
	// or the key parameters are not consistent.
	ErrInvalidKeyMaterial = errors.New("invalid key material")
	// ErrInvalidUsage is returned when usage check is called with unknown usage
	ErrInvalidUsage = errors.New("invalid key usage")
)

// Key is an immutable key record
type Key struct {
	jwk jose.JSONWebKey
	kty KeyType
	ops []string
}

// NewKey returns Key from the JWK and optional key_ops.
// The key material is validated.
func NewKey(k jose.JSONWebKey, ops ...string) (*Key, error) {
	kty, err := keyTypeOf(&k)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	for _, op := range ops {
		if seen[op] {
			return nil, invalidKeyf("duplicate key operation %q", op)
		}
		seen[op] = true
	}

	return &Key{
		jwk: k,
		kty: kty,
		ops: append([]string(nil), ops...),
	}, nil
}

func keyTypeOf(k *jose.JSONWebKey) (KeyType, error) {
	switch key := k.Key.(type) {
	case []byte:
		if len(key) == 0 {
			return "", invalidKeyf("empty symmetric key")
		}
		return KeyTypeOct, nil
	case *rsa.PublicKey, *rsa.PrivateKey:
		if !k.Valid() {
			return "", invalidKeyf("invalid RSA key")
		}
		return KeyTypeRSA, nil
	case *ecdsa.PublicKey, *ecdsa.PrivateKey:
		if !k.Valid() {
			return "", invalidKeyf("invalid EC key")
		}
		return KeyTypeEC, nil
	case ed25519.PublicKey, ed25519.PrivateKey:
		if !k.Valid() {
			return "", invalidKeyf("invalid OKP key")
		}
		return KeyTypeOKP, nil
	case nil:
		return "", invalidKeyf("missing key material")
	default:
		return "", invalidKeyf("unsupported key type: %s", reflect.TypeOf(key))
	}
}

// ID returns key ID
func (k *Key) ID() string {
	return k.jwk.KeyID
}

// Type returns key type
func (k *Key) Type() KeyType {
	return k.kty
}

// Use returns declared usage, or empty string
func (k *Key) Use() string {
	return k.jwk.Use
}

// Ops returns declared key operations
func (k *Key) Ops() []string {
	return append([]string(nil), k.ops...)
}

// Algorithm returns declared algorithm restriction, or empty string
func (k *Key) Algorithm() string {
	return k.jwk.Algorithm
}

// Curve returns the curve name for EC and OKP keys
func (k *Key) Curve() string {
	switch key := k.jwk.Key.(type) {
	case *ecdsa.PublicKey:
		return key.Curve.Params().Name
	case *ecdsa.PrivateKey:
		return key.Curve.Params().Name
	case ed25519.PublicKey, ed25519.PrivateKey:
		return "Ed25519"
	}
	return ""
}

// Size returns key size in bits
func (k *Key) Size() int {
	switch key := k.jwk.Key.(type) {
	case []byte:
		return len(key) * 8
	case *rsa.PublicKey:
		return key.N.BitLen()
	case *rsa.PrivateKey:
		return key.N.BitLen()
	case *ecdsa.PublicKey:
		return key.Curve.Params().BitSize
	case *ecdsa.PrivateKey:
		return key.Curve.Params().BitSize
	case ed25519.PublicKey, ed25519.PrivateKey:
		return 256
	}
	return 0
}

// IsPrivate returns true for symmetric keys and asymmetric keys
// that carry private material
func (k *Key) IsPrivate() bool {
	return k.kty == KeyTypeOct || !k.jwk.IsPublic()
}

// Material returns a copy of the underlying JWK
func (k *Key) Material() jose.JSONWebKey {
	return k.jwk
}

// Public returns the public part of the key.
// Symmetric and public keys return themselves.
func (k *Key) Public() *Key {
	if k.kty == KeyTypeOct || k.jwk.IsPublic() {
		return k
	}
	return &Key{
		jwk: k.jwk.Public(),
		kty: k.kty,
		ops: k.ops,
	}
}

// Thumbprint returns base64url encoded SHA-256 key thumbprint
func (k *Key) Thumbprint() (string, error) {
	var tb []byte
	if key, ok := k.jwk.Key.([]byte); ok {
		input := `{"k":"` + base64.RawURLEncoding.EncodeToString(key) + `","kty":"oct"}`
		h := sha256.Sum256([]byte(input))
		tb = h[:]
	} else {
		var err error
		tb, err = k.jwk.Thumbprint(crypto.SHA256)
		if err != nil {
			return "", errors.WithMessage(err, "unable to get thumbprint")
		}
	}
	return base64.RawURLEncoding.EncodeToString(tb), nil
}

// MarshalJSON returns JWK representation of the key
func (k *Key) MarshalJSON() ([]byte, error) {
	js, err := k.jwk.MarshalJSON()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(k.ops) == 0 {
		return js, nil
	}

	m := map[string]json.RawMessage{}
	if err = json.Unmarshal(js, &m); err != nil {
		return nil, errors.WithStack(err)
	}
	m["key_ops"], _ = json.Marshal(k.ops)
	return json.Marshal(m)
}

// UnmarshalJSON parses a single JWK
func (k *Key) UnmarshalJSON(data []byte) error {
	key, err := parseKey(data)
	if err != nil {
		return err
	}
	*k = *key
	return nil
}

// String returns short description of the key
func (k *Key) String() string {
	s := string(k.kty)
	if k.jwk.KeyID != "" {
		s += ":" + k.jwk.KeyID
	}
	return s
}

func invalidKeyf(format string, args ...any) error {
	return errors.Mark(errors.Errorf(format, args...), ErrInvalidKeyMaterial)
}

func invalidKey(err error, format string, args ...any) error {
	return errors.Mark(errors.WithMessagef(err, format, args...), ErrInvalidKeyMaterial)
}
