// Package jwa provides the registry of JOSE algorithms and
// the key compatibility rules for them.
package jwa

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xjose/jwk"
	"github.com/effective-security/xlog"
	"github.com/go-jose/go-jose/v3"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xjose", "jwa")

// ErrUnknownAlgorithm is returned when the algorithm is not registered
var ErrUnknownAlgorithm = errors.New("unknown algorithm")

// Class of the algorithm
type Class int

// Algorithm classes
const (
	Signature Class = iota + 1
	KeyEncryption
	ContentEncryption
)

func (c Class) String() string {
	switch c {
	case Signature:
		return "signature"
	case KeyEncryption:
		return "key_encryption"
	case ContentEncryption:
		return "content_encryption"
	}
	return "unknown"
}

// Algorithm describes capabilities of JOSE algorithm
type Algorithm struct {
	// Name is the canonical "alg" or "enc" value
	Name  string
	Class Class
	// KeyTypes is the list of allowed key types, empty for any
	KeyTypes []jwk.KeyType
	// Curve is the required curve name
	Curve string
	// KeySize is the required symmetric key size in bytes for key wrapping,
	// or the content encryption key size for content encryption
	KeySize int
	// HashSize is the size of HMAC output in bytes
	HashSize int
	// Direct is set for algorithms that use the key as the content key,
	// or derive it, these do not support multiple recipients
	Direct bool
	// Deprecated provides the reason if the algorithm is not recommended
	Deprecated string
}

var (
	octKey = []jwk.KeyType{jwk.KeyTypeOct}
	rsaKey = []jwk.KeyType{jwk.KeyTypeRSA}
	ecKey  = []jwk.KeyType{jwk.KeyTypeEC}
	okpKey = []jwk.KeyType{jwk.KeyTypeOKP}
)

// registry is ordered by class, then by preference
var registry = []Algorithm{
	{Name: string(jose.HS256), Class: Signature, KeyTypes: octKey, HashSize: 32},
	{Name: string(jose.HS384), Class: Signature, KeyTypes: octKey, HashSize: 48},
	{Name: string(jose.HS512), Class: Signature, KeyTypes: octKey, HashSize: 64},
	{Name: string(jose.RS256), Class: Signature, KeyTypes: rsaKey},
	{Name: string(jose.RS384), Class: Signature, KeyTypes: rsaKey},
	{Name: string(jose.RS512), Class: Signature, KeyTypes: rsaKey},
	{Name: string(jose.PS256), Class: Signature, KeyTypes: rsaKey},
	{Name: string(jose.PS384), Class: Signature, KeyTypes: rsaKey},
	{Name: string(jose.PS512), Class: Signature, KeyTypes: rsaKey},
	{Name: string(jose.ES256), Class: Signature, KeyTypes: ecKey, Curve: "P-256"},
	{Name: string(jose.ES384), Class: Signature, KeyTypes: ecKey, Curve: "P-384"},
	{Name: string(jose.ES512), Class: Signature, KeyTypes: ecKey, Curve: "P-521"},
	{Name: string(jose.EdDSA), Class: Signature, KeyTypes: okpKey, Curve: "Ed25519"},

	{Name: string(jose.RSA1_5), Class: KeyEncryption, KeyTypes: rsaKey,
		Deprecated: "RSAES-PKCS1-v1_5 is vulnerable to padding oracle attacks"},
	{Name: string(jose.RSA_OAEP), Class: KeyEncryption, KeyTypes: rsaKey},
	{Name: string(jose.RSA_OAEP_256), Class: KeyEncryption, KeyTypes: rsaKey},
	{Name: string(jose.A128KW), Class: KeyEncryption, KeyTypes: octKey, KeySize: 16},
	{Name: string(jose.A192KW), Class: KeyEncryption, KeyTypes: octKey, KeySize: 24},
	{Name: string(jose.A256KW), Class: KeyEncryption, KeyTypes: octKey, KeySize: 32},
	{Name: string(jose.DIRECT), Class: KeyEncryption, KeyTypes: octKey, Direct: true},
	{Name: string(jose.ECDH_ES), Class: KeyEncryption, KeyTypes: ecKey, Direct: true},
	{Name: string(jose.ECDH_ES_A128KW), Class: KeyEncryption, KeyTypes: ecKey},
	{Name: string(jose.ECDH_ES_A192KW), Class: KeyEncryption, KeyTypes: ecKey},
	{Name: string(jose.ECDH_ES_A256KW), Class: KeyEncryption, KeyTypes: ecKey},
	{Name: string(jose.A128GCMKW), Class: KeyEncryption, KeyTypes: octKey, KeySize: 16},
	{Name: string(jose.A192GCMKW), Class: KeyEncryption, KeyTypes: octKey, KeySize: 24},
	{Name: string(jose.A256GCMKW), Class: KeyEncryption, KeyTypes: octKey, KeySize: 32},
	{Name: string(jose.PBES2_HS256_A128KW), Class: KeyEncryption, KeyTypes: octKey},
	{Name: string(jose.PBES2_HS384_A192KW), Class: KeyEncryption, KeyTypes: octKey},
	{Name: string(jose.PBES2_HS512_A256KW), Class: KeyEncryption, KeyTypes: octKey},

	{Name: string(jose.A128GCM), Class: ContentEncryption, KeySize: 16},
	{Name: string(jose.A192GCM), Class: ContentEncryption, KeySize: 24},
	{Name: string(jose.A256GCM), Class: ContentEncryption, KeySize: 32},
	{Name: string(jose.A128CBC_HS256), Class: ContentEncryption, KeySize: 32},
	{Name: string(jose.A192CBC_HS384), Class: ContentEncryption, KeySize: 48},
	{Name: string(jose.A256CBC_HS512), Class: ContentEncryption, KeySize: 64},
}

// Lookup returns a new instance of the algorithm by name,
// restricted to the classes if provided
func Lookup(name string, classes ...Class) (*Algorithm, error) {
	for i := range registry {
		a := &registry[i]
		if a.Name == name && a.inClass(classes) {
			return a.clone(), nil
		}
	}
	return nil, errors.Mark(errors.Errorf("unknown algorithm: %q", name), ErrUnknownAlgorithm)
}

// Resolve returns new instances of the algorithms in the order of names.
// If any name is not registered, the call fails and nothing is returned.
func Resolve(names []string, classes ...Class) ([]*Algorithm, error) {
	list := make([]*Algorithm, 0, len(names))
	for _, name := range names {
		a, err := Lookup(name, classes...)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, nil
}

// Names returns the names of registered algorithms of the class
func Names(class Class) []string {
	var names []string
	for _, a := range registry {
		if a.Class == class {
			names = append(names, a.Name)
		}
	}
	return names
}

// AllowsKey returns true if the key can be used with the algorithm
func (a *Algorithm) AllowsKey(k *jwk.Key) bool {
	if alg := k.Algorithm(); alg != "" && alg != a.Name {
		return false
	}
	if len(a.KeyTypes) > 0 && !containsKeyType(a.KeyTypes, k.Type()) {
		return false
	}
	if a.Curve != "" && k.Curve() != a.Curve {
		return false
	}
	if a.KeySize > 0 && a.Class == KeyEncryption && k.Size() != a.KeySize*8 {
		return false
	}
	return true
}

// SignatureAlgorithm returns the JOSE signature algorithm
func (a *Algorithm) SignatureAlgorithm() jose.SignatureAlgorithm {
	return jose.SignatureAlgorithm(a.Name)
}

// KeyAlgorithm returns the JOSE key management algorithm
func (a *Algorithm) KeyAlgorithm() jose.KeyAlgorithm {
	return jose.KeyAlgorithm(a.Name)
}

// ContentEncryption returns the JOSE content encryption algorithm
func (a *Algorithm) ContentEncryption() jose.ContentEncryption {
	return jose.ContentEncryption(a.Name)
}

func (a *Algorithm) String() string {
	return a.Name
}

func (a *Algorithm) inClass(classes []Class) bool {
	if len(classes) == 0 {
		return true
	}
	for _, c := range classes {
		if a.Class == c {
			return true
		}
	}
	return false
}

func (a *Algorithm) clone() *Algorithm {
	c := *a
	c.KeyTypes = append([]jwk.KeyType(nil), a.KeyTypes...)
	return &c
}

func containsKeyType(list []jwk.KeyType, kty jwk.KeyType) bool {
	for _, t := range list {
		if t == kty {
			return true
		}
	}
	return false
}
