package jwa

import (
	"fmt"

	"github.com/effective-security/xjose/jwk"
	"github.com/effective-security/xlog"
)

const (
	minRSAKeySize    = 2048
	minPBES2Password = 16
)

// Advisories returns security notices for using the key with the algorithm.
// The notices are informational and do not prevent the key from being used.
func (a *Algorithm) Advisories(k *jwk.Key) []string {
	var list []string
	if a.Deprecated != "" {
		list = append(list, fmt.Sprintf("%s is deprecated: %s", a.Name, a.Deprecated))
	}
	if k == nil {
		return list
	}

	switch {
	case k.Type() == jwk.KeyTypeRSA && k.Size() < minRSAKeySize:
		list = append(list, fmt.Sprintf("RSA key size %d is less than %d", k.Size(), minRSAKeySize))
	case a.HashSize > 0 && k.Size() < a.HashSize*8:
		list = append(list, fmt.Sprintf("%s key size %d is less than hash size %d", a.Name, k.Size(), a.HashSize*8))
	case a.isPBES2() && k.Size() < minPBES2Password*8:
		list = append(list, fmt.Sprintf("%s password is shorter than %d bytes", a.Name, minPBES2Password))
	}
	return list
}

// Advise logs security notices for using the key with the algorithm
func (a *Algorithm) Advise(k *jwk.Key) {
	for _, msg := range a.Advisories(k) {
		kid := ""
		if k != nil {
			kid = k.ID()
		}
		logger.KV(xlog.WARNING,
			"reason", "advisory",
			"alg", a.Name,
			"kid", kid,
			"advice", msg,
		)
	}
}

func (a *Algorithm) isPBES2() bool {
	switch a.Name {
	case "PBES2-HS256+A128KW", "PBES2-HS384+A192KW", "PBES2-HS512+A256KW":
		return true
	}
	return false
}
