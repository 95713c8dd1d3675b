package coder

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xjose/jwa"
	"github.com/effective-security/xjose/jwk"
)

// Candidate is the key and algorithm selected for a signature or recipient
type Candidate struct {
	Key       *jwk.Key
	Algorithm *jwa.Algorithm
}

// Resolve returns key and algorithm pairs for encoding.
// Keys are tried in order, each key is paired with the first algorithm
// compatible with it. Unless many is set, only the first pair is returned.
// Keys that do not permit the usage are skipped.
// Public keys are also skipped for sign and decrypt, so the next key
// in order is selected instead of a key that can not perform the operation.
func Resolve(keys []*jwk.Key, algorithms []*jwa.Algorithm, usage jwk.Usage, many bool) ([]Candidate, error) {
	return resolve(keys, algorithms, usage, many, nil)
}

func resolve(keys []*jwk.Key, algorithms []*jwa.Algorithm, usage jwk.Usage, many bool, accept func(*jwk.Key, *jwa.Algorithm) bool) ([]Candidate, error) {
	if _, err := usage.Use(); err != nil {
		return nil, err
	}

	var list []Candidate
	for _, k := range keys {
		ok, err := k.AllowsUsage(usage)
		if err != nil {
			return nil, err
		}
		if !ok || (usage.RequiresPrivate() && !k.IsPrivate()) {
			continue
		}

		for _, a := range algorithms {
			if a.AllowsKey(k) && (accept == nil || accept(k, a)) {
				list = append(list, Candidate{Key: k, Algorithm: a})
				break
			}
		}
		if len(list) > 0 && !many {
			break
		}
	}

	if len(list) == 0 {
		return nil, errors.Mark(
			errors.Errorf("no compatible key and algorithm to %s", usage),
			ErrNoCompatibleKeyAlgorithm)
	}
	return list, nil
}
