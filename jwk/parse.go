package jwk

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/go-jose/go-jose/v3"
)

// ParseKeys returns keys from material, preserving the input order.
// Supported material:
//   - *Key, []*Key, *Set
//   - jose.JSONWebKey, jose.JSONWebKeySet and pointers to them
//   - map[string]any with a single key, or a key set with "keys"
//   - []any or []map[string]any with keys
//   - string, []byte or json.RawMessage with JSON of any of the above
//
// The call fails with ErrInvalidKeyMaterial if any of the keys is not valid,
// in which case no keys are returned.
func ParseKeys(material any) ([]*Key, error) {
	switch m := material.(type) {
	case *Key:
		if m == nil {
			return nil, invalidKeyf("nil key")
		}
		return []*Key{m}, nil
	case []*Key:
		for _, k := range m {
			if k == nil {
				return nil, invalidKeyf("nil key")
			}
		}
		return append([]*Key(nil), m...), nil
	case *Set:
		if m == nil {
			return nil, invalidKeyf("nil key set")
		}
		return m.Keys(), nil
	case jose.JSONWebKey:
		return parseJoseKeys(m)
	case *jose.JSONWebKey:
		if m == nil {
			return nil, invalidKeyf("nil key")
		}
		return parseJoseKeys(*m)
	case jose.JSONWebKeySet:
		return parseJoseKeys(m.Keys...)
	case *jose.JSONWebKeySet:
		if m == nil {
			return nil, invalidKeyf("nil key set")
		}
		return parseJoseKeys(m.Keys...)
	case string:
		return ParseJSON([]byte(m))
	case []byte:
		return ParseJSON(m)
	case json.RawMessage:
		return ParseJSON(m)
	case map[string]any, []any, []map[string]any:
		js, err := json.Marshal(m)
		if err != nil {
			return nil, invalidKey(err, "unable to encode key")
		}
		return ParseJSON(js)
	case nil:
		return nil, invalidKeyf("missing key material")
	default:
		return nil, invalidKeyf("unsupported key material: %T", material)
	}
}

// ParseJSON returns keys from JSON encoded key, key set, or list of keys
func ParseJSON(js []byte) ([]*Key, error) {
	js = bytes.TrimSpace(js)
	if len(js) == 0 {
		return nil, invalidKeyf("empty key material")
	}

	var list []json.RawMessage
	switch js[0] {
	case '[':
		if err := json.Unmarshal(js, &list); err != nil {
			return nil, invalidKey(err, "unable to parse key list")
		}
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(js, &obj); err != nil {
			return nil, invalidKey(err, "unable to parse key")
		}
		if keys, ok := obj["keys"]; ok {
			if err := json.Unmarshal(keys, &list); err != nil {
				return nil, invalidKey(err, "unable to parse key set")
			}
		} else {
			list = []json.RawMessage{js}
		}
	default:
		return nil, invalidKeyf("key material is not JSON object or array")
	}

	keys := make([]*Key, 0, len(list))
	for i, raw := range list {
		k, err := parseKey(raw)
		if err != nil {
			return nil, errors.WithMessagef(err, "key[%d]", i)
		}
		keys = append(keys, k)
	}

	logger.KV(xlog.DEBUG, "reason", "parsed", "count", len(keys))
	return keys, nil
}

// LoadFile returns keys from JWK or JWKS file
func LoadFile(path string) ([]*Key, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	keys, err := ParseJSON(b)
	if err != nil {
		return nil, errors.WithMessagef(err, "unable to load keys: %q", path)
	}
	return keys, nil
}

func parseKey(raw []byte) (*Key, error) {
	var ext struct {
		KeyOps []string `json:"key_ops"`
	}
	if err := json.Unmarshal(raw, &ext); err != nil {
		return nil, invalidKey(err, "unable to parse key")
	}

	var k jose.JSONWebKey
	if err := k.UnmarshalJSON(raw); err != nil {
		return nil, invalidKey(err, "unable to parse key")
	}
	return NewKey(k, ext.KeyOps...)
}

func parseJoseKeys(list ...jose.JSONWebKey) ([]*Key, error) {
	keys := make([]*Key, 0, len(list))
	for i, jk := range list {
		k, err := NewKey(jk)
		if err != nil {
			return nil, errors.WithMessagef(err, "key[%d]", i)
		}
		keys = append(keys, k)
	}
	return keys, nil
}
