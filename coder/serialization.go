package coder

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

// Serialization is the wire form of a token
type Serialization string

// Serializations
const (
	// Compact is the dot separated base64url form,
	// it supports only one signature or recipient
	Compact Serialization = "compact"
	// JSONFlattened is the JSON form with one signature or recipient
	JSONFlattened Serialization = "json_flattened"
	// JSONGeneral is the JSON form with list of signatures or recipients
	JSONGeneral Serialization = "json_general"
)

// ParseSerialization returns Serialization by name
func ParseSerialization(name string) (Serialization, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "jws_")
	n = strings.TrimPrefix(n, "jwe_")
	switch n {
	case "compact":
		return Compact, nil
	case "json_flattened", "flattened":
		return JSONFlattened, nil
	case "json_general", "general", "json":
		return JSONGeneral, nil
	}
	return "", errors.Errorf("unsupported serialization: %q", name)
}

func (s Serialization) String() string {
	return string(s)
}

// entries returns the number of signatures or recipients
// the serialization can hold, 0 for any
func (s Serialization) entries() int {
	if s == JSONGeneral {
		return 0
	}
	return 1
}

func checkEntries(s Serialization, count int) error {
	if n := s.entries(); n > 0 && count != n {
		return errors.Errorf("%s serialization requires one entry, got %d", s, count)
	}
	return nil
}

func isJSON(token string) bool {
	return strings.HasPrefix(strings.TrimSpace(token), "{")
}

type jwsSignature struct {
	Protected string          `json:"protected,omitempty"`
	Header    json.RawMessage `json:"header,omitempty"`
	Signature string          `json:"signature"`
}

// jwsToken is the serialization independent form of JWS
type jwsToken struct {
	Payload    string
	Signatures []jwsSignature
}

type rawJWS struct {
	Payload    *string         `json:"payload"`
	Protected  string          `json:"protected,omitempty"`
	Header     json.RawMessage `json:"header,omitempty"`
	Signature  *string         `json:"signature,omitempty"`
	Signatures []jwsSignature  `json:"signatures,omitempty"`
}

type flattenedJWS struct {
	Payload   string          `json:"payload"`
	Protected string          `json:"protected,omitempty"`
	Header    json.RawMessage `json:"header,omitempty"`
	Signature string          `json:"signature"`
}

type generalJWS struct {
	Payload    string         `json:"payload"`
	Signatures []jwsSignature `json:"signatures"`
}

func parseJWS(token string, s Serialization) (*jwsToken, error) {
	token = strings.TrimSpace(token)
	if s == Compact {
		if isJSON(token) {
			return nil, errors.New("compact JWS must not be JSON")
		}
		parts := strings.Split(token, ".")
		if len(parts) != 3 {
			return nil, errors.Errorf("compact JWS must have 3 parts, got %d", len(parts))
		}
		if parts[0] == "" {
			return nil, errors.New("compact JWS must have protected header")
		}
		return &jwsToken{
			Payload:    parts[1],
			Signatures: []jwsSignature{{Protected: parts[0], Signature: parts[2]}},
		}, nil
	}

	if !isJSON(token) {
		return nil, errors.Errorf("%s JWS must be JSON", s)
	}
	var raw rawJWS
	if err := json.Unmarshal([]byte(token), &raw); err != nil {
		return nil, errors.WithMessage(err, "unable to parse JWS")
	}
	if raw.Payload == nil {
		return nil, errors.New("JWS must have payload")
	}

	t := &jwsToken{Payload: *raw.Payload}
	switch s {
	case JSONFlattened:
		if raw.Signatures != nil || raw.Signature == nil {
			return nil, errors.New("flattened JWS must have single signature")
		}
		t.Signatures = []jwsSignature{{
			Protected: raw.Protected,
			Header:    raw.Header,
			Signature: *raw.Signature,
		}}
	case JSONGeneral:
		if len(raw.Signatures) == 0 || raw.Signature != nil || raw.Protected != "" || raw.Header != nil {
			return nil, errors.New("general JWS must have list of signatures")
		}
		t.Signatures = raw.Signatures
	default:
		return nil, errors.Errorf("unsupported serialization: %q", s)
	}
	return t, nil
}

func (t *jwsToken) serialize(s Serialization) (string, error) {
	if err := checkEntries(s, len(t.Signatures)); err != nil {
		return "", err
	}

	switch s {
	case Compact:
		sig := t.Signatures[0]
		if sig.Header != nil || sig.Protected == "" {
			return "", errors.New("compact JWS supports only protected header")
		}
		return sig.Protected + "." + t.Payload + "." + sig.Signature, nil
	case JSONFlattened:
		return t.flattened(0), nil
	case JSONGeneral:
		return marshal(generalJWS{Payload: t.Payload, Signatures: t.Signatures}), nil
	}
	return "", errors.Errorf("unsupported serialization: %q", s)
}

// flattened returns the flattened JSON form with i-th signature only
func (t *jwsToken) flattened(i int) string {
	sig := t.Signatures[i]
	return marshal(flattenedJWS{
		Payload:   t.Payload,
		Protected: sig.Protected,
		Header:    sig.Header,
		Signature: sig.Signature,
	})
}

// header returns protected header of i-th signature,
// and the header merged with unprotected parameters
func (t *jwsToken) header(i int) (protected, merged Header, err error) {
	sig := t.Signatures[i]
	protected, err = decodeHeader(sig.Protected)
	if err != nil {
		return nil, nil, err
	}
	merged, err = parseHeader(sig.Header)
	if err != nil {
		return nil, nil, err
	}
	merged.merge(protected)
	return protected, merged, nil
}

type jweRecipient struct {
	Header       json.RawMessage `json:"header,omitempty"`
	EncryptedKey string          `json:"encrypted_key,omitempty"`
}

// jweToken is the serialization independent form of JWE
type jweToken struct {
	Protected   string
	Unprotected json.RawMessage
	Recipients  []jweRecipient
	AAD         string
	IV          string
	Ciphertext  string
	Tag         string
}

type rawJWE struct {
	Protected    string          `json:"protected,omitempty"`
	Unprotected  json.RawMessage `json:"unprotected,omitempty"`
	Header       json.RawMessage `json:"header,omitempty"`
	EncryptedKey string          `json:"encrypted_key,omitempty"`
	Recipients   []jweRecipient  `json:"recipients,omitempty"`
	AAD          string          `json:"aad,omitempty"`
	IV           string          `json:"iv,omitempty"`
	Ciphertext   *string         `json:"ciphertext"`
	Tag          string          `json:"tag,omitempty"`
}

type flattenedJWE struct {
	Protected    string          `json:"protected,omitempty"`
	Unprotected  json.RawMessage `json:"unprotected,omitempty"`
	Header       json.RawMessage `json:"header,omitempty"`
	EncryptedKey string          `json:"encrypted_key,omitempty"`
	AAD          string          `json:"aad,omitempty"`
	IV           string          `json:"iv,omitempty"`
	Ciphertext   string          `json:"ciphertext"`
	Tag          string          `json:"tag,omitempty"`
}

type generalJWE struct {
	Protected   string          `json:"protected,omitempty"`
	Unprotected json.RawMessage `json:"unprotected,omitempty"`
	Recipients  []jweRecipient  `json:"recipients"`
	AAD         string          `json:"aad,omitempty"`
	IV          string          `json:"iv,omitempty"`
	Ciphertext  string          `json:"ciphertext"`
	Tag         string          `json:"tag,omitempty"`
}

func parseJWE(token string, s Serialization) (*jweToken, error) {
	token = strings.TrimSpace(token)
	if s == Compact {
		if isJSON(token) {
			return nil, errors.New("compact JWE must not be JSON")
		}
		parts := strings.Split(token, ".")
		if len(parts) != 5 {
			return nil, errors.Errorf("compact JWE must have 5 parts, got %d", len(parts))
		}
		if parts[0] == "" {
			return nil, errors.New("compact JWE must have protected header")
		}
		return &jweToken{
			Protected:  parts[0],
			Recipients: []jweRecipient{{EncryptedKey: parts[1]}},
			IV:         parts[2],
			Ciphertext: parts[3],
			Tag:        parts[4],
		}, nil
	}

	if !isJSON(token) {
		return nil, errors.Errorf("%s JWE must be JSON", s)
	}
	var raw rawJWE
	if err := json.Unmarshal([]byte(token), &raw); err != nil {
		return nil, errors.WithMessage(err, "unable to parse JWE")
	}
	if raw.Ciphertext == nil {
		return nil, errors.New("JWE must have ciphertext")
	}

	t := &jweToken{
		Protected:   raw.Protected,
		Unprotected: raw.Unprotected,
		AAD:         raw.AAD,
		IV:          raw.IV,
		Ciphertext:  *raw.Ciphertext,
		Tag:         raw.Tag,
	}
	switch s {
	case JSONFlattened:
		if raw.Recipients != nil {
			return nil, errors.New("flattened JWE must have single recipient")
		}
		t.Recipients = []jweRecipient{{Header: raw.Header, EncryptedKey: raw.EncryptedKey}}
	case JSONGeneral:
		if len(raw.Recipients) == 0 || raw.Header != nil {
			return nil, errors.New("general JWE must have list of recipients")
		}
		t.Recipients = raw.Recipients
	default:
		return nil, errors.Errorf("unsupported serialization: %q", s)
	}
	return t, nil
}

func (t *jweToken) serialize(s Serialization) (string, error) {
	if err := checkEntries(s, len(t.Recipients)); err != nil {
		return "", err
	}

	switch s {
	case Compact:
		r := t.Recipients[0]
		if r.Header != nil || t.Unprotected != nil || t.AAD != "" || t.Protected == "" {
			return "", errors.New("compact JWE supports only protected header")
		}
		return strings.Join([]string{t.Protected, r.EncryptedKey, t.IV, t.Ciphertext, t.Tag}, "."), nil
	case JSONFlattened:
		return t.flattened(0), nil
	case JSONGeneral:
		return marshal(generalJWE{
			Protected:   t.Protected,
			Unprotected: t.Unprotected,
			Recipients:  t.Recipients,
			AAD:         t.AAD,
			IV:          t.IV,
			Ciphertext:  t.Ciphertext,
			Tag:         t.Tag,
		}), nil
	}
	return "", errors.Errorf("unsupported serialization: %q", s)
}

// flattened returns the flattened JSON form with i-th recipient only
func (t *jweToken) flattened(i int) string {
	r := t.Recipients[i]
	return marshal(flattenedJWE{
		Protected:    t.Protected,
		Unprotected:  t.Unprotected,
		Header:       r.Header,
		EncryptedKey: r.EncryptedKey,
		AAD:          t.AAD,
		IV:           t.IV,
		Ciphertext:   t.Ciphertext,
		Tag:          t.Tag,
	})
}

// header returns the shared protected header,
// and the header of i-th recipient merged with shared parameters
func (t *jweToken) header(i int) (protected, merged Header, err error) {
	protected, err = decodeHeader(t.Protected)
	if err != nil {
		return nil, nil, err
	}
	merged, err = parseHeader(t.Unprotected)
	if err != nil {
		return nil, nil, err
	}
	recipient, err := parseHeader(t.Recipients[i].Header)
	if err != nil {
		return nil, nil, err
	}
	merged.merge(recipient)
	merged.merge(protected)
	return protected, merged, nil
}

func marshal(v any) string {
	js, _ := json.Marshal(v)
	return string(js)
}
