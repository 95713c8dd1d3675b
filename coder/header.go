package coder

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/go-jose/go-jose/v3"
	"github.com/jinzhu/copier"
)

// Header parameter names used by the coders
const (
	HeaderAlgorithm   = "alg"
	HeaderEncryption  = "enc"
	HeaderCompression = "zip"
	HeaderKeyID       = "kid"
	HeaderContentType = "cty"
	HeaderType        = "typ"
)

// ContentTypeJWT marks the payload as a signed token
const ContentTypeJWT = "JWT"

// Header provides JOSE header parameters
type Header map[string]any

// Clone returns a deep copy of the header
func (h Header) Clone() Header {
	c := Header{}
	if len(h) == 0 {
		return c
	}
	if err := copier.CopyWithOption(&c, h, copier.Option{DeepCopy: true}); err != nil {
		// fall back to shallow copy
		logger.KV(xlog.DEBUG, "reason", "copy", "err", err)
		c.merge(h)
	}
	return c
}

// String will return the named parameter as a string,
// if the underlying type is not a string,
// it will try and co-oerce it to a string.
func (h Header) String(k string) string {
	v := h[k]
	if v == nil {
		return ""
	}
	switch tv := v.(type) {
	case string:
		return tv
	case jose.ContentType:
		return string(tv)
	default:
		return values.String(v)
	}
}

// Bool will return the named parameter as Bool
func (h Header) Bool(k string) bool {
	tv, ok := h[k].(bool)
	return ok && tv
}

// Int will return the named parameter as an int
func (h Header) Int(k string) int {
	switch tv := h[k].(type) {
	case int:
		return tv
	case int64:
		return int(tv)
	case float64:
		return int(tv)
	case json.Number:
		i, err := tv.Int64()
		if err != nil {
			return 0
		}
		return int(i)
	case string:
		i, err := strconv.Atoi(tv)
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

// Marshal returns JSON encoded string
func (h Header) Marshal() string {
	raw, _ := json.Marshal(h)
	return string(raw)
}

func (h Header) merge(m map[string]any) {
	for k, v := range m {
		h[k] = v
	}
}

// extra returns the header parameters to be added to the protected header,
// without the reserved names that are set by the coder
func (h Header) extra(reserved ...string) map[jose.HeaderKey]any {
	if len(h) == 0 {
		return nil
	}
	m := make(map[jose.HeaderKey]any, len(h))
	for k, v := range h {
		m[jose.HeaderKey(k)] = v
	}
	for _, k := range reserved {
		delete(m, jose.HeaderKey(k))
	}
	return m
}

func decodeHeader(encoded string) (Header, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.WithMessage(err, "unable to decode header")
	}
	return parseHeader(raw)
}

func parseHeader(raw []byte) (Header, error) {
	h := Header{}
	if len(raw) == 0 {
		return h, nil
	}

	d := json.NewDecoder(bytes.NewReader(raw))
	d.UseNumber()
	if err := d.Decode(&h); err != nil {
		return nil, errors.WithMessage(err, "unable to parse header")
	}
	return h, nil
}
