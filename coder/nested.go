package coder

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xjose/metricskey"
)

// NestedCoder produces signed then encrypted tokens,
// and decrypts then verifies them
type NestedCoder struct {
	signature  *SignatureCoder
	encryption *EncryptionCoder
}

// NewNestedCoder returns NestedCoder
func NewNestedCoder(signature *SignatureCoder, encryption *EncryptionCoder) (*NestedCoder, error) {
	if signature == nil || encryption == nil {
		return nil, errors.New("signature and encryption coders are required")
	}
	return &NestedCoder{
		signature:  signature,
		encryption: encryption,
	}, nil
}

// Signature returns the inner coder
func (c *NestedCoder) Signature() *SignatureCoder {
	return c.signature
}

// Encryption returns the outer coder
func (c *NestedCoder) Encryption() *EncryptionCoder {
	return c.encryption
}

// Encode signs the payload as a compact JWS, and returns JWE of it.
// The header parameters are added to the JWE protected header,
// "cty" is always set to "JWT". The options apply to the JWE.
func (c *NestedCoder) Encode(payload []byte, header Header, opts ...EncodeOption) (string, error) {
	defer metricskey.PerfCoderOperation.MeasureSince(time.Now(), "nested", "encode")

	inner, err := c.signature.Encode(payload, nil, WithSerialization(Compact))
	if err != nil {
		return "", errors.WithMessage(err, "unable to sign")
	}

	h := header.Clone()
	h[HeaderContentType] = ContentTypeJWT

	return c.encryption.Encode([]byte(inner), h, opts...)
}

// Decode decrypts the token, and returns the payload and the header
// of the signed token it carries
func (c *NestedCoder) Decode(token string) ([]byte, Header, error) {
	defer metricskey.PerfCoderOperation.MeasureSince(time.Now(), "nested", "decode")

	inner, _, protected, err := c.encryption.decode(token)
	if err != nil {
		return nil, nil, err
	}

	cty := protected.String(HeaderContentType)
	if !strings.EqualFold(cty, ContentTypeJWT) {
		return nil, nil, notNested("unexpected content type: %q", cty)
	}
	if len(inner) == 0 {
		return nil, nil, notNested("empty payload")
	}

	return c.signature.Decode(string(inner))
}
