package coder

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xjose/jwa"
	"github.com/effective-security/xjose/jwk"
	"github.com/effective-security/xjose/metricskey"
	"github.com/effective-security/xlog"
	"github.com/go-jose/go-jose/v3"
)

// SignatureCoder produces and verifies JWS tokens
type SignatureCoder struct {
	*settings
}

// NewSignatureCoder returns SignatureCoder with the algorithms allowed
func NewSignatureCoder(algorithms ...string) (*SignatureCoder, error) {
	c := &SignatureCoder{
		settings: newSettings("jws", jwa.Signature),
	}
	if err := c.AddAlgorithms(algorithms...); err != nil {
		return nil, err
	}
	return c, nil
}

// Encode returns JWS with a signature by the first compatible key,
// or with a signature per compatible key if EncodeToMany is set.
// The header parameters are added to each protected header.
func (c *SignatureCoder) Encode(payload []byte, header Header, opts ...EncodeOption) (string, error) {
	defer metricskey.PerfCoderOperation.MeasureSince(time.Now(), c.name, "encode")

	o := newEncodeOptions(opts)
	l := c.load()
	keys := values.Select(len(o.keys) > 0, o.keys, l.encodeKeys)
	ser, err := l.encodeSerialization(o)
	if err != nil {
		return "", err
	}

	candidates, err := Resolve(keys, l.algorithmsOf(jwa.Signature), jwk.UsageSign, l.encodeToMany)
	if err != nil {
		return "", err
	}
	if err = checkEntries(ser, len(candidates)); err != nil {
		return "", err
	}

	signingKeys := make([]jose.SigningKey, len(candidates))
	for i, cand := range candidates {
		cand.Algorithm.Advise(cand.Key)
		signingKeys[i] = jose.SigningKey{
			Algorithm: cand.Algorithm.SignatureAlgorithm(),
			Key:       cand.Key.Material(),
		}
	}

	if payload == nil {
		payload = []byte{}
	}
	signer, err := jose.NewMultiSigner(signingKeys, &jose.SignerOptions{
		ExtraHeaders: header.extra(HeaderAlgorithm, "b64"),
	})
	if err != nil {
		return "", errors.WithMessage(err, "unable to create signer")
	}
	obj, err := signer.Sign(payload)
	if err != nil {
		return "", errors.WithMessage(err, "unable to sign")
	}

	t, err := parseJWS(obj.FullSerialize(), values.Select(len(candidates) == 1, JSONFlattened, JSONGeneral))
	if err != nil {
		return "", err
	}
	token, err := t.serialize(ser)
	if err != nil {
		return "", err
	}

	c.enableSerialization(ser)

	logger.KV(xlog.DEBUG,
		"reason", "encoded",
		"coder", c.name,
		"signatures", len(candidates),
		"serialization", ser,
	)
	return token, nil
}

// Decode verifies the token with decoding keys and returns the payload
// and the protected header of the first verified signature.
// Serializations are tried in the order they were enabled.
func (c *SignatureCoder) Decode(token string) ([]byte, Header, error) {
	defer metricskey.PerfCoderOperation.MeasureSince(time.Now(), c.name, "decode")

	l := c.load()
	var lastErr error
	for _, ser := range l.serializations {
		t, err := parseJWS(token, ser)
		if err != nil {
			lastErr = err
			continue
		}

		payload, header, err := l.verify(t)
		if err != nil {
			lastErr = err
			continue
		}
		return payload, header, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no serialization enabled")
	}
	logger.KV(xlog.DEBUG, "reason", "decode", "coder", c.name, "err", lastErr.Error())
	return nil, nil, invalidToken(lastErr)
}

func (l *loader) verify(t *jwsToken) ([]byte, Header, error) {
	lastErr := errors.New("no signatures")
	for i := range t.Signatures {
		protected, header, err := t.header(i)
		if err != nil {
			lastErr = err
			continue
		}
		alg, err := l.algorithm(header.String(HeaderAlgorithm), jwa.Signature)
		if err != nil {
			lastErr = err
			continue
		}
		keys := l.decodeKeys(alg, jwk.UsageVerify)
		if len(keys) == 0 {
			lastErr = errors.Errorf("no keys to verify %s", alg)
			continue
		}

		obj, err := jose.ParseSigned(t.flattened(i))
		if err != nil {
			lastErr = errors.WithStack(err)
			continue
		}
		for _, k := range keys {
			payload, err := obj.Verify(k.Public().Material())
			if err != nil {
				lastErr = errors.WithStack(err)
				continue
			}
			return payload, protected, nil
		}
	}
	return nil, nil, lastErr
}
