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

// reserved header parameters are set by the encrypter
var jweReserved = []string{
	HeaderAlgorithm, HeaderEncryption, HeaderCompression,
	"epk", "apu", "apv", "iv", "tag", "p2s", "p2c",
}

// EncryptionCoder produces and decrypts JWE tokens
type EncryptionCoder struct {
	*settings
}

// NewEncryptionCoder returns EncryptionCoder with the key encryption
// and content encryption algorithms allowed
func NewEncryptionCoder(algorithms ...string) (*EncryptionCoder, error) {
	c := &EncryptionCoder{
		settings: newSettings("jwe", jwa.KeyEncryption, jwa.ContentEncryption),
	}
	if err := c.AddAlgorithms(algorithms...); err != nil {
		return nil, err
	}
	return c, nil
}

// Encode returns JWE with a recipient for the first compatible key,
// or with a recipient per compatible key if EncodeToMany is set.
// The content is encrypted with the first allowed content encryption
// algorithm and compressed. The header parameters are added to the
// shared protected header.
func (c *EncryptionCoder) Encode(payload []byte, header Header, opts ...EncodeOption) (string, error) {
	defer metricskey.PerfCoderOperation.MeasureSince(time.Now(), c.name, "encode")

	o := newEncodeOptions(opts)
	l := c.load()
	keys := values.Select(len(o.keys) > 0, o.keys, l.encodeKeys)
	ser, err := l.encodeSerialization(o)
	if err != nil {
		return "", err
	}

	contents := l.algorithmsOf(jwa.ContentEncryption)
	if len(contents) == 0 {
		return "", errors.Mark(errors.New("no content encryption algorithm"), ErrNoCompatibleKeyAlgorithm)
	}
	content := contents[0]

	candidates, err := resolve(keys, l.algorithmsOf(jwa.KeyEncryption), jwk.UsageEncrypt, l.encodeToMany,
		func(k *jwk.Key, a *jwa.Algorithm) bool {
			// direct key is used as the content encryption key
			return a.KeyAlgorithm() != jose.DIRECT || k.Size() == content.KeySize*8
		})
	if err != nil {
		return "", err
	}
	if err = checkEntries(ser, len(candidates)); err != nil {
		return "", err
	}

	recipients := make([]jose.Recipient, len(candidates))
	for i, cand := range candidates {
		if cand.Algorithm.Direct && len(candidates) > 1 {
			return "", errors.Errorf("%s does not support multiple recipients", cand.Algorithm)
		}
		cand.Algorithm.Advise(cand.Key)

		pub := cand.Key.Public().Material()
		recipients[i] = jose.Recipient{
			Algorithm: cand.Algorithm.KeyAlgorithm(),
			Key:       &pub,
			KeyID:     cand.Key.ID(),
		}
	}

	eo := &jose.EncrypterOptions{
		Compression:  jose.DEFLATE,
		ExtraHeaders: header.extra(jweReserved...),
	}

	var encrypter jose.Encrypter
	if len(recipients) == 1 {
		encrypter, err = jose.NewEncrypter(content.ContentEncryption(), recipients[0], eo)
	} else {
		encrypter, err = jose.NewMultiEncrypter(content.ContentEncryption(), recipients, eo)
	}
	if err != nil {
		return "", errors.WithMessage(err, "unable to create encrypter")
	}

	obj, err := encrypter.Encrypt(payload)
	if err != nil {
		return "", errors.WithMessage(err, "unable to encrypt")
	}

	t, err := parseJWE(obj.FullSerialize(), values.Select(len(recipients) == 1, JSONFlattened, JSONGeneral))
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
		"enc", content.Name,
		"recipients", len(recipients),
		"serialization", ser,
	)
	return token, nil
}

// Decode decrypts the token with decoding keys and returns the payload,
// and the header of the first recipient merged with the shared header.
// Serializations are tried in the order they were enabled.
func (c *EncryptionCoder) Decode(token string) ([]byte, Header, error) {
	payload, header, _, err := c.decode(token)
	return payload, header, err
}

func (c *EncryptionCoder) decode(token string) ([]byte, Header, Header, error) {
	defer metricskey.PerfCoderOperation.MeasureSince(time.Now(), c.name, "decode")

	l := c.load()
	var lastErr error
	for _, ser := range l.serializations {
		t, err := parseJWE(token, ser)
		if err != nil {
			lastErr = err
			continue
		}

		payload, err := l.decrypt(t)
		if err != nil {
			lastErr = err
			continue
		}

		protected, header, err := t.header(0)
		if err != nil {
			lastErr = err
			continue
		}
		return payload, header, protected, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no serialization enabled")
	}
	logger.KV(xlog.DEBUG, "reason", "decode", "coder", c.name, "err", lastErr.Error())
	return nil, nil, nil, invalidToken(lastErr)
}

func (l *loader) decrypt(t *jweToken) ([]byte, error) {
	lastErr := errors.New("no recipients")
	for i := range t.Recipients {
		_, header, err := t.header(i)
		if err != nil {
			lastErr = err
			continue
		}
		alg, err := l.algorithm(header.String(HeaderAlgorithm), jwa.KeyEncryption)
		if err != nil {
			lastErr = err
			continue
		}
		if _, err = l.algorithm(header.String(HeaderEncryption), jwa.ContentEncryption); err != nil {
			lastErr = err
			continue
		}
		keys := l.decodeKeys(alg, jwk.UsageDecrypt)
		if len(keys) == 0 {
			lastErr = errors.Errorf("no keys to decrypt %s", alg)
			continue
		}

		obj, err := jose.ParseEncrypted(t.flattened(i))
		if err != nil {
			lastErr = errors.WithStack(err)
			continue
		}
		for _, k := range keys {
			payload, err := obj.Decrypt(k.Material())
			if err != nil {
				lastErr = errors.WithStack(err)
				continue
			}
			return payload, nil
		}
	}
	return nil, lastErr
}
