package jwk_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"os"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xjose/jwk"
	"github.com/go-jose/go-jose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeys = "testdata/keys.jwks"

func TestLoadFile(t *testing.T) {
	_, err := jwk.LoadFile("testdata/missing.jwks")
	assert.EqualError(t, err, "open testdata/missing.jwks: no such file or directory")

	keys, err := jwk.LoadFile(testKeys)
	require.NoError(t, err)
	require.Len(t, keys, 7)

	exp := []struct {
		kid     string
		kty     jwk.KeyType
		size    int
		curve   string
		private bool
	}{
		{"hmac", jwk.KeyTypeOct, 256, "", true},
		{"rsa", jwk.KeyTypeRSA, 2048, "", true},
		{"ec256", jwk.KeyTypeEC, 256, "P-256", true},
		{"ec384", jwk.KeyTypeEC, 384, "P-384", true},
		{"ed", jwk.KeyTypeOKP, 256, "Ed25519", true},
		{"aes128", jwk.KeyTypeOct, 128, "", true},
		{"aes256", jwk.KeyTypeOct, 256, "", true},
	}
	for i, e := range exp {
		k := keys[i]
		assert.Equal(t, e.kid, k.ID())
		assert.Equal(t, e.kty, k.Type(), e.kid)
		assert.Equal(t, e.size, k.Size(), e.kid)
		assert.Equal(t, e.curve, k.Curve(), e.kid)
		assert.Equal(t, e.private, k.IsPrivate(), e.kid)
	}

	assert.Equal(t, "ES384", keys[3].Algorithm())
	assert.Equal(t, "sig", keys[3].Use())
	assert.Equal(t, []string{"sign", "verify"}, keys[4].Ops())
	assert.Equal(t, "EC:ec256", keys[2].String())
}

func TestParseKeys_Forms(t *testing.T) {
	raw, err := os.ReadFile(testKeys)
	require.NoError(t, err)

	var set map[string]any
	require.NoError(t, json.Unmarshal(raw, &set))
	list := set["keys"].([]any)
	listJS, err := json.Marshal(list)
	require.NoError(t, err)

	expected, err := jwk.ParseKeys(raw)
	require.NoError(t, err)
	require.Len(t, expected, 7)

	forms := map[string]any{
		"string":       string(raw),
		"raw":          json.RawMessage(raw),
		"set_map":      set,
		"list":         list,
		"list_json":    string(listJS),
		"keys":         expected,
		"jwk_set":      mustSet(t, raw),
		"jose_jwks":    joseSet(t, raw),
		"jose_jwks_pt": ptr(joseSet(t, raw)),
	}
	for name, m := range forms {
		t.Run(name, func(t *testing.T) {
			keys, err := jwk.ParseKeys(m)
			require.NoError(t, err)
			require.Len(t, keys, len(expected))
			for i := range keys {
				assert.Equal(t, expected[i].ID(), keys[i].ID())
				assert.Equal(t, expected[i].Type(), keys[i].Type())
				tb1, err := expected[i].Thumbprint()
				require.NoError(t, err)
				tb2, err := keys[i].Thumbprint()
				require.NoError(t, err)
				assert.Equal(t, tb1, tb2)
			}
		})
	}

	single := list[1].(map[string]any)
	keys, err := jwk.ParseKeys(single)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "rsa", keys[0].ID())

	keys, err = jwk.ParseKeys(`{"keys":[]}`)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestParseKeys_Invalid(t *testing.T) {
	tcases := []struct {
		name string
		m    any
		err  string
	}{
		{"nil", nil, "missing key material"},
		{"empty", "", "empty key material"},
		{"not_json", "not json", "key material is not JSON object or array"},
		{"bad_json", `{"kty":`, "unable to parse key: unexpected end of JSON input"},
		{"unsupported", 42, "unsupported key material: int"},
		{"missing_k", `{"kty":"oct"}`, "key[0]: unable to parse key: go-jose/go-jose: invalid OCT (symmetric) key, missing k value"},
		{"empty_k", `{"kty":"oct","k":""}`, "key[0]: empty symmetric key"},
		{"unknown_kty", `[{"kty":"oct","k":"AQAB"},{"kty":"XYZ"}]`, "key[1]: unable to parse key: go-jose/go-jose: unknown json web key type 'XYZ'"},
		{"dup_ops", `{"kty":"oct","k":"AQAB","key_ops":["sign","sign"]}`, `key[0]: duplicate key operation "sign"`},
		{"jose_nil_key", jose.JSONWebKey{}, "key[0]: missing key material"},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			keys, err := jwk.ParseKeys(tc.m)
			require.Error(t, err)
			assert.Nil(t, keys)
			assert.EqualError(t, err, tc.err)
			assert.True(t, errors.Is(err, jwk.ErrInvalidKeyMaterial))
		})
	}

	_, err := jwk.ParseKeys(`{"keys":{}}`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, jwk.ErrInvalidKeyMaterial))
	assert.Contains(t, err.Error(), "unable to parse key set")

	// EC point not on the curve
	_, err = jwk.ParseKeys(`{"kty":"EC","crv":"P-256","x":"iAcuFWF0PSMUwIei8Qm_eDMy4C1WnEMHtw1o9VdyQ4A","y":"iAcuFWF0PSMUwIei8Qm_eDMy4C1WnEMHtw1o9VdyQ4A"}`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, jwk.ErrInvalidKeyMaterial))
}

func TestSet(t *testing.T) {
	s, err := jwk.NewSet(testKeysRaw(t))
	require.NoError(t, err)
	assert.Equal(t, 7, s.Len())
	assert.Nil(t, s.Find("missing"))
	require.NotNil(t, s.Find("ec256"))

	// atomic add
	err = s.Add(`[{"kty":"oct","k":"AQAB"},{"kty":"oct"}]`)
	require.Error(t, err)
	assert.Equal(t, 7, s.Len())

	err = s.Add(`[{"kty":"oct","k":"AQAB"},{"kty":"oct","k":"AQAC"}]`)
	require.NoError(t, err)
	assert.Equal(t, 9, s.Len())

	pub := s.Public()
	require.Equal(t, 4, pub.Len())
	for _, k := range pub.Keys() {
		assert.False(t, k.IsPrivate(), k.String())
	}

	js, err := json.Marshal(pub)
	require.NoError(t, err)
	assert.NotContains(t, string(js), `"d":`)
	assert.Contains(t, string(js), `"key_ops":["sign","verify"]`)

	var s2 jwk.Set
	require.NoError(t, json.Unmarshal(js, &s2))
	assert.Equal(t, 4, s2.Len())
	assert.Equal(t, []string{"sign", "verify"}, s2.Find("ed").Ops())

	js, err = json.Marshal(new(jwk.Set))
	require.NoError(t, err)
	assert.Equal(t, `{"keys":[]}`, string(js))
}

func TestKey_Public(t *testing.T) {
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	k, err := jwk.NewKey(jose.JSONWebKey{Key: ecKey, KeyID: "1"})
	require.NoError(t, err)
	assert.True(t, k.IsPrivate())

	pub := k.Public()
	assert.False(t, pub.IsPrivate())
	assert.Equal(t, "1", pub.ID())
	assert.Same(t, pub, pub.Public())

	tb1, err := k.Thumbprint()
	require.NoError(t, err)
	tb2, err := pub.Thumbprint()
	require.NoError(t, err)
	assert.Equal(t, tb1, tb2)

	sym, err := jwk.NewKey(jose.JSONWebKey{Key: []byte("secret")})
	require.NoError(t, err)
	assert.Same(t, sym, sym.Public())

	_, err = jwk.NewKey(jose.JSONWebKey{Key: "secret"})
	assert.EqualError(t, err, "unsupported key type: string")
}

func TestKey_AllowsUsage(t *testing.T) {
	tcases := []struct {
		js      string
		usage   jwk.Usage
		allowed bool
	}{
		{`{"kty":"oct","k":"AQAB"}`, jwk.UsageSign, true},
		{`{"kty":"oct","k":"AQAB"}`, jwk.UsageUnwrapKey, true},
		{`{"kty":"oct","k":"AQAB","use":"sig"}`, jwk.UsageVerify, true},
		{`{"kty":"oct","k":"AQAB","use":"sig"}`, jwk.UsageEncrypt, false},
		{`{"kty":"oct","k":"AQAB","use":"enc"}`, jwk.UsageDecrypt, true},
		{`{"kty":"oct","k":"AQAB","use":"enc"}`, jwk.UsageSign, false},
		{`{"kty":"oct","k":"AQAB","key_ops":["verify"]}`, jwk.UsageVerify, true},
		{`{"kty":"oct","k":"AQAB","key_ops":["verify"]}`, jwk.UsageSign, false},
		{`{"kty":"oct","k":"AQAB","key_ops":["wrapKey"]}`, jwk.UsageEncrypt, true},
		{`{"kty":"oct","k":"AQAB","key_ops":["unwrapKey"]}`, jwk.UsageDecrypt, true},
		{`{"kty":"oct","k":"AQAB","key_ops":["unwrapKey"]}`, jwk.UsageEncrypt, false},
		{`{"kty":"oct","k":"AQAB","use":"enc","key_ops":["sign"]}`, jwk.UsageSign, false},
	}
	for _, tc := range tcases {
		keys, err := jwk.ParseKeys(tc.js)
		require.NoError(t, err)
		ok, err := keys[0].AllowsUsage(tc.usage)
		require.NoError(t, err)
		assert.Equal(t, tc.allowed, ok, "%s: %s", tc.js, tc.usage)
	}

	keys, err := jwk.ParseKeys(`{"kty":"oct","k":"AQAB"}`)
	require.NoError(t, err)
	_, err = keys[0].AllowsUsage("deriveKey")
	assert.EqualError(t, err, `unsupported usage: "deriveKey"`)
	assert.True(t, errors.Is(err, jwk.ErrInvalidUsage))

	assert.True(t, jwk.UsageSign.RequiresPrivate())
	assert.True(t, jwk.UsageDecrypt.RequiresPrivate())
	assert.False(t, jwk.UsageVerify.RequiresPrivate())
	assert.False(t, jwk.UsageEncrypt.RequiresPrivate())
}

func testKeysRaw(t *testing.T) []byte {
	raw, err := os.ReadFile(testKeys)
	require.NoError(t, err)
	return raw
}

func mustSet(t *testing.T, raw []byte) *jwk.Set {
	s, err := jwk.NewSet(raw)
	require.NoError(t, err)
	return s
}

func joseSet(t *testing.T, raw []byte) jose.JSONWebKeySet {
	var s jose.JSONWebKeySet
	require.NoError(t, json.Unmarshal(raw, &s))
	return s
}

func ptr[T any](v T) *T {
	return &v
}
