package cli

import (
	"bytes"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xjose/coder"
)

var testPayload = []byte(`{"sub":"alice"}`)

func (s *testSuite) TestReadFile() {
	_, err := s.ctl.ReadFile("")
	s.EqualError(err, "empty file name")

	_, err = s.ctl.ReadFile(s.tmpdir + "/missing")
	s.Error(err)

	s.ctl.WithReader(bytes.NewReader(testPayload))
	defer s.ctl.WithReader(nil)
	b, err := s.ctl.ReadFile("-")
	s.Require().NoError(err)
	s.Equal(testPayload, b)
}

func (s *testSuite) TestSignVerify() {
	in := s.writeFile("payload.json", testPayload)

	sign := SignCmd{
		CoderFlags: CoderFlags{Keys: testKeys, Alg: []string{"ES256"}},
		In:         in,
		Header:     `{"typ":"JWT"}`,
	}
	s.Require().NoError(sign.Run(s.ctl))
	s.Len(strings.Split(strings.TrimSpace(s.Out.String()), "."), 3)
	token := s.outToFile("token.jws")

	verify := VerifyCmd{
		CoderFlags: CoderFlags{Keys: testKeys, Alg: []string{"ES256"}},
		In:         token,
	}
	s.Require().NoError(verify.Run(s.ctl))
	s.Equal(string(testPayload), s.Out.String())
	s.Out.Reset()

	verify.PrintHeader = true
	s.Require().NoError(verify.Run(s.ctl))
	s.HasText(`"typ"`, `"JWT"`, `"ES256"`, `"payload"`)
	s.Out.Reset()

	// wrong algorithm
	verify = VerifyCmd{
		CoderFlags: CoderFlags{Keys: testKeys, Alg: []string{"ES384"}},
		In:         token,
	}
	err := verify.Run(s.ctl)
	s.True(errors.Is(err, coder.ErrInvalidToken))
}

func (s *testSuite) TestSign_Many() {
	in := s.writeFile("payload.json", testPayload)

	sign := SignCmd{
		CoderFlags: CoderFlags{Keys: testKeys, Alg: []string{"HS256", "ES256", "EdDSA"}},
		In:         in,
		Many:       true,
	}
	s.Require().NoError(sign.Run(s.ctl))
	s.HasText(`"signatures"`)
	token := s.outToFile("many.jws")

	verify := VerifyCmd{
		CoderFlags: CoderFlags{Keys: testKeys, Alg: []string{"EdDSA"}},
		In:         token,
	}
	s.Require().NoError(verify.Run(s.ctl))
	s.Equal(string(testPayload), s.Out.String())

	sign.Serialization = "compact"
	err := sign.Run(s.ctl)
	s.EqualError(err, "unable to sign: compact serialization requires one entry, got 3")
}

func (s *testSuite) TestSign_Errors() {
	in := s.writeFile("payload.json", testPayload)

	sign := SignCmd{In: in}
	s.EqualError(sign.Run(s.ctl), "either --config or --keys must be provided")

	sign = SignCmd{
		CoderFlags: CoderFlags{Keys: testKeys, Alg: []string{"ES256"}},
		In:         in,
		Header:     `{`,
	}
	s.Error(sign.Run(s.ctl))

	sign.Header = ""
	sign.Serialization = "cbor"
	s.EqualError(sign.Run(s.ctl), `unsupported serialization: "cbor"`)

	sign.Serialization = ""
	sign.Alg = []string{"XX256"}
	s.EqualError(sign.Run(s.ctl), `unknown algorithm: "XX256"`)

	sign = SignCmd{
		CoderFlags: CoderFlags{Config: s.tmpdir + "/missing.yaml"},
		In:         in,
	}
	s.Error(sign.Run(s.ctl))

	sign = SignCmd{
		CoderFlags: CoderFlags{Keys: testKeys},
		In:         s.tmpdir + "/missing.json",
	}
	s.Error(sign.Run(s.ctl))
}

func (s *testSuite) TestEncryptDecrypt() {
	in := s.writeFile("payload.json", testPayload)

	encrypt := EncryptCmd{
		CoderFlags:    CoderFlags{Keys: testKeys, Alg: []string{"RSA-OAEP-256", "A256GCM"}},
		In:            in,
		Serialization: "jwe_json_flattened",
	}
	s.Require().NoError(encrypt.Run(s.ctl))
	s.HasText(`"ciphertext"`)
	token := s.outToFile("token.jwe")

	decrypt := DecryptCmd{
		CoderFlags:  CoderFlags{Keys: testKeys, Alg: []string{"RSA-OAEP-256", "A256GCM"}},
		In:          token,
		PrintHeader: true,
	}
	s.Require().NoError(decrypt.Run(s.ctl))
	s.HasText(`"RSA-OAEP-256"`, `"A256GCM"`, `"rsa"`)
	s.Out.Reset()

	decrypt.Alg = []string{"A128KW", "A256GCM"}
	err := decrypt.Run(s.ctl)
	s.True(errors.Is(err, coder.ErrInvalidToken))

	encrypt.Alg = []string{"dir", "A256GCM"}
	encrypt.Many = true
	encrypt.Serialization = ""
	s.Require().NoError(encrypt.Run(s.ctl))
	s.HasText(`"recipients"`)
	s.Out.Reset()
}

func (s *testSuite) TestNestUnnest() {
	in := s.writeFile("payload.json", testPayload)
	nest := NestCmd{
		Config: "testdata/nested.yaml",
		In:     in,
	}
	s.Require().NoError(nest.Run(s.ctl))
	s.Len(strings.Split(strings.TrimSpace(s.Out.String()), "."), 5)
	token := s.outToFile("token.nested")

	unnest := UnnestCmd{
		Config:      "testdata/nested.yaml",
		In:          token,
		PrintHeader: true,
	}
	s.Require().NoError(unnest.Run(s.ctl))
	s.HasText(`"ES256"`, `"ec256"`)
	s.Out.Reset()

	unnest.Config = s.tmpdir + "/missing.yaml"
	s.Error(unnest.Run(s.ctl))

	// plain JWE is not nested
	encrypt := EncryptCmd{
		CoderFlags: CoderFlags{Keys: testKeys, Alg: []string{"ECDH-ES+A128KW", "A128GCM"}},
		In:         in,
	}
	s.Require().NoError(encrypt.Run(s.ctl))
	plain := s.outToFile("plain.jwe")

	unnest = UnnestCmd{
		Config: "testdata/nested.yaml",
		In:     plain,
	}
	err := unnest.Run(s.ctl)
	s.True(errors.Is(err, coder.ErrNotNested))
}

func (s *testSuite) TestAlgList() {
	cmd := AlgListCmd{}
	s.Require().NoError(cmd.Run(s.ctl))
	s.HasText(`"HS256"`, `"RSA-OAEP"`, `"A256GCM"`, `"padding oracle`)
	s.Out.Reset()

	cmd.Class = "signature"
	s.Require().NoError(cmd.Run(s.ctl))
	s.HasText(`"EdDSA"`)
	s.HasNoText(`"A256GCM"`)
	s.Out.Reset()

	cmd.Class = "mac"
	s.EqualError(cmd.Run(s.ctl), `unsupported class: "mac"`)
}

func (s *testSuite) TestKeyInfo() {
	cmd := KeyInfoCmd{In: testKeys}
	s.Require().NoError(cmd.Run(s.ctl))
	s.HasText(`"hmac"`, `"ec384"`, `"thumbprint"`, `"P-256"`, `"wrapKey"`)
	s.Out.Reset()

	cmd.In = s.tmpdir + "/missing.jwks"
	s.Error(cmd.Run(s.ctl))
}

func (s *testSuite) TestKeyPublic() {
	cmd := KeyPublicCmd{In: testKeys}
	s.Require().NoError(cmd.Run(s.ctl))
	s.HasText(`"rsa"`, `"ec256"`, `"ed"`)
	s.HasNoText(`"hmac"`, `"aes128"`, `"d":`)
	s.Out.Reset()
}

func (s *testSuite) TestWriteJSON() {
	s.ctl.WriteJSON(map[string]string{"kid": "ec256"})
	s.Equal("{\n\t\"kid\": \"ec256\"\n}\n", s.Out.String())
}
