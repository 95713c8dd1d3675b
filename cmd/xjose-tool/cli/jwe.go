package cli

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xjose/coder"
	"github.com/effective-security/xlog"
)

// EncryptCmd encrypts the payload
type EncryptCmd struct {
	CoderFlags `embed:""`

	In            string `kong:"arg" required:"" help:"payload file, or - for stdin"`
	Header        string `help:"additional protected header parameters as JSON object"`
	Serialization string `help:"compact, json_flattened or json_general"`
	Many          bool   `help:"add a recipient per compatible key"`
}

// Run the command
func (a *EncryptCmd) Run(ctx *Cli) error {
	payload, err := ctx.ReadFile(a.In)
	if err != nil {
		return errors.WithMessage(err, "unable to load payload")
	}
	header, err := parseHeader(a.Header)
	if err != nil {
		return err
	}
	opts, err := encodeOptions(a.Serialization)
	if err != nil {
		return err
	}

	c, err := a.encryptionCoder()
	if err != nil {
		return err
	}
	if a.Many {
		c.SetEncodeToMany(true)
	}

	token, err := c.Encode(payload, header, opts...)
	if err != nil {
		return errors.WithMessage(err, "unable to encrypt")
	}
	return ctx.writeToken(token)
}

// DecryptCmd decrypts the token and prints the payload
type DecryptCmd struct {
	CoderFlags `embed:""`

	In          string `kong:"arg" required:"" help:"token file, or - for stdin"`
	PrintHeader bool   `help:"print the header with the payload"`
}

// Run the command
func (a *DecryptCmd) Run(ctx *Cli) error {
	token, err := ctx.ReadFile(a.In)
	if err != nil {
		return errors.WithMessage(err, "unable to load token")
	}

	c, err := a.encryptionCoder()
	if err != nil {
		return err
	}
	if err = enableAll(c); err != nil {
		return err
	}

	payload, header, err := c.Decode(string(token))
	if err != nil {
		return err
	}
	logger.KV(xlog.DEBUG,
		"reason", "decrypted",
		"alg", header.String(coder.HeaderAlgorithm),
		"enc", header.String(coder.HeaderEncryption))

	return ctx.writePayload(payload, header, a.PrintHeader)
}

func (f *CoderFlags) encryptionCoder() (*coder.EncryptionCoder, error) {
	cfg, err := f.config()
	if err != nil {
		return nil, err
	}
	return coder.NewEncryptionCoderFromConfig(cfg)
}
