package cli

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xjose/coder"
)

// NestCmd signs then encrypts the payload
type NestCmd struct {
	Config        string `required:"" help:"nested coder configuration file, YAML or JSON"`
	In            string `kong:"arg" required:"" help:"payload file, or - for stdin"`
	Header        string `help:"additional JWE protected header parameters as JSON object"`
	Serialization string `help:"JWE serialization: compact, json_flattened or json_general"`
}

// Run the command
func (a *NestCmd) Run(ctx *Cli) error {
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

	c, err := nestedCoder(a.Config)
	if err != nil {
		return err
	}

	token, err := c.Encode(payload, header, opts...)
	if err != nil {
		return err
	}
	return ctx.writeToken(token)
}

// UnnestCmd decrypts then verifies the token and prints the payload
type UnnestCmd struct {
	Config      string `required:"" help:"nested coder configuration file, YAML or JSON"`
	In          string `kong:"arg" required:"" help:"token file, or - for stdin"`
	PrintHeader bool   `help:"print the header of the signed token with the payload"`
}

// Run the command
func (a *UnnestCmd) Run(ctx *Cli) error {
	token, err := ctx.ReadFile(a.In)
	if err != nil {
		return errors.WithMessage(err, "unable to load token")
	}

	c, err := nestedCoder(a.Config)
	if err != nil {
		return err
	}
	if err = enableAll(c.Encryption()); err != nil {
		return err
	}

	payload, header, err := c.Decode(string(token))
	if err != nil {
		return err
	}
	return ctx.writePayload(payload, header, a.PrintHeader)
}

func nestedCoder(file string) (*coder.NestedCoder, error) {
	cfg, err := coder.LoadNestedConfig(file)
	if err != nil {
		return nil, errors.WithMessage(err, "unable to load config")
	}
	return coder.NewNestedCoderFromConfig(cfg)
}
