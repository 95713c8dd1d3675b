package cli

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xjose/jwk"
)

// KeyCmd provides commands for keys
type KeyCmd struct {
	Info   KeyInfoCmd   `cmd:"" help:"print keys info"`
	Public KeyPublicCmd `cmd:"" help:"print public keys as JWKS"`
}

// KeyInfoCmd prints keys info
type KeyInfoCmd struct {
	In string `kong:"arg" required:"" help:"JWK or JWKS file, or - for stdin"`
}

type keyInfo struct {
	ID         string   `json:"kid,omitempty"`
	Type       string   `json:"kty"`
	Use        string   `json:"use,omitempty"`
	Ops        []string `json:"key_ops,omitempty"`
	Algorithm  string   `json:"alg,omitempty"`
	Curve      string   `json:"crv,omitempty"`
	Size       int      `json:"size"`
	Private    bool     `json:"private"`
	Thumbprint string   `json:"thumbprint"`
}

// Run the command
func (a *KeyInfoCmd) Run(ctx *Cli) error {
	set, err := loadSet(ctx, a.In)
	if err != nil {
		return err
	}

	list := make([]keyInfo, 0, set.Len())
	for _, k := range set.Keys() {
		tp, err := k.Thumbprint()
		if err != nil {
			return errors.WithMessagef(err, "unable to compute thumbprint: %s", k)
		}
		list = append(list, keyInfo{
			ID:         k.ID(),
			Type:       string(k.Type()),
			Use:        k.Use(),
			Ops:        k.Ops(),
			Algorithm:  k.Algorithm(),
			Curve:      k.Curve(),
			Size:       k.Size(),
			Private:    k.IsPrivate(),
			Thumbprint: tp,
		})
	}
	ctx.WriteJSON(list)
	return nil
}

// KeyPublicCmd prints public keys
type KeyPublicCmd struct {
	In string `kong:"arg" required:"" help:"JWK or JWKS file, or - for stdin"`
}

// Run the command
func (a *KeyPublicCmd) Run(ctx *Cli) error {
	set, err := loadSet(ctx, a.In)
	if err != nil {
		return err
	}

	ctx.WriteJSON(set.Public())
	return nil
}

func loadSet(ctx *Cli, file string) (*jwk.Set, error) {
	raw, err := ctx.ReadFile(file)
	if err != nil {
		return nil, errors.WithMessage(err, "unable to load keys")
	}
	return jwk.NewSet(raw)
}
