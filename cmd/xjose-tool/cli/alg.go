package cli

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xjose/jwa"
	"github.com/effective-security/xjose/jwk"
)

// AlgCmd provides commands for algorithms
type AlgCmd struct {
	List AlgListCmd `cmd:"" help:"list supported algorithms"`
}

// AlgListCmd prints supported algorithms
type AlgListCmd struct {
	Class string `help:"signature, key_encryption or content_encryption"`
}

type algInfo struct {
	Name       string        `json:"name"`
	Class      string        `json:"class"`
	KeyTypes   []jwk.KeyType `json:"key_types,omitempty"`
	Curve      string        `json:"curve,omitempty"`
	Deprecated string        `json:"deprecated,omitempty"`
}

// Run the command
func (a *AlgListCmd) Run(ctx *Cli) error {
	var list []algInfo
	for _, class := range []jwa.Class{jwa.Signature, jwa.KeyEncryption, jwa.ContentEncryption} {
		if a.Class != "" && a.Class != class.String() {
			continue
		}
		for _, name := range jwa.Names(class) {
			alg, err := jwa.Lookup(name, class)
			if err != nil {
				return errors.WithStack(err)
			}
			list = append(list, algInfo{
				Name:       alg.Name,
				Class:      class.String(),
				KeyTypes:   alg.KeyTypes,
				Curve:      alg.Curve,
				Deprecated: alg.Deprecated,
			})
		}
	}
	if len(list) == 0 {
		return errors.Errorf("unsupported class: %q", a.Class)
	}
	ctx.WriteJSON(list)
	return nil
}
