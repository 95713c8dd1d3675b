package main

import (
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/effective-security/x/ctl"
	"github.com/effective-security/xjose/cmd/xjose-tool/cli"
	"github.com/effective-security/xjose/internal/version"
)

type app struct {
	cli.Cli

	Sign    cli.SignCmd    `cmd:"" help:"sign payload as JWS"`
	Verify  cli.VerifyCmd  `cmd:"" help:"verify JWS and print payload"`
	Encrypt cli.EncryptCmd `cmd:"" help:"encrypt payload as JWE"`
	Decrypt cli.DecryptCmd `cmd:"" help:"decrypt JWE and print payload"`
	Nest    cli.NestCmd    `cmd:"" help:"sign then encrypt payload"`
	Unnest  cli.UnnestCmd  `cmd:"" help:"decrypt then verify nested token"`
	Alg     cli.AlgCmd     `cmd:"" help:"algorithm commands"`
	Key     cli.KeyCmd     `cmd:"" help:"key commands"`
}

func main() {
	realMain(os.Args, os.Stdout, os.Stderr, os.Exit)
}

func realMain(args []string, out io.Writer, errout io.Writer, exit func(int)) {
	cl := app{
		Cli: cli.Cli{},
	}
	cl.Cli.WithErrWriter(errout).
		WithWriter(out)

	parser, err := kong.New(&cl,
		kong.Name("xjose-tool"),
		kong.Description("JOSE tools"),
		kong.Writers(out, errout),
		kong.Exit(exit),
		ctl.BoolPtrMapper,
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version.Current().String(),
		})
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args[1:])
	parser.FatalIfErrorf(err)

	if ctx != nil {
		err = ctx.Run(&cl.Cli)
		ctx.FatalIfErrorf(err)
	}
}
