package main

import (
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/nscale/cmd/nscale/commands"
	"git.home.luguber.info/inful/nscale/internal/config"
	foundationerrors "git.home.luguber.info/inful/nscale/internal/foundation/errors"
	"git.home.luguber.info/inful/nscale/internal/version"
)

func main() {
	var cli commands.CLI
	globals := &commands.Global{Out: os.Stdout}

	ctx := kong.Parse(&cli,
		kong.Name("nscale"),
		kong.Description("Keep a system's container repositories cloned, fetched and pinned in system.json."),
		kong.UsageOnError(),
		kong.Bind(globals),
		kong.Vars{
			"version":     version.String(),
			"config_path": config.DefaultPath(),
		},
	)
	if err := ctx.Run(&cli); err != nil {
		foundationerrors.NewCLIErrorAdapter(cli.Verbose, globals.Logger).HandleError(err)
	}
}
