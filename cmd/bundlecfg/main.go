package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/bundlecfg/cmd/bundlecfg/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug    bool   `help:"Enable debug mode."`
		Options  string `short:"f" help:"Path to the bundle options file (YAML, JSON or HCL)" default:"bundle.yaml" env:"BUNDLECFG_OPTIONS"`
		Chdir    string `help:"Directory relative paths are resolved against (default: current directory)" type:"existingdir"`
		Version  kong.VersionFlag
		Config   commands.ConfigCmd   `cmd:"" help:"Print the generated bundler configuration"`
		Validate commands.ValidateCmd `cmd:"" help:"Validate the options file"`
		Build    commands.BuildCmd    `cmd:"" help:"Build the bundle with esbuild"`
		Serve    commands.ServeCmd    `cmd:"" help:"Watch, rebuild and serve the bundle"`
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("bundlecfg"),
		kong.Description("Generate bundler configuration from a small set of options."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{
		Debug:   cli.Debug,
		Version: version,
		Options: cli.Options,
		Chdir:   cli.Chdir,
		Stdout:  os.Stdout,
	})
	cmd.FatalIfErrorf(err)
}
