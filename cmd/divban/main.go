// Command divban manages the container lifecycle of a curated set of
// self-hosted applications through rootless podman quadlets: one CLI
// struct carrying global flags, one nested command per verb, and a
// Context bound to every command's Run method instead of any
// package-level state.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	kongcompletion "github.com/jotaen/kong-completion"

	"github.com/aryonoco/divban/internal/errs"
	"github.com/aryonoco/divban/internal/logging"
	"github.com/aryonoco/divban/internal/system"
)

// CLI is divban's root command set: global flags plus one subcommand group
// per managed service, an `all` fan-out command, shell completion, and the
// doctor diagnostics that live under each service instead of the root.
var cli struct {
	Verbose  bool   `short:"v" help:"enable debug-level logging"`
	DryRun   bool   `help:"log every action an operation would take without performing it"`
	Force    bool   `help:"skip confirmation prompts"`
	LogLevel string `default:"info" enum:"debug,info,warn,error" help:"logging verbosity"`
	Format   string `default:"pretty" enum:"pretty,json" help:"output format for status/backup listing"`
	BaseDir  string `help:"root data directory (defaults to ~/.local/share/divban)"`
	LogFile  string `help:"optional rotating log file in addition to stderr"`

	Immich   ImmichCmd              `cmd:"" help:"manage the immich photo management stack"`
	Actual   ActualCmd              `cmd:"" help:"manage the actual budget service"`
	FreshRSS FreshRSSCmd            `cmd:"" name:"freshrss" help:"manage the freshrss aggregator service"`
	Caddy    CaddyCmd               `cmd:"" help:"manage the caddy reverse proxy"`
	All        AllCmd                    `cmd:"" help:"run one operation across every configured service"`
	Completion kongcompletion.Completion `cmd:"" help:"generate shell completion scripts"`
}

func main() {
	parser := kong.Must(&cli,
		kong.Name("divban"),
		kong.Description("Manage self-hosted application containers through rootless podman quadlets."),
		kong.UsageOnError(),
	)

	kongcompletion.Register(parser)

	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	level := logging.Level(cli.LogLevel)
	if cli.Verbose {
		level = logging.LevelDebug
	}
	logger := logging.New(logging.Config{
		Level:   level,
		Format:  cli.Format,
		LogFile: cli.LogFile,
	})

	appCtx := &Context{
		Verbose:  cli.Verbose,
		DryRun:   cli.DryRun,
		Force:    cli.Force,
		LogLevel: cli.LogLevel,
		Format:   cli.Format,
		BaseDir:  cli.BaseDir,
		Logger:   logger,
		Runner:   system.ExecRunner{},
	}

	err = kctx.Run(appCtx, &cli.Immich, &cli.Actual, &cli.FreshRSS, &cli.Caddy)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errs.ExitCode(err))
	}
}
