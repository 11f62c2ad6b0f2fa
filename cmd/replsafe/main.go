package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/block/replsafe/pkg/runner"
)

var cli struct {
	Wait runner.WaitCommand `cmd:"" help:"Block until all replicas are caught up within the wait spec's budget."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("replsafe"),
		kong.Description("Replsafe: replication-safe pacing for bulk MySQL writes"),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run())
	os.Exit(cli.Wait.ExitCode())
}
