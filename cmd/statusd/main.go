// cmd/statusd/main.go
package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tamzrod/statusd/internal/config"
	"github.com/tamzrod/statusd/internal/logger"
)

var version = "dev"

// Global is passed to every command's Run.
type Global struct {
	Logger *zap.SugaredLogger
	// Level is shared by every logger derived from Logger.
	Level zap.AtomicLevel
}

// CLI definition & global flags.
type CLI struct {
	Config   string           `short:"c" help:"Configuration file path" default:"statusd.yaml" type:"path"`
	EnvFile  []string         `name:"env-file" help:"Environment files loaded before anything else" type:"path"`
	LogLevel string           `name:"log-level" help:"Log level (debug, info, warn, error); overrides the config file"`
	Version  kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run   RunCmd   `cmd:"" default:"withargs" help:"Track the instance and publish its status"`
	Probe ProbeCmd `cmd:"" help:"Run the health probe once; exit status 0 when healthy"`
}

// levelOr returns the flag level, or fallback when the flag is unset.
func (c *CLI) levelOr(fallback string) string {
	if c.LogLevel != "" {
		return c.LogLevel
	}
	return fallback
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("statusd"),
		kong.Description("Derives one instance status from container lifecycle and health probes."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	if len(cli.EnvFile) > 0 {
		if err := godotenv.Load(cli.EnvFile...); err != nil {
			ctx.FatalIfErrorf(err, "loading env files")
		}
	}

	lvl, err := logger.ParseLevel(cli.levelOr(config.DefaultLogLevel))
	ctx.FatalIfErrorf(err)
	atom := zap.NewAtomicLevelAt(lvl)

	base, err := logger.Build(atom)
	ctx.FatalIfErrorf(err)
	defer func() { _ = base.Sync() }()

	err = ctx.Run(&Global{Logger: base.Named(logger.ComponentMain).Sugar(), Level: atom}, cli)
	if err != nil {
		base.Sugar().Errorw("command failed", "command", ctx.Command(), "error", err)
		_ = base.Sync()
		os.Exit(1)
	}
}
