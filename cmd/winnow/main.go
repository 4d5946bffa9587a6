package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/winnow/internal/archive"
	"github.com/panbanda/winnow/pkg/config"
)

var version = "dev"

const (
	exitOK        = 0
	exitFailure   = 1
	exitUserError = 2
)

func main() {
	// A missing .env file is the common case.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := newApp(stdout, stderr)
	if err := app.RunContext(ctx, args); err != nil {
		color.New(color.FgRed).Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

// exitCode maps user mistakes (bad flags, paths, archives or config) to 2
// and everything else to 1.
func exitCode(err error) int {
	var archiveErr *archive.Error
	if config.IsError(err) || errors.As(err, &archiveErr) {
		return exitUserError
	}
	return exitFailure
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "winnow",
		Usage:     "Find suspiciously similar code among submissions",
		Version:   version,
		ArgsUsage: "PATH",
		Description: `winnow cross-compares every submission below PATH, a directory or an
archive (.zip, .tar, .tar.gz, .tgz, .tar.bz2, .bz2, .tar.xz, .xz, .7z)
whose top-level entries are the submissions. Code shared with --distro
files is discounted; --archive submissions are compared against the
current ones but not against each other.`,
		Writer:    stdout,
		ErrWriter: stderr,
		// Errors are reported by run, which owns the exit code.
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "archive",
				Aliases: []string{"a"},
				Usage:   "Directory or archive of past submissions (repeatable)",
				EnvVars: []string{"WINNOW_ARCHIVE"},
			},
			&cli.StringSliceFlag{
				Name:    "distro",
				Aliases: []string{"d"},
				Usage:   "File, directory or archive of distributed code to discount (repeatable)",
				EnvVars: []string{"WINNOW_DISTRO"},
			},
			&cli.StringSliceFlag{
				Name:    "pass",
				Aliases: []string{"p"},
				Usage:   "Comparison pass to run (repeatable, see --list)",
				EnvVars: []string{"WINNOW_PASS"},
			},
			&cli.BoolFlag{
				Name:  "list",
				Usage: "List the available passes and exit",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"WINNOW_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory to write the HTML report to",
				EnvVars: []string{"WINNOW_OUTPUT"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Terminal output format: text, json, markdown",
				EnvVars: []string{"WINNOW_FORMAT"},
			},
			&cli.IntFlag{
				Name:    "top",
				Aliases: []string{"n"},
				Usage:   "Number of top pairs compared in depth per pass (0 = all)",
				EnvVars: []string{"WINNOW_TOP"},
			},
			&cli.BoolFlag{
				Name:    "sequential",
				Usage:   "Process files one at a time",
				EnvVars: []string{"WINNOW_SEQUENTIAL"},
			},
			&cli.BoolFlag{
				Name:    "skip-unreadable",
				Usage:   "Skip files that cannot be read instead of failing",
				EnvVars: []string{"WINNOW_SKIP_UNREADABLE"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level: trace, debug, info, warn, error",
				EnvVars: []string{"WINNOW_LOG_LEVEL"},
			},
		},
		Action: compareAction,
		Commands: []*cli.Command{
			initCmd(),
		},
	}
}

// loadConfig loads the config file and applies the command line overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadOrDefault()
	}
	if err != nil {
		return nil, err
	}

	if c.IsSet("top") {
		cfg.Compare.Top = c.Int("top")
	}
	if c.IsSet("sequential") {
		cfg.Compare.Sequential = c.Bool("sequential")
	}
	if c.IsSet("skip-unreadable") {
		cfg.Compare.SkipUnreadable = c.Bool("skip-unreadable")
	}
	if c.IsSet("output") {
		cfg.Output.Dir = c.String("output")
	}
	if c.IsSet("format") {
		cfg.Output.Format = c.String("format")
	}
	if c.Bool("verbose") {
		cfg.Log.Level = "debug"
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func usageError(format string, args ...any) error {
	return config.Errorf("", format, args...)
}

func ensureNoExtraArgs(c *cli.Context) error {
	if c.Args().Len() > 1 {
		return usageError("expected one PATH, got %d arguments", c.Args().Len())
	}
	return nil
}
