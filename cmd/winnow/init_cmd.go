package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/winnow/pkg/config"
)

const configHeader = "# winnow configuration\n# Run `winnow --list` for the available passes.\n\n"

func initCmd() *cli.Command {
	return &cli.Command{
		Name:      "init",
		Usage:     "Write a configuration file holding the defaults",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "winnow.toml", Usage: "Where to write the file"},
			&cli.BoolFlag{Name: "force", Usage: "Replace an existing file"},
		},
		Action: runInit,
	}
}

func runInit(c *cli.Context) error {
	path := c.String("output")

	_, err := os.Stat(path)
	switch {
	case err == nil && !c.Bool("force"):
		return config.Errorf(path, "file exists, pass --force to replace it")
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("stat %s: %w", path, err)
	}

	body, err := config.MarshalDefault()
	if err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, append([]byte(configHeader), body...), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	color.New(color.FgGreen).Fprintf(c.App.Writer, "Wrote %s\n", path)
	return nil
}
