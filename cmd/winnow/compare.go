package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/winnow/internal/archive"
	"github.com/panbanda/winnow/internal/fileproc"
	"github.com/panbanda/winnow/internal/logger"
	"github.com/panbanda/winnow/internal/output"
	"github.com/panbanda/winnow/internal/progress"
	"github.com/panbanda/winnow/internal/report"
	"github.com/panbanda/winnow/internal/scanner"
	"github.com/panbanda/winnow/pkg/analyzer"
	"github.com/panbanda/winnow/pkg/config"
	"github.com/panbanda/winnow/pkg/models"
	"github.com/panbanda/winnow/pkg/pass"
	"github.com/panbanda/winnow/pkg/source"
)

func compareAction(c *cli.Context) error {
	// Listing passes needs no configuration, so a broken config file in the
	// working directory does not get in the way.
	if c.Bool("list") {
		return listPasses(c)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger.Init(cfg.Log.Level, c.App.ErrWriter)

	if err := ensureNoExtraArgs(c); err != nil {
		return err
	}
	if c.Args().Len() == 0 {
		return config.Errorf("PATH", "missing required argument")
	}

	names := c.StringSlice("pass")
	if len(names) == 0 {
		names = cfg.Passes
	}
	passes, err := pass.ParseAll(names)
	if err != nil {
		return err
	}
	if len(passes) == 0 {
		return config.Errorf("pass", "no pass selected")
	}
	comparators := make([]analyzer.Comparator, len(passes))
	for i, p := range passes {
		if comparators[i], err = p.Comparator(cfg); err != nil {
			return err
		}
	}

	in, cleanup, err := discover(c.Args().First(), c.StringSlice("archive"), c.StringSlice("distro"), cfg)
	defer cleanup()
	if err != nil {
		return err
	}
	log.Info().
		Int("submissions", len(in.Submissions)).
		Int("archive", len(in.Archive)).
		Int("distro", len(in.Ignored)).
		Msg("discovered")
	if len(in.Submissions)+len(in.Archive) < 2 {
		output.NewFormatter(output.FormatText, c.App.ErrWriter, !color.NoColor).
			Warning("fewer than two submissions found under %s, nothing to compare", c.Args().First())
	}

	results, err := runPasses(c.Context, in, passes, comparators, c.App.ErrWriter)
	if err != nil {
		return err
	}

	run := &output.Run{}
	var pages [][]string
	if cfg.Output.Dir != "" {
		renderer, err := report.NewRenderer(in.Source)
		if err != nil {
			return err
		}
		meta := report.Metadata{
			Root:        c.Args().First(),
			GeneratedAt: time.Now(),
			Archive:     c.StringSlice("archive"),
			Distro:      c.StringSlice("distro"),
		}
		if pages, err = renderer.Write(cfg.Output.Dir, meta, results); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		run.ReportDir = cfg.Output.Dir
	}
	for i, res := range results {
		var reports []string
		if pages != nil {
			reports = pages[i]
		}
		run.Rankings = append(run.Rankings, output.NewRanking(res.Pass, res.Comparisons, reports))
	}

	colored := cfg.Output.Color && !color.NoColor
	return output.NewFormatter(output.ParseFormat(cfg.Output.Format), c.App.Writer, colored).Output(run)
}

func listPasses(c *cli.Context) error {
	t := &output.Table{Headers: []string{"Pass", "Description"}}
	for _, p := range pass.All() {
		t.Rows = append(t.Rows, []string{p.String(), p.Description()})
	}
	return t.RenderText(c.App.Writer, false)
}

// discover resolves the submissions, archive submissions and distro files
// into a comparator input. cleanup removes extracted archives and is never
// nil.
func discover(root string, archives, distros []string, cfg *config.Config) (*analyzer.Input, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for _, fn := range cleanups {
			fn()
		}
	}
	resolve := func(path string, allowFile bool) (string, error) {
		dir, done, err := resolvePath(path, allowFile)
		if done != nil {
			cleanups = append(cleanups, done)
		}
		return dir, err
	}

	scan := scanner.NewScanner(cfg)
	reg := models.NewRegistry()
	in := &analyzer.Input{
		Source:         source.NewFilesystem(),
		Top:            cfg.Compare.Top,
		SkipUnreadable: cfg.Compare.SkipUnreadable,
		Executor:       executor(cfg),
	}

	dir, err := resolve(root, false)
	if err != nil {
		return nil, cleanup, err
	}
	found, err := scan.Submissions(dir)
	if err != nil {
		return nil, cleanup, fmt.Errorf("scanning %s: %w", root, err)
	}
	in.Submissions = scanner.Register(reg, found, false)

	current := make(map[string]bool, len(found))
	for _, f := range found {
		current[f.Path] = true
	}
	for _, path := range archives {
		dir, err := resolve(path, false)
		if err != nil {
			return nil, cleanup, err
		}
		found, err := scan.Submissions(dir)
		if err != nil {
			return nil, cleanup, fmt.Errorf("scanning %s: %w", path, err)
		}
		kept := found[:0]
		for _, f := range found {
			if current[f.Path] {
				log.Warn().Str("submission", f.Path).Msg("submission is also current, ignoring its archive copy")
				continue
			}
			kept = append(kept, f)
		}
		in.Archive = append(in.Archive, scanner.Register(reg, kept, true)...)
	}

	for _, path := range distros {
		dir, err := resolve(path, true)
		if err != nil {
			return nil, cleanup, err
		}
		files, err := scan.Files(dir)
		if err != nil {
			return nil, cleanup, fmt.Errorf("scanning %s: %w", path, err)
		}
		in.Ignored = append(in.Ignored, scanner.RegisterFiles(reg, dir, files)...)
	}
	return in, cleanup, nil
}

// resolvePath returns the directory to scan for path, extracting it first
// when it is an archive. Other regular files are only accepted when
// allowFile is set.
func resolvePath(path string, allowFile bool) (string, func(), error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, config.Errorf(path, "no such file or directory")
		}
		return "", nil, &config.Error{Key: path, Err: err}
	}
	switch {
	case info.IsDir():
		return path, nil, nil
	case !archive.IsArchive(path):
		if allowFile {
			return path, nil, nil
		}
		return "", nil, config.Errorf(path, "not a directory or supported archive")
	}
	dir, cleanup, err := archive.ExtractTemp(path)
	if err != nil {
		return "", nil, err
	}
	return dir, cleanup, nil
}

func executor(cfg *config.Config) fileproc.Executor {
	if cfg.Compare.Sequential {
		return fileproc.Sequential()
	}
	return fileproc.Parallel(cfg.Compare.Workers)
}

// runPasses scores and compares every pass in turn.
func runPasses(ctx context.Context, in *analyzer.Input, passes []pass.Pass, comparators []analyzer.Comparator, stderr io.Writer) ([]report.PassResult, error) {
	var stages *progress.Stages
	if f, ok := stderr.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		stages = progress.NewStages(stderr)
	}

	results := make([]report.PassResult, 0, len(passes))
	for i, p := range passes {
		passIn := *in
		passIn.Preprocess = p.Pipeline()

		passCtx := ctx
		if stages != nil {
			passCtx = analyzer.WithTracker(ctx, stages.Track(p.String()))
		}

		start := time.Now()
		comps, err := runPass(passCtx, comparators[i], &passIn)
		if stages != nil {
			if err != nil {
				stages.Fail(err)
			} else {
				stages.Done()
			}
		}
		if err != nil {
			return nil, fmt.Errorf("pass %s: %w", p, err)
		}
		log.Debug().Str("pass", p.String()).Int("pairs", len(comps)).Dur("took", time.Since(start)).Msg("pass finished")
		results = append(results, report.PassResult{Pass: p.String(), Comparisons: comps})
	}
	return results, nil
}

func runPass(ctx context.Context, cmp analyzer.Comparator, in *analyzer.Input) ([]models.Comparison, error) {
	scores, err := cmp.Score(ctx, in)
	if err != nil {
		return nil, err
	}
	return cmp.Compare(ctx, in, scores)
}
