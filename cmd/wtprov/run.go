package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wikimedia/mediawiki-services-parsoid-sub014/config"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/fetch"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/html"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/logging"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/pipeline"
)

var (
	runConfig  string
	runSrc     string
	runStdout  bool
	runWorkers int
	runColor   string
)

// styles holds the color formatters of the run summary
type styles struct {
	heading *color.Color
	ok      *color.Color
	failed  *color.Color
	path    *color.Color
}

func newStyles(enabled bool) *styles {
	s := &styles{
		heading: color.New(color.Bold),
		ok:      color.New(color.FgHiGreen),
		failed:  color.New(color.Bold, color.FgHiRed),
		path:    color.New(color.FgHiBlue),
	}

	if !enabled {
		s.heading.DisableColor()
		s.ok.DisableColor()
		s.failed.DisableColor()
		s.path.DisableColor()
	}

	return s
}

var runCmd = &cobra.Command{
	Use:   "run [flags] page.html...",
	Short: "Annotate Parsoid HTML with wikitext source ranges",
	Long: `Process each HTML page against the wikitext it was generated from.
Pages and sources may be files or http(s) URLs. The wikitext is read from the
.wt location next to each page unless --src is given. Results are written next
to the input as <page>.out.html, or to the working directory for URLs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runConfig, "config", "", "Path to a YAML configuration file")
	runCmd.Flags().StringVar(&runSrc, "src", "", "Wikitext source file (only with a single page)")
	runCmd.Flags().BoolVar(&runStdout, "stdout", false, "Write the processed HTML to stdout instead of files")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "Number of pages processed in parallel (default from config)")
	runCmd.Flags().StringVar(&runColor, "color", "auto", "Color output: auto, always, never")
}

func runRun(cmd *cobra.Command, args []string) error {
	if runSrc != "" && len(args) > 1 {
		return fmt.Errorf("--src can only be used with a single page, got %d", len(args))
	}

	cfg := config.Default()
	if runConfig != "" {
		var err error
		if cfg, err = config.Load(runConfig); err != nil {
			return err
		}
	}
	if runWorkers > 0 {
		cfg.Workers = runWorkers
	}

	level := cfg.LogLevel()
	switch {
	case quiet:
		level = logging.LevelError
	case verbose:
		level = logging.LevelDebug
	}
	logger := logging.New(cmd.ErrOrStderr(), level, cfg.LogFormat())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := fetch.NewClient(
		fetch.WithTimeout(cfg.Fetch.Timeout),
		fetch.WithUserAgent(cfg.Fetch.UserAgent),
	)
	if err != nil {
		return err
	}
	loader := fetch.NewLoader(client)

	jobs := make([]pipeline.Job, 0, len(args))
	for _, loc := range args {
		job, err := loadJob(ctx, loader, loc, runSrc)
		if err != nil {
			return err
		}
		jobs = append(jobs, job)
	}
	results, err := pipeline.NewRunner(cfg, logger).ProcessAll(ctx, jobs)
	if err != nil {
		return fmt.Errorf("processing interrupted: %w", err)
	}

	// Keep stdout clean for the HTML itself.
	summaryOut := cmd.OutOrStdout()
	if runStdout {
		summaryOut = cmd.ErrOrStderr()
	}
	s := newStyles(colorEnabled(runColor))

	fmt.Fprintln(summaryOut, s.heading.Sprintf("Processed %d page(s)", len(results)))
	failed := 0
	for _, res := range results {
		if res.Err == nil {
			res.Err = writeResult(cmd.OutOrStdout(), res)
		}
		if res.Err != nil {
			failed++
			fmt.Fprintf(summaryOut, "  %s %s: %v\n", s.failed.Sprint("failed"), s.path.Sprint(res.Name), res.Err)
			continue
		}
		dest := "stdout"
		if !runStdout {
			dest = outputPath(res.Name)
		}
		fmt.Fprintf(summaryOut, "  %s     %s -> %s\n", s.ok.Sprint("ok"), s.path.Sprint(res.Name), dest)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d page(s) failed", failed, len(results))
	}
	return nil
}

// loadJob reads an HTML page and its wikitext source. An empty srcLoc
// selects the .wt location next to the page.
func loadJob(ctx context.Context, loader *fetch.Loader, loc, srcLoc string) (pipeline.Job, error) {
	page, err := loader.Load(ctx, loc)
	if err != nil {
		return pipeline.Job{}, fmt.Errorf("failed to read page %s: %w", loc, err)
	}
	if srcLoc == "" {
		srcLoc = sourcePath(loc)
	}
	src, err := loader.Load(ctx, srcLoc)
	if err != nil {
		return pipeline.Job{}, fmt.Errorf("failed to read source for %s: %w", loc, err)
	}
	return pipeline.Job{Name: loc, HTML: string(page), Src: string(src)}, nil
}

func writeResult(stdout io.Writer, res pipeline.Result) error {
	if runStdout {
		return html.Render(stdout, res.Doc)
	}

	f, err := os.Create(outputPath(res.Name))
	if err != nil {
		return err
	}
	if err := html.Render(f, res.Doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func sourcePath(page string) string {
	return fetch.WithExt(page, ".wt")
}

func outputPath(page string) string {
	if fetch.IsURL(page) {
		page = fetch.Basename(page)
	}
	return fetch.WithExt(page, ".out.html")
}

func colorEnabled(mode string) bool {
	switch mode {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default: // "auto"
		color.NoColor = !term.IsTerminal(int(os.Stdout.Fd())) || os.Getenv("NO_COLOR") != ""
	}
	return !color.NoColor
}
