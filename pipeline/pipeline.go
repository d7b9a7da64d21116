// Package pipeline runs the source range and encapsulation passes over
// documents.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/wikimedia/mediawiki-services-parsoid-sub014/config"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/dom"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/dsr"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/env"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/html"
	"github.com/wikimedia/mediawiki-services-parsoid-sub014/rangebuilder"
)

// Options select the passes run on each document.
type Options struct {
	DSR dsr.Options
	// Annotations enables the annotation range pass.
	Annotations bool
}

// OptionsFromConfig maps a loaded configuration onto pipeline options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		DSR:         dsr.Options{AttrExpansion: cfg.DSR.AttrExpansion},
		Annotations: cfg.AnnotationsEnabled(),
	}
}

// Process computes source ranges for doc and then encapsulates its
// transclusions and annotations. It stops at the first invariant
// violation.
func Process(e *env.Env, doc *dom.Document, opts Options) error {
	root := doc.Body()
	if root == dom.None {
		return fmt.Errorf("document has no body")
	}

	dsr.Compute(e, doc, root, opts.DSR)

	if err := rangebuilder.WrapTemplates(e, doc, root); err != nil {
		return fmt.Errorf("wrapping templates: %w", err)
	}
	if opts.Annotations {
		if err := rangebuilder.WrapAnnotations(e, doc, root); err != nil {
			return fmt.Errorf("wrapping annotations: %w", err)
		}
	}
	return nil
}

// Job is one document to process: its HTML and the wikitext it was
// produced from.
type Job struct {
	Name string
	HTML string
	Src  string
}

// Result is the outcome of one Job. Doc is set whenever the HTML parsed,
// even if a later pass failed.
type Result struct {
	Name  string
	RunID string
	Doc   *dom.Document
	Err   error
}

// Runner processes batches of documents.
type Runner struct {
	Options Options
	// Workers bounds the number of documents processed at once.
	Workers int
	// Logger receives the diagnostics of every document.
	Logger *slog.Logger
	// Trace lists the passes to trace.
	Trace []string
}

// NewRunner returns a Runner configured from cfg.
func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	return &Runner{
		Options: OptionsFromConfig(cfg),
		Workers: cfg.Workers,
		Logger:  logger,
		Trace:   cfg.Trace,
	}
}

// ProcessAll processes jobs concurrently, each with its own env. Results
// are returned in job order. A failing document does not stop the others;
// only cancellation of ctx aborts the batch.
func (r *Runner) ProcessAll(ctx context.Context, jobs []Job) ([]Result, error) {
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = r.run(job)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (r *Runner) run(job Job) Result {
	e := env.New(job.Src, env.WithLogger(r.Logger), env.WithTrace(r.Trace...))
	res := Result{Name: job.Name, RunID: e.RunID}

	doc, err := html.ParseReader(strings.NewReader(job.HTML))
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", job.Name, err)
		return res
	}
	res.Doc = doc

	if err := Process(e, doc, r.Options); err != nil {
		e.Error("error", "processing failed", "document", job.Name, "error", err)
		res.Err = fmt.Errorf("%s: %w", job.Name, err)
		return res
	}
	e.Log(slog.LevelDebug, "pipeline", "processed", "document", job.Name)
	return res
}
