// Package assemble — tiered retrieval pipeline.
// Raster tiers loop over the resolved page range, fetch one image per
// page and feed them in order into the encoder. The original tier fetches
// the publisher's own pre-paginated document in one request and hands it
// to the post-processor instead.
package assemble

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/RichardJRL/pocketmagstopdf/core"
	"github.com/RichardJRL/pocketmagstopdf/core/output"
	"github.com/RichardJRL/pocketmagstopdf/core/pages"
	"github.com/RichardJRL/pocketmagstopdf/core/postprocess"
	"github.com/RichardJRL/pocketmagstopdf/core/urltmpl"
)

// Result is the outcome of a successful run.
type Result struct {
	OutputPath string
	Pages      int
	ImageDir   string
	// Warning carries a best-effort post-processing failure
	// (WatermarkEditError); the output was still written.
	Warning error
}

// Assembler orchestrates one download run.
type Assembler struct {
	Fetcher  core.Fetcher
	Writer   *output.Writer
	Editor   *postprocess.Editor
	Log      *slog.Logger
	Progress io.Writer
}

// Run executes the pipeline for the given job. Any error before the
// document is complete aborts the run with nothing written to the
// output path.
func (a *Assembler) Run(ctx context.Context, job *core.Job) (*Result, error) {
	tmpl, err := urltmpl.Derive(job.SampleURL, job.Quality)
	if err != nil {
		return nil, err
	}

	if job.Quality.WholeDocument() {
		return a.runOriginal(ctx, job, tmpl)
	}
	return a.runRaster(ctx, job, tmpl)
}

// runRaster fetches each page of the resolved range in ascending order
// and re-encodes them into a page-per-image document.
func (a *Assembler) runRaster(ctx context.Context, job *core.Job, tmpl *urltmpl.Template) (*Result, error) {
	// Discovery probes at the extralow tier regardless of the tier being
	// downloaded: probing only needs existence, not quality.
	probe, err := urltmpl.Derive(job.SampleURL, core.QualityExtraLow)
	if err != nil {
		return nil, err
	}

	rng, err := pages.Resolve(ctx, job.Range, probe, a.Fetcher, a.Log)
	if err != nil {
		return nil, err
	}

	imageDir := ""
	if job.SaveImages {
		imageDir, err = a.Writer.MakeImageDir(job.SubdirPrefix, job.SubdirSuffix)
		if err != nil {
			return nil, err
		}
	}

	enc := NewEncoder(job.DPI, job.Title)
	total := rng.Count()

	for page := rng.From; page <= rng.To; page++ {
		url := tmpl.PageURL(page)
		fmt.Fprintf(a.Progress, "[%d/%d] Downloading page %d from %s\n", page-rng.From+1, total, page, url)

		res, err := a.Fetcher.Fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		if !res.Found {
			// The declared range promised this page exists.
			return nil, &core.PageMissingError{Page: page, URL: url}
		}

		if imageDir != "" {
			if _, err := a.Writer.WriteImage(imageDir, page, tmpl.Width(), res.Body); err != nil {
				return nil, err
			}
		}

		if err := enc.AddPage(page, res.Body); err != nil {
			return nil, err
		}
	}

	data, err := enc.Bytes()
	if err != nil {
		return nil, err
	}

	path, err := a.Writer.WriteDocument(data)
	if err != nil {
		return nil, err
	}

	a.Log.Info("document assembled",
		slog.String("path", path),
		slog.Int("pages", enc.Pages()),
	)
	return &Result{OutputPath: path, Pages: enc.Pages(), ImageDir: imageDir}, nil
}

// runOriginal fetches the complete pre-assembled document and applies the
// requested post-processing. Range, DPI, title and image saving do not
// apply to a document that arrives already paginated; they are ignored.
func (a *Assembler) runOriginal(ctx context.Context, job *core.Job, tmpl *urltmpl.Template) (*Result, error) {
	if job.SaveImages {
		a.Log.Debug("--save-images has no effect with --quality=original")
	}

	url := tmpl.DocumentURL(job.Token)
	fmt.Fprintf(a.Progress, "Downloading document from %s\n", url)

	res, err := a.Fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return nil, fmt.Errorf("no document at %s: check the account token", url)
	}

	data, warn, err := a.Editor.Apply(res.Body, postprocess.Edits{
		Watermark:       job.Watermark,
		Token:           job.Token,
		ChangeTimestamp: job.ChangeTimestamp,
	})
	if err != nil {
		return nil, err
	}
	if warn != nil {
		a.Log.Warn("watermark edit incomplete", slog.Any("error", warn))
	}

	path, err := a.Writer.WriteDocument(data)
	if err != nil {
		return nil, err
	}

	count, err := postprocess.PageCount(data)
	if err != nil {
		// The document was written; a page count is informational only.
		a.Log.Debug("page count unavailable", slog.Any("error", err))
		count = 0
	}

	a.Log.Info("document saved",
		slog.String("path", path),
		slog.Int("pages", count),
	)
	return &Result{OutputPath: path, Pages: count, Warning: warn}, nil
}
