// Package cmd — download command.
// This is the main command that orchestrates the pipeline:
// derive URL template → resolve page range → fetch → assemble → write.
//
// It handles flag validation, quality tier selection and the watermark
// directive precedence.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/RichardJRL/pocketmagstopdf/core"
	"github.com/RichardJRL/pocketmagstopdf/core/assemble"
	"github.com/RichardJRL/pocketmagstopdf/core/fetch"
	"github.com/RichardJRL/pocketmagstopdf/core/output"
	"github.com/RichardJRL/pocketmagstopdf/core/postprocess"
)

// Flag variables.
var (
	flagQuality      string
	flagDPI          float64
	flagFrom         int
	flagTo           int
	flagDelay        float64
	flagTitle        string
	flagSaveImages   bool
	flagSubdirPrefix string
	flagSubdirSuffix string
	flagToken        string
	flagRandomToken  bool
	flagHide         bool
	flagDestroy      bool
	flagTimestamp    bool
	flagVerbose      bool
	flagQuiet        bool
)

var downloadCmd = &cobra.Command{
	Use:   "download <pdf> <url>",
	Short: "Download a magazine issue and save it as a PDF",
	Long: `Download fetches every page of the magazine the sample URL belongs to,
at the chosen quality tier, and assembles them into a single PDF.

Raster tiers (extralow, low, mid, high, extrahigh) fetch one image per
page and re-encode them. The original tier fetches the publisher's own
pre-paginated PDF; page range, DPI and title do not apply to it, and the
watermark/timestamp flags become available.

Examples:
  pocketmagstopdf download issue.pdf "https://.../mcmags/<uuid>/<uuid>/mid/0001.jpg"
  pocketmagstopdf download issue.pdf <url> --quality high --from 1 --to 32
  pocketmagstopdf download issue.pdf <url> --quality original --token <uuid> --hide-watermark`,
	Args: cobra.ExactArgs(2),
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().StringVar(&flagQuality, "quality", "mid", "Quality tier: extralow, low, mid, high, extrahigh or original")
	downloadCmd.Flags().Float64Var(&flagDPI, "dpi", 150, "Image resolution in dots per inch (raster tiers)")
	downloadCmd.Flags().IntVar(&flagFrom, "from", 1, "First page to download (1-based)")
	downloadCmd.Flags().IntVar(&flagTo, "to", core.LastPage, "Last page to download; leave unset to download to the end")
	downloadCmd.Flags().Float64Var(&flagDelay, "delay", 0, "Seconds to wait before each page request")
	downloadCmd.Flags().StringVar(&flagTitle, "title", "", "PDF title metadata (raster tiers)")

	downloadCmd.Flags().BoolVar(&flagSaveImages, "save-images", false, "Also save each page image next to the PDF (raster tiers)")
	downloadCmd.Flags().StringVar(&flagSubdirPrefix, "subdir-prefix", "", "Prefix for the image directory name")
	downloadCmd.Flags().StringVar(&flagSubdirSuffix, "subdir-suffix", "", "Suffix for the image directory name")

	downloadCmd.Flags().StringVar(&flagToken, "token", "", "Account token embedded in original-tier URLs and watermarks")
	downloadCmd.Flags().BoolVar(&flagRandomToken, "random-token", false, "Use a freshly generated random token instead of --token")
	downloadCmd.Flags().BoolVar(&flagHide, "hide-watermark", false, "Render the watermark invisible (original tier)")
	downloadCmd.Flags().BoolVar(&flagDestroy, "destroy-watermark", false, "Remove the watermark entirely (original tier, experimental)")
	downloadCmd.Flags().BoolVar(&flagTimestamp, "change-timestamp", false, "Set the PDF creation/modification dates to now (original tier)")

	downloadCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Verbose progress output")
	downloadCmd.Flags().BoolVarP(&flagQuiet, "quiet", "q", false, "Errors only")
}

func runDownload(cmd *cobra.Command, args []string) error {
	pdfPath, sampleURL := args[0], args[1]

	job, err := buildJob(pdfPath, sampleURL)
	if err != nil {
		return err
	}

	log := newLogger()
	reportIgnoredFlags(job, log)

	// The original tier is a single fetch; the inter-page delay only
	// applies to the per-page loop and to discovery probing.
	wait := core.WaitPolicy(core.SleepWait{Delay: job.Delay})
	if job.Quality.WholeDocument() {
		wait = core.NoWait{}
	}

	writer, err := output.New(job.OutputPath)
	if err != nil {
		return err
	}

	a := &assemble.Assembler{
		Fetcher:  fetch.New(wait, log),
		Writer:   writer,
		Editor:   postprocess.New(log),
		Log:      log,
		Progress: os.Stdout,
	}

	result, err := a.Run(context.Background(), job)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "✓ Written: %s (%d pages)\n", result.OutputPath, result.Pages)
	if result.ImageDir != "" {
		fmt.Fprintf(os.Stdout, "✓ Images saved to: %s\n", result.ImageDir)
	}
	if result.Warning != nil {
		fmt.Fprintf(os.Stderr, "⚠ %v\n", result.Warning)
	}
	return nil
}

// buildJob validates the flags and resolves them into the immutable job.
// Everything here happens before any network activity.
func buildJob(pdfPath, sampleURL string) (*core.Job, error) {
	quality, err := core.ParseQuality(flagQuality)
	if err != nil {
		return nil, err
	}

	if flagDPI <= 0 {
		return nil, fmt.Errorf("--dpi must be positive (got %g)", flagDPI)
	}
	if flagDelay < 0 {
		return nil, fmt.Errorf("--delay cannot be negative (got %g)", flagDelay)
	}
	if flagFrom < 1 || (flagTo < core.LastPage && flagFrom > flagTo) {
		return nil, &core.RangeError{From: flagFrom, To: flagTo}
	}
	if flagVerbose && flagQuiet {
		return nil, fmt.Errorf("--verbose and --quiet are mutually exclusive")
	}
	if flagToken != "" && flagRandomToken {
		return nil, fmt.Errorf("--token and --random-token are mutually exclusive")
	}

	token := flagToken
	if flagRandomToken {
		token = uuid.NewString()
	}
	if quality.WholeDocument() && token == "" {
		return nil, fmt.Errorf("--quality=original requires --token or --random-token")
	}

	// Destroy takes precedence when both directives are requested.
	watermark := core.WatermarkKeep
	if flagHide {
		watermark = core.WatermarkHide
	}
	if flagDestroy {
		watermark = core.WatermarkDestroy
	}

	return &core.Job{
		OutputPath:      pdfPath,
		SampleURL:       sampleURL,
		Quality:         quality,
		DPI:             flagDPI,
		Range:           core.PageRange{From: flagFrom, To: flagTo},
		Delay:           time.Duration(flagDelay * float64(time.Second)),
		Title:           flagTitle,
		SaveImages:      flagSaveImages,
		SubdirPrefix:    flagSubdirPrefix,
		SubdirSuffix:    flagSubdirSuffix,
		Token:           token,
		Watermark:       watermark,
		ChangeTimestamp: flagTimestamp,
	}, nil
}

// reportIgnoredFlags logs the documented no-ops: original-tier requests
// ignore the raster-only options, and raster requests ignore the
// original-only edits.
func reportIgnoredFlags(job *core.Job, log *slog.Logger) {
	if job.Quality.WholeDocument() {
		if job.Range.From != 1 || !job.Range.Unbounded() {
			log.Warn("--from/--to have no effect with --quality=original")
		}
		if job.Title != "" {
			log.Warn("--title has no effect with --quality=original")
		}
		if job.SaveImages {
			log.Warn("--save-images has no effect with --quality=original")
		}
		return
	}
	if job.Watermark != core.WatermarkKeep || job.ChangeTimestamp {
		log.Warn("watermark and timestamp flags only apply with --quality=original")
	}
}

// newLogger builds the slog logger every component receives.
// Verbosity controls volume, not behavior.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch {
	case flagVerbose:
		level = slog.LevelDebug
	case flagQuiet:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
