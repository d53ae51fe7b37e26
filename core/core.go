// Package core defines the shared types and stage interfaces for
// pocketmagstopdf. Each stage of the download/assembly pipeline works
// against these, keeping the stages small and testable.
package core

import (
	"context"
	"fmt"
	"time"
)

// LastPage is the sentinel value for an unresolved upper page bound.
// A job whose To equals LastPage means "download to the end" and triggers
// discovery probing.
const LastPage = 9999

// Quality is a closed enumeration of the delivery tiers pocketmags serves.
// Every tier-dependent decision (URL segment, file extension, whole-document
// vs. per-page retrieval) switches exhaustively on it, so adding a tier is a
// localized, compile-checked change.
type Quality int

const (
	QualityExtraLow Quality = iota
	QualityLow
	QualityMid
	QualityHigh
	QualityExtraHigh
	QualityOriginal
)

// ParseQuality maps a --quality flag value onto a Quality.
func ParseQuality(s string) (Quality, error) {
	switch s {
	case "extralow":
		return QualityExtraLow, nil
	case "low":
		return QualityLow, nil
	case "mid":
		return QualityMid, nil
	case "high":
		return QualityHigh, nil
	case "extrahigh":
		return QualityExtraHigh, nil
	case "original":
		return QualityOriginal, nil
	default:
		return 0, fmt.Errorf("unknown quality %q (want extralow, low, mid, high, extrahigh or original)", s)
	}
}

// Segment returns the URL path segment identifying the tier on the CDN.
func (q Quality) Segment() string {
	switch q {
	case QualityExtraLow:
		return "extralow"
	case QualityLow:
		return "low"
	case QualityMid:
		return "mid"
	case QualityHigh:
		return "high"
	case QualityExtraHigh:
		return "extrahigh"
	case QualityOriginal:
		return "pdf"
	}
	return "unknown"
}

// Ext returns the file extension the CDN uses for this tier.
func (q Quality) Ext() string {
	switch q {
	case QualityExtraLow, QualityLow, QualityMid:
		return "jpg"
	case QualityHigh, QualityExtraHigh:
		return "bin"
	case QualityOriginal:
		return "pdf"
	}
	return "unknown"
}

// WholeDocument reports whether this tier delivers one pre-paginated
// document instead of per-page raster images.
func (q Quality) WholeDocument() bool {
	return q == QualityOriginal
}

func (q Quality) String() string {
	if q == QualityOriginal {
		return "original"
	}
	return q.Segment()
}

// WatermarkMode is the policy for the per-user watermark embedded in
// original-tier pages.
type WatermarkMode int

const (
	// WatermarkKeep leaves the watermark untouched.
	WatermarkKeep WatermarkMode = iota
	// WatermarkHide renders the watermark invisible but keeps it in the
	// page structure.
	WatermarkHide
	// WatermarkDestroy removes the watermark from the page content.
	// Takes precedence over WatermarkHide when both are requested.
	WatermarkDestroy
)

func (m WatermarkMode) String() string {
	switch m {
	case WatermarkHide:
		return "hide"
	case WatermarkDestroy:
		return "destroy"
	}
	return "keep"
}

// PageRange is an inclusive pair of 1-based page numbers.
type PageRange struct {
	From int
	To   int
}

// Count returns the number of pages in the range.
func (r PageRange) Count() int {
	return r.To - r.From + 1
}

// Unbounded reports whether the upper bound is the LastPage sentinel,
// i.e. still needs discovery.
func (r PageRange) Unbounded() bool {
	return r.To >= LastPage
}

// Job is the resolved, validated configuration for one download run.
// It is built once by the command layer and passed by pointer to every
// stage; no stage mutates it.
type Job struct {
	OutputPath string
	SampleURL  string
	Quality    Quality
	DPI        float64
	Range      PageRange
	Delay      time.Duration
	Title      string

	SaveImages   bool
	SubdirPrefix string
	SubdirSuffix string

	Token           string
	Watermark       WatermarkMode
	ChangeTimestamp bool
}

// FetchResult holds the outcome of one page fetch.
// Found distinguishes an existing page from the CDN's "no such page"
// signal; a transport failure is reported as an error instead.
type FetchResult struct {
	URL        string
	StatusCode int
	Found      bool
	Body       []byte
}

// Fetcher retrieves raw bytes for a page URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// WaitPolicy is the inter-request delay applied before each fetch.
// Injected so tests can swap it for a no-op instead of sleeping.
type WaitPolicy interface {
	Wait()
}

// SleepWait blocks for a fixed duration before each request.
type SleepWait struct {
	Delay time.Duration
}

func (w SleepWait) Wait() {
	if w.Delay > 0 {
		time.Sleep(w.Delay)
	}
}

// NoWait never delays. Used for the single original-tier fetch and in tests.
type NoWait struct{}

func (NoWait) Wait() {}
