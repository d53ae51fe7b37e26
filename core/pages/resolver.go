// Package pages resolves the concrete page range to download.
// An explicit upper bound is trusted as given; the LastPage sentinel
// triggers sequential discovery probing, stopping at the first page the
// CDN reports absent.
package pages

import (
	"context"
	"log/slog"

	"github.com/RichardJRL/pocketmagstopdf/core"
	"github.com/RichardJRL/pocketmagstopdf/core/urltmpl"
)

// Resolve turns the requested range into a concrete one.
//
// Validation happens before any network access. If the upper bound is
// explicit the range is returned as given, even if it overshoots the real
// last page; retrieval will then fail on the missing page rather than
// silently clamping. Probing uses the supplied template, which callers
// derive at the extralow tier: discovery only needs existence, so the
// cheapest variant does.
func Resolve(ctx context.Context, rng core.PageRange, probe *urltmpl.Template, f core.Fetcher, log *slog.Logger) (core.PageRange, error) {
	if rng.From < 1 || (!rng.Unbounded() && rng.From > rng.To) {
		return core.PageRange{}, &core.RangeError{From: rng.From, To: rng.To}
	}

	if !rng.Unbounded() {
		log.Debug("using explicit page range",
			slog.Int("from", rng.From),
			slog.Int("to", rng.To),
		)
		return rng, nil
	}

	log.Info("discovering last page", slog.Int("from", rng.From))

	// Probing is capped at the sentinel itself; a source claiming more
	// pages than that is beyond what the URL scheme can express anyway.
	last := 0
	for page := rng.From; page <= core.LastPage; page++ {
		url := probe.PageURL(page)
		res, err := f.Fetch(ctx, url)
		if err != nil {
			return core.PageRange{}, err
		}
		if !res.Found {
			if page == rng.From {
				return core.PageRange{}, &core.EmptyMagazineError{Page: page, URL: url}
			}
			break
		}
		last = page
		log.Debug("page exists", slog.Int("page", page))
	}

	log.Info("last page found", slog.Int("to", last))
	return core.PageRange{From: rng.From, To: last}, nil
}
