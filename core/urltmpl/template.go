// Package urltmpl derives per-page URL templates from a single sample
// page URL copied out of the pocketmags HTML5 reader.
//
// Sample URLs look like:
//
//	https://mcdatastore.blob.core.windows.net/mcmags/<uuid>/<uuid>/low/0025.jpg
//
// The template keeps everything except the tier segment and the filename,
// substituting the requested tier and a page number zero-padded to the
// same width observed in the sample.
package urltmpl

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"

	"github.com/RichardJRL/pocketmagstopdf/core"
)

// samplePathRE matches the CDN path of a magazine page image.
var samplePathRE = regexp.MustCompile(
	`^(?P<prefix>/mcmags/[0-9a-fA-F-]+/[0-9a-fA-F-]+)/(?P<tier>extralow|low|mid|high|extrahigh)/(?P<num>[0-9]+)\.(?:jpg|bin)$`)

// Template generates concrete page URLs for one magazine issue at one
// quality tier. Construction is pure: no network access.
type Template struct {
	base    url.URL // sample URL with the path cleared; host, scheme and query survive
	prefix  string  // path up to but excluding the tier segment
	quality core.Quality
	width   int // zero-padding width observed in the sample filename
	sample  int // page number of the sample URL
}

// Derive builds a Template from a sample page URL and a target tier.
// It verifies self-consistency: re-substituting the sample's own tier and
// page number must reproduce the sample URL byte for byte.
func Derive(sampleURL string, q core.Quality) (*Template, error) {
	u, err := url.Parse(sampleURL)
	if err != nil {
		return nil, &core.SampleURLError{URL: sampleURL, Reason: err.Error()}
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, &core.SampleURLError{URL: sampleURL, Reason: "missing scheme or host"}
	}

	m := samplePathRE.FindStringSubmatch(u.Path)
	if m == nil {
		return nil, &core.SampleURLError{URL: sampleURL, Reason: "path does not match the expected /mcmags/<uuid>/<uuid>/<tier>/<num>.<ext> shape"}
	}
	prefix, tier, num := m[1], m[2], m[3]

	sample, err := strconv.Atoi(num)
	if err != nil {
		return nil, &core.SampleURLError{URL: sampleURL, Reason: "page number is not numeric"}
	}

	t := &Template{
		base:    *u,
		prefix:  prefix,
		quality: q,
		width:   len(num),
		sample:  sample,
	}

	// Self-consistency: the sample's own tier must round-trip exactly.
	sampleTier, err := core.ParseQuality(tier)
	if err != nil {
		return nil, &core.SampleURLError{URL: sampleURL, Reason: err.Error()}
	}
	if got := t.pageURL(sampleTier, sample); got != sampleURL {
		return nil, &core.SampleURLError{URL: sampleURL, Reason: fmt.Sprintf("template does not reproduce sample URL (got %s)", got)}
	}

	return t, nil
}

// PageURL returns the URL of the given 1-based page at the template's tier.
func (t *Template) PageURL(page int) string {
	return t.pageURL(t.quality, page)
}

// DocumentURL returns the whole-document URL for the original tier.
// The tier segment becomes "pdf" and the filename stem is the account
// token instead of a page number.
func (t *Template) DocumentURL(token string) string {
	u := t.base
	u.Path = fmt.Sprintf("%s/%s/%s.%s", t.prefix, core.QualityOriginal.Segment(), token, core.QualityOriginal.Ext())
	return u.String()
}

// SamplePage returns the page number the sample URL pointed at.
func (t *Template) SamplePage() int {
	return t.sample
}

// Width returns the zero-padding width observed in the sample filename.
func (t *Template) Width() int {
	return t.width
}

func (t *Template) pageURL(q core.Quality, page int) string {
	u := t.base
	u.Path = fmt.Sprintf("%s/%s/%0*d.%s", t.prefix, q.Segment(), t.width, page, q.Ext())
	return u.String()
}
