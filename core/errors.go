package core

import "fmt"

// SampleURLError indicates the sample URL does not match the expected
// pocketmags CDN path shape. Reported before any network activity.
type SampleURLError struct {
	URL    string
	Reason string
}

func (e *SampleURLError) Error() string {
	return fmt.Sprintf("sample URL %s: %s", e.URL, e.Reason)
}

// RangeError indicates an invalid caller-supplied page range.
type RangeError struct {
	From int
	To   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid page range %d-%d: from must be >= 1 and <= to", e.From, e.To)
}

// EmptyMagazineError indicates discovery found no pages at all:
// the very first probed page was absent.
type EmptyMagazineError struct {
	Page int
	URL  string
}

func (e *EmptyMagazineError) Error() string {
	return fmt.Sprintf("no pages found: page %d is absent (%s)", e.Page, e.URL)
}

// PageMissingError indicates a page inside the declared range was absent
// during real retrieval. The range promised the page exists, so this is
// fatal and no output is written.
type PageMissingError struct {
	Page int
	URL  string
}

func (e *PageMissingError) Error() string {
	return fmt.Sprintf("page %d missing: %s returned not found", e.Page, e.URL)
}

// TransportError indicates a network failure or an unexpected HTTP status.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// WatermarkEditError indicates the post-processor could not locate or
// modify the watermark on one or more pages. The edit is best-effort:
// the document is still written with this error reported alongside.
type WatermarkEditError struct {
	Pages []int
}

func (e *WatermarkEditError) Error() string {
	return fmt.Sprintf("watermark not found or not editable on pages %v", e.Pages)
}
