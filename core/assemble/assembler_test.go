package assemble

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/jung-kurt/gofpdf"

	"github.com/RichardJRL/pocketmagstopdf/core"
	"github.com/RichardJRL/pocketmagstopdf/core/output"
	"github.com/RichardJRL/pocketmagstopdf/core/postprocess"
	"github.com/RichardJRL/pocketmagstopdf/core/urltmpl"
)

const sampleURL = "https://cdn.test/mcmags/abc1-23/def4-56/extralow/0007.jpg"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeFetcher struct {
	pages map[string][]byte
	fail  map[string]error
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*core.FetchResult, error) {
	f.calls = append(f.calls, url)
	if err := f.fail[url]; err != nil {
		return nil, err
	}
	body, ok := f.pages[url]
	if !ok {
		return &core.FetchResult{URL: url, StatusCode: 404}, nil
	}
	return &core.FetchResult{URL: url, StatusCode: 200, Found: true, Body: body}, nil
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 200, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding test jpeg: %v", err)
	}
	return buf.Bytes()
}

func pdfBytes(t *testing.T, pages int, text string) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "pt", "A4", "")
	for i := 0; i < pages; i++ {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "", 12)
		pdf.Text(72, 72, text)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("building test pdf: %v", err)
	}
	return buf.Bytes()
}

func newAssembler(t *testing.T, f core.Fetcher, outPath string) *Assembler {
	t.Helper()
	w, err := output.New(outPath)
	if err != nil {
		t.Fatalf("output writer: %v", err)
	}
	return &Assembler{
		Fetcher:  f,
		Writer:   w,
		Editor:   postprocess.New(testLogger()),
		Log:      testLogger(),
		Progress: io.Discard,
	}
}

func rasterJob(outPath string, from, to int) *core.Job {
	return &core.Job{
		OutputPath: outPath,
		SampleURL:  sampleURL,
		Quality:    core.QualityMid,
		DPI:        150,
		Range:      core.PageRange{From: from, To: to},
	}
}

func midURL(t *testing.T, page int) string {
	t.Helper()
	tmpl, err := urltmpl.Derive(sampleURL, core.QualityMid)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	return tmpl.PageURL(page)
}

func TestRasterAssembly(t *testing.T) {
	out := filepath.Join(t.TempDir(), "issue.pdf")

	f := &fakeFetcher{pages: map[string][]byte{}, fail: map[string]error{}}
	for p := 1; p <= 3; p++ {
		f.pages[midURL(t, p)] = jpegBytes(t, 40, 60)
	}

	a := newAssembler(t, f, out)
	res, err := a.Run(context.Background(), rasterJob(out, 1, 3))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if res.Pages != 3 {
		t.Fatalf("pages = %d, want 3", res.Pages)
	}
	data, err := os.ReadFile(res.OutputPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	count, err := postprocess.PageCount(data)
	if err != nil {
		t.Fatalf("page count: %v", err)
	}
	if count != 3 {
		t.Fatalf("document pages = %d, want 3", count)
	}

	// Pages fetched strictly in ascending order.
	want := []string{midURL(t, 1), midURL(t, 2), midURL(t, 3)}
	if len(f.calls) != len(want) {
		t.Fatalf("fetches = %v, want %v", f.calls, want)
	}
	for i := range want {
		if f.calls[i] != want[i] {
			t.Fatalf("fetch %d = %s, want %s", i, f.calls[i], want[i])
		}
	}
}

func TestRasterAssemblyWithDiscovery(t *testing.T) {
	out := filepath.Join(t.TempDir(), "issue.pdf")

	probe, err := urltmpl.Derive(sampleURL, core.QualityExtraLow)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}

	f := &fakeFetcher{pages: map[string][]byte{}, fail: map[string]error{}}
	for p := 1; p <= 2; p++ {
		f.pages[probe.PageURL(p)] = []byte("probe")
		f.pages[midURL(t, p)] = jpegBytes(t, 40, 60)
	}

	a := newAssembler(t, f, out)
	res, err := a.Run(context.Background(), rasterJob(out, 1, core.LastPage))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Pages != 2 {
		t.Fatalf("pages = %d, want 2", res.Pages)
	}
}

func TestRasterMissingInRangePageIsFatal(t *testing.T) {
	out := filepath.Join(t.TempDir(), "issue.pdf")

	f := &fakeFetcher{pages: map[string][]byte{}, fail: map[string]error{}}
	f.pages[midURL(t, 1)] = jpegBytes(t, 40, 60)
	// Page 2 absent although the range promises 1-3.

	a := newAssembler(t, f, out)
	_, err := a.Run(context.Background(), rasterJob(out, 1, 3))

	var merr *core.PageMissingError
	if !errors.As(err, &merr) {
		t.Fatalf("error = %v, want PageMissingError", err)
	}
	if merr.Page != 2 {
		t.Fatalf("missing page = %d, want 2", merr.Page)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("no output must be written on failure, stat: %v", statErr)
	}
}

func TestRasterTransportErrorDiscardsWork(t *testing.T) {
	out := filepath.Join(t.TempDir(), "issue.pdf")

	f := &fakeFetcher{pages: map[string][]byte{}, fail: map[string]error{}}
	f.pages[midURL(t, 1)] = jpegBytes(t, 40, 60)
	f.fail[midURL(t, 2)] = &core.TransportError{URL: midURL(t, 2), StatusCode: 500}

	a := newAssembler(t, f, out)
	_, err := a.Run(context.Background(), rasterJob(out, 1, 2))

	var terr *core.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %v, want TransportError", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("no output must be written on failure, stat: %v", statErr)
	}
}

func TestRasterSaveImages(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "issue.pdf")

	f := &fakeFetcher{pages: map[string][]byte{}, fail: map[string]error{}}
	for p := 1; p <= 2; p++ {
		f.pages[midURL(t, p)] = jpegBytes(t, 40, 60)
	}

	job := rasterJob(out, 1, 2)
	job.SaveImages = true
	job.SubdirPrefix = "img-"
	job.SubdirSuffix = "-pages"

	a := newAssembler(t, f, out)
	res, err := a.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	wantDir := filepath.Join(dir, "img-issue-pages")
	if res.ImageDir != wantDir {
		t.Fatalf("image dir = %s, want %s", res.ImageDir, wantDir)
	}
	for _, name := range []string{"0001.jpg", "0002.jpg"} {
		if _, err := os.Stat(filepath.Join(wantDir, name)); err != nil {
			t.Fatalf("image %s: %v", name, err)
		}
	}
}

func TestOriginalTier(t *testing.T) {
	out := filepath.Join(t.TempDir(), "issue.pdf")
	token := "9e3ee986-cafe-4679-bf58-ebe1151852e3"

	tmpl, err := urltmpl.Derive(sampleURL, core.QualityOriginal)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	docURL := tmpl.DocumentURL(token)

	f := &fakeFetcher{
		pages: map[string][]byte{docURL: pdfBytes(t, 4, "Downloaded by "+token)},
		fail:  map[string]error{},
	}

	job := &core.Job{
		OutputPath: out,
		SampleURL:  sampleURL,
		Quality:    core.QualityOriginal,
		Range:      core.PageRange{From: 1, To: core.LastPage},
		Token:      token,
		Watermark:  core.WatermarkHide,
	}

	a := newAssembler(t, f, out)
	res, err := a.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(f.calls) != 1 || f.calls[0] != docURL {
		t.Fatalf("fetches = %v, want exactly one fetch of %s", f.calls, docURL)
	}
	if res.Pages != 4 {
		t.Fatalf("pages = %d, want 4 (server pagination preserved)", res.Pages)
	}
	if res.Warning != nil {
		t.Fatalf("unexpected warning: %v", res.Warning)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output missing: %v", err)
	}
}

func TestOriginalTierWatermarkMissReportedNotFatal(t *testing.T) {
	out := filepath.Join(t.TempDir(), "issue.pdf")
	token := "deadbeef-0000-4000-8000-000000000000"

	tmpl, err := urltmpl.Derive(sampleURL, core.QualityOriginal)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	docURL := tmpl.DocumentURL(token)

	// The document does not reference the token anywhere.
	f := &fakeFetcher{
		pages: map[string][]byte{docURL: pdfBytes(t, 2, "no watermark here")},
		fail:  map[string]error{},
	}

	job := &core.Job{
		OutputPath: out,
		SampleURL:  sampleURL,
		Quality:    core.QualityOriginal,
		Range:      core.PageRange{From: 1, To: core.LastPage},
		Token:      token,
		Watermark:  core.WatermarkDestroy,
	}

	a := newAssembler(t, f, out)
	res, err := a.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var werr *core.WatermarkEditError
	if !errors.As(res.Warning, &werr) {
		t.Fatalf("warning = %v, want WatermarkEditError", res.Warning)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output must still be written: %v", err)
	}
}

func TestEncoderPageSizeFollowsDPI(t *testing.T) {
	enc := NewEncoder(150, "Test Issue")
	img := func() []byte {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 300, 450)), nil); err != nil {
			t.Fatalf("jpeg: %v", err)
		}
		return buf.Bytes()
	}()

	if err := enc.AddPage(1, img); err != nil {
		t.Fatalf("add page: %v", err)
	}
	if enc.Pages() != 1 {
		t.Fatalf("pages = %d, want 1", enc.Pages())
	}
	data, err := enc.Bytes()
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}
	if count, err := postprocess.PageCount(data); err != nil || count != 1 {
		t.Fatalf("page count = %d (%v), want 1", count, err)
	}
}

func TestEncoderRejectsNonImagePayload(t *testing.T) {
	enc := NewEncoder(150, "")
	if err := enc.AddPage(1, []byte("<html>not an image</html>")); err == nil {
		t.Fatalf("expected error for non-JPEG payload")
	}
}
