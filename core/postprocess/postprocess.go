// Package postprocess applies the opt-in edits to an original-tier
// document: suppressing or removing the per-account watermark each page
// carries, and rewriting the document timestamps. All edits operate on
// the fully retrieved document in memory.
package postprocess

import (
	"bytes"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/RichardJRL/pocketmagstopdf/core"
)

// textBlockRE matches one text object in a page content stream.
var textBlockRE = regexp.MustCompile(`(?s)BT.*?ET`)

// renderModeRE matches text rendering mode operators inside a text object.
var renderModeRE = regexp.MustCompile(`\b[0-7]\s+Tr\b`)

// Edits describes the requested post-processing.
type Edits struct {
	Watermark       core.WatermarkMode
	Token           string
	ChangeTimestamp bool
}

// Editor rewrites original-tier documents.
type Editor struct {
	log *slog.Logger
}

// New creates an Editor.
func New(log *slog.Logger) *Editor {
	return &Editor{log: log}
}

// Apply returns the edited document. The watermark edit is best-effort:
// pages where the watermark could not be located are reported through
// warn as a WatermarkEditError while out remains a complete, usable
// document. err is reserved for failures that invalidate the edit.
func (e *Editor) Apply(in []byte, ed Edits) (out []byte, warn error, err error) {
	if ed.Watermark == core.WatermarkKeep && !ed.ChangeTimestamp {
		return in, nil, nil
	}

	ctx, err := api.ReadContext(bytes.NewReader(in), model.NewDefaultConfiguration())
	if err != nil {
		return nil, nil, fmt.Errorf("reading document: %w", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, nil, fmt.Errorf("validating document: %w", err)
	}

	if ed.Watermark != core.WatermarkKeep {
		warn, err = e.editWatermarks(ctx, ed)
		if err != nil {
			return nil, nil, err
		}
	}

	if ed.ChangeTimestamp {
		if err := e.touchTimestamps(ctx); err != nil {
			return nil, nil, err
		}
	}

	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, nil, fmt.Errorf("writing document: %w", err)
	}
	return buf.Bytes(), warn, nil
}

// editWatermarks walks every page looking for the text object that
// references the account token. Hide injects the invisible text rendering
// mode, keeping the watermark structurally present; destroy removes the
// whole text object. Destroy is experimental and may misfire on content
// the CDN encodes unusually, which is why misses are reported per page.
func (e *Editor) editWatermarks(ctx *model.Context, ed Edits) (error, error) {
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("counting pages: %w", err)
	}

	token := []byte(ed.Token)
	var missed []int

	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		edited, err := e.editPage(ctx, pageNr, token, ed.Watermark)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNr, err)
		}
		if !edited {
			missed = append(missed, pageNr)
			continue
		}
		e.log.Debug("watermark edited",
			slog.Int("page", pageNr),
			slog.String("mode", ed.Watermark.String()),
		)
	}

	if len(missed) > 0 {
		return &core.WatermarkEditError{Pages: missed}, nil
	}
	return nil, nil
}

func (e *Editor) editPage(ctx *model.Context, pageNr int, token []byte, mode core.WatermarkMode) (bool, error) {
	d, _, _, err := ctx.PageDict(pageNr, false)
	if err != nil {
		return false, err
	}

	o, found := d.Find("Contents")
	if !found {
		return false, nil
	}

	switch o := o.(type) {
	case types.IndirectRef:
		return e.editStream(ctx, o, token, mode)
	case types.Array:
		edited := false
		for _, obj := range o {
			ir, ok := obj.(types.IndirectRef)
			if !ok {
				continue
			}
			one, err := e.editStream(ctx, ir, token, mode)
			if err != nil {
				return false, err
			}
			edited = edited || one
		}
		return edited, nil
	}
	return false, nil
}

func (e *Editor) editStream(ctx *model.Context, ir types.IndirectRef, token []byte, mode core.WatermarkMode) (bool, error) {
	entry, found := ctx.FindTableEntryForIndRef(&ir)
	if !found || entry.Object == nil {
		return false, nil
	}
	sd, ok := entry.Object.(types.StreamDict)
	if !ok {
		return false, nil
	}

	if err := sd.Decode(); err != nil {
		return false, fmt.Errorf("decoding content stream: %w", err)
	}

	content, edited := rewriteContent(sd.Content, token, mode)
	if !edited {
		return false, nil
	}

	sd.Content = content
	if err := sd.Encode(); err != nil {
		return false, fmt.Errorf("encoding content stream: %w", err)
	}
	sd.Dict["Length"] = types.Integer(len(sd.Raw))
	entry.Object = sd
	return true, nil
}

// rewriteContent edits every text object containing the token.
func rewriteContent(content, token []byte, mode core.WatermarkMode) ([]byte, bool) {
	edited := false
	out := textBlockRE.ReplaceAllFunc(content, func(block []byte) []byte {
		if !bytes.Contains(block, token) {
			return block
		}
		edited = true
		switch mode {
		case core.WatermarkDestroy:
			return nil
		case core.WatermarkHide:
			// Neutralize any explicit rendering mode, then force the
			// invisible mode right after BT.
			block = renderModeRE.ReplaceAll(block, []byte("3 Tr"))
			return append([]byte("BT 3 Tr "), block[len("BT"):]...)
		}
		return block
	})
	return out, edited
}

// PageCount returns the number of pages in a PDF document.
func PageCount(data []byte) (int, error) {
	return api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
}

// touchTimestamps rewrites the document's creation and modification
// dates to now.
func (e *Editor) touchTimestamps(ctx *model.Context) error {
	now := types.StringLiteral(types.DateString(time.Now()))

	var d types.Dict
	if ctx.Info != nil {
		var err error
		d, err = ctx.DereferenceDict(*ctx.Info)
		if err != nil {
			return fmt.Errorf("resolving info dict: %w", err)
		}
	}
	if d == nil {
		d = types.NewDict()
		ir, err := ctx.IndRefForNewObject(d)
		if err != nil {
			return fmt.Errorf("creating info dict: %w", err)
		}
		ctx.Info = ir
	}

	d["CreationDate"] = now
	d["ModDate"] = now
	return nil
}
