package bundle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// BatesFormat renders Bates numbers as <Prefix><zero-padded number>.
type BatesFormat struct {
	Prefix string
	Digits int
}

// Label formats a single Bates number.
func (f BatesFormat) Label(n int) string {
	return fmt.Sprintf("%s%0*d", f.Prefix, f.Digits, n)
}

// Range formats an inclusive Bates range. Empty ranges render as "".
func (f BatesFormat) Range(start, end int) string {
	if end < start {
		return ""
	}
	if start == end {
		return f.Label(start)
	}
	return f.Label(start) + " - " + f.Label(end)
}

// Labels returns the Bates label of every content page of e, in page order.
func Labels(e PlanEntry, f BatesFormat) []string {
	if !e.HasBates() {
		return nil
	}
	out := make([]string, 0, e.PageCount)
	for n := e.BatesStart; n <= e.BatesEnd; n++ {
		out = append(out, f.Label(n))
	}
	return out
}

// Overlayer draws text labels on top of existing pages. labels is keyed by
// 1-based page number; pages not in the map are copied untouched.
type Overlayer interface {
	Overlay(ctx context.Context, inPath, outPath string, labels map[int]string) error
}

// PageCounter returns the page count of a PDF file.
type PageCounter interface {
	CountPages(ctx context.Context, path string) (int, error)
}

// Stamper overlays Bates labels on converted documents.
type Stamper struct {
	Format  BatesFormat
	Overlay Overlayer
	Counter PageCounter
	WorkDir string
}

// Stamp writes a copy of doc with one label per page of e. It fails with
// StampError if the document's actual page count differs from the plan.
func (s *Stamper) Stamp(ctx context.Context, doc *ConvertedDocument, e PlanEntry) (*StampedDocument, error) {
	actual, err := s.Counter.CountPages(ctx, doc.PDFPath)
	if err != nil {
		return nil, &StampError{Path: doc.Source.Path, Planned: e.PageCount, Cause: err}
	}
	if actual != e.PageCount || doc.PageCount != e.PageCount {
		return nil, &StampError{Path: doc.Source.Path, Planned: e.PageCount, Actual: actual}
	}

	labels := Labels(e, s.Format)
	byPage := make(map[int]string, len(labels))
	for i, l := range labels {
		page := i + 1
		if page > actual {
			return nil, &StampError{Path: doc.Source.Path, Planned: e.PageCount, Actual: actual}
		}
		byPage[page] = l
	}

	out := filepath.Join(s.WorkDir, fmt.Sprintf("stamped_%04d.pdf", e.Seq))
	if err := s.Overlay.Overlay(ctx, doc.PDFPath, out, byPage); err != nil {
		_ = os.Remove(out)
		return nil, &StampError{Path: doc.Source.Path, Planned: e.PageCount, Actual: actual, Cause: err}
	}
	return &StampedDocument{
		Entry:   e,
		Path:    out,
		Labels:  labels,
		release: func() error { return os.Remove(out) },
	}, nil
}
