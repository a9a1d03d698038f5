// Package bundle assembles an ordered set of source documents into a single
// paginated, Bates-numbered PDF with a table of contents and bookmarks.
package bundle

import (
	"fmt"
	"sync"
)

// Kind tells the pipeline whether a source must go through conversion.
type Kind int

const (
	KindNativePDF Kind = iota
	KindConvertible
)

func (k Kind) String() string {
	switch k {
	case KindNativePDF:
		return "pdf"
	case KindConvertible:
		return "convertible"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// SourceDocument is one input file. Order is assigned by the caller and is
// the bundle order.
type SourceDocument struct {
	Path  string
	Title string
	Kind  Kind
	Order int
}

// ConvertedDocument is the page-addressable PDF form of a SourceDocument.
// It owns any intermediate file it points at until Release is called.
type ConvertedDocument struct {
	Source    SourceDocument
	PDFPath   string
	PageCount int

	once    sync.Once
	release func() error
}

// Release removes intermediate files owned by the document. Safe to call
// more than once and on nil.
func (d *ConvertedDocument) Release() error {
	if d == nil || d.release == nil {
		return nil
	}
	var err error
	d.once.Do(func() { err = d.release() })
	return err
}

// PlanInput is one element of the ordered list fed to the planner.
type PlanInput struct {
	Doc       SourceDocument
	PageCount int
	// Placeholder marks a skipped document that keeps a single
	// un-numbered page at its position.
	Placeholder bool
}

// PlanEntry is the resolved position of one document in the final bundle.
// Absolute pages are 1-based. CoverPage is 0 when the document has no cover.
// A placeholder has PageCount 0 and an empty Bates range (BatesEnd == BatesStart-1).
type PlanEntry struct {
	Doc         SourceDocument
	Seq         int
	PageCount   int
	CoverPage   int
	StartPage   int
	EndPage     int
	BatesStart  int
	BatesEnd    int
	Placeholder bool
}

// FirstPage is the first absolute page occupied by the entry.
func (e PlanEntry) FirstPage() int {
	if e.CoverPage > 0 {
		return e.CoverPage
	}
	return e.StartPage
}

// HasBates reports whether any page of the entry carries a Bates label.
func (e PlanEntry) HasBates() bool { return e.PageCount > 0 }

// TOCEntry is the table-of-contents view of a PlanEntry.
type TOCEntry struct {
	Seq         int
	Title       string
	StartPage   int
	BatesStart  int
	BatesEnd    int
	Placeholder bool
	// Target is the absolute page the TOC link and bookmark jump to.
	Target int
}

// StampedDocument is a converted document with Bates labels overlaid.
type StampedDocument struct {
	Entry  PlanEntry
	Path   string
	Labels []string

	release func() error
}

// Release removes the stamped intermediate file.
func (s *StampedDocument) Release() error {
	if s == nil || s.release == nil {
		return nil
	}
	r := s.release
	s.release = nil
	return r()
}

// CoverPage is the rendered text of one cover or placeholder page.
type CoverPage struct {
	Heading     string
	Number      string
	Title       string
	BatesRange  string
	Placeholder bool
}

// Part is one document's contribution to the bundle, in final order.
type Part struct {
	Entry   PlanEntry
	Cover   *CoverPage
	Stamped *StampedDocument
}

// Bookmark points at an absolute page of the bundle.
type Bookmark struct {
	Title string
	Page  int
}

// Bundle is the fully planned output handed to a Writer.
type Bundle struct {
	TOCTitle   string
	TOCDate    string
	Layout     TOCLayout
	TOC        TOCBlock
	Parts      []Part
	Bookmarks  []Bookmark
	TotalPages int
}
