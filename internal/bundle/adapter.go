package bundle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// DefaultConvertTimeout bounds a single external conversion.
const DefaultConvertTimeout = 3 * time.Minute

// DocumentConverter is the external word-processor to PDF capability. It
// writes the PDF into outDir and returns its path.
type DocumentConverter interface {
	ConvertToPDF(ctx context.Context, inputPath, outDir string) (string, error)
}

// CountPages counts the pages of doc's PDF. Parse failures and empty
// documents are reported as UnreadablePdfError.
func CountPages(ctx context.Context, c PageCounter, doc *ConvertedDocument) (int, error) {
	n, err := c.CountPages(ctx, doc.PDFPath)
	if err != nil {
		return 0, &UnreadablePdfError{Path: doc.Source.Path, Cause: err}
	}
	if n <= 0 {
		return 0, &UnreadablePdfError{Path: doc.Source.Path, Cause: errors.New("document has no pages")}
	}
	return n, nil
}

// Adapter turns SourceDocuments into ConvertedDocuments.
type Adapter struct {
	Converter DocumentConverter
	Counter   PageCounter
	Timeout   time.Duration
	// WorkDir receives one scratch directory per conversion.
	WorkDir string
}

// Convert produces the PDF form of doc with its page count resolved.
// Native PDFs are used in place; convertible inputs are converted under a
// bounded wait, and any scratch output is removed on failure.
func (a *Adapter) Convert(ctx context.Context, doc SourceDocument) (*ConvertedDocument, error) {
	if _, err := os.Stat(doc.Path); err != nil {
		if doc.Kind == KindNativePDF {
			return nil, &UnreadablePdfError{Path: doc.Path, Cause: err}
		}
		return nil, &ConversionError{Path: doc.Path, Cause: err}
	}

	switch doc.Kind {
	case KindNativePDF:
		cd := &ConvertedDocument{Source: doc, PDFPath: doc.Path}
		n, err := CountPages(ctx, a.Counter, cd)
		if err != nil {
			return nil, err
		}
		cd.PageCount = n
		return cd, nil
	case KindConvertible:
		return a.convert(ctx, doc)
	default:
		return nil, &ConversionError{Path: doc.Path, Cause: fmt.Errorf("unsupported input kind %s", doc.Kind)}
	}
}

func (a *Adapter) convert(ctx context.Context, doc SourceDocument) (_ *ConvertedDocument, err error) {
	if a.Converter == nil {
		return nil, &ConversionError{Path: doc.Path, Cause: errors.New("no document converter configured")}
	}
	dir, err := os.MkdirTemp(a.WorkDir, WorkspacePrefix+"convert-*")
	if err != nil {
		return nil, &ConversionError{Path: doc.Path, Cause: fmt.Errorf("create scratch dir: %w", err)}
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(dir)
		}
	}()

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultConvertTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := a.Converter.ConvertToPDF(cctx, doc.Path, dir)
	if err != nil {
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", timeout, err)
		}
		return nil, &ConversionError{Path: doc.Path, Cause: err}
	}

	cd := &ConvertedDocument{
		Source:  doc,
		PDFPath: out,
		release: func() error { return os.RemoveAll(dir) },
	}
	n, err := CountPages(ctx, a.Counter, cd)
	if err != nil {
		// Corrupt converter output is a conversion failure.
		return nil, &ConversionError{Path: doc.Path, Cause: err}
	}
	cd.PageCount = n
	return cd, nil
}
