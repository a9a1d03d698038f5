package bundle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// fixedMeasurer gives every rune the same width.
type fixedMeasurer struct{ perRune float64 }

func (m fixedMeasurer) Width(text string, size float64) float64 {
	return float64(len([]rune(text))) * m.perRune
}

func testLayout() TOCLayout {
	return DefaultTOCLayout(fixedMeasurer{perRune: 6}, BatesFormat{Digits: 6})
}

// writePDF writes a stand-in PDF whose content is its page count.
func writePDF(t *testing.T, dir, name string, pages int) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(strconv.Itoa(pages)), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

// fileCounter reads the page count stored by writePDF.
type fileCounter struct{}

func (fileCounter) CountPages(_ context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("not a pdf: %w", err)
	}
	return n, nil
}

// copyOverlay records the labels and copies the input unchanged.
type copyOverlay struct {
	mu     sync.Mutex
	calls  map[string]map[int]string
	failOn string
}

func (o *copyOverlay) Overlay(_ context.Context, in, out string, labels map[int]string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.calls == nil {
		o.calls = make(map[string]map[int]string)
	}
	o.calls[in] = labels
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	if o.failOn != "" && strings.HasSuffix(in, o.failOn) {
		return errors.New("overlay failed")
	}
	return nil
}

// fakeConverter serves native PDFs via fileCounter and fails the paths in errs.
type fakeConverter struct {
	errs  map[string]error
	block map[string]bool
}

func (c *fakeConverter) Convert(ctx context.Context, doc SourceDocument) (*ConvertedDocument, error) {
	if c.block[filepath.Base(doc.Path)] {
		<-ctx.Done()
		return nil, &ConversionError{Path: doc.Path, Cause: ctx.Err()}
	}
	if err, ok := c.errs[filepath.Base(doc.Path)]; ok {
		return nil, err
	}
	cd := &ConvertedDocument{Source: doc, PDFPath: doc.Path}
	n, err := CountPages(ctx, fileCounter{}, cd)
	if err != nil {
		return nil, err
	}
	cd.PageCount = n
	return cd, nil
}

// countWriter writes a file holding the bundle's page count.
type countWriter struct {
	got   *Bundle
	pages int // overrides TotalPages when non-zero
	calls int
}

func (w *countWriter) Write(_ context.Context, path string, b *Bundle) error {
	w.calls++
	w.got = b
	n := b.TotalPages
	if w.pages != 0 {
		n = w.pages
	}
	return os.WriteFile(path, []byte(strconv.Itoa(n)), 0o644)
}

type renamePublisher struct{}

func (renamePublisher) Publish(_ context.Context, localPath, dest string) error {
	return os.Rename(localPath, dest)
}

type recordingMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
	runErr   error
	runs     int
}

func (m *recordingMetrics) ObserveDocument(outcome string, pages int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = make(map[string]int)
	}
	m.outcomes[outcome]++
}

func (m *recordingMetrics) ObserveConversion(Kind, time.Duration, error) {}

func (m *recordingMetrics) ObserveRun(_ *Report, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
	m.runErr = err
}

func docsFor(paths ...string) []SourceDocument {
	out := make([]SourceDocument, 0, len(paths))
	for i, p := range paths {
		out = append(out, SourceDocument{Path: p, Title: filepath.Base(p), Kind: KindNativePDF, Order: i})
	}
	return out
}
