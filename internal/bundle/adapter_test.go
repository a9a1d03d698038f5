package bundle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

// scriptedConverter writes a fake PDF with the configured page count, or
// fails, or waits for cancellation.
type scriptedConverter struct {
	pages int
	err   error
	hang  bool
	dirs  []string
}

func (c *scriptedConverter) ConvertToPDF(ctx context.Context, in, outDir string) (string, error) {
	c.dirs = append(c.dirs, outDir)
	if c.hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if c.err != nil {
		return "", c.err
	}
	out := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))+".pdf")
	content := "garbage"
	if c.pages >= 0 {
		content = strconv.Itoa(c.pages)
	}
	return out, os.WriteFile(out, []byte(content), 0o644)
}

func docxFixture(t *testing.T) (SourceDocument, string) {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "Statement.docx")
	if err := os.WriteFile(p, []byte("docx"), 0o644); err != nil {
		t.Fatal(err)
	}
	return SourceDocument{Path: p, Title: "Statement.docx", Kind: KindConvertible}, dir
}

func assertGone(t *testing.T, dirs []string) {
	t.Helper()
	for _, d := range dirs {
		if _, err := os.Stat(d); !os.IsNotExist(err) {
			t.Errorf("scratch dir %s not removed", d)
		}
	}
}

func TestAdapter_NativePDF(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := &Adapter{Counter: fileCounter{}, WorkDir: dir}
	p := writePDF(t, dir, "Contract.pdf", 5)

	cd, err := a.Convert(context.Background(), SourceDocument{Path: p, Kind: KindNativePDF})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if cd.PDFPath != p || cd.PageCount != 5 {
		t.Errorf("converted = %+v", cd)
	}
	if err := cd.Release(); err != nil {
		t.Errorf("Release() error = %v", err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Errorf("Release removed the source pdf: %v", err)
	}
}

func TestAdapter_UnreadablePDF(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := &Adapter{Counter: fileCounter{}, WorkDir: dir}
	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(dir, "missing.pdf")},
		{"zero pages", writePDF(t, dir, "empty.pdf", 0)},
		{"corrupt", func() string {
			p := filepath.Join(dir, "corrupt.pdf")
			_ = os.WriteFile(p, []byte("%PDF-garbage"), 0o644)
			return p
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := a.Convert(context.Background(), SourceDocument{Path: tt.path, Kind: KindNativePDF})
			var ue *UnreadablePdfError
			if !errors.As(err, &ue) || ue.Path != tt.path {
				t.Fatalf("error = %v, want UnreadablePdfError for %s", err, tt.path)
			}
			if !IsRecoverable(err) {
				t.Error("unreadable pdf should be recoverable")
			}
		})
	}
}

func TestAdapter_Convertible(t *testing.T) {
	t.Parallel()

	doc, dir := docxFixture(t)
	conv := &scriptedConverter{pages: 2}
	a := &Adapter{Converter: conv, Counter: fileCounter{}, WorkDir: dir}

	cd, err := a.Convert(context.Background(), doc)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if cd.PageCount != 2 || filepath.Dir(cd.PDFPath) != conv.dirs[0] {
		t.Errorf("converted = %+v", cd)
	}
	if !strings.HasPrefix(filepath.Base(conv.dirs[0]), WorkspacePrefix) {
		t.Errorf("scratch dir %s lacks workspace prefix", conv.dirs[0])
	}
	if err := cd.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	assertGone(t, conv.dirs)
}

func TestAdapter_ConversionFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		conv    *scriptedConverter
		timeout time.Duration
		want    string
	}{
		{"converter error", &scriptedConverter{err: errors.New("soffice crashed")}, time.Second, "soffice crashed"},
		{"timeout", &scriptedConverter{hang: true}, 20 * time.Millisecond, "timed out"},
		{"corrupt output", &scriptedConverter{pages: -1}, time.Second, "unreadable pdf"},
		{"empty output", &scriptedConverter{pages: 0}, time.Second, "no pages"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, dir := docxFixture(t)
			a := &Adapter{Converter: tt.conv, Counter: fileCounter{}, Timeout: tt.timeout, WorkDir: dir}
			_, err := a.Convert(context.Background(), doc)

			var ce *ConversionError
			if !errors.As(err, &ce) {
				t.Fatalf("error = %v, want ConversionError", err)
			}
			if ce.Path != doc.Path || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want path %s and %q", err, doc.Path, tt.want)
			}
			assertGone(t, tt.conv.dirs)
		})
	}
}

func TestAdapter_MissingConvertible(t *testing.T) {
	t.Parallel()

	a := &Adapter{Converter: &scriptedConverter{pages: 1}, Counter: fileCounter{}, WorkDir: t.TempDir()}
	_, err := a.Convert(context.Background(), SourceDocument{Path: "/nonexistent/x.docx", Kind: KindConvertible})
	var ce *ConversionError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want ConversionError", err)
	}
}
