package filetype

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func writeZip(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("content.bin")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("payload")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestDetect(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pdf := filepath.Join(dir, "a.pdf")
	if err := os.WriteFile(pdf, []byte("%PDF-1.4\n%%EOF\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rtf := filepath.Join(dir, "b.rtf")
	if err := os.WriteFile(rtf, []byte(`{\rtf1\ansi hello}`), 0o644); err != nil {
		t.Fatal(err)
	}
	docx := filepath.Join(dir, "c.docx")
	writeZip(t, docx)
	zipFile := filepath.Join(dir, "d.zip")
	writeZip(t, zipFile)

	tests := []struct {
		path  string
		class Class
	}{
		{pdf, ClassPDF},
		{rtf, ClassWordProcessor},
		{docx, ClassWordProcessor},
		{zipFile, ClassUnsupported},
	}
	d := New()
	for _, tt := range tests {
		info, err := d.Detect(tt.path)
		if err != nil {
			t.Fatalf("Detect(%s) error = %v", filepath.Base(tt.path), err)
		}
		if info.Class != tt.class {
			t.Errorf("Detect(%s) class = %s (%s), want %s", filepath.Base(tt.path), info.Class, info.MIMEType, tt.class)
		}
	}

	if _, err := d.Detect(filepath.Join(dir, "missing.pdf")); err == nil {
		t.Error("Detect() on missing file succeeded")
	}
}
