// Package pdfops implements the low-level PDF capabilities the bundle
// pipeline relies on: page counting, label overlay and final rendering.
package pdfops

import (
	"context"
	"fmt"
	"os"
	"strings"

	fitz "github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// Keep pdfcpu from creating a config directory in the user's home.
	api.DisableConfigDir()
}

// Counter names accepted by NewCounter.
const (
	CounterPdfcpu = "pdfcpu"
	CounterMuPDF  = "mupdf"
)

// PdfcpuCounter counts pages with pdfcpu. In strict mode the file is fully
// validated first so corrupt documents are rejected up front.
type PdfcpuCounter struct {
	Strict bool
}

func (c PdfcpuCounter) config() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// CountPages implements bundle.PageCounter.
func (c PdfcpuCounter) CountPages(ctx context.Context, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if c.Strict {
		if err := api.ValidateFile(path, c.config()); err != nil {
			return 0, fmt.Errorf("pdf validation failed: %w", err)
		}
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	n, err := api.PageCount(f, c.config())
	if err != nil {
		return 0, fmt.Errorf("pdf page count failed: %w", err)
	}
	return n, nil
}

// FitzCounter counts pages with MuPDF, which tolerates damaged files that
// pdfcpu rejects.
type FitzCounter struct{}

// CountPages implements bundle.PageCounter.
func (FitzCounter) CountPages(ctx context.Context, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	doc, err := fitz.New(path)
	if err != nil {
		return 0, fmt.Errorf("mupdf open failed: %w", err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}

// Counter is the page counting capability.
type Counter interface {
	CountPages(ctx context.Context, path string) (int, error)
}

// NewCounter returns the counter registered under name.
func NewCounter(name string, strict bool) (Counter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", CounterPdfcpu:
		return PdfcpuCounter{Strict: strict}, nil
	case CounterMuPDF:
		return FitzCounter{}, nil
	default:
		return nil, fmt.Errorf("unknown page counter %q", name)
	}
}
