// Package source discovers the input documents of a bundle.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfbinder/internal/bundle"
	"github.com/local/pdfbinder/internal/converter"
	"github.com/local/pdfbinder/internal/filetype"
)

// Options controls directory scanning.
type Options struct {
	// Exclude lists absolute paths never picked up (the output file, the work dir).
	Exclude []string
}

// Scan lists the bundle inputs of dir in case-insensitive name order.
// Subdirectories are not descended into.
func Scan(dir string, det *filetype.Detector, opts Options) ([]bundle.SourceDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}
	excluded := make(map[string]bool, len(opts.Exclude))
	for _, p := range opts.Exclude {
		if abs, err := filepath.Abs(p); err == nil {
			excluded[abs] = true
		}
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".pdf" && !converter.IsSupported(ext) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if abs, err := filepath.Abs(p); err == nil && excluded[abs] {
			continue
		}
		paths = append(paths, p)
	}
	sort.SliceStable(paths, func(i, j int) bool {
		a, b := strings.ToLower(filepath.Base(paths[i])), strings.ToLower(filepath.Base(paths[j]))
		if a == b {
			return paths[i] < paths[j]
		}
		return a < b
	})

	docs := make([]bundle.SourceDocument, 0, len(paths))
	for i, p := range paths {
		docs = append(docs, bundle.SourceDocument{
			Path:  p,
			Title: filepath.Base(p),
			Kind:  kindOf(det, p),
			Order: i,
		})
	}
	return docs, nil
}

// kindOf prefers magic bytes and falls back to the extension, so a
// mislabelled file is still routed and a corrupt one fails in the pipeline.
func kindOf(det *filetype.Detector, path string) bundle.Kind {
	if det != nil {
		info, err := det.Detect(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("file type detection failed; using extension")
		} else {
			switch info.Class {
			case filetype.ClassPDF:
				return bundle.KindNativePDF
			case filetype.ClassWordProcessor:
				return bundle.KindConvertible
			}
		}
	}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return bundle.KindNativePDF
	}
	return bundle.KindConvertible
}
