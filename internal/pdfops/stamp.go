package pdfops

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// StampStyle controls how Bates labels look.
type StampStyle struct {
	Font       string
	FontSize   int
	Position   string // pdfcpu anchor: bl, bc, br, tl, tc, tr
	OffsetX    float64
	OffsetY    float64
	Color      string
	Background string
	Margin     int
}

// DefaultStampStyle puts a black Helvetica label on a light grey box in the
// bottom-right corner.
func DefaultStampStyle() StampStyle {
	return StampStyle{
		Font:       "Helvetica",
		FontSize:   14,
		Position:   "br",
		OffsetX:    -20,
		OffsetY:    20,
		Color:      "#000000",
		Background: "#E6E6E6",
		Margin:     4,
	}
}

// Description renders the style in pdfcpu's watermark description syntax.
func (s StampStyle) Description() string {
	parts := []string{
		"font:" + s.Font,
		fmt.Sprintf("points:%d", s.FontSize),
		"pos:" + s.Position,
		fmt.Sprintf("off:%g %g", s.OffsetX, s.OffsetY),
		"scale:1 abs",
		"rot:0",
		"opacity:1",
	}
	if s.Color != "" {
		parts = append(parts, "fillc:"+s.Color)
	}
	if s.Background != "" {
		parts = append(parts, "bgcol:"+s.Background)
		if s.Margin > 0 {
			parts = append(parts, fmt.Sprintf("margins:%d", s.Margin))
		}
	}
	return strings.Join(parts, ", ")
}

// PdfcpuStamper overlays per-page text stamps with pdfcpu. Page content is
// kept; each label is added as a stamp on top.
type PdfcpuStamper struct {
	Style StampStyle
}

func (s PdfcpuStamper) config() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	// Classic xref tables keep the output importable by the bundle writer.
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	return conf
}

// Overlay implements bundle.Overlayer.
func (s PdfcpuStamper) Overlay(ctx context.Context, inPath, outPath string, labels map[int]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(labels) == 0 {
		return fmt.Errorf("no labels to stamp on %s", inPath)
	}
	desc := s.Style.Description()
	m := make(map[int]*model.Watermark, len(labels))
	for page, label := range labels {
		wm, err := api.TextWatermark(label, desc, true, false, types.POINTS)
		if err != nil {
			return fmt.Errorf("build stamp for page %d: %w", page, err)
		}
		m[page] = wm
	}
	if err := api.AddWatermarksMapFile(inPath, outPath, m, s.config()); err != nil {
		return fmt.Errorf("add stamps: %w", err)
	}
	return nil
}
