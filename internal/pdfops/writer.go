package pdfops

import (
	"context"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"

	"github.com/local/pdfbinder/internal/bundle"
)

// DefaultFont is the core font used for TOC and cover pages.
const DefaultFont = "Helvetica"

// Measurer measures text with gofpdf's core font metrics so TOC pagination
// matches what FpdfWriter draws.
type Measurer struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

// NewMeasurer returns a measurer for the given core font family.
func NewMeasurer(font string) *Measurer {
	if font == "" {
		font = DefaultFont
	}
	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.SetFont(font, "", 11)
	return &Measurer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

// Width implements bundle.Measurer.
func (m *Measurer) Width(text string, size float64) float64 {
	m.pdf.SetFontSize(size)
	return m.pdf.GetStringWidth(m.tr(text))
}

// FpdfWriter renders a planned bundle: TOC pages with internal links, cover
// pages, imported stamped pages and one outline entry per document.
type FpdfWriter struct {
	Font string
}

type pageHooks struct {
	links     map[int][]int
	bookmarks map[int][]string
}

type render struct {
	pdf   *gofpdf.Fpdf
	tr    func(string) string
	font  string
	l     bundle.TOCLayout
	hooks pageHooks
	ids   map[int]int // entry seq -> link id
}

// Write implements bundle.Writer.
func (w FpdfWriter) Write(ctx context.Context, path string, b *bundle.Bundle) error {
	font := w.Font
	if font == "" {
		font = DefaultFont
	}
	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(b.Layout.Margin, b.Layout.Margin, b.Layout.Margin)
	pdf.SetTitle(b.TOCTitle, true)
	pdf.SetCreator("pdfbinder", true)

	r := &render{
		pdf:  pdf,
		tr:   pdf.UnicodeTranslatorFromDescriptor(""),
		font: font,
		l:    b.Layout,
		hooks: pageHooks{
			links:     make(map[int][]int),
			bookmarks: make(map[int][]string),
		},
		ids: make(map[int]int, len(b.Parts)),
	}
	for _, p := range b.Parts {
		id := pdf.AddLink()
		r.ids[p.Entry.Seq] = id
		r.hooks.links[p.Entry.StartPage] = append(r.hooks.links[p.Entry.StartPage], id)
	}
	for _, bm := range b.Bookmarks {
		r.hooks.bookmarks[bm.Page] = append(r.hooks.bookmarks[bm.Page], bm.Title)
	}

	for _, page := range b.TOC.Pages {
		r.tocPage(b, page)
	}

	imp := gofpdi.NewImporter()
	for _, p := range b.Parts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.Cover != nil {
			r.cover(*p.Cover)
		}
		if p.Stamped != nil {
			if err := r.importPages(imp, p.Stamped.Path, len(p.Stamped.Labels)); err != nil {
				return err
			}
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render bundle: %w", err)
	}
	if got := pdf.PageNo(); got != b.TotalPages {
		return fmt.Errorf("rendered %d pages, expected %d", got, b.TotalPages)
	}
	return pdf.OutputFileAndClose(path)
}

// addPage starts a page and attaches any links or bookmarks targeting it.
func (r *render) addPage(wd, ht float64) {
	r.pdf.AddPageFormat("P", gofpdf.SizeType{Wd: wd, Ht: ht})
	n := r.pdf.PageNo()
	for _, id := range r.hooks.links[n] {
		r.pdf.SetLink(id, 0, -1)
	}
	for _, title := range r.hooks.bookmarks[n] {
		r.pdf.Bookmark(r.tr(title), 0, 0)
	}
}

func (r *render) tocPage(b *bundle.Bundle, page bundle.TOCPage) {
	l := r.l
	pdf := r.pdf
	cw := l.ContentWidth()
	r.addPage(l.PageWidth, l.PageHeight)

	y := l.Margin
	if page.First {
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont(r.font, "B", 16)
		pdf.SetXY(l.Margin, y)
		pdf.CellFormat(cw, 24, r.tr(b.TOCTitle), "", 0, "C", false, 0, "")
		pdf.SetFont(r.font, "I", 12)
		pdf.SetXY(l.Margin, y+44)
		pdf.CellFormat(cw, 18, r.tr(b.TOCDate), "", 0, "C", false, 0, "")
		pdf.SetDrawColor(180, 180, 180)
		pdf.Line(l.Margin+cw*0.2, y+92, l.Margin+cw*0.8, y+92)
		y += l.HeaderHeight
	}

	pdf.SetFont(r.font, "B", 12)
	pdf.SetXY(l.Margin, y)
	pdf.CellFormat(cw/2, l.ColumnHeight, "Document", "", 0, "L", false, 0, "")
	pdf.CellFormat(cw/2, l.ColumnHeight, "Page", "", 0, "R", false, 0, "")

	pdf.SetFont(r.font, "", l.FontSize)
	for _, row := range page.Rows {
		r.tocRow(row)
	}
}

func (r *render) tocRow(row bundle.TOCRow) {
	l := r.l
	pdf := r.pdf
	cw := l.ContentWidth()
	top := row.Y + l.RowPadding/2
	for i, line := range row.Lines {
		pdf.SetXY(l.Margin, top+float64(i)*l.LineHeight)
		pdf.CellFormat(cw, l.LineHeight, r.tr(line), "", 0, "L", false, 0, "")
	}

	last := row.Lines[len(row.Lines)-1]
	lastY := top + float64(len(row.Lines)-1)*l.LineHeight
	labelW := pdf.GetStringWidth(row.PageLabel)
	from := l.Margin + pdf.GetStringWidth(r.tr(last)) + l.Gap
	to := l.Margin + cw - labelW - l.Gap
	if dotW := pdf.GetStringWidth("."); dotW > 0 && to > from {
		dots := strings.Repeat(".", int((to-from)/dotW))
		pdf.SetXY(from, lastY)
		pdf.CellFormat(to-from, l.LineHeight, dots, "", 0, "R", false, 0, "")
	}
	pdf.SetXY(l.Margin+cw-labelW, lastY)
	pdf.CellFormat(labelW, l.LineHeight, row.PageLabel, "", 0, "R", false, 0, "")

	if id, ok := r.ids[row.Entry.Seq]; ok {
		pdf.Link(l.Margin, row.Y, cw, row.Height, id)
	}
}

func (r *render) cover(c bundle.CoverPage) {
	l := r.l
	pdf := r.pdf
	cw := l.ContentWidth()
	r.addPage(l.PageWidth, l.PageHeight)

	pdf.SetFont(r.font, "B", 12)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(l.Margin, l.Margin)
	pdf.CellFormat(cw, 16, r.tr(c.Heading), "", 0, "C", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont(r.font, "B", 18)
	pdf.SetXY(l.Margin, l.PageHeight/3)
	pdf.CellFormat(cw, 24, " "+c.Number+" ", "", 0, "C", false, 0, "")

	pdf.SetFont(r.font, "B", 24)
	pdf.SetXY(l.Margin, l.PageHeight/3+40)
	pdf.MultiCell(cw, 30, r.tr(c.Title), "", "C", false)

	if c.BatesRange != "" {
		style := ""
		if c.Placeholder {
			style = "I"
		}
		pdf.SetFont(r.font, style, 14)
		pdf.SetXY(l.Margin, pdf.GetY()+18)
		pdf.CellFormat(cw, 18, r.tr(c.BatesRange), "", 0, "C", false, 0, "")
	}

	y := pdf.GetY() + 42
	pdf.SetDrawColor(100, 100, 100)
	pdf.Line(l.Margin+cw*0.3, y, l.Margin+cw*0.7, y)
}

// importPages copies every page of a stamped PDF into the bundle. gofpdi
// panics on malformed input, so panics are turned into errors.
func (r *render) importPages(imp *gofpdi.Importer, path string, pages int) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("import %s: %v", path, rec)
		}
	}()
	for n := 1; n <= pages; n++ {
		tpl := imp.ImportPage(r.pdf, path, n, "/MediaBox")
		wd, ht := r.l.PageWidth, r.l.PageHeight
		if dims, ok := imp.GetPageSizes()[n]["/MediaBox"]; ok {
			wd, ht = dims["w"], dims["h"]
		}
		r.addPage(wd, ht)
		imp.UseImportedTemplate(r.pdf, tpl, 0, 0, wd, ht)
	}
	return nil
}
