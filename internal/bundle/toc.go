package bundle

import (
	"strconv"
	"strings"
)

// BuildTOC derives one TOC entry per plan entry, in bundle order.
func BuildTOC(plan []PlanEntry) []TOCEntry {
	out := make([]TOCEntry, 0, len(plan))
	for _, e := range plan {
		out = append(out, TOCEntry{
			Seq:         e.Seq,
			Title:       e.Doc.Title,
			StartPage:   e.StartPage,
			BatesStart:  e.BatesStart,
			BatesEnd:    e.BatesEnd,
			Placeholder: e.Placeholder,
			Target:      e.StartPage,
		})
	}
	return out
}

// Measurer returns the rendered width of text at the given font size, in
// the same unit as TOCLayout.
type Measurer interface {
	Width(text string, size float64) float64
}

// TOCLayout describes the geometry of TOC pages, in points. Pagination and
// rendering both derive row positions from it.
type TOCLayout struct {
	PageWidth    float64
	PageHeight   float64
	Margin       float64
	HeaderHeight float64 // title, date and divider on the first page
	ColumnHeight float64 // "Document" / "Page" header, repeated on every page
	LineHeight   float64
	RowPadding   float64
	FontSize     float64
	LeaderMin    float64 // minimum room kept for the dotted leader
	Gap          float64

	Bates    BatesFormat
	Measurer Measurer
}

// DefaultTOCLayout is a US Letter layout with one-inch margins.
func DefaultTOCLayout(m Measurer, f BatesFormat) TOCLayout {
	return TOCLayout{
		PageWidth:    612,
		PageHeight:   792,
		Margin:       72,
		HeaderHeight: 160,
		ColumnHeight: 30,
		LineHeight:   14,
		RowPadding:   20,
		FontSize:     11,
		LeaderMin:    24,
		Gap:          6,
		Bates:        f,
		Measurer:     m,
	}
}

// TOCRow is one positioned entry. Y is the top of the row on its page.
type TOCRow struct {
	Entry     TOCEntry
	Lines     []string
	PageLabel string
	Y         float64
	Height    float64
}

// TOCPage holds the rows drawn on one physical TOC page.
type TOCPage struct {
	First bool
	Rows  []TOCRow
}

// TOCBlock is the paginated table of contents.
type TOCBlock struct {
	Pages []TOCPage
}

// ContentWidth is the printable width between margins.
func (l TOCLayout) ContentWidth() float64 { return l.PageWidth - 2*l.Margin }

// RowsTop is the y coordinate where rows start on a page.
func (l TOCLayout) RowsTop(first bool) float64 {
	top := l.Margin + l.ColumnHeight
	if first {
		top += l.HeaderHeight
	}
	return top
}

// RowText is the left column text of an entry before wrapping.
func (l TOCLayout) RowText(e TOCEntry) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(e.Seq))
	b.WriteString(" - ")
	b.WriteString(e.Title)
	if e.Placeholder {
		b.WriteString(" (omitted)")
	} else if r := l.Bates.Range(e.BatesStart, e.BatesEnd); r != "" {
		b.WriteString(" [")
		b.WriteString(r)
		b.WriteString("]")
	}
	return b.String()
}

func (l TOCLayout) width(s string) float64 {
	if l.Measurer == nil {
		return 0
	}
	return l.Measurer.Width(s, l.FontSize)
}

// wrap greedily breaks text into lines no wider than maxWidth.
func (l TOCLayout) wrap(text string, maxWidth float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		cand := line + " " + w
		if l.width(cand) <= maxWidth {
			line = cand
			continue
		}
		lines = append(lines, line)
		line = w
	}
	return append(lines, line)
}

// Row measures a single entry. The usable title width shrinks with the
// width of the page label, which is why TOC length depends on numbering.
func (l TOCLayout) Row(e TOCEntry) TOCRow {
	label := strconv.Itoa(e.StartPage)
	avail := l.ContentWidth() - l.width(label) - l.LeaderMin - l.Gap
	lines := l.wrap(l.RowText(e), avail)
	return TOCRow{
		Entry:     e,
		Lines:     lines,
		PageLabel: label,
		Height:    float64(len(lines))*l.LineHeight + l.RowPadding,
	}
}

// Paginate lays rows onto pages without splitting a row. An empty TOC
// still occupies one page.
func (l TOCLayout) Paginate(entries []TOCEntry) TOCBlock {
	bottom := l.PageHeight - l.Margin
	page := TOCPage{First: true}
	y := l.RowsTop(true)
	var block TOCBlock
	for _, e := range entries {
		row := l.Row(e)
		if y+row.Height > bottom && len(page.Rows) > 0 {
			block.Pages = append(block.Pages, page)
			page = TOCPage{}
			y = l.RowsTop(false)
		}
		row.Y = y
		y += row.Height
		page.Rows = append(page.Rows, row)
	}
	block.Pages = append(block.Pages, page)
	return block
}

// PageCount implements TOCPaginator.
func (l TOCLayout) PageCount(entries []TOCEntry) int {
	return len(l.Paginate(entries).Pages)
}
