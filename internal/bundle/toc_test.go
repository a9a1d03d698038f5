package bundle

import (
	"strings"
	"testing"
)

func TestBuildTOC(t *testing.T) {
	t.Parallel()

	entries, err := Plan(inputs(5, 3), PlanOptions{BatesStart: 1, TOCPages: 1, CoverPages: 1})
	if err != nil {
		t.Fatal(err)
	}
	toc := BuildTOC(entries)
	if len(toc) != 2 {
		t.Fatalf("len = %d, want 2", len(toc))
	}
	if toc[1].Seq != 2 || toc[1].Title != "doc02.pdf" || toc[1].Target != 9 || toc[1].BatesStart != 6 || toc[1].BatesEnd != 8 {
		t.Errorf("toc[1] = %+v", toc[1])
	}
}

func TestTOCLayout_RowText(t *testing.T) {
	t.Parallel()

	l := DefaultTOCLayout(fixedMeasurer{perRune: 6}, BatesFormat{Prefix: "ABC", Digits: 4})
	tests := []struct {
		name  string
		entry TOCEntry
		want  string
	}{
		{"range", TOCEntry{Seq: 1, Title: "Contract.pdf", BatesStart: 1, BatesEnd: 5}, "1 - Contract.pdf [ABC0001 - ABC0005]"},
		{"single page", TOCEntry{Seq: 2, Title: "Note.pdf", BatesStart: 6, BatesEnd: 6}, "2 - Note.pdf [ABC0006]"},
		{"placeholder", TOCEntry{Seq: 3, Title: "Broken.docx", BatesStart: 7, BatesEnd: 6, Placeholder: true}, "3 - Broken.docx (omitted)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := l.RowText(tt.entry); got != tt.want {
				t.Errorf("RowText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTOCLayout_RowWraps(t *testing.T) {
	t.Parallel()

	l := testLayout()
	long := strings.Repeat("Deposition transcript volume ", 6) + ".pdf"
	row := l.Row(TOCEntry{Seq: 1, Title: long, StartPage: 3, BatesStart: 1, BatesEnd: 200})
	if len(row.Lines) < 2 {
		t.Fatalf("expected wrapping, got %d line(s)", len(row.Lines))
	}
	avail := l.ContentWidth() - l.width(row.PageLabel) - l.LeaderMin - l.Gap
	for i, line := range row.Lines {
		if w := l.width(line); w > avail {
			t.Errorf("line %d is %.0fpt wide, limit %.0fpt", i, w, avail)
		}
	}
	if row.Height != float64(len(row.Lines))*l.LineHeight+l.RowPadding {
		t.Errorf("Height = %v", row.Height)
	}
	if row.PageLabel != "3" {
		t.Errorf("PageLabel = %q", row.PageLabel)
	}
}

func TestTOCLayout_Paginate(t *testing.T) {
	t.Parallel()

	l := testLayout()
	mk := func(n int) []TOCEntry {
		out := make([]TOCEntry, n)
		for i := range out {
			out[i] = TOCEntry{Seq: i + 1, Title: "exhibit.pdf", StartPage: 3 + i, BatesStart: i + 1, BatesEnd: i + 1}
		}
		return out
	}

	tests := []struct {
		entries int
		pages   int
	}{
		{0, 1},
		{1, 1},
		{13, 1},
		{14, 2},
		{31, 2},
		{32, 3},
	}
	for _, tt := range tests {
		block := l.Paginate(mk(tt.entries))
		if len(block.Pages) != tt.pages {
			t.Errorf("%d entries: %d pages, want %d", tt.entries, len(block.Pages), tt.pages)
			continue
		}
		if !block.Pages[0].First {
			t.Errorf("%d entries: first page not marked", tt.entries)
		}
		rows := 0
		for pi, p := range block.Pages {
			if pi > 0 && p.First {
				t.Errorf("%d entries: page %d marked first", tt.entries, pi)
			}
			for _, r := range p.Rows {
				if r.Y < l.RowsTop(p.First) || r.Y+r.Height > l.PageHeight-l.Margin {
					t.Errorf("%d entries: row %d outside page %d (y=%v h=%v)", tt.entries, r.Entry.Seq, pi, r.Y, r.Height)
				}
				rows++
			}
		}
		if rows != tt.entries {
			t.Errorf("%d entries: %d rows placed", tt.entries, rows)
		}
	}
}

func TestTOCLayout_PageLabelWidthAffectsLength(t *testing.T) {
	t.Parallel()

	// "1 - <57 x> [000001]" is 70 runes: it fits beside a one-digit page
	// label (72 runes available) but not beside a four-digit one (69).
	l := testLayout()
	title := strings.Repeat("x", 57)
	short := l.Row(TOCEntry{Seq: 1, Title: title, StartPage: 2, BatesStart: 1, BatesEnd: 1})
	wide := l.Row(TOCEntry{Seq: 1, Title: title, StartPage: 2000, BatesStart: 1, BatesEnd: 1})
	if len(short.Lines) != 1 {
		t.Errorf("one-digit label: %d lines, want 1", len(short.Lines))
	}
	if len(wide.Lines) != 2 {
		t.Errorf("four-digit label: %d lines, want 2", len(wide.Lines))
	}
	if wide.Height <= short.Height {
		t.Errorf("wide row height %v not above %v", wide.Height, short.Height)
	}
}
