package bundle

import (
	"bytes"
	"fmt"
	"strconv"
	"text/template"
)

// CoverTemplate holds text/template strings for the lines of a cover page.
// Templates see CoverData.
type CoverTemplate struct {
	Heading string
	Title   string
	Range   string
}

// CoverData is the template input for one cover page.
type CoverData struct {
	Seq        int
	Title      string
	BatesRange string
	BatesStart string
	BatesEnd   string
	Pages      int
}

// DefaultCoverTemplate mirrors a classic exhibit index cover.
var DefaultCoverTemplate = CoverTemplate{
	Heading: "DOCUMENT INDEX",
	Title:   "{{.Title}}",
	Range:   "{{.BatesRange}}",
}

type compiledCover struct {
	heading, title, rng *template.Template
}

func (t CoverTemplate) compile() (*compiledCover, error) {
	parse := func(name, text string) (*template.Template, error) {
		tpl, err := template.New(name).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("cover template %s: %w", name, err)
		}
		return tpl, nil
	}
	var c compiledCover
	var err error
	if c.heading, err = parse("heading", t.Heading); err != nil {
		return nil, err
	}
	if c.title, err = parse("title", t.Title); err != nil {
		return nil, err
	}
	if c.rng, err = parse("range", t.Range); err != nil {
		return nil, err
	}
	return &c, nil
}

func execute(tpl *template.Template, data CoverData) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (c *compiledCover) render(e PlanEntry, f BatesFormat) (CoverPage, error) {
	data := CoverData{
		Seq:        e.Seq,
		Title:      e.Doc.Title,
		BatesRange: f.Range(e.BatesStart, e.BatesEnd),
		Pages:      e.PageCount,
	}
	if e.HasBates() {
		data.BatesStart = f.Label(e.BatesStart)
		data.BatesEnd = f.Label(e.BatesEnd)
	}
	page := CoverPage{Number: strconv.Itoa(e.Seq), Placeholder: e.Placeholder}
	var err error
	if page.Heading, err = execute(c.heading, data); err != nil {
		return CoverPage{}, err
	}
	if page.Title, err = execute(c.title, data); err != nil {
		return CoverPage{}, err
	}
	if e.Placeholder {
		page.BatesRange = "Document omitted from this bundle"
		return page, nil
	}
	if page.BatesRange, err = execute(c.rng, data); err != nil {
		return CoverPage{}, err
	}
	return page, nil
}

// Render fills the template for e.
func (t CoverTemplate) Render(e PlanEntry, f BatesFormat) (CoverPage, error) {
	c, err := t.compile()
	if err != nil {
		return CoverPage{}, err
	}
	return c.render(e, f)
}
