package bundle

import (
	"fmt"
)

// DefaultMaxTOCIterations caps the TOC page-count fixed point.
const DefaultMaxTOCIterations = 5

// PlanOptions configures one planning pass.
type PlanOptions struct {
	BatesStart int
	// TOCPages is the number of leading pages reserved for the table of contents.
	TOCPages int
	// CoverPages is 0 or 1 per document.
	CoverPages int
}

func (o PlanOptions) validate() error {
	if o.BatesStart < 0 {
		return fmt.Errorf("%w: bates start %d is negative", ErrInvalidPlan, o.BatesStart)
	}
	if o.TOCPages < 0 {
		return fmt.Errorf("%w: toc pages %d is negative", ErrInvalidPlan, o.TOCPages)
	}
	if o.CoverPages != 0 && o.CoverPages != 1 {
		return fmt.Errorf("%w: cover pages must be 0 or 1, got %d", ErrInvalidPlan, o.CoverPages)
	}
	return nil
}

// cursor is the fold state threaded through a planning pass.
type cursor struct {
	page  int
	bates int
}

// Plan assigns absolute pages and Bates ranges in a single forward pass.
// The result depends only on the order of items and on opts.
func Plan(items []PlanInput, opts PlanOptions) ([]PlanEntry, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	cur := cursor{page: opts.TOCPages + 1, bates: opts.BatesStart}
	entries := make([]PlanEntry, 0, len(items))
	for i, it := range items {
		var e PlanEntry
		var err error
		e, cur, err = planOne(it, i+1, cur, opts.CoverPages)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func planOne(it PlanInput, seq int, cur cursor, coverPages int) (PlanEntry, cursor, error) {
	e := PlanEntry{Doc: it.Doc, Seq: seq, Placeholder: it.Placeholder}
	if it.Placeholder {
		// One un-numbered page, whether or not covers are enabled.
		e.CoverPage = cur.page
		e.StartPage = cur.page
		e.EndPage = cur.page
		e.BatesStart = cur.bates
		e.BatesEnd = cur.bates - 1
		cur.page++
		return e, cur, nil
	}
	if it.PageCount <= 0 {
		return e, cur, fmt.Errorf("%w: %s has %d pages", ErrInvalidPlan, it.Doc.Path, it.PageCount)
	}
	if coverPages > 0 {
		e.CoverPage = cur.page
	}
	e.PageCount = it.PageCount
	e.StartPage = cur.page + coverPages
	e.EndPage = e.StartPage + it.PageCount - 1
	e.BatesStart = cur.bates
	e.BatesEnd = cur.bates + it.PageCount - 1
	cur.page = e.EndPage + 1
	cur.bates = e.BatesEnd + 1
	return e, cur, nil
}

// TOCPaginator reports how many physical pages a TOC with the given entries needs.
type TOCPaginator interface {
	PageCount(entries []TOCEntry) int
}

// PaginatorFunc adapts a function to TOCPaginator.
type PaginatorFunc func(entries []TOCEntry) int

func (f PaginatorFunc) PageCount(entries []TOCEntry) int { return f(entries) }

// StablePlan is a plan whose reserved TOC length matches the TOC it produces.
type StablePlan struct {
	Entries    []PlanEntry
	TOC        []TOCEntry
	TOCPages   int
	Iterations int
}

// TotalPages is the page count of the whole bundle.
func (p StablePlan) TotalPages() int {
	if len(p.Entries) == 0 {
		return p.TOCPages
	}
	return p.Entries[len(p.Entries)-1].EndPage
}

// PlanStable re-runs Plan until the TOC page count it implies equals the
// count it reserved. opts.TOCPages is the provisional estimate; values below
// one are raised to one. Exceeding maxIter yields PlanningInconsistencyError.
func PlanStable(items []PlanInput, opts PlanOptions, pg TOCPaginator, maxIter int) (StablePlan, error) {
	if maxIter <= 0 {
		maxIter = DefaultMaxTOCIterations
	}
	if opts.TOCPages < 1 {
		opts.TOCPages = 1
	}
	seen := make([]int, 0, maxIter)
	for i := 1; i <= maxIter; i++ {
		entries, err := Plan(items, opts)
		if err != nil {
			return StablePlan{}, err
		}
		toc := BuildTOC(entries)
		need := pg.PageCount(toc)
		if need < 1 {
			need = 1
		}
		if need == opts.TOCPages {
			return StablePlan{Entries: entries, TOC: toc, TOCPages: need, Iterations: i}, nil
		}
		seen = append(seen, opts.TOCPages)
		opts.TOCPages = need
	}
	return StablePlan{}, &PlanningInconsistencyError{
		Reason:     fmt.Sprintf("toc page count did not settle (tried %v, last need %d)", seen, opts.TOCPages),
		Iterations: maxIter,
	}
}
