package bundle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// WorkspacePrefix names the per-run scratch directory.
const WorkspacePrefix = "pdfbinder-"

// ErrNoDocuments is returned when nothing is left to bundle.
var ErrNoDocuments = errors.New("no documents to bundle")

// FailurePolicy decides what a recoverable per-document failure does to the run.
type FailurePolicy string

const (
	PolicyAbort FailurePolicy = "abort"
	PolicySkip  FailurePolicy = "skip"
)

// SkipMode decides what remains of a skipped document.
type SkipMode string

const (
	SkipRemove      SkipMode = "remove"
	SkipPlaceholder SkipMode = "placeholder"
)

// Document outcomes used in logs, metrics and reports.
const (
	OutcomeConverted   = "converted"
	OutcomeSkipped     = "skipped"
	OutcomeFailed      = "failed"
	OutcomePlaceholder = "placeholder"
	OutcomeCanceled    = "canceled"
)

// SourceConverter produces ConvertedDocuments; Adapter is the production one.
type SourceConverter interface {
	Convert(ctx context.Context, doc SourceDocument) (*ConvertedDocument, error)
}

// Writer renders a planned Bundle to a PDF file.
type Writer interface {
	Write(ctx context.Context, path string, b *Bundle) error
}

// Publisher moves the finished bundle to its destination.
type Publisher interface {
	Publish(ctx context.Context, localPath, dest string) error
}

// Metrics receives run observations. A nil Metrics is allowed.
type Metrics interface {
	ObserveDocument(outcome string, pages int)
	ObserveConversion(kind Kind, took time.Duration, err error)
	ObserveRun(r *Report, err error)
}

// Options are the user-facing settings of a run.
type Options struct {
	Bates            BatesFormat
	BatesStart       int
	IncludeCovers    bool
	Cover            CoverTemplate
	Policy           FailurePolicy
	SkipMode         SkipMode
	OutputPath       string
	TOCTitle         string
	MaxTOCIterations int
	ConvertWorkers   int
	WorkDir          string
}

// Dependencies are the capabilities the assembler drives.
type Dependencies struct {
	Converter SourceConverter
	Counter   PageCounter
	Overlay   Overlayer
	Layout    TOCLayout
	Writer    Writer
	Publisher Publisher
	Metrics   Metrics
	Now       func() time.Time
}

// Assembler runs the whole pipeline for one ordered list of documents.
type Assembler struct {
	opts Options
	deps Dependencies
}

func New(opts Options, deps Dependencies) *Assembler {
	if opts.Policy == "" {
		opts.Policy = PolicyAbort
	}
	if opts.SkipMode == "" {
		opts.SkipMode = SkipRemove
	}
	if opts.ConvertWorkers <= 0 {
		opts.ConvertWorkers = 1
	}
	if opts.MaxTOCIterations <= 0 {
		opts.MaxTOCIterations = DefaultMaxTOCIterations
	}
	if opts.TOCTitle == "" {
		opts.TOCTitle = "TABLE OF CONTENTS"
	}
	if opts.Cover == (CoverTemplate{}) {
		opts.Cover = DefaultCoverTemplate
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	return &Assembler{opts: opts, deps: deps}
}

// DocumentResult is the audit record of one source document.
type DocumentResult struct {
	Path       string `json:"path"`
	Title      string `json:"title"`
	Outcome    string `json:"outcome"`
	Pages      int    `json:"pages"`
	StartPage  int    `json:"start_page,omitempty"`
	BatesStart int    `json:"bates_start,omitempty"`
	BatesEnd   int    `json:"bates_end,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Report summarizes a run, successful or not.
type Report struct {
	RunID      string           `json:"run_id"`
	Output     string           `json:"output"`
	Documents  []DocumentResult `json:"documents"`
	TOCPages   int              `json:"toc_pages"`
	TotalPages int              `json:"total_pages"`
	Iterations int              `json:"toc_iterations"`
	Written    bool             `json:"written"`
	Started    time.Time        `json:"started"`
	Finished   time.Time        `json:"finished"`
}

// Skipped lists documents left out under the skip policy.
func (r *Report) Skipped() []DocumentResult {
	var out []DocumentResult
	for _, d := range r.Documents {
		if d.Outcome == OutcomeSkipped || d.Outcome == OutcomePlaceholder {
			out = append(out, d)
		}
	}
	return out
}

type conversion struct {
	doc  *ConvertedDocument
	err  error
	took time.Duration
}

// Run converts, plans, stamps, renders and publishes the bundle. On error
// nothing is published and all scratch files are removed.
func (a *Assembler) Run(ctx context.Context, docs []SourceDocument) (rep *Report, err error) {
	rep = &Report{RunID: uuid.NewString(), Output: a.opts.OutputPath, Started: a.deps.Now()}
	logger := log.With().Str("run_id", rep.RunID).Logger()
	audited := false
	defer func() {
		if err != nil && !audited {
			a.auditUnwritten(logger, rep)
		}
		rep.Finished = a.deps.Now()
		a.deps.Metrics.ObserveRun(rep, err)
	}()

	if len(docs) == 0 {
		return rep, ErrNoDocuments
	}

	ws, err := os.MkdirTemp(a.opts.WorkDir, WorkspacePrefix+"*")
	if err != nil {
		return rep, fmt.Errorf("create workspace: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(ws); rmErr != nil {
			logger.Warn().Err(rmErr).Str("dir", ws).Msg("failed to remove workspace")
		}
	}()
	logger.Info().Int("documents", len(docs)).Str("workspace", ws).Msg("bundle run started")

	convs := a.convertAll(ctx, docs)
	defer func() {
		for _, c := range convs {
			if relErr := c.doc.Release(); relErr != nil {
				logger.Warn().Err(relErr).Str("path", c.doc.Source.Path).Msg("failed to release converted document")
			}
		}
	}()
	items, byEntry, err := a.applyPolicy(logger, docs, convs, rep)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return rep, ctxErr
	}
	if err != nil {
		return rep, err
	}

	plan, err := PlanStable(items, PlanOptions{
		BatesStart: a.opts.BatesStart,
		TOCPages:   1,
		CoverPages: a.coverPages(),
	}, a.deps.Layout, a.opts.MaxTOCIterations)
	if err != nil {
		logger.Error().Err(err).Msg("planning failed")
		return rep, err
	}
	rep.TOCPages = plan.TOCPages
	rep.TotalPages = plan.TotalPages()
	rep.Iterations = plan.Iterations
	logger.Info().Int("toc_pages", plan.TOCPages).Int("iterations", plan.Iterations).
		Int("total_pages", rep.TotalPages).Msg("plan settled")

	b, err := a.compose(ctx, ws, plan, byEntry)
	if b != nil {
		defer func() {
			for _, p := range b.Parts {
				_ = p.Stamped.Release()
			}
		}()
	}
	if err != nil {
		logger.Error().Err(err).Str("path", DocumentPath(err)).Msg("bundle composition failed")
		return rep, err
	}

	tmp := filepath.Join(ws, "bundle.pdf")
	if err := a.deps.Writer.Write(ctx, tmp, b); err != nil {
		return rep, fmt.Errorf("write bundle: %w", err)
	}
	written, err := a.deps.Counter.CountPages(ctx, tmp)
	if err != nil {
		return rep, fmt.Errorf("verify bundle: %w", err)
	}
	if written != b.TotalPages {
		return rep, &PlanningInconsistencyError{
			Reason: fmt.Sprintf("bundle has %d pages, plan has %d", written, b.TotalPages),
		}
	}

	a.audit(logger, plan, rep)
	audited = true

	if err := a.deps.Publisher.Publish(ctx, tmp, a.opts.OutputPath); err != nil {
		return rep, fmt.Errorf("publish bundle: %w", err)
	}
	rep.Written = true
	logger.Info().Str("output", a.opts.OutputPath).Int("pages", rep.TotalPages).
		Int("skipped", len(rep.Skipped())).Msg("bundle written")
	return rep, nil
}

func (a *Assembler) coverPages() int {
	if a.opts.IncludeCovers {
		return 1
	}
	return 0
}

// convertAll converts every document, optionally in parallel. Results keep
// input order. Under the abort policy the first failure cancels the rest.
func (a *Assembler) convertAll(ctx context.Context, docs []SourceDocument) []conversion {
	out := make([]conversion, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.ConvertWorkers)
	for i, d := range docs {
		i, d := i, d
		g.Go(func() error {
			start := time.Now()
			cd, err := a.deps.Converter.Convert(gctx, d)
			out[i] = conversion{doc: cd, err: err, took: time.Since(start)}
			a.deps.Metrics.ObserveConversion(d.Kind, out[i].took, err)
			if err != nil && (a.opts.Policy == PolicyAbort || !IsRecoverable(err)) {
				return err
			}
			return nil
		})
	}
	// Failures are carried per document in out; applyPolicy reports them.
	_ = g.Wait()
	return out
}

// applyPolicy turns conversion results into planner input. byEntry holds the
// converted document for each planned entry, nil for placeholders.
func (a *Assembler) applyPolicy(logger zerolog.Logger, docs []SourceDocument, convs []conversion, rep *Report) ([]PlanInput, []*ConvertedDocument, error) {
	var (
		items     []PlanInput
		byEntry   []*ConvertedDocument
		firstErr  error
		cancelErr error
	)
	for i, c := range convs {
		d := docs[i]
		res := DocumentResult{Path: d.Path, Title: d.Title}
		switch {
		case c.err == nil:
			items = append(items, PlanInput{Doc: d, PageCount: c.doc.PageCount})
			byEntry = append(byEntry, c.doc)
			res.Outcome = OutcomeConverted
			res.Pages = c.doc.PageCount
		case errors.Is(c.err, context.Canceled):
			// Stopped because another document failed first or the run was interrupted.
			res.Outcome = OutcomeCanceled
			res.Error = c.err.Error()
			logger.Warn().Str("path", d.Path).Str("outcome", OutcomeCanceled).Msg("document conversion canceled")
			a.deps.Metrics.ObserveDocument(OutcomeCanceled, 0)
			if cancelErr == nil {
				cancelErr = c.err
			}
		case a.opts.Policy == PolicySkip && IsRecoverable(c.err):
			res.Error = c.err.Error()
			if a.opts.SkipMode == SkipPlaceholder {
				res.Outcome = OutcomePlaceholder
				items = append(items, PlanInput{Doc: d, Placeholder: true})
				byEntry = append(byEntry, nil)
			} else {
				res.Outcome = OutcomeSkipped
			}
			logger.Warn().Err(c.err).Str("path", d.Path).Str("outcome", res.Outcome).
				Msg("document skipped; following documents renumbered")
			a.deps.Metrics.ObserveDocument(res.Outcome, 0)
		default:
			res.Outcome = OutcomeFailed
			res.Error = c.err.Error()
			logger.Error().Err(c.err).Str("path", d.Path).Str("outcome", OutcomeFailed).Msg("document failed")
			a.deps.Metrics.ObserveDocument(OutcomeFailed, 0)
			if firstErr == nil {
				firstErr = c.err
			}
		}
		rep.Documents = append(rep.Documents, res)
	}
	if firstErr == nil {
		firstErr = cancelErr
	}
	if firstErr != nil {
		return nil, nil, firstErr
	}
	if len(items) == 0 {
		return nil, nil, ErrNoDocuments
	}
	return items, byEntry, nil
}

// compose stamps every document and lays out the final part order. It
// returns the partially built bundle on error so stamped files can be released.
func (a *Assembler) compose(ctx context.Context, ws string, plan StablePlan, byEntry []*ConvertedDocument) (*Bundle, error) {
	cover, err := a.opts.Cover.compile()
	if err != nil {
		return nil, err
	}
	stamper := &Stamper{Format: a.opts.Bates, Overlay: a.deps.Overlay, Counter: a.deps.Counter, WorkDir: ws}

	b := &Bundle{
		TOCTitle:   a.opts.TOCTitle,
		TOCDate:    a.deps.Now().Format("January 2, 2006"),
		Layout:     a.deps.Layout,
		TOC:        a.deps.Layout.Paginate(plan.TOC),
		TotalPages: plan.TotalPages(),
	}
	if len(b.TOC.Pages) != plan.TOCPages {
		return b, &PlanningInconsistencyError{
			Reason: fmt.Sprintf("toc renders %d pages, plan reserved %d", len(b.TOC.Pages), plan.TOCPages),
		}
	}

	for i, e := range plan.Entries {
		if err := ctx.Err(); err != nil {
			return b, err
		}
		part := Part{Entry: e}
		if e.Placeholder || a.opts.IncludeCovers {
			cp, err := cover.render(e, a.opts.Bates)
			if err != nil {
				return b, fmt.Errorf("render cover for %s: %w", e.Doc.Path, err)
			}
			part.Cover = &cp
		}
		if !e.Placeholder {
			st, err := stamper.Stamp(ctx, byEntry[i], e)
			if err != nil {
				return b, err
			}
			part.Stamped = st
		}
		b.Parts = append(b.Parts, part)
		b.Bookmarks = append(b.Bookmarks, Bookmark{
			Title: fmt.Sprintf("%d - %s", e.Seq, e.Doc.Title),
			Page:  e.StartPage,
		})
	}
	return b, nil
}

// audit writes one line per planned document and fills the report ranges.
func (a *Assembler) audit(logger zerolog.Logger, plan StablePlan, rep *Report) {
	byPath := make(map[string]*DocumentResult, len(rep.Documents))
	for i := range rep.Documents {
		byPath[rep.Documents[i].Path] = &rep.Documents[i]
	}
	for _, e := range plan.Entries {
		res := byPath[e.Doc.Path]
		if res == nil {
			continue
		}
		res.StartPage = e.StartPage
		ev := logger.Info().Str("outcome", res.Outcome).Str("path", e.Doc.Path).
			Int("seq", e.Seq).Int("start_page", e.StartPage).Int("pages", e.PageCount)
		if e.HasBates() {
			res.BatesStart, res.BatesEnd = e.BatesStart, e.BatesEnd
			ev = ev.Str("bates", a.opts.Bates.Range(e.BatesStart, e.BatesEnd))
		}
		ev.Msg("document planned")
		if res.Outcome == OutcomeConverted {
			a.deps.Metrics.ObserveDocument(OutcomeConverted, e.PageCount)
		}
	}
}

// auditUnwritten gives converted documents of a failed run their outcome
// line; the other outcomes are logged when the policy is applied.
func (a *Assembler) auditUnwritten(logger zerolog.Logger, rep *Report) {
	for _, d := range rep.Documents {
		if d.Outcome != OutcomeConverted {
			continue
		}
		logger.Info().Str("outcome", d.Outcome).Str("path", d.Path).Int("pages", d.Pages).
			Msg("document converted; bundle not written")
	}
}

type noopMetrics struct{}

func (noopMetrics) ObserveDocument(string, int)                  {}
func (noopMetrics) ObserveConversion(Kind, time.Duration, error) {}
func (noopMetrics) ObserveRun(*Report, error)                    {}
