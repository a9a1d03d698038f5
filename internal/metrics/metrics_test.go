package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/local/pdfbinder/internal/bundle"
)

func TestRecorder(t *testing.T) {
	t.Parallel()

	r := New()
	r.ObserveDocument(bundle.OutcomeConverted, 5)
	r.ObserveDocument(bundle.OutcomeConverted, 3)
	r.ObserveDocument(bundle.OutcomeSkipped, 0)
	r.ObserveConversion(bundle.KindConvertible, 2*time.Second, nil)
	r.ObserveConversion(bundle.KindConvertible, time.Second, errors.New("timeout"))
	r.ObserveRun(&bundle.Report{TOCPages: 2, TotalPages: 40, Iterations: 2, Finished: time.Unix(1700000000, 0)}, nil)

	if got := testutil.ToFloat64(r.documents.WithLabelValues(bundle.OutcomeConverted)); got != 2 {
		t.Errorf("converted documents = %v", got)
	}
	if got := testutil.ToFloat64(r.pages.WithLabelValues(bundle.OutcomeConverted)); got != 8 {
		t.Errorf("converted pages = %v", got)
	}
	if got := testutil.ToFloat64(r.conversions.WithLabelValues("convertible", "error")); got != 1 {
		t.Errorf("failed conversions = %v", got)
	}
	if got := testutil.ToFloat64(r.tocPages); got != 2 {
		t.Errorf("toc pages = %v", got)
	}
	if got := testutil.ToFloat64(r.lastRun); got != 1700000000 {
		t.Errorf("last run = %v", got)
	}
	if n := testutil.CollectAndCount(r.convLatency); n != 1 {
		t.Errorf("latency series = %d", n)
	}
}

func TestRecorder_FailedRunKeepsGauges(t *testing.T) {
	t.Parallel()

	r := New()
	r.ObserveRun(&bundle.Report{TOCPages: 1, TotalPages: 10}, nil)
	r.ObserveRun(&bundle.Report{TOCPages: 3, TotalPages: 99}, errors.New("boom"))

	if got := testutil.ToFloat64(r.totalPages); got != 10 {
		t.Errorf("total pages = %v, want last successful 10", got)
	}
	if got := testutil.ToFloat64(r.runs.WithLabelValues("error")); got != 1 {
		t.Errorf("failed runs = %v", got)
	}
}

func TestRecorder_WriteTextfile(t *testing.T) {
	t.Parallel()

	r := New()
	r.ObserveDocument(bundle.OutcomePlaceholder, 0)
	p := filepath.Join(t.TempDir(), "pdfbinder.prom")
	if err := r.WriteTextfile(p); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `pdfbinder_documents_total{outcome="placeholder"} 1`) {
		t.Errorf("textfile missing document counter:\n%s", data)
	}
}
