package logger

import (
	"bytes"
	"context"
	"errors"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/axiomhq/axiom-go/axiom/ingest"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestInit_FileAndConsole(t *testing.T) {
	var console bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "pdfbinder.log")

	if err := Init(Options{Level: "debug", File: file, MaxSizeMB: 1, Console: &console}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer Close()

	log.Info().Str("path", "Contract.pdf").Int("pages", 5).Msg("document converted")
	log.Debug().Msg("plan pass")

	var ev map[string]interface{}
	first := strings.SplitN(console.String(), "\n", 2)[0]
	if err := json.Unmarshal([]byte(first), &ev); err != nil {
		t.Fatalf("console line %q: %v", first, err)
	}
	if ev["message"] != "document converted" || ev["path"] != "Contract.pdf" {
		t.Errorf("event = %v", ev)
	}
	if !strings.Contains(console.String(), "plan pass") {
		t.Error("debug level not honored")
	}

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("log file: %v", err)
	}
	if !strings.Contains(string(data), "document converted") {
		t.Errorf("log file missing event: %s", data)
	}
}

func TestInit_LevelFallback(t *testing.T) {
	var console bytes.Buffer
	if err := Init(Options{Level: "chatty", Console: &console}); err != nil {
		t.Fatal(err)
	}
	defer Close()

	log.Debug().Msg("hidden")
	log.Info().Msg("shown")
	if strings.Contains(console.String(), "hidden") || !strings.Contains(console.String(), "shown") {
		t.Errorf("console = %q", console.String())
	}
	if lvl := log.Logger.GetLevel(); lvl != zerolog.InfoLevel {
		t.Errorf("level = %s", lvl)
	}
}

func TestInit_Pretty(t *testing.T) {
	var console bytes.Buffer
	if err := Init(Options{Pretty: true, Console: &console}); err != nil {
		t.Fatal(err)
	}
	defer Close()

	log.Warn().Str("path", "Exhibit_A.pdf").Msg("document skipped")
	out := console.String()
	if strings.HasPrefix(out, "{") || !strings.Contains(out, "document skipped") {
		t.Errorf("pretty output = %q", out)
	}
}

type fakeIngester struct {
	dataset string
	events  []axiom.Event
	err     error
}

func (f *fakeIngester) IngestEvents(_ context.Context, dataset string, events []axiom.Event, _ ...ingest.Option) (*ingest.Status, error) {
	f.dataset = dataset
	f.events = append(f.events, events...)
	return &ingest.Status{}, f.err
}

func TestAxiomSink(t *testing.T) {
	t.Parallel()

	fi := &fakeIngester{}
	s := &axiomSink{client: fi, dataset: "dev_pdfbinder"}
	l := zerolog.New(s)
	l.Debug().Msg("plan pass")
	l.Info().Str("path", "Contract.pdf").Msg("document converted")
	l.Warn().Msg("document skipped")

	if len(fi.events) != 0 {
		t.Fatal("events shipped before Close")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if fi.dataset != "dev_pdfbinder" || len(fi.events) != 2 {
		t.Fatalf("ingested %d events into %q", len(fi.events), fi.dataset)
	}
	if fi.events[0]["service"] != Service || fi.events[0]["path"] != "Contract.pdf" {
		t.Errorf("event = %v", fi.events[0])
	}
	if _, ok := fi.events[0][ingest.TimestampField]; !ok {
		t.Error("event has no timestamp")
	}

	if err := s.Close(); err != nil || len(fi.events) != 2 {
		t.Errorf("second Close() shipped again: %v", err)
	}
}

func TestAxiomSink_Overflow(t *testing.T) {
	t.Parallel()

	fi := &fakeIngester{err: errors.New("unauthorized")}
	s := &axiomSink{client: fi, dataset: "d"}
	l := zerolog.New(s)
	for i := 0; i < maxBuffered+3; i++ {
		l.Info().Msg("x")
	}
	if err := s.Close(); err == nil {
		t.Error("ingest error not returned")
	}
	last := fi.events[len(fi.events)-1]
	if len(fi.events) != maxBuffered+1 || last["dropped"] != 3 {
		t.Errorf("%d events, last = %v", len(fi.events), last)
	}
}
