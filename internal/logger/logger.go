// Package logger configures the process-wide zerolog logger for a CLI run:
// console output, a rotated diagnostic file and optional Axiom shipping.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/axiomhq/axiom-go/axiom/ingest"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Service is attached to every event shipped to Axiom.
const Service = "pdfbinder"

// maxBuffered bounds the events held for Axiom during one run.
const maxBuffered = 10000

// Options defines logger initialization parameters.
type Options struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// Console receives human or JSON output; nil means stderr so the
	// bundle summary on stdout stays clean.
	Console io.Writer

	// Axiom
	SendToAxiom  bool
	AxiomAPIKey  string
	AxiomOrgID   string
	AxiomDataset string
	AxiomTimeout time.Duration
}

var sink *axiomSink

// Init sets up the global logger. Events at info and above are buffered
// for Axiom and shipped by Close.
func Init(opts Options) error {
	var writers []io.Writer
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return fmt.Errorf("create logs dir: %w", err)
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		})
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	if opts.Pretty {
		console = zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339}
	}
	writers = append(writers, console)

	if opts.SendToAxiom && opts.AxiomAPIKey != "" {
		s, err := newAxiomSink(opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Axiom disabled: %v\n", err)
		} else {
			sink = s
			writers = append(writers, s)
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		lvl = zerolog.InfoLevel
	}
	log.Logger = zerolog.New(io.MultiWriter(writers...)).Level(lvl).With().Timestamp().Logger()
	return nil
}

// Close ships buffered Axiom events. It is safe to call without Init.
func Close() {
	if sink == nil {
		return
	}
	if err := sink.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Axiom ingest failed: %v\n", err)
	}
	sink = nil
}

type ingester interface {
	IngestEvents(ctx context.Context, dataset string, events []axiom.Event, options ...ingest.Option) (*ingest.Status, error)
}

// axiomSink collects zerolog JSON lines for a single ingest at exit.
// Debug events are dropped and so is anything past maxBuffered.
type axiomSink struct {
	client  ingester
	dataset string
	timeout time.Duration

	mu      sync.Mutex
	events  []axiom.Event
	dropped int
}

func newAxiomSink(opts Options) (*axiomSink, error) {
	co := []axiom.Option{axiom.SetToken(opts.AxiomAPIKey)}
	if opts.AxiomOrgID != "" {
		co = append(co, axiom.SetOrganizationID(opts.AxiomOrgID))
	}
	c, err := axiom.NewClient(co...)
	if err != nil {
		return nil, err
	}
	dataset := opts.AxiomDataset
	if dataset == "" {
		dataset = "dev_" + Service
	}
	return &axiomSink{client: c, dataset: dataset, timeout: opts.AxiomTimeout}, nil
}

func (s *axiomSink) Write(p []byte) (int, error) {
	var ev map[string]interface{}
	if err := json.Unmarshal(p, &ev); err != nil {
		ev = map[string]interface{}{"message": string(p), "level": "info"}
	}
	if lvl, _ := ev["level"].(string); lvl == "debug" || lvl == "trace" {
		return len(p), nil
	}
	ev["service"] = Service
	if _, ok := ev[ingest.TimestampField]; !ok {
		ev[ingest.TimestampField] = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) >= maxBuffered {
		s.dropped++
		return len(p), nil
	}
	s.events = append(s.events, axiom.Event(ev))
	return len(p), nil
}

func (s *axiomSink) Close() error {
	s.mu.Lock()
	events, dropped := s.events, s.dropped
	s.events, s.dropped = nil, 0
	s.mu.Unlock()

	if dropped > 0 {
		events = append(events, axiom.Event{
			"level":              "warn",
			"service":            Service,
			"message":            "log events dropped",
			"dropped":            dropped,
			ingest.TimestampField: time.Now(),
		})
	}
	if len(events) == 0 {
		return nil
	}
	timeout := s.timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_, err := s.client.IngestEvents(ctx, s.dataset, events)
	return err
}
