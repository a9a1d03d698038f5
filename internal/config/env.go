package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// Sentinel errors for config operations.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrConfigParse   = errors.New("failed to parse config file")
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Pretty     bool   `yaml:"pretty"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send    bool          `yaml:"send"`
	APIKey  string        `yaml:"api_key"`
	OrgID   string        `yaml:"org_id"`
	Dataset string        `yaml:"dataset"`
	Timeout time.Duration `yaml:"timeout"`
}

// BatesConfig controls Bates numbering.
type BatesConfig struct {
	Start    int    `yaml:"bates_start"`
	FontSize int    `yaml:"bates_font_size"`
	Prefix   string `yaml:"bates_prefix"`
	Digits   int    `yaml:"bates_digits"`
}

// CoverTemplateConfig holds text/template strings for cover page lines.
type CoverTemplateConfig struct {
	Heading string `yaml:"heading"`
	Title   string `yaml:"title"`
	Range   string `yaml:"bates_range"`
}

// BundleConfig controls assembly.
type BundleConfig struct {
	OutputPath        string              `yaml:"output_path"`
	IncludeCoverPages bool                `yaml:"include_cover_pages"`
	CoverTemplate     CoverTemplateConfig `yaml:"cover_page_template"`
	TOCTitle          string              `yaml:"toc_title"`
	TOCMaxIterations  int                 `yaml:"toc_max_iterations"`
	FailurePolicy     string              `yaml:"failure_policy"` // "abort"|"skip"
	SkippedCover      string              `yaml:"skipped_cover"`  // "remove"|"placeholder"
	WorkDir           string              `yaml:"work_dir"`
	StaleWorkAge      time.Duration       `yaml:"stale_work_age"`
}

// ConverterConfig controls document conversion and PDF reading.
type ConverterConfig struct {
	Binary      string        `yaml:"soffice_binary"`
	Timeout     time.Duration `yaml:"convert_timeout"`
	Workers     int           `yaml:"convert_workers"`
	PageCounter string        `yaml:"page_counter"` // "pdfcpu"|"mupdf"
	StrictPDF   bool          `yaml:"strict_pdf"`
}

// MetricsConfig defines where run metrics go.
type MetricsConfig struct {
	Textfile       string `yaml:"textfile"`
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// StoreConfig defines the optional run report store.
type StoreConfig struct {
	RedisURL  string        `yaml:"redis_url"`
	ReportTTL time.Duration `yaml:"report_ttl"`
}

// Config is the top-level configuration.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Axiom     AxiomConfig     `yaml:"axiom"`
	Bates     BatesConfig     `yaml:"bates"`
	Bundle    BundleConfig    `yaml:"bundle"`
	Converter ConverterConfig `yaml:"converter"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Store     StoreConfig     `yaml:"store"`
}

// Load reads .env (if present), environment variables and then the optional
// YAML file, which overrides the environment. Callers apply their own
// overrides and then call Validate.
func Load(file string) (Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()
	cfg := FromEnv()
	if file != "" {
		if err := cfg.LoadFile(file); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/pdfbinder.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "20"), 20),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "5"), 5),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "90"), 90),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	cfg.Axiom = AxiomConfig{
		Send:    parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:  getEnv("AXIOM_API_KEY", ""),
		OrgID:   getEnv("AXIOM_ORG_ID", ""),
		Dataset: getEnv("AXIOM_DATASET", "dev") + "_pdfbinder",
		Timeout: parseDuration(getEnv("AXIOM_TIMEOUT", "15s"), 15*time.Second),
	}

	cfg.Bates = BatesConfig{
		Start:    parseInt(getEnv("BATES_START", "1"), 1),
		FontSize: parseInt(getEnv("BATES_FONT_SIZE", "14"), 14),
		Prefix:   getEnv("BATES_PREFIX", ""),
		Digits:   parseInt(getEnv("BATES_DIGITS", "6"), 6),
	}

	cfg.Bundle = BundleConfig{
		OutputPath:        getEnv("OUTPUT_PATH", "final_output.pdf"),
		IncludeCoverPages: parseBool(getEnv("INCLUDE_COVER_PAGES", "true")),
		CoverTemplate: CoverTemplateConfig{
			Heading: getEnv("COVER_HEADING", "DOCUMENT INDEX"),
			Title:   getEnv("COVER_TITLE", "{{.Title}}"),
			Range:   getEnv("COVER_BATES_RANGE", "{{.BatesRange}}"),
		},
		TOCTitle:         getEnv("TOC_TITLE", "TABLE OF CONTENTS"),
		TOCMaxIterations: parseInt(getEnv("TOC_MAX_ITERATIONS", "5"), 5),
		FailurePolicy:    getEnv("FAILURE_POLICY", "abort"),
		SkippedCover:     getEnv("SKIPPED_COVER", "remove"),
		WorkDir:          getEnv("WORK_DIR", os.TempDir()),
		StaleWorkAge:     parseDuration(getEnv("STALE_WORK_AGE", "24h"), 24*time.Hour),
	}

	cfg.Converter = ConverterConfig{
		Binary:      getEnv("SOFFICE_BINARY", "soffice"),
		Timeout:     parseDuration(getEnv("CONVERT_TIMEOUT", "180s"), 180*time.Second),
		Workers:     parseInt(getEnv("CONVERT_WORKERS", "1"), 1),
		PageCounter: getEnv("PAGE_COUNTER", "pdfcpu"),
		StrictPDF:   parseBool(getEnv("STRICT_PDF", "true")),
	}

	cfg.Metrics = MetricsConfig{
		Textfile:       getEnv("METRICS_TEXTFILE", ""),
		PushgatewayURL: getEnv("PUSHGATEWAY_URL", ""),
		Job:            getEnv("METRICS_JOB", "pdfbinder"),
	}

	cfg.Store = StoreConfig{
		RedisURL:  getEnv("REDIS_URL", ""),
		ReportTTL: parseDuration(getEnv("REPORT_TTL", "720h"), 720*time.Hour),
	}

	return cfg
}

// LoadFile overlays values from a YAML file onto cfg. Unknown keys are rejected.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := yaml.UnmarshalWithOptions(data, c, yaml.Strict()); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfigParse, path, err)
	}
	return nil
}

// Validate checks option ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Bates.Start < 0 {
		errs = append(errs, fmt.Errorf("bates_start must be >= 0, got %d", c.Bates.Start))
	}
	if c.Bates.FontSize <= 0 {
		errs = append(errs, fmt.Errorf("bates_font_size must be > 0, got %d", c.Bates.FontSize))
	}
	if c.Bates.Digits < 0 || c.Bates.Digits > 12 {
		errs = append(errs, fmt.Errorf("bates_digits must be between 0 and 12, got %d", c.Bates.Digits))
	}
	if strings.TrimSpace(c.Bundle.OutputPath) == "" {
		errs = append(errs, errors.New("output_path is required"))
	}
	switch c.Bundle.FailurePolicy {
	case "abort", "skip":
	default:
		errs = append(errs, fmt.Errorf("failure_policy must be abort or skip, got %q", c.Bundle.FailurePolicy))
	}
	switch c.Bundle.SkippedCover {
	case "remove", "placeholder":
	default:
		errs = append(errs, fmt.Errorf("skipped_cover must be remove or placeholder, got %q", c.Bundle.SkippedCover))
	}
	if c.Bundle.TOCMaxIterations < 1 {
		errs = append(errs, fmt.Errorf("toc_max_iterations must be >= 1, got %d", c.Bundle.TOCMaxIterations))
	}
	if c.Converter.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("convert_timeout must be positive, got %s", c.Converter.Timeout))
	}
	if c.Converter.Workers < 1 {
		errs = append(errs, fmt.Errorf("convert_workers must be >= 1, got %d", c.Converter.Workers))
	}
	switch strings.ToLower(c.Converter.PageCounter) {
	case "pdfcpu", "mupdf":
	default:
		errs = append(errs, fmt.Errorf("page_counter must be pdfcpu or mupdf, got %q", c.Converter.PageCounter))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
