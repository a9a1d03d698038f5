// Package statuscheck probes the tools and services a bundle run depends on.
package statuscheck

import (
	"context"
	"errors"
	"os"
	"time"

	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Pinger models the minimal Redis capability the report store check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Installation reports the converter version or why it cannot run.
type Installation interface {
	CheckInstallation(ctx context.Context) (string, error)
}

// BucketHeader is the part of the S3 client used to verify the output bucket.
type BucketHeader interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Options configures the Checker. Nil or empty fields mark optional
// subsystems as not configured.
type Options struct {
	Converter Installation
	Redis     Pinger
	Bucket    string
	S3        func(ctx context.Context) (BucketHeader, error)
	WorkDir   string
	Timeout   time.Duration
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK         bool   `json:"ok"`
	Configured bool   `json:"configured"`
	Message    string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
	LibreOffice Status `json:"libreoffice"`
	WorkDir     Status `json:"work_dir"`
	Redis       Status `json:"redis"`
	S3          Status `json:"s3"`
}

// Healthy reports whether every configured subsystem is ready.
func (s Summary) Healthy() bool {
	for _, st := range []Status{s.LibreOffice, s.WorkDir, s.Redis, s.S3} {
		if st.Configured && !st.OK {
			return false
		}
	}
	return true
}

// Checker aggregates health checks for external dependencies.
type Checker struct {
	opts Options
}

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.S3 == nil {
		opts.S3 = defaultS3
	}
	return &Checker{opts: opts}
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
	return Summary{
		LibreOffice: c.checkLibreOffice(ctx),
		WorkDir:     c.checkWorkDir(),
		Redis:       c.checkRedis(ctx),
		S3:          c.checkS3(ctx),
	}
}

func (c *Checker) checkLibreOffice(ctx context.Context) Status {
	if c.opts.Converter == nil {
		return Status{Message: "not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	v, err := c.opts.Converter.CheckInstallation(ctx)
	if err != nil {
		return Status{Configured: true, Message: trimError(err)}
	}
	return Status{OK: true, Configured: true, Message: v}
}

func (c *Checker) checkWorkDir() Status {
	dir := c.opts.WorkDir
	if dir == "" {
		dir = os.TempDir()
	}
	tmp, err := os.MkdirTemp(dir, "pdfbinder-check-*")
	if err != nil {
		return Status{Configured: true, Message: trimError(err)}
	}
	_ = os.Remove(tmp)
	return Status{OK: true, Configured: true, Message: dir}
}

func (c *Checker) checkRedis(ctx context.Context) Status {
	if c.opts.Redis == nil {
		return Status{Message: "not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	if err := c.opts.Redis.Ping(ctx); err != nil {
		return Status{Configured: true, Message: trimError(err)}
	}
	return Status{OK: true, Configured: true, Message: "Connected"}
}

func (c *Checker) checkS3(ctx context.Context) Status {
	if c.opts.Bucket == "" {
		return Status{Message: "not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	cli, err := c.opts.S3(ctx)
	if err != nil {
		return Status{Configured: true, Message: trimError(err)}
	}
	if _, err := cli.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &c.opts.Bucket}); err != nil {
		return Status{Configured: true, Message: trimError(err)}
	}
	return Status{OK: true, Configured: true, Message: "Connected"}
}

func defaultS3(ctx context.Context) (BucketHeader, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg), nil
}

func trimError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	msg := err.Error()
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}
