package statuscheck

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeInstall struct {
	version string
	err     error
}

func (f fakeInstall) CheckInstallation(context.Context) (string, error) { return f.version, f.err }

type fakeBucket struct {
	err    error
	bucket string
}

func (f *fakeBucket) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	f.bucket = *in.Bucket
	return &s3.HeadBucketOutput{}, f.err
}

func TestSummary_AllHealthy(t *testing.T) {
	t.Parallel()

	fb := &fakeBucket{}
	c := New(Options{
		Converter: fakeInstall{version: "LibreOffice 7.6"},
		Redis:     PingFunc(func(context.Context) error { return nil }),
		Bucket:    "exhibits",
		S3:        func(context.Context) (BucketHeader, error) { return fb, nil },
		WorkDir:   t.TempDir(),
	})
	s := c.Summary(context.Background())
	if !s.Healthy() {
		t.Fatalf("summary = %+v", s)
	}
	if s.LibreOffice.Message != "LibreOffice 7.6" {
		t.Errorf("LibreOffice message = %q", s.LibreOffice.Message)
	}
	if fb.bucket != "exhibits" {
		t.Errorf("HeadBucket bucket = %q", fb.bucket)
	}
}

func TestSummary_Unconfigured(t *testing.T) {
	t.Parallel()

	s := New(Options{WorkDir: t.TempDir()}).Summary(context.Background())
	if !s.Healthy() {
		t.Errorf("unconfigured subsystems must not fail: %+v", s)
	}
	if s.Redis.Configured || s.S3.Configured || s.LibreOffice.Configured {
		t.Errorf("summary = %+v", s)
	}
}

func TestSummary_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts Options
		pick func(Summary) Status
	}{
		{
			name: "converter missing",
			opts: Options{Converter: fakeInstall{err: errors.New("LibreOffice not found in PATH")}},
			pick: func(s Summary) Status { return s.LibreOffice },
		},
		{
			name: "redis down",
			opts: Options{Redis: PingFunc(func(context.Context) error { return errors.New("connection refused") })},
			pick: func(s Summary) Status { return s.Redis },
		},
		{
			name: "bucket missing",
			opts: Options{
				Bucket: "gone",
				S3:     func(context.Context) (BucketHeader, error) { return &fakeBucket{err: errors.New("NotFound")}, nil },
			},
			pick: func(s Summary) Status { return s.S3 },
		},
		{
			name: "work dir missing",
			opts: Options{WorkDir: filepath.Join("does", "not", "exist")},
			pick: func(s Summary) Status { return s.WorkDir },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.opts.WorkDir == "" {
				tt.opts.WorkDir = t.TempDir()
			}
			s := New(tt.opts).Summary(context.Background())
			st := tt.pick(s)
			if st.OK || !st.Configured || st.Message == "" {
				t.Errorf("status = %+v", st)
			}
			if s.Healthy() {
				t.Error("Healthy() = true")
			}
		})
	}
}

func TestTrimError(t *testing.T) {
	t.Parallel()

	if got := trimError(context.DeadlineExceeded); got != "timeout" {
		t.Errorf("trimError(deadline) = %q", got)
	}
	long := errors.New(strings.Repeat("e", 300))
	if got := trimError(long); len(got) != 120 {
		t.Errorf("len = %d", len(got))
	}
}
