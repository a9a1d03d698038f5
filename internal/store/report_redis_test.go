package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/local/pdfbinder/internal/bundle"
)

func testStore(t *testing.T) *RedisReports {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rs, err := NewRedisReports(ctx, url, time.Minute)
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = rs.Close() })
	return rs
}

func TestRedisReports_SaveGet(t *testing.T) {
	rs := testStore(t)
	ctx := context.Background()

	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rep := &bundle.Report{
		RunID:      uuid.NewString(),
		Output:     "bundle.pdf",
		TOCPages:   1,
		TotalPages: 10,
		Iterations: 1,
		Written:    true,
		Started:    started,
		Finished:   started.Add(3 * time.Second),
		Documents: []bundle.DocumentResult{
			{Path: "Contract.pdf", Title: "Contract.pdf", Outcome: bundle.OutcomeConverted, Pages: 5, StartPage: 3, BatesStart: 1, BatesEnd: 5},
			{Path: "Exhibit_A.docx", Title: "Exhibit_A.docx", Outcome: bundle.OutcomeSkipped, Error: "timed out"},
		},
	}
	if err := rs.Save(ctx, rep, nil); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	t.Cleanup(func() {
		rs.client.Del(ctx, rs.key(rep.RunID))
		rs.client.ZRem(ctx, rs.indexKey(), rep.RunID)
	})

	got, runErr, err := rs.Get(ctx, rep.RunID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if runErr != "" || !got.Written || got.TotalPages != 10 || !got.Finished.Equal(rep.Finished) {
		t.Errorf("report = %+v (err %q)", got, runErr)
	}
	if len(got.Documents) != 2 || got.Documents[1].Outcome != bundle.OutcomeSkipped {
		t.Errorf("documents = %+v", got.Documents)
	}
	if ttl := rs.client.TTL(ctx, rs.key(rep.RunID)).Val(); ttl <= 0 {
		t.Errorf("ttl = %v", ttl)
	}

	ids, err := rs.Recent(ctx, 1000)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, id := range ids {
		found = found || id == rep.RunID
	}
	if !found {
		t.Error("run not indexed")
	}
}

func TestRedisReports_FailedRun(t *testing.T) {
	rs := testStore(t)
	ctx := context.Background()

	rep := &bundle.Report{RunID: uuid.NewString(), Finished: time.Now()}
	if err := rs.Save(ctx, rep, &bundle.ConversionError{Path: "bad.docx", Cause: errors.New("corrupt")}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		rs.client.Del(ctx, rs.key(rep.RunID))
		rs.client.ZRem(ctx, rs.indexKey(), rep.RunID)
	})

	got, runErr, err := rs.Get(ctx, rep.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Written || runErr == "" {
		t.Errorf("report = %+v err %q", got, runErr)
	}
}

func TestRedisReports_NotFound(t *testing.T) {
	rs := testStore(t)
	if _, _, err := rs.Get(context.Background(), uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestNewRedisReports_BadURL(t *testing.T) {
	t.Parallel()
	if _, err := NewRedisReports(context.Background(), "not a url", time.Minute); err == nil {
		t.Error("expected parse error")
	}
}
