package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/local/pdfbinder/internal/bundle"
)

// ErrNotFound is returned when no report exists for a run id.
var ErrNotFound = errors.New("report not found")

// RedisReports keeps bundle run reports so an operator can inspect past
// runs, including which documents were skipped.
type RedisReports struct {
	client *redis.Client
	keyNS  string
	ttl    time.Duration
}

// NewRedisReports connects to redisURL and checks the connection.
func NewRedisReports(ctx context.Context, redisURL string, ttl time.Duration) (*RedisReports, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	c := redis.NewClient(opt)
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisReportsFromClient(c, ttl), nil
}

// NewRedisReportsFromClient wraps an existing client.
func NewRedisReportsFromClient(c *redis.Client, ttl time.Duration) *RedisReports {
	return &RedisReports{client: c, keyNS: "pdfbinder", ttl: ttl}
}

func (s *RedisReports) key(runID string) string { return fmt.Sprintf("%s:run:%s", s.keyNS, runID) }
func (s *RedisReports) indexKey() string       { return s.keyNS + ":runs" }

// Save stores the report hash and indexes the run by finish time.
func (s *RedisReports) Save(ctx context.Context, rep *bundle.Report, runErr error) error {
	docs, err := json.Marshal(rep.Documents)
	if err != nil {
		return fmt.Errorf("encode documents: %w", err)
	}
	status := "written"
	if !rep.Written {
		status = "failed"
	}
	m := map[string]interface{}{
		"status":      status,
		"output":      rep.Output,
		"toc_pages":   rep.TOCPages,
		"total_pages": rep.TotalPages,
		"iterations":  rep.Iterations,
		"skipped":     len(rep.Skipped()),
		"start":       rep.Started.Format(time.RFC3339Nano),
		"end":         rep.Finished.Format(time.RFC3339Nano),
		"documents":   string(docs),
	}
	if runErr != nil {
		m["error"] = runErr.Error()
	}

	key := s.key(rep.RunID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, m)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(rep.Finished.Unix()), Member: rep.RunID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save report %s: %w", rep.RunID, err)
	}
	return nil
}

// Get loads a stored report.
func (s *RedisReports) Get(ctx context.Context, runID string) (*bundle.Report, string, error) {
	res, err := s.client.HGetAll(ctx, s.key(runID)).Result()
	if err != nil {
		return nil, "", err
	}
	if len(res) == 0 {
		return nil, "", ErrNotFound
	}
	rep := &bundle.Report{RunID: runID, Output: res["output"], Written: res["status"] == "written"}
	fmt.Sscan(res["toc_pages"], &rep.TOCPages)
	fmt.Sscan(res["total_pages"], &rep.TotalPages)
	fmt.Sscan(res["iterations"], &rep.Iterations)
	if t, err := time.Parse(time.RFC3339Nano, res["start"]); err == nil {
		rep.Started = t
	}
	if t, err := time.Parse(time.RFC3339Nano, res["end"]); err == nil {
		rep.Finished = t
	}
	if v := res["documents"]; v != "" {
		if err := json.Unmarshal([]byte(v), &rep.Documents); err != nil {
			return nil, "", fmt.Errorf("decode documents: %w", err)
		}
	}
	return rep, res["error"], nil
}

// Recent returns up to n run ids, newest first.
func (s *RedisReports) Recent(ctx context.Context, n int64) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	return s.client.ZRevRange(ctx, s.indexKey(), 0, n-1).Result()
}

func (s *RedisReports) Close() error { return s.client.Close() }
