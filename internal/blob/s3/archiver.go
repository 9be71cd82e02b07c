package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/eventarb/internal/domain"
)

// Archiver moves aged execution and opportunity records out of the primary
// store into S3 cold storage as JSONL files, then prunes the archived rows.
// Pruning happens only after the upload succeeded; a failed upload leaves the
// rows where they are and the next run retries them.
type Archiver struct {
	writer        domain.BlobWriter
	executions    domain.ExecutionStore
	opportunities domain.OpportunityStore
	retention     time.Duration
	logger        *slog.Logger
}

// NewArchiver creates an Archiver keeping records for the given retention.
func NewArchiver(
	writer domain.BlobWriter,
	executions domain.ExecutionStore,
	opportunities domain.OpportunityStore,
	retention time.Duration,
	logger *slog.Logger,
) *Archiver {
	return &Archiver{
		writer:        writer,
		executions:    executions,
		opportunities: opportunities,
		retention:     retention,
		logger:        logger.With("component", "archiver"),
	}
}

// Run executes a single archive pass over both stores.
func (a *Archiver) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-a.retention)

	execs, err := a.archiveExecutions(ctx, cutoff)
	if err != nil {
		return err
	}
	opps, err := a.archiveOpportunities(ctx, cutoff)
	if err != nil {
		return err
	}

	a.logger.Info("archive pass complete",
		"cutoff", cutoff,
		"executions", execs,
		"opportunities", opps)
	return nil
}

// RunEvery runs archive passes at the given interval until ctx is done.
func (a *Archiver) RunEvery(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.Run(ctx); err != nil {
				a.logger.Error("archive pass failed", "error", err)
			}
		}
	}
}

func (a *Archiver) archiveExecutions(ctx context.Context, cutoff time.Time) (int64, error) {
	records, err := a.executions.ListBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive executions query: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive executions marshal: %w", err)
	}

	path := archivePath("executions", cutoff)
	if err := a.upload(ctx, path, buf); err != nil {
		return 0, fmt.Errorf("s3blob: archive executions upload: %w", err)
	}

	deleted, err := a.executions.DeleteBefore(ctx, cutoff)
	if err != nil {
		return int64(len(records)), fmt.Errorf("s3blob: prune executions: %w", err)
	}
	return deleted, nil
}

func (a *Archiver) archiveOpportunities(ctx context.Context, cutoff time.Time) (int64, error) {
	records, err := a.opportunities.ListBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities query: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities marshal: %w", err)
	}

	path := archivePath("opportunities", cutoff)
	if err := a.upload(ctx, path, buf); err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities upload: %w", err)
	}

	deleted, err := a.opportunities.DeleteBefore(ctx, cutoff)
	if err != nil {
		return int64(len(records)), fmt.Errorf("s3blob: prune opportunities: %w", err)
	}
	return deleted, nil
}

// multipartThreshold is the payload size above which uploads switch to the
// chunked path when the backend supports it.
const multipartThreshold = 32 * 1024 * 1024

// upload sends one archive file, using a multipart upload for large payloads.
func (a *Archiver) upload(ctx context.Context, path string, payload []byte) error {
	if mp, ok := a.writer.(domain.BlobMultipartWriter); ok && int64(len(payload)) > multipartThreshold {
		return mp.PutMultipart(ctx, path, bytes.NewReader(payload), minPartSize)
	}
	return a.writer.Put(ctx, path, bytes.NewReader(payload), "application/x-ndjson")
}

// marshalJSONL serializes a slice of records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range records {
		if err := enc.Encode(records[i]); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// archivePath returns the object key for an archive file, grouped by month
// of the cutoff: archive/{kind}/YYYY-MM.jsonl.
func archivePath(kind string, cutoff time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, cutoff.Format("2006-01"))
}
