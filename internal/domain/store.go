package domain

import (
	"context"
	"io"
	"time"
)

// ExecutionStore persists commit attempts and their legs for PnL history.
type ExecutionStore interface {
	Create(ctx context.Context, outcome ExecutionOutcome) error
	GetByID(ctx context.Context, id string) (ExecutionOutcome, error)
	ListRecent(ctx context.Context, limit int) ([]ExecutionOutcome, error)
	ListBefore(ctx context.Context, before time.Time) ([]ExecutionOutcome, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// OpportunityStore persists detected opportunities, including rejected ones,
// so rejection reasons remain auditable after the scan batch is gone.
type OpportunityStore interface {
	Insert(ctx context.Context, opp Opportunity, accepted bool, reason string) error
	ListRecent(ctx context.Context, limit int) ([]Opportunity, error)
	ListBefore(ctx context.Context, before time.Time) ([]Opportunity, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// BlobWriter uploads an object to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// BlobMultipartWriter is an optional extension of BlobWriter for backends
// that support chunked uploads of large objects.
type BlobMultipartWriter interface {
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}
