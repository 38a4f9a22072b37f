package store

import (
	"context"
	"time"

	"github.com/loomhaven/order-cli/internal/model"
)

// LineFilter specifies criteria for listing stored order lines.
type LineFilter struct {
	OrderID    string `json:"order_id,omitempty"`
	BuyerName  string `json:"buyer_name,omitempty"`
	SourceFile string `json:"source_file,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

// RunFilter specifies criteria for listing merge runs.
type RunFilter struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// PushFilter specifies criteria for dequeuing failed pushes.
type PushFilter struct {
	ErrorType string `json:"error_type,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// Store defines the persistence interface for the order workflow.
type Store interface {
	// Order lines
	ReplaceOrderLines(ctx context.Context, sourceFile string, lines []model.OrderLine) ([]model.StoredOrderLine, error)
	ListOrderLines(ctx context.Context, filter LineFilter) ([]model.StoredOrderLine, error)

	// Merge runs
	CreateMergeRun(ctx context.Context, run model.MergeRun) (*model.MergeRun, error)
	GetMergeRun(ctx context.Context, runID string) (*model.MergeRun, error)
	ListMergeRuns(ctx context.Context, filter RunFilter) ([]model.MergeRun, error)

	// Failed pushes
	EnqueueFailedPush(ctx context.Context, push model.FailedPush) error
	DequeueFailedPushes(ctx context.Context, filter PushFilter) ([]model.FailedPush, error)
	IncrementPushRetry(ctx context.Context, id string, nextRetryAt time.Time, lastErr string) error
	RemoveFailedPush(ctx context.Context, id string) error
	CountFailedPushes(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
