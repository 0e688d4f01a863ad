package batches

import "context"

// IBatches looks up test batches. A missing batch is reported with ok=false
// and a nil error.
type IBatches interface {
	GetBatchID(ctx context.Context, ref string) (batchID string, ok bool, err error)
	GetBatchSummary(ctx context.Context, batchID string) (summary BatchSummary, ok bool, err error)
}

var _ IBatches = (*Client)(nil)
