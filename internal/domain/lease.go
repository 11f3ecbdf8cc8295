package domain

import "context"

// Lease grants one instance at a time the right to run a periodic job.
type Lease interface {
	// AcquireOrRenew reports whether this instance holds the lease after the call.
	AcquireOrRenew(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}
