package app

import "context"

// ApplicationService is the interface the web adapter calls. It decouples
// presentation from business logic; implementations contain no HTTP or
// display concerns.
type ApplicationService interface {
	// CreatePayable runs the accounts-payable creation transaction and
	// returns the new document id. Validation failures surface as
	// *core.ValidationError before any state is written.
	CreatePayable(ctx context.Context, req CreatePayableRequest) (*CreatePayableResult, error)

	// Health reports whether the backing store is reachable.
	Health(ctx context.Context) error
}
