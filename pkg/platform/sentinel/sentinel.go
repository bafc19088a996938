package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and outbound clients return
// these (optionally wrapped) so services can decide on a failure policy
// without knowing which backend produced them.
//
//   - ErrUnavailable: a backing service could not be reached or answered badly
//   - ErrNotConfigured: an optional collaborator has no configuration
//   - ErrMalformed: a collaborator answered with a payload we cannot interpret
var (
	ErrUnavailable   = errors.New("unavailable")
	ErrNotConfigured = errors.New("not configured")
	ErrMalformed     = errors.New("malformed response")
)
