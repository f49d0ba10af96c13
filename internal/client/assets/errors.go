package assets

import (
	"fmt"

	"github.com/dmitrijs2005/gatherer/internal/client/client"
	"github.com/dmitrijs2005/gatherer/internal/common"
)

// IntegrityError means downloaded bytes did not hash to the asset's
// recorded hash, or the recorded hash cannot be checked at all (Reason is
// set then). The bytes are discarded and nothing is cached.
type IntegrityError struct {
	AssetID  int64
	Expected string
	Actual   string
	Reason   error
}

func (e *IntegrityError) Error() string {
	if e.Reason != nil {
		return fmt.Sprintf("asset %d failed integrity check: %v", e.AssetID, e.Reason)
	}
	return fmt.Sprintf("asset %d failed integrity check: expected hash %s, got %s", e.AssetID, e.Expected, e.Actual)
}

func (e *IntegrityError) Unwrap() []error {
	if e.Reason != nil {
		return []error{common.ErrIntegrity, e.Reason}
	}
	return []error{common.ErrIntegrity}
}

// TransportError wraps a network, auth or storage failure. Err keeps the
// cause, so errors.Is(err, client.ErrUnauthorized) still works.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{common.ErrTransport, e.Err} }

// ValidationError is an upload the backend or storage refused, such as
// duplicate content. Message is ready to show to the user.
type ValidationError struct {
	Message string
	Payload client.ErrorPayload
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return common.ErrorValidation }
